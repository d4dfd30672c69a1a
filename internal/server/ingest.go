package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/infrastructure/metrics"
	"github.com/logwell/logwell/internal/logstore"
	"github.com/logwell/logwell/internal/model"
	"github.com/logwell/logwell/internal/response"
)

// LogHandler serves the ingest and query endpoints.
type LogHandler struct {
	Logs      LogStore
	Apps      ApplicationStore
	Resolver  *access.Resolver
	Broadcast Broadcaster
	Logger    zerolog.Logger
}

// Ingest validates, persists, and broadcasts one log record
// (POST /api/v1/logs). Broadcast happens only after the durable write
// succeeds, and a broadcast failure never fails the response: the
// record is already stored, realtime delivery is best-effort.
func (h *LogHandler) Ingest(c echo.Context) error {
	p, ok := currentPrincipal(c)
	if !ok {
		return response.FromError(c, apperr.New(apperr.KindAuthentication, "missing credential"))
	}

	var rec model.LogRecord
	if err := c.Bind(&rec); err != nil {
		metrics.IngestTotal.WithLabelValues("invalid").Inc()
		return response.FromError(c, apperr.Validation(map[string]string{
			"body": "request body must be a JSON log record",
		}))
	}

	appID, err := h.ingestApplication(c, p, rec.ApplicationID)
	if err != nil {
		metrics.IngestTotal.WithLabelValues("denied").Inc()
		return response.FromError(c, err)
	}
	rec.ApplicationID = appID

	if err := logstore.Validate(rec); err != nil {
		metrics.IngestTotal.WithLabelValues("invalid").Inc()
		return response.FromError(c, err)
	}

	if err := h.Logs.Append(c.Request().Context(), rec); err != nil {
		metrics.IngestTotal.WithLabelValues("error").Inc()
		h.Logger.Error().Err(err).Str("application_id", appID).Msg("append failed")
		return response.FromError(c, err)
	}
	metrics.IngestTotal.WithLabelValues("ok").Inc()

	h.Broadcast.Broadcast(appID, rec)

	return c.JSON(http.StatusCreated, rec)
}

// ingestApplication determines which application a record belongs to.
// API key callers always write to the key's application; session
// callers name one explicitly and need a visible role on it.
func (h *LogHandler) ingestApplication(c echo.Context, p principal, bodyAppID string) (string, error) {
	if p.viaKey {
		return p.key.ApplicationID.String(), nil
	}

	raw := bodyAppID
	if raw == "" {
		raw = c.QueryParam("applicationId")
	}
	if raw == "" {
		return "", apperr.Validation(map[string]string{
			"applicationId": "applicationId is required for session callers",
		})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperr.Validation(map[string]string{
			"applicationId": "applicationId must be a UUID",
		})
	}
	app, err := h.Apps.GetByID(c.Request().Context(), id)
	if err != nil {
		return "", err
	}
	if _, err := h.Resolver.Require(p.caller, app, access.ActionView); err != nil {
		return "", err
	}
	return id.String(), nil
}
