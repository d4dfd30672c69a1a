package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/infrastructure/metrics"
	"github.com/logwell/logwell/internal/logstore"
	"github.com/logwell/logwell/internal/model"
	"github.com/logwell/logwell/internal/response"
)

// Query returns stored records matching the query-string filters,
// newest first (GET /api/v1/logs). Results are scoped to the caller's
// visible applications before any user filter applies.
func (h *LogHandler) Query(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.QueryDuration.Observe(time.Since(start).Seconds()) }()

	p, ok := currentPrincipal(c)
	if !ok {
		return response.FromError(c, apperr.New(apperr.KindAuthentication, "missing credential"))
	}

	scope, err := h.visibleApplications(c, p)
	if err != nil {
		return response.FromError(c, err)
	}

	filter, err := parseFilter(c)
	if err != nil {
		return response.FromError(c, err)
	}
	filter.ApplicationIDs = scope

	records, err := h.Logs.Query(c.Request().Context(), filter)
	if err != nil {
		h.Logger.Error().Err(err).Msg("log query failed")
		return response.FromError(c, err)
	}
	if records == nil {
		records = []model.LogRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

// visibleApplications returns the application ids the caller may read.
// API key callers see exactly their key's application.
func (h *LogHandler) visibleApplications(c echo.Context, p principal) ([]string, error) {
	if p.viaKey {
		return []string{p.key.ApplicationID.String()}, nil
	}
	apps, err := h.Apps.ListVisible(c.Request().Context(), p.caller.UserID, p.caller.Elevated)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, app.ID.String())
	}
	return ids, nil
}

// parseFilter builds a store filter from the query string. Aliases:
// search|message, from|timestamp_start, to|timestamp_end.
func parseFilter(c echo.Context) (logstore.Filter, error) {
	var f logstore.Filter
	fields := map[string]string{}

	if levels := c.QueryParam("level"); levels != "" {
		for _, part := range strings.Split(levels, ",") {
			l := model.Level(strings.TrimSpace(part))
			if !l.Valid() {
				fields["level"] = "unknown level: " + string(l)
				continue
			}
			f.Levels = append(f.Levels, l)
		}
	}

	f.ResourceID = c.QueryParam("resourceId")
	f.TraceID = c.QueryParam("traceId")
	f.SpanID = c.QueryParam("spanId")
	f.Commit = c.QueryParam("commit")

	f.Message = c.QueryParam("search")
	if f.Message == "" {
		f.Message = c.QueryParam("message")
	}
	if v := c.QueryParam("regex"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["regex"] = "regex must be a boolean"
		}
		f.Regex = b
	}
	if v := c.QueryParam("caseSensitive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["caseSensitive"] = "caseSensitive must be a boolean"
		}
		f.CaseSensitive = b
	}

	if t, ok := parseTimeParam(c, "from", "timestamp_start", fields); ok {
		f.From = t
	}
	if t, ok := parseTimeParam(c, "to", "timestamp_end", fields); ok {
		f.To = t
	}

	if len(fields) > 0 {
		return logstore.Filter{}, apperr.Validation(fields)
	}
	return f, nil
}

func parseTimeParam(c echo.Context, name, alias string, fields map[string]string) (*time.Time, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		raw = c.QueryParam(alias)
	}
	if raw == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		fields[name] = name + " must be an RFC3339 datetime"
		return nil, false
	}
	return &t, true
}
