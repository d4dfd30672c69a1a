package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/keyring"
	"github.com/logwell/logwell/internal/model"
	"github.com/logwell/logwell/internal/response"
)

// ApplicationHandler serves application lifecycle and key rotation.
type ApplicationHandler struct {
	Apps      ApplicationStore
	Keys      KeyStore
	Resolver  *access.Resolver
	Keyring   *keyring.Keyring
	PublicURL string
	Logger    zerolog.Logger
}

type createApplicationRequest struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
}

type createApplicationResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Environment      string    `json:"environment"`
	CreatedAt        time.Time `json:"createdAt"`
	ConnectionURL    string    `json:"connectionUrl"`
	APIKey           string    `json:"apiKey"`
	ConnectionString string    `json:"connectionString"`
}

type rotateResponse struct {
	APIKey           string `json:"apiKey"`
	ConnectionString string `json:"connectionString"`
}

// Create makes a new application and its first API key
// (POST /api/v1/applications). The raw key appears in this response and
// nowhere else, ever.
func (h *ApplicationHandler) Create(c echo.Context) error {
	caller, err := requireSession(c)
	if err != nil {
		return response.FromError(c, err)
	}

	var req createApplicationRequest
	if err := c.Bind(&req); err != nil {
		return response.FromError(c, apperr.Validation(map[string]string{
			"body": "request body must be JSON",
		}))
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name must not be empty"
	}
	env := model.Environment(req.Environment)
	if !env.Valid() {
		fields["environment"] = "environment must be DEVELOPMENT, STAGING or PRODUCTION"
	}
	if len(fields) > 0 {
		return response.FromError(c, apperr.Validation(fields))
	}

	ctx := c.Request().Context()
	owned, err := h.Apps.CountOwnedBy(ctx, caller.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Resolver.AuthorizeCreate(caller, owned); err != nil {
		return response.FromError(c, err)
	}

	app := &model.Application{
		Name:        strings.TrimSpace(req.Name),
		Environment: env,
		OwnerUserID: caller.UserID,
	}
	if err := h.Apps.Create(ctx, app); err != nil {
		return response.FromError(c, err)
	}

	raw, hash, preview, err := h.Keyring.IssueKey()
	if err != nil {
		return response.FromError(c, err)
	}
	key := &model.APIKey{ApplicationID: app.ID, KeyHash: hash, KeyPreview: preview}
	if err := h.Keys.Insert(ctx, key); err != nil {
		h.Logger.Error().Err(err).Str("application_id", app.ID.String()).Msg("initial key insert failed")
		return response.FromError(c, err)
	}

	return c.JSON(http.StatusCreated, createApplicationResponse{
		ID:               app.ID.String(),
		Name:             app.Name,
		Environment:      string(app.Environment),
		CreatedAt:        app.CreatedAt,
		ConnectionURL:    h.connectionURL(),
		APIKey:           raw,
		ConnectionString: h.connectionString(app.ID, raw),
	})
}

// List returns the caller's visible applications
// (GET /api/v1/applications). Soft-deleted applications never appear,
// for any role.
func (h *ApplicationHandler) List(c echo.Context) error {
	caller, err := requireSession(c)
	if err != nil {
		return response.FromError(c, err)
	}
	apps, err := h.Apps.ListVisible(c.Request().Context(), caller.UserID, caller.Elevated)
	if err != nil {
		return response.FromError(c, err)
	}
	if apps == nil {
		apps = []model.Application{}
	}
	return c.JSON(http.StatusOK, apps)
}

// Get returns one visible application (GET /api/v1/applications/:id).
// Invisible applications are indistinguishable from absent ones.
func (h *ApplicationHandler) Get(c echo.Context) error {
	_, app, err := h.fetchVisible(c, access.ActionView)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(http.StatusOK, app)
}

// Keys lists key previews for one application
// (GET /api/v1/applications/:id/keys). Hashes stay server-side.
func (h *ApplicationHandler) ListKeys(c echo.Context) error {
	_, app, err := h.fetchVisible(c, access.ActionView)
	if err != nil {
		return response.FromError(c, err)
	}
	keys, err := h.Keys.ListByApplication(c.Request().Context(), app.ID)
	if err != nil {
		return response.FromError(c, err)
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	return response.OK(c, keys, "")
}

// Rotate revokes every active key for the application and issues one
// replacement (POST /api/v1/applications/:id/rotate). The new raw key
// is shown once.
func (h *ApplicationHandler) Rotate(c echo.Context) error {
	_, app, err := h.fetchVisible(c, access.ActionRotateKey)
	if err != nil {
		return response.FromError(c, err)
	}

	raw, hash, preview, err := h.Keyring.IssueKey()
	if err != nil {
		return response.FromError(c, err)
	}
	key := &model.APIKey{ApplicationID: app.ID, KeyHash: hash, KeyPreview: preview}
	if err := h.Keys.Rotate(c.Request().Context(), app.ID, key); err != nil {
		h.Logger.Error().Err(err).Str("application_id", app.ID.String()).Msg("key rotation failed")
		return response.FromError(c, err)
	}

	return c.JSON(http.StatusOK, rotateResponse{
		APIKey:           raw,
		ConnectionString: h.connectionString(app.ID, raw),
	})
}

// Delete soft-deletes an application (DELETE /api/v1/applications/:id).
// Owner only; the row is kept with the deleted flag set.
func (h *ApplicationHandler) Delete(c echo.Context) error {
	_, app, err := h.fetchVisible(c, access.ActionDelete)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Apps.SoftDelete(c.Request().Context(), app.ID); err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// fetchVisible loads the application from the path id and runs the
// access check for action. Unknown ids, deleted applications, and
// invisible ones all come back as not_found; a visible application
// with an insufficient role comes back as authorization.
func (h *ApplicationHandler) fetchVisible(c echo.Context, action access.Action) (access.Caller, *model.Application, error) {
	caller, err := requireSession(c)
	if err != nil {
		return access.Caller{}, nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return access.Caller{}, nil, apperr.New(apperr.KindNotFound, "application not found")
	}
	app, err := h.Apps.GetByID(c.Request().Context(), id)
	if err != nil {
		return access.Caller{}, nil, err
	}
	if _, err := h.Resolver.Require(caller, app, action); err != nil {
		return access.Caller{}, nil, err
	}
	return caller, app, nil
}

func (h *ApplicationHandler) connectionURL() string {
	ws := strings.Replace(h.PublicURL, "http", "ws", 1)
	return ws + "/ws"
}

func (h *ApplicationHandler) connectionString(appID uuid.UUID, rawKey string) string {
	host := h.PublicURL
	if u, err := url.Parse(h.PublicURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("logwell://%s:%s@%s", appID, rawKey, host)
}
