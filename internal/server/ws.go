package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/realtime"
	"github.com/logwell/logwell/internal/response"
)

// WSHandler upgrades authenticated connections and hands them to the
// hub.
type WSHandler struct {
	Users    UserStore
	Hub      *realtime.Hub
	Upgrader websocket.Upgrader
	Logger   zerolog.Logger
}

// Serve handles GET /ws. The session credential is checked before the
// upgrade: an unauthenticated connection is rejected with 401 and
// closed, never left open.
func (h *WSHandler) Serve(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		token = bearerToken(c)
	}
	if token == "" {
		return response.FromError(c, apperr.New(apperr.KindAuthentication, "missing credential"))
	}
	user, err := h.Users.GetBySessionToken(c.Request().Context(), token)
	if err != nil {
		return response.FromError(c, err)
	}
	if user == nil {
		return response.FromError(c, apperr.New(apperr.KindAuthentication, "invalid or expired session"))
	}

	conn, err := h.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return nil
	}

	s := realtime.NewSession(conn, access.Caller{UserID: user.ID, Elevated: user.Elevated})
	h.Hub.Serve(c.Request().Context(), s)
	return nil
}

// roomAuthorizer adapts the application store and resolver into the
// hub's join check. Invisible applications (deleted ones included,
// regardless of role) fail the check.
type roomAuthorizer struct {
	apps     ApplicationStore
	resolver *access.Resolver
}

func (a roomAuthorizer) CanJoin(ctx context.Context, caller access.Caller, applicationID string) error {
	id, err := uuid.Parse(applicationID)
	if err != nil {
		return apperr.New(apperr.KindNotFound, "application not found")
	}
	app, err := a.apps.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = a.resolver.Require(caller, app, access.ActionView)
	return err
}

// NewUpgrader builds the websocket upgrader with an origin check over
// the configured CORS origins. An empty list allows all origins.
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}
