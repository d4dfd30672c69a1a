package server

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/keyring"
	"github.com/logwell/logwell/internal/model"
	"github.com/logwell/logwell/internal/response"
)

const principalKey = "logwell.principal"

// principal is the authenticated identity behind a request: either a
// user session or an application API key.
type principal struct {
	caller access.Caller
	viaKey bool
	key    *model.APIKey
}

// Authenticator resolves bearer credentials. Raw API keys carry the
// key prefix, so the two credential kinds never collide.
type Authenticator struct {
	Users   UserStore
	Keys    KeyStore
	Keyring *keyring.Keyring
	Logger  zerolog.Logger
}

// Middleware authenticates the request and stores the principal in the
// echo context. Missing or invalid credentials terminate the request
// with 401; they never reach a handler.
func (a *Authenticator) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return response.FromError(c, apperr.New(apperr.KindAuthentication, "missing credential"))
		}

		if strings.HasPrefix(token, keyring.KeyPrefix) {
			key, err := a.Keys.GetByHash(c.Request().Context(), a.Keyring.Hash(token))
			if err != nil {
				a.Logger.Error().Err(err).Msg("api key lookup failed")
				return response.FromError(c, err)
			}
			if key == nil || key.Revoked || !a.Keyring.Verify(token, key.KeyHash) {
				return response.FromError(c, apperr.New(apperr.KindAuthentication, "invalid API key"))
			}
			c.Set(principalKey, principal{viaKey: true, key: key})
			return next(c)
		}

		user, err := a.Users.GetBySessionToken(c.Request().Context(), token)
		if err != nil {
			a.Logger.Error().Err(err).Msg("session lookup failed")
			return response.FromError(c, err)
		}
		if user == nil {
			return response.FromError(c, apperr.New(apperr.KindAuthentication, "invalid or expired session"))
		}
		c.Set(principalKey, principal{caller: access.Caller{UserID: user.ID, Elevated: user.Elevated}})
		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func currentPrincipal(c echo.Context) (principal, bool) {
	p, ok := c.Get(principalKey).(principal)
	return p, ok
}

// requireSession returns the caller for session-authenticated requests
// and rejects API key principals, which cannot manage applications.
func requireSession(c echo.Context) (access.Caller, error) {
	p, ok := currentPrincipal(c)
	if !ok {
		return access.Caller{}, apperr.New(apperr.KindAuthentication, "missing credential")
	}
	if p.viaKey {
		return access.Caller{}, apperr.New(apperr.KindAuthorization, "a user session is required")
	}
	return p.caller, nil
}
