package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/access"
	"github.com/logwell/logwell/internal/config"
	"github.com/logwell/logwell/internal/keyring"
	"github.com/logwell/logwell/internal/logstore"
	"github.com/logwell/logwell/internal/realtime"
	"github.com/logwell/logwell/internal/repository"
	"github.com/logwell/logwell/internal/response"
)

// Deps are the stores and services the handlers run on. Production
// wiring fills them from pgx repositories and the file log store;
// tests use fakes.
type Deps struct {
	Apps    ApplicationStore
	Keys    KeyStore
	Users   UserStore
	Logs    LogStore
	Keyring *keyring.Keyring
}

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	Hub    *realtime.Hub
	logger zerolog.Logger
}

// New builds the production server on a database pool.
func New(cfg *config.Config, pool *pgxpool.Pool, kr *keyring.Keyring, logger zerolog.Logger) *Server {
	store := logstore.New(cfg.LogStore.Path, logstore.RetryPolicy{
		Attempts: cfg.LogStore.LockAttempts,
		Delay:    cfg.LogStore.LockRetryDuration(),
	}, logger)

	return NewWithDeps(cfg, Deps{
		Apps:    repository.NewApplicationRepository(pool),
		Keys:    repository.NewKeyRepository(pool),
		Users:   repository.NewUserRepository(pool),
		Logs:    store,
		Keyring: kr,
	}, logger)
}

// NewWithDeps builds the Echo server and registers routes on explicit
// dependencies.
func NewWithDeps(cfg *config.Config, deps Deps, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
		}))
	}

	resolver := access.NewResolver(cfg.Auth.MaxApplicationsPerUser)
	hub := realtime.NewHub(roomAuthorizer{apps: deps.Apps, resolver: resolver}, logger)

	authn := &Authenticator{Users: deps.Users, Keys: deps.Keys, Keyring: deps.Keyring, Logger: logger}
	logH := &LogHandler{
		Logs:      deps.Logs,
		Apps:      deps.Apps,
		Resolver:  resolver,
		Broadcast: hub,
		Logger:    logger,
	}
	appH := &ApplicationHandler{
		Apps:      deps.Apps,
		Keys:      deps.Keys,
		Resolver:  resolver,
		Keyring:   deps.Keyring,
		PublicURL: cfg.Server.PublicURL,
		Logger:    logger,
	}
	wsH := &WSHandler{
		Users:    deps.Users,
		Hub:      hub,
		Upgrader: NewUpgrader(cfg.Server.CORSAllowedOrigins),
		Logger:   logger,
	}

	api := e.Group("/api/v1", authn.Middleware)
	api.POST("/logs", logH.Ingest)
	api.GET("/logs", logH.Query)
	api.POST("/applications", appH.Create)
	api.GET("/applications", appH.List)
	api.GET("/applications/:id", appH.Get)
	api.GET("/applications/:id/keys", appH.ListKeys)
	api.POST("/applications/:id/rotate", appH.Rotate)
	api.DELETE("/applications/:id", appH.Delete)

	e.GET("/ws", wsH.Serve)

	e.GET("/healthz", func(c echo.Context) error {
		return response.OK(c, map[string]string{"status": "ok"}, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return &Server{Echo: e, Config: cfg, Hub: hub, logger: logger}
}

// Start starts the HTTP server. Blocks until the context is cancelled
// or the server fails; on cancel, Shutdown drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	s.Echo.Server.ReadTimeout = time.Duration(s.Config.Server.ReadTimeout) * time.Second
	s.Echo.Server.WriteTimeout = time.Duration(s.Config.Server.WriteTimeout) * time.Second
	s.Echo.Server.IdleTimeout = time.Duration(s.Config.Server.IdleTimeout) * time.Second

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	addr := ":" + s.Config.Server.Port
	s.logger.Info().Str("addr", addr).Msg("server listening")
	if err := s.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
