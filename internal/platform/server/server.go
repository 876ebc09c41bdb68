// Package server provides HTTP server wiring and lifecycle management
// for the fetchguard sidecar.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fetchguard/fetchguard/internal/components/api"
	"github.com/fetchguard/fetchguard/internal/platform/config"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server. fetchHandler serves POST /fetch; health and
// metrics endpoints are wired here.
func New(cfg *config.Config, logger *slog.Logger, fetchHandler http.Handler) *Server {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	router := s.setupRoutes(fetchHandler)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes creates the chi router with the middleware stack and all
// endpoints mounted.
func (s *Server) setupRoutes(fetchHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	// RequestID must come first so the access log can pick it up.
	// loggingMiddleware wraps the response writer and Recoverer writes
	// through the wrapper, so the access log captures status for panics.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.authMiddleware)

	r.Get("/healthz", api.HealthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodPost, "/fetch", fetchHandler)

	return r
}

// Start starts the HTTP server. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.cfg.ListenAddr,
		"mode", s.cfg.Mode,
		"auth_enabled", s.cfg.Auth.TokenHash != "",
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
