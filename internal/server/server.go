// Package server exposes the diagnostics HTTP surface: health probes,
// version info, client counters and cache administration.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/gymgate/gymgate/internal/apiclient"
	"github.com/gymgate/gymgate/internal/config"
	apperrors "github.com/gymgate/gymgate/internal/errors"
	"github.com/gymgate/gymgate/internal/server/handlers"
	servermw "github.com/gymgate/gymgate/internal/server/middleware"
)

// Server represents the diagnostics HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    config.ServerConfig
	client *apiclient.Client
	health *handlers.HealthManager
	logger *zap.Logger
}

// New creates a new HTTP server instance around an API client.
func New(cfg config.ServerConfig, client *apiclient.Client, health *handlers.HealthManager, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(servermw.RequestID)
	r.Use(servermw.Throttle(cfg.ThrottleRPS, cfg.ThrottleBurst))
	r.Use(servermw.Recovery(logger))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewNotFoundError("the requested resource was not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		HandleError(w, req, apperrors.NewInvalidInputError("method not allowed for this resource"))
	})

	s := &Server{
		router: r,
		cfg:    cfg,
		client: client,
		health: health,
		logger: logger,
	}

	handlers.SetHTTPErrorResponder(HandleError)

	s.registerRoutes()

	return s
}

// Start starts the HTTP server and blocks until it exits.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	s.logger.Info("starting diagnostics server",
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down diagnostics server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation.
func (s *Server) Handler() http.Handler {
	return s.router
}
