// Package server assembles the HTTP API: routing, middleware, and server
// lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/audioforge/audioforge/internal/config"
	apperrors "github.com/audioforge/audioforge/internal/errors"
	"github.com/audioforge/audioforge/internal/observability"
	"github.com/audioforge/audioforge/internal/server/handlers"
	"github.com/audioforge/audioforge/internal/server/middleware"
)

// Deps are the collaborators the API surfaces.
type Deps struct {
	Conversions *handlers.Conversions
	Info        *handlers.Info
	Version     handlers.VersionInfo
}

// Server is the HTTP API server.
type Server struct {
	host   string
	port   int
	router chi.Router
	http   *http.Server
	cfg    config.ServerConfig
	logger *zap.Logger
}

// New builds a Server with all routes registered.
func New(cfg config.ServerConfig, limits config.RateLimitConfig, deps Deps) *Server {
	s := &Server{
		host:   cfg.Host,
		port:   cfg.Port,
		cfg:    cfg,
		logger: observability.ServerLogger,
	}
	s.router = buildRouter(limits, deps)
	return s
}

func buildRouter(limits config.RateLimitConfig, deps Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.RealIP)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apperrors.Respond(w, req, http.StatusNotFound, apperrors.CodeNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		apperrors.Respond(w, req, http.StatusMethodNotAllowed, apperrors.CodeMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)
	r.Get("/version", handlers.VersionHandler(deps.Version))

	convertLimit := middleware.NewRateLimiter(limits.ConvertPerMinute)
	downloadLimit := middleware.NewRateLimiter(limits.DownloadPerMinute)

	r.Route("/api", func(api chi.Router) {
		api.Get("/info", deps.Info.Get)

		api.Route("/conversions", func(c chi.Router) {
			c.With(convertLimit.Middleware).Post("/", deps.Conversions.Create)
			c.Get("/", deps.Conversions.List)
			c.Get("/{jobID}", deps.Conversions.Get)
			c.With(downloadLimit.Middleware).Get("/{jobID}/download", deps.Conversions.Download)
			c.Delete("/{jobID}", deps.Conversions.Delete)
		})
	})

	return r
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Start runs the server until ctx is cancelled or the listener fails, then
// drains connections within the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.host, s.port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down http server",
			zap.Duration("timeout", s.cfg.ShutdownTimeout))
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// RegisterHealthChecks wires the standard dependency probes.
func RegisterHealthChecks(hm *handlers.HealthManager, storageDir string) {
	hm.RegisterChecker("storage", handlers.CheckerFunc(func(ctx context.Context) error {
		return storageWritable(storageDir)
	}))
}

// storageWritable verifies the artifact directory accepts writes.
func storageWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".healthcheck_*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
