// Package server exposes formulas, SQL generation, query execution, data
// source import, view processing, metrics and export over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/datamodeler/internal/config"
	"github.com/koustreak/datamodeler/internal/database"
	"github.com/koustreak/datamodeler/internal/datasource"
	"github.com/koustreak/datamodeler/internal/export"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/koustreak/datamodeler/internal/sqlgen"
)

// Deps are the collaborators handlers call. Executor is required; Loader
// and Archive are nil when object storage is not configured.
type Deps struct {
	Executor database.Executor
	Dialect  sqlgen.Dialect
	Loader   *datasource.Loader
	Archive  *export.Archive
	Log      *logger.Logger

	// Now stamps exported documents. Defaults to time.Now.
	Now func() time.Time
}

// Server is the HTTP API.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	log    *logger.Logger
	router chi.Router
}

// New builds the router.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Executor == nil {
		deps.Executor = database.NewMockExecutor()
	}
	s := &Server{cfg: cfg, deps: deps, log: deps.Log.Component("server")}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(s.cfg.MaxBodyBytes))
	}

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/formula/functions", s.handleFunctions)
		r.Post("/formula/evaluate", s.handleEvaluate)

		r.Post("/sql/model", s.handleModelSQL)
		r.Post("/sql/query", s.handleQuerySQL)

		r.Post("/query/execute", s.handleExecute)

		r.Route("/datasources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/csv", s.handleImportCSV)
			r.Post("/json", s.handleImportJSON)
			r.Post("/load", s.handleLoadSource)
		})

		r.Route("/view", func(r chi.Router) {
			r.Post("/process", s.handleViewProcess)
			r.Post("/export.csv", s.handleViewExportCSV)
			r.Post("/export.xlsx", s.handleViewExportXLSX)
		})

		r.Post("/metrics/compute", s.handleMetrics)

		r.Route("/model", func(r chi.Router) {
			r.Post("/export", s.handleModelExport)
			r.Post("/import", s.handleModelImport)
		})
	})

	return r
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully
// within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return s.log.WithContext(context.Background()) },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.InfoWith("server listening", map[string]any{"addr": ln.Addr().String()})
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
