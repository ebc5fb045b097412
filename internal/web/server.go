// Package web provides the HTTP server and handlers for the ingestion API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icelab/freezetrack/internal/config"
	"github.com/icelab/freezetrack/internal/ingest"
	"github.com/icelab/freezetrack/internal/web/middleware"
)

// Runner executes one workbook ingestion. Satisfied by *ingest.Pipeline.
type Runner interface {
	Run(ctx context.Context, experimentID uuid.UUID, fileData []byte) (ingest.Result, error)
}

// Pinger reports persistence connectivity. Satisfied by *store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP server for the ingestion service.
type Server struct {
	pipeline Runner
	pinger   Pinger
	cfg      *config.Config
	gatherer prometheus.Gatherer
	router   *chi.Mux
	server   *http.Server
}

// NewServer wires the ingestion pipeline behind the HTTP API.
func NewServer(pipeline Runner, pinger Pinger, cfg *config.Config, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		pipeline: pipeline,
		pinger:   pinger,
		cfg:      cfg,
		gatherer: gatherer,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.requestTimeout()))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/experiments/{experimentID}/ingest", s.handleIngest)
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg != nil && s.cfg.Server.RequestTimeout > 0 {
		return s.cfg.Server.RequestTimeout
	}
	return 5 * time.Minute
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
