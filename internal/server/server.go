package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me/workmaster/internal/config"
	"github.com/me/workmaster/internal/journal"
	"github.com/me/workmaster/pkg/model"
)

// SnapshotSource publishes the scheduler state. Snapshot must be safe to call
// from HTTP handler goroutines.
type SnapshotSource interface {
	Snapshot() model.ControllerSnapshot
}

// Server is the read-only inspection API.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	source    SnapshotSource
	journal   journal.Store // optional; /journal answers 404 without it
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithJournal sets the store backing /journal.
func WithJournal(st journal.Store) Option {
	return func(s *Server) {
		s.journal = st
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, src SnapshotSource, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		source:    src,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware(s.logger))
	r.Use(loggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)
		r.Get("/snapshot", s.handleSnapshot)

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", s.handleListAgents)
			r.Get("/{name}", s.handleGetAgent)
		})
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Get("/{id}", s.handleGetEntry)
		})
		r.Get("/denied", s.handleDenied)
		r.Get("/journal", s.handleJournal)

		// SSE stream of published snapshots
		r.Get("/sse/snapshots", s.handleSSESnapshots)
	})
}
