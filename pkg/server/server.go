// Package server exposes the scheduling pipeline as a JSON HTTP API.
//
// Routes:
//
//	GET  /healthz       liveness
//	GET  /version       build information
//	POST /v1/schedule   schedule a problem
//	POST /v1/verify     check a schedule against a problem
//	GET  /v1/runs       list stored runs (?dfg=&variant=&status=&limit=)
//
// Every response uses the [Response] envelope.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/hlsched/pkg/pipeline"
	"github.com/matzehuels/hlsched/pkg/resource"
	"github.com/matzehuels/hlsched/pkg/store"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 8 << 20

// Server is the hlsched API server.
type Server struct {
	router    chi.Router
	runner    *pipeline.Runner
	store     store.Store
	library   *resource.Library
	logger    *log.Logger
	startTime time.Time
	maxBody   int64
	timeout   time.Duration
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore records every scheduled problem as a run and enables /v1/runs.
func WithStore(st store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithLibrary sets the library used to resolve opcodes in requests.
func WithLibrary(lib *resource.Library) Option {
	return func(s *Server) { s.library = lib }
}

// WithTimeout bounds the time a single schedule request may take.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a server with all routes registered.
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if runner == nil {
		runner = pipeline.NewRunner(nil, nil, logger)
	}
	s := &Server{
		router:    chi.NewRouter(),
		runner:    runner,
		library:   resource.DefaultLibrary(),
		logger:    logger.With("component", "server"),
		startTime: time.Now(),
		maxBody:   DefaultMaxBodyBytes,
		timeout:   time.Minute,
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

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/schedule", s.handleSchedule)
		r.Post("/verify", s.handleVerify)
		r.Get("/runs", s.handleListRuns)
	})
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
