// Package httpserver provides the HTTP REST API server for the paper aggregator.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-aggregator/internal/domain"
	"github.com/helixir/paper-aggregator/internal/health"
	"github.com/helixir/paper-aggregator/internal/observability"
)

// Searcher is the part of search.Service the HTTP server uses.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
	QuickSearch(ctx context.Context, query string, limit int) ([]*domain.Paper, error)
	FeaturedPapers(ctx context.Context) []*domain.Paper
	Paper(ctx context.Context, id string) (*domain.PaperDetail, error)
	Cite(ctx context.Context, paperID string, format domain.CitationFormat) (*domain.Citation, error)
}

// HealthChecker probes the upstream APIs.
type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	checker    HealthChecker
	validate   *validator.Validate
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies. A nil metrics
// disables request metrics.
func NewServer(
	cfg Config,
	searcher Searcher,
	checker HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	s := &Server{
		searcher: searcher,
		checker:  checker,
		validate: validate,
		metrics:  metrics,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.requestLogMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Liveness only; upstream reachability is /api/health.
	r.Get("/healthz", s.livenessHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", s.searchGet)
		r.Post("/search", s.searchPost)
		r.Get("/search/quick", s.quickSearch)

		r.Get("/papers/featured", s.featuredPapers)
		// DOIs contain slashes, so the paper id is the whole remaining path.
		r.Get("/papers/*", s.getPaper)

		r.Post("/cite", s.cite)
		r.Get("/health", s.healthHandler)
	})

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// livenessHandler reports that the process is serving.
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// healthHandler probes every upstream. Only an unhealthy report answers 503.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	report := s.checker.Check(r.Context())

	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, report)
}

// writeJSON writes v with the given status. An encoding failure after the
// header is sent is logged through the request logger.
func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Int("status", statusCode).Msg("failed to write response body")
	}
}
