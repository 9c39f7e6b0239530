// Package server provides the HTTP API for resumerank.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/resumerank/internal/config"
	"github.com/hyperjump/resumerank/internal/extract"
	"github.com/hyperjump/resumerank/internal/jobs"
	"github.com/hyperjump/resumerank/internal/matcher"
	"github.com/hyperjump/resumerank/internal/metrics"
)

// Analyzer scores a single resume against a job description.
type Analyzer interface {
	Match(ctx context.Context, resumeText, jdText, role string) *matcher.Report
}

// ModelStatus reports the embedding model state (not_loaded, ready, unavailable).
type ModelStatus interface {
	Status() string
}

// Server is the HTTP server for the resumerank API.
type Server struct {
	ranker    jobs.Ranker
	analyzer  Analyzer
	jobs      *jobs.Service
	extractor *extract.Extractor
	config    *config.ServerConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
	gatherer  prometheus.Gatherer
	model     ModelStatus
	diskPaths []string
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records ranking metrics in m and serves gatherer on /metrics.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithModelStatus exposes the embedding model state on /api/v1/status.
func WithModelStatus(m ModelStatus) Option {
	return func(s *Server) { s.model = m }
}

// WithDiskPaths lists the files and directories counted as disk usage on /api/v1/status.
func WithDiskPaths(paths ...string) Option {
	return func(s *Server) { s.diskPaths = paths }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ranker jobs.Ranker,
	analyzer Analyzer,
	jobsSvc *jobs.Service,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ranker:    ranker,
		analyzer:  analyzer,
		jobs:      jobsSvc,
		extractor: extract.NewExtractor(),
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(s.limitBody)

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/rank", s.handleRank)
		r.Post("/rank/upload", s.handleRankUpload)
		r.Post("/analyze", s.handleAnalyze)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Post("/{id}/rank", s.handleRankJob)
			r.Post("/{id}/applications", s.handleAddApplication)
			r.Get("/{id}/applications", s.handleListApplications)
			r.Get("/{id}/applications/search", s.handleSearchApplications)
			r.Put("/{id}/applications/{appID}/status", s.handleUpdateStatus)
		})
	})
	return r
}

// limitBody caps request bodies at the configured upload size.
func (s *Server) limitBody(next http.Handler) http.Handler {
	limit := s.config.MaxUploadBytes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limit > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. It may be called from another goroutine than
// Start, and before Start; a stopped server does not start again.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
