// Package server provides the HTTP API for the retrieval pipeline.
package server

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/ragpipe/internal/config"
	"github.com/hyperjump/ragpipe/internal/metrics"
	"github.com/hyperjump/ragpipe/internal/pipeline"
)

// Server is the HTTP server for the pipeline API. Providers are built per
// request from the configuration, the request body and the api-key header.
type Server struct {
	pipeline *pipeline.Pipeline
	config   *config.Config
	metrics  *metrics.Metrics
	logger   *zap.Logger
	validate *validator.Validate
	router   chi.Router
	server   *http.Server
}

// NewServer creates a server. m may be nil when metrics are disabled.
func NewServer(p *pipeline.Pipeline, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: p,
		config:   cfg,
		metrics:  m,
		logger:   logger,
		validate: newValidator(),
	}
	s.router = s.routes()
	return s
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) routes() chi.Router {
	timeout := time.Duration(s.config.Server.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chunk", s.handleChunk)
		r.Post("/embed", s.handleEmbed)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/rerank", s.handleRerank)
		r.Post("/generate", s.handleGenerate)
		r.Post("/answer", s.handleAnswer)
		r.Get("/collections", s.handleListCollections)
		r.Get("/collections/{name}", s.handleGetCollection)
		r.Delete("/collections/{name}", s.handleDeleteCollection)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil && s.config.Metrics.Enabled {
		r.Handle(s.config.Metrics.Path, s.metrics.Handler())
	}
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}
