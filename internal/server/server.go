// Package server provides the HTTP API for zkrag.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/circuit"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/config"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/embedding"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/indexer"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/metrics"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/relevance"
	"github.com/DSHIVAAY-23/Mantra-RWA-Compliance-sub001/internal/vectorstore"
)

// RequestIDHeader carries the per-request id on responses.
const RequestIDHeader = "X-Request-ID"

// Server is the HTTP server for the zkrag API.
type Server struct {
	store     *vectorstore.Store
	pipeline  *indexer.Pipeline
	embedder  embedding.Embedder
	evaluator *relevance.Evaluator
	prover    circuit.Prover
	metrics   *metrics.Metrics
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithProver enables receipts on /api/v1/evaluate.
func WithProver(p circuit.Prover) Option {
	return func(s *Server) { s.prover = p }
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithEvaluator sets the evaluator used for explicit vector pairs.
func WithEvaluator(e *relevance.Evaluator) Option {
	return func(s *Server) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	store *vectorstore.Store,
	pipeline *indexer.Pipeline,
	embedder embedding.Embedder,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		store:    store,
		pipeline: pipeline,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.evaluator == nil {
		s.evaluator = relevance.NewEvaluator(relevance.WithLogger(logger), relevance.WithMetrics(s.metrics))
	}
	return s
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleIngest)
		r.Post("/search", s.handleSearch)
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/chunks/{id}", s.handleGetChunk)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID honours an incoming X-Request-ID and otherwise assigns a UUID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.HTTPRequest(r.Method, route, status)
		s.logger.Debug("request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)))
	})
}
