// Package api exposes the HTTP interface for the acquisition service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/insightforge/webintel/internal/fetch"
	"github.com/insightforge/webintel/internal/metrics"
)

// Acquirer is the slice of the pipeline the HTTP layer needs.
type Acquirer interface {
	FetchPage(ctx context.Context, pageURL string, opts fetch.Options) *fetch.PageResult
	Search(ctx context.Context, query string, maxResults int, opts fetch.Options) *fetch.SearchResult
	FetchMultiple(ctx context.Context, urls []string, opts fetch.BatchOptions) []*fetch.PageResult
	ExtractReviews(ctx context.Context, pageURL string, opts fetch.Options) []fetch.ReviewFragment
	ClearCache()
}

// Server wires HTTP handlers to the acquisition pipeline.
type Server struct {
	router   chi.Router
	log      *zap.Logger
	svc      Acquirer
	breaker  func() string
	maxBatch int
}

// Option customizes a Server.
type Option func(*Server)

// WithBreakerState exposes the browser breaker state on /readyz.
func WithBreakerState(state func() string) Option {
	return func(s *Server) { s.breaker = state }
}

// WithMaxBatch caps how many URLs one batch request may carry.
func WithMaxBatch(n int) Option {
	return func(s *Server) { s.maxBatch = n }
}

// NewServer constructs a Server with middleware and routes.
func NewServer(log *zap.Logger, svc Acquirer, opts ...Option) *Server {
	s := &Server{log: log, svc: svc, maxBatch: 100}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(metrics.Middleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/pages", s.fetchPage)
		r.Post("/pages:batch", s.fetchBatch)
		r.Post("/search", s.search)
		r.Post("/reviews", s.reviews)
		r.Delete("/cache", s.clearCache)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type pageRequest struct {
	URL       string `json:"url"`
	TimeoutMs int    `json:"timeout_ms"`
	SkipCache bool   `json:"skip_cache"`
}

type batchRequest struct {
	URLs           []string `json:"urls"`
	TimeoutMs      int      `json:"timeout_ms"`
	SkipCache      bool     `json:"skip_cache"`
	MaxConcurrency int      `json:"max_concurrency"`
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	TimeoutMs  int    `json:"timeout_ms"`
	SkipCache  bool   `json:"skip_cache"`
}

func (r pageRequest) options() fetch.Options {
	return fetch.Options{
		Timeout:   time.Duration(r.TimeoutMs) * time.Millisecond,
		SkipCache: r.SkipCache,
	}
}

func (s *Server) fetchPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	page := s.svc.FetchPage(r.Context(), req.URL, req.options())
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) fetchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls are required")
		return
	}
	if len(req.URLs) > s.maxBatch {
		writeError(w, http.StatusBadRequest, "too many urls in one batch")
		return
	}
	results := s.svc.FetchMultiple(r.Context(), req.URLs, fetch.BatchOptions{
		Options: fetch.Options{
			Timeout:   time.Duration(req.TimeoutMs) * time.Millisecond,
			SkipCache: req.SkipCache,
		},
		MaxConcurrency: req.MaxConcurrency,
	})
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	res := s.svc.Search(r.Context(), req.Query, req.MaxResults, fetch.Options{
		Timeout:   time.Duration(req.TimeoutMs) * time.Millisecond,
		SkipCache: req.SkipCache,
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) reviews(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	fragments := s.svc.ExtractReviews(r.Context(), req.URL, req.options())
	writeJSON(w, http.StatusOK, map[string]any{"url": req.URL, "reviews": fragments})
}

func (s *Server) clearCache(w http.ResponseWriter, _ *http.Request) {
	s.svc.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]string{"status": "ready"}
	if s.breaker != nil {
		payload["browser_breaker"] = s.breaker()
	}
	writeJSON(w, http.StatusOK, payload)
}

type requestIDKey struct{}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.log.Info("request completed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
