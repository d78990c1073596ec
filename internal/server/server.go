// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/credlens/credcheck/internal/cache"
	"github.com/credlens/credcheck/internal/pipeline"
	"github.com/credlens/credcheck/internal/stats"
	"github.com/credlens/credcheck/internal/store"
)

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	pipeline  *pipeline.Pipeline
	runs      store.Store
	cache     *cache.ResponseCache
	collector *stats.Collector

	allowedOrigins []string
}

// New creates a Server. runs may be nil; the history endpoints then
// return 503.
func New(p *pipeline.Pipeline, runs store.Store, responseCache *cache.ResponseCache, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	s := &Server{
		pipeline:       p,
		runs:           runs,
		cache:          responseCache,
		allowedOrigins: allowedOrigins,
	}
	if runs != nil {
		s.collector = stats.NewCollector(runs)
	}
	return s
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/predict/stream", s.handlePredictStream)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/stats", s.handleStats)

	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
