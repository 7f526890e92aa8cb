// Package api provides the HTTP front door: router, server, and the
// middleware stack every request passes through.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/pkg/api/auth"
	"github.com/graphsearch/graphsearchd/pkg/api/handlers"
	"github.com/graphsearch/graphsearchd/pkg/api/middleware"
	"github.com/graphsearch/graphsearchd/pkg/fuzzymatch"
	"github.com/graphsearch/graphsearchd/pkg/graphindex"
	"github.com/graphsearch/graphsearchd/pkg/index"
	prommetrics "github.com/graphsearch/graphsearchd/pkg/metrics/prometheus"
	"github.com/graphsearch/graphsearchd/pkg/queryopt"
	"github.com/graphsearch/graphsearchd/pkg/service/health"
	"github.com/graphsearch/graphsearchd/pkg/service/lifecycle"
)

// Deps carries everything the router dispatches into. All subsystem handles
// are passed explicitly; the router holds no global state.
type Deps struct {
	Version      string
	Orchestrator *lifecycle.Orchestrator
	Health       *health.Aggregator
	FuzzyMatch   *fuzzymatch.Service
	GraphIndex   *graphindex.Service
	QueryOpt     *queryopt.Service
	Rebuilds     *index.RebuildManager

	// JWT is optional; when nil the mutating routes are unauthenticated.
	JWT *auth.JWTService

	// Metric handles are optional; nil disables recording. The caller owns
	// construction so the underlying collectors are registered once per
	// process, not once per router.
	HTTPMetrics     *prommetrics.HTTPMetrics
	SearchMetrics   *prommetrics.SearchMetrics
	GraphMetrics    *prommetrics.GraphMetrics
	QueryOptMetrics *prommetrics.QueryOptMetrics
}

// NewRouter creates and configures the chi router with all middleware and
// routes.
//
// Middleware stack, in order: request ID, real IP, request logging with
// metrics, the error boundary, and a per-request timeout.
func NewRouter(cfg APIConfig, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(deps.HTTPMetrics))
	r.Use(middleware.ErrorBoundary)
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	rootHandler := handlers.NewRootHandler(deps.Version)
	healthHandler := handlers.NewHealthHandler(deps.Health, deps.Orchestrator)
	fuzzyHandler := handlers.NewFuzzyMatchHandler(deps.FuzzyMatch, deps.SearchMetrics)
	graphHandler := handlers.NewGraphSearchHandler(deps.GraphIndex, deps.GraphMetrics)
	queryHandler := handlers.NewQueryOptHandler(deps.QueryOpt, deps.QueryOptMetrics)
	indexHandler := handlers.NewIndexHandler(deps.FuzzyMatch, deps.GraphIndex, deps.QueryOpt, deps.Rebuilds)

	// requireAuth guards mutating routes when a JWT service is configured.
	requireAuth := func(next http.Handler) http.Handler { return next }
	if deps.JWT != nil {
		requireAuth = middleware.JWTAuth(deps.JWT)
	}

	r.Get("/", rootHandler.Info)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Health)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/fuzzy-match", func(r chi.Router) {
			r.Post("/search", fuzzyHandler.Search)
			r.With(requireAuth).Post("/entities", fuzzyHandler.Entities)
		})

		r.Route("/graph-search", func(r chi.Router) {
			r.Post("/neighbors", graphHandler.Neighbors)
			r.Post("/path", graphHandler.Path)
			r.With(requireAuth).Post("/edges", graphHandler.Edges)
		})

		r.Post("/query/optimize", queryHandler.Optimize)

		r.Route("/index", func(r chi.Router) {
			r.Get("/stats", indexHandler.Stats)
			r.With(requireAuth).Post("/rebuild", indexHandler.Rebuild)
			r.Get("/rebuild/{id}", indexHandler.RebuildStatus)
		})
	})

	return r
}

// requestLogger logs request start and completion using the internal logger
// and records HTTP metrics when enabled.
func requestLogger(metrics *prommetrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := chimw.GetReqID(r.Context())

			logger.Debug("API request started",
				logger.KeyRequestID, requestID,
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyClientIP, r.RemoteAddr,
			)

			metrics.RequestStart()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			metrics.RequestEnd()
			metrics.RecordRequest(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), duration)

			logger.Info("API request completed",
				logger.KeyRequestID, requestID,
				logger.KeyMethod, r.Method,
				logger.KeyPath, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				"bytes", ww.BytesWritten(),
				logger.KeyDurationMs, duration.Milliseconds(),
			)
		})
	}
}
