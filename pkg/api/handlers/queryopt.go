package handlers

import (
	"net/http"

	prommetrics "github.com/graphsearch/graphsearchd/pkg/metrics/prometheus"
	"github.com/graphsearch/graphsearchd/pkg/queryopt"
)

// QueryOptHandler handles the /api/v1/query endpoints.
type QueryOptHandler struct {
	svc     *queryopt.Service
	metrics *prommetrics.QueryOptMetrics
}

// NewQueryOptHandler creates the query optimizer handler. metrics may be nil.
func NewQueryOptHandler(svc *queryopt.Service, metrics *prommetrics.QueryOptMetrics) *QueryOptHandler {
	return &QueryOptHandler{svc: svc, metrics: metrics}
}

type optimizeRequest struct {
	Query string `json:"query"`
}

// Optimize handles POST /api/v1/query/optimize.
func (h *QueryOptHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		BadRequest(w, "query is required")
		return
	}

	result, err := h.svc.Optimize(r.Context(), req.Query)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	h.metrics.RecordLookup(result.CacheHit)

	if stats, err := h.svc.Stats(r.Context()); err == nil {
		h.metrics.SetCacheEntries(stats.CacheEntries)
	}

	writeJSON(w, http.StatusOK, okResponse(result))
}
