package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/graphsearch/graphsearchd/pkg/fuzzymatch"
	"github.com/graphsearch/graphsearchd/pkg/graphindex"
	"github.com/graphsearch/graphsearchd/pkg/index"
	"github.com/graphsearch/graphsearchd/pkg/queryopt"
)

// IndexHandler handles the /api/v1/index management endpoints.
type IndexHandler struct {
	fuzzy    *fuzzymatch.Service
	graph    *graphindex.Service
	queryopt *queryopt.Service
	rebuilds *index.RebuildManager
}

// NewIndexHandler creates the index management handler.
func NewIndexHandler(
	fuzzy *fuzzymatch.Service,
	graph *graphindex.Service,
	qopt *queryopt.Service,
	rebuilds *index.RebuildManager,
) *IndexHandler {
	return &IndexHandler{fuzzy: fuzzy, graph: graph, queryopt: qopt, rebuilds: rebuilds}
}

type indexStats struct {
	FuzzyMatch fuzzymatch.Stats `json:"fuzzymatch"`
	GraphIndex graphindex.Stats `json:"graphindex"`
	QueryOpt   queryopt.Stats   `json:"queryopt"`
}

// Stats handles GET /api/v1/index/stats.
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	fuzzyStats, err := h.fuzzy.Stats(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	graphStats, err := h.graph.Stats(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}
	qoptStats, err := h.queryopt.Stats(r.Context())
	if err != nil {
		InternalServerError(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, okResponse(indexStats{
		FuzzyMatch: fuzzyStats,
		GraphIndex: graphStats,
		QueryOpt:   qoptStats,
	}))
}

// Rebuild handles POST /api/v1/index/rebuild. The rebuild runs in the
// background; the response carries the job ID for polling.
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	id, err := h.rebuilds.Start(r.Context())
	if err != nil {
		Conflict(w, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, okResponse(map[string]string{"job_id": id}))
}

// RebuildStatus handles GET /api/v1/index/rebuild/{id}.
func (h *IndexHandler) RebuildStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := h.rebuilds.Get(id)
	if !ok {
		NotFound(w, "unknown rebuild job")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(job))
}
