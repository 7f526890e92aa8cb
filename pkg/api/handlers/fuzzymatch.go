package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/graphsearch/graphsearchd/pkg/fuzzymatch"
	prommetrics "github.com/graphsearch/graphsearchd/pkg/metrics/prometheus"
)

// FuzzyMatchHandler handles the /api/v1/fuzzy-match endpoints.
type FuzzyMatchHandler struct {
	svc     *fuzzymatch.Service
	metrics *prommetrics.SearchMetrics
}

// NewFuzzyMatchHandler creates the fuzzy match handler. metrics may be nil.
func NewFuzzyMatchHandler(svc *fuzzymatch.Service, metrics *prommetrics.SearchMetrics) *FuzzyMatchHandler {
	return &FuzzyMatchHandler{svc: svc, metrics: metrics}
}

type searchRequest struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
	Fuzziness int    `json:"fuzziness,omitempty"`
}

type searchResponse struct {
	Query   string            `json:"query"`
	Matches []fuzzymatch.Match `json:"matches"`
}

// Search handles POST /api/v1/fuzzy-match/search.
func (h *FuzzyMatchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Query == "" {
		BadRequest(w, "query is required")
		return
	}

	start := time.Now()
	matches, err := h.svc.Search(r.Context(), req.Query, req.Limit, req.Fuzziness)
	h.metrics.RecordQuery(len(matches), time.Since(start), err)
	if err != nil {
		InternalServerError(w, "Search failed")
		return
	}

	if matches == nil {
		matches = []fuzzymatch.Match{}
	}
	writeJSON(w, http.StatusOK, okResponse(searchResponse{
		Query:   req.Query,
		Matches: matches,
	}))
}

// Entities handles POST /api/v1/fuzzy-match/entities. Accepts either a
// single entity object or an array of entities.
func (h *FuzzyMatchHandler) Entities(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeJSONBody(w, r, &raw) {
		return
	}

	var entities []fuzzymatch.Entity
	if err := json.Unmarshal(raw, &entities); err != nil {
		var single fuzzymatch.Entity
		if err := json.Unmarshal(raw, &single); err != nil {
			BadRequest(w, "Invalid request body")
			return
		}
		entities = []fuzzymatch.Entity{single}
	}
	if len(entities) == 0 {
		BadRequest(w, "no entities provided")
		return
	}

	if err := h.svc.IndexEntities(r.Context(), entities); err != nil {
		BadRequest(w, err.Error())
		return
	}
	h.metrics.RecordIndexed(len(entities))

	writeJSON(w, http.StatusOK, okResponse(map[string]int{"indexed": len(entities)}))
}
