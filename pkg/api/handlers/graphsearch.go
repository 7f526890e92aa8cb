package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/graphsearch/graphsearchd/pkg/graphindex"
	prommetrics "github.com/graphsearch/graphsearchd/pkg/metrics/prometheus"
)

// GraphSearchHandler handles the /api/v1/graph-search endpoints.
type GraphSearchHandler struct {
	svc     *graphindex.Service
	metrics *prommetrics.GraphMetrics
}

// NewGraphSearchHandler creates the graph search handler. metrics may be nil.
func NewGraphSearchHandler(svc *graphindex.Service, metrics *prommetrics.GraphMetrics) *GraphSearchHandler {
	return &GraphSearchHandler{svc: svc, metrics: metrics}
}

type neighborsRequest struct {
	Node      string `json:"node"`
	Depth     int    `json:"depth,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type neighborsResponse struct {
	Node      string                `json:"node"`
	Neighbors []graphindex.Neighbor `json:"neighbors"`
}

// Neighbors handles POST /api/v1/graph-search/neighbors.
func (h *GraphSearchHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	var req neighborsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Node == "" {
		BadRequest(w, "node is required")
		return
	}

	start := time.Now()
	neighbors, err := h.svc.Neighbors(r.Context(), req.Node, req.Depth, graphindex.Direction(req.Direction))
	h.metrics.RecordTraversal("neighbors", len(neighbors), time.Since(start), err)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	if neighbors == nil {
		neighbors = []graphindex.Neighbor{}
	}
	writeJSON(w, http.StatusOK, okResponse(neighborsResponse{
		Node:      req.Node,
		Neighbors: neighbors,
	}))
}

type pathRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

type pathResponse struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Path []string `json:"path"`
	Hops int      `json:"hops"`
}

// Path handles POST /api/v1/graph-search/path.
func (h *GraphSearchHandler) Path(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.From == "" || req.To == "" {
		BadRequest(w, "from and to are required")
		return
	}

	start := time.Now()
	path, err := h.svc.ShortestPath(r.Context(), req.From, req.To, req.MaxDepth)
	h.metrics.RecordTraversal("path", len(path), time.Since(start), err)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	if path == nil {
		NotFound(w, "no path found")
		return
	}

	writeJSON(w, http.StatusOK, okResponse(pathResponse{
		From: req.From,
		To:   req.To,
		Path: path,
		Hops: len(path) - 1,
	}))
}

// Edges handles POST /api/v1/graph-search/edges. Accepts either a single
// edge object or an array of edges.
func (h *GraphSearchHandler) Edges(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !decodeJSONBody(w, r, &raw) {
		return
	}

	var edges []graphindex.Edge
	if err := json.Unmarshal(raw, &edges); err != nil {
		var single graphindex.Edge
		if err := json.Unmarshal(raw, &single); err != nil {
			BadRequest(w, "Invalid request body")
			return
		}
		edges = []graphindex.Edge{single}
	}
	if len(edges) == 0 {
		BadRequest(w, "no edges provided")
		return
	}

	if err := h.svc.AddEdges(r.Context(), edges); err != nil {
		BadRequest(w, err.Error())
		return
	}
	h.metrics.RecordEdgesAdded(len(edges))

	writeJSON(w, http.StatusOK, okResponse(map[string]int{"added": len(edges)}))
}
