package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/graphsearch/graphsearchd/pkg/service/health"
	"github.com/graphsearch/graphsearchd/pkg/service/lifecycle"
)

// healthBody is the response body for GET /health. Services map names to a
// boolean health flag; degraded is reported with 200 since it is not an
// error.
type healthBody struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// HealthHandler handles the health and readiness endpoints.
type HealthHandler struct {
	aggregator   *health.Aggregator
	orchestrator *lifecycle.Orchestrator
}

// NewHealthHandler creates a health handler over the given aggregator and
// orchestrator.
func NewHealthHandler(aggregator *health.Aggregator, orchestrator *lifecycle.Orchestrator) *HealthHandler {
	return &HealthHandler{aggregator: aggregator, orchestrator: orchestrator}
}

// Health handles GET /health. Fans out per-service probes and reduces them
// to healthy or degraded. Always answers 200; the verdict is in the body.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := h.aggregator.Check(r.Context())

	body := healthBody{
		Status:   string(report.Status),
		Services: make(map[string]bool, len(report.Services)),
	}
	for name, sh := range report.Services {
		body.Services[name] = sh.Healthy
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

// Readiness handles GET /health/ready. Answers 200 only when the lifecycle
// state is Ready, 503 otherwise. Designed for orchestration readiness
// probes.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	state := h.orchestrator.State()
	if state != lifecycle.StateReady {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("not ready: state "+string(state)))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"state": string(state)}))
}
