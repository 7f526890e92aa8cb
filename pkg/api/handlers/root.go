package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// rootInfo is the response body for GET /.
type rootInfo struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
}

// RootHandler serves the service banner.
type RootHandler struct {
	version   string
	startedAt time.Time
}

// NewRootHandler creates the root handler with the build version. The
// handler's construction time is reported as the process start time.
func NewRootHandler(version string) *RootHandler {
	if version == "" {
		version = "dev"
	}
	return &RootHandler{version: version, startedAt: time.Now()}
}

// Info handles GET / and reports the process identity and uptime.
func (h *RootHandler) Info(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(rootInfo{
		Service:   "graphsearchd",
		Version:   h.version,
		Status:    "running",
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}
