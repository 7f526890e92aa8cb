// Package health provides shared types for health check responses.
package health

// Response represents the API health response structure.
type Response struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// Healthy reports whether the aggregate verdict is healthy.
func (r *Response) Healthy() bool {
	return r.Status == "healthy"
}
