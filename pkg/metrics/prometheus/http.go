// Package prometheus provides the Prometheus-backed metric types for
// graphsearchd's subsystems. Every constructor returns nil when metrics are
// disabled; all methods are safe on nil receivers.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/graphsearch/graphsearchd/pkg/metrics"
)

// HTTPMetrics records API request outcomes.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewHTTPMetrics creates the HTTP metric set, or nil when metrics are
// disabled.
func NewHTTPMetrics() *HTTPMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &HTTPMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphsearchd_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "route", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphsearchd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds by method and route",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "route"},
		),
		inFlight: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "graphsearchd_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

// RecordRequest records a completed request.
func (m *HTTPMetrics) RecordRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, status).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RequestStart increments the in-flight gauge.
func (m *HTTPMetrics) RequestStart() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RequestEnd decrements the in-flight gauge.
func (m *HTTPMetrics) RequestEnd() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
