package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/graphsearch/graphsearchd/pkg/metrics"
)

// SearchMetrics records fuzzy match query outcomes.
type SearchMetrics struct {
	queries  *prometheus.CounterVec
	duration prometheus.Histogram
	hits     prometheus.Histogram
	indexed  prometheus.Counter
}

// NewSearchMetrics creates the fuzzy match metric set, or nil when metrics
// are disabled.
func NewSearchMetrics() *SearchMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &SearchMetrics{
		queries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphsearchd_fuzzymatch_queries_total",
				Help: "Total number of fuzzy match queries by outcome",
			},
			[]string{"outcome"}, // "ok", "error"
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graphsearchd_fuzzymatch_query_duration_seconds",
				Help:    "Fuzzy match query duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		hits: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graphsearchd_fuzzymatch_hits",
				Help:    "Number of hits returned per fuzzy match query",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		indexed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "graphsearchd_fuzzymatch_entities_indexed_total",
				Help: "Total number of entities indexed",
			},
		),
	}
}

// RecordQuery records a completed search.
func (m *SearchMetrics) RecordQuery(hits int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queries.WithLabelValues(outcome).Inc()
	m.duration.Observe(duration.Seconds())
	if err == nil {
		m.hits.Observe(float64(hits))
	}
}

// RecordIndexed records entities added to the index.
func (m *SearchMetrics) RecordIndexed(count int) {
	if m == nil {
		return
	}
	m.indexed.Add(float64(count))
}

// GraphMetrics records graph traversal outcomes.
type GraphMetrics struct {
	traversals *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	visited    prometheus.Histogram
	edgesAdded prometheus.Counter
}

// NewGraphMetrics creates the graph index metric set, or nil when metrics
// are disabled.
func NewGraphMetrics() *GraphMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &GraphMetrics{
		traversals: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphsearchd_graphindex_traversals_total",
				Help: "Total number of graph traversals by kind and outcome",
			},
			[]string{"kind", "outcome"}, // kind: "neighbors", "path"
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "graphsearchd_graphindex_traversal_duration_seconds",
				Help:    "Graph traversal duration in seconds by kind",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		visited: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "graphsearchd_graphindex_nodes_visited",
				Help:    "Number of nodes visited per traversal",
				Buckets: []float64{1, 10, 100, 1000, 10000},
			},
		),
		edgesAdded: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "graphsearchd_graphindex_edges_added_total",
				Help: "Total number of edges written to the graph",
			},
		),
	}
}

// RecordTraversal records a completed traversal.
func (m *GraphMetrics) RecordTraversal(kind string, visited int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.traversals.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(duration.Seconds())
	if err == nil {
		m.visited.Observe(float64(visited))
	}
}

// RecordEdgesAdded records edges written to the graph.
func (m *GraphMetrics) RecordEdgesAdded(count int) {
	if m == nil {
		return
	}
	m.edgesAdded.Add(float64(count))
}

// QueryOptMetrics records plan cache behavior.
type QueryOptMetrics struct {
	lookups *prometheus.CounterVec
	entries prometheus.Gauge
}

// NewQueryOptMetrics creates the query optimizer metric set, or nil when
// metrics are disabled.
func NewQueryOptMetrics() *QueryOptMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &QueryOptMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "graphsearchd_queryopt_cache_lookups_total",
				Help: "Total number of plan cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		entries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "graphsearchd_queryopt_cache_entries",
				Help: "Current number of cached plans",
			},
		),
	}
}

// RecordLookup records a plan cache lookup.
func (m *QueryOptMetrics) RecordLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(result).Inc()
}

// SetCacheEntries updates the cached plan gauge.
func (m *QueryOptMetrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}
