package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for search and graph operations.
// HTTP-level keys follow OpenTelemetry semantic conventions; domain keys
// use "search.", "graph." and "query." prefixes.
const (
	// Client attributes
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// Service lifecycle attributes
	AttrService = "service.component"
	AttrState   = "lifecycle.state"

	// Fuzzy match attributes
	AttrSearchQuery     = "search.query"
	AttrSearchFuzziness = "search.fuzziness"
	AttrSearchLimit     = "search.limit"
	AttrSearchHits      = "search.hits"
	AttrSearchMaxScore  = "search.max_score"

	// Graph attributes
	AttrGraphNode      = "graph.node"
	AttrGraphFrom      = "graph.from"
	AttrGraphTo        = "graph.to"
	AttrGraphDepth     = "graph.depth"
	AttrGraphDirection = "graph.direction"
	AttrGraphVisited   = "graph.visited"
	AttrGraphPathLen   = "graph.path_length"
	AttrGraphEdges     = "graph.edges"

	// Query optimizer attributes
	AttrQueryHash      = "query.hash"
	AttrQueryCacheHit  = "query.cache_hit"
	AttrQueryRules     = "query.rules_applied"
	AttrQueryCost      = "query.estimated_cost"
	AttrQueryPredicate = "query.predicates"

	// Index attributes
	AttrIndexDocs  = "index.docs"
	AttrIndexJobID = "index.job_id"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanFuzzySearch   = "fuzzymatch.search"
	SpanFuzzyEntities = "fuzzymatch.entities"
	SpanFuzzyIndex    = "fuzzymatch.index"

	SpanGraphNeighbors = "graphindex.neighbors"
	SpanGraphPath      = "graphindex.path"
	SpanGraphAddEdges  = "graphindex.add_edges"

	SpanQueryOptimize = "queryopt.optimize"

	SpanIndexRebuild = "index.rebuild"
	SpanIndexStats   = "index.stats"

	SpanServiceInit    = "service.initialize"
	SpanServiceCleanup = "service.cleanup"
	SpanHealthCheck    = "health.check"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ServiceComponent returns an attribute for the hosted service name
func ServiceComponent(name string) attribute.KeyValue {
	return attribute.String(AttrService, name)
}

// LifecycleState returns an attribute for the orchestrator state
func LifecycleState(state string) attribute.KeyValue {
	return attribute.String(AttrState, state)
}

// SearchQuery returns an attribute for the fuzzy search query text
func SearchQuery(q string) attribute.KeyValue {
	return attribute.String(AttrSearchQuery, q)
}

// SearchFuzziness returns an attribute for the edit distance used
func SearchFuzziness(f int) attribute.KeyValue {
	return attribute.Int(AttrSearchFuzziness, f)
}

// SearchHits returns an attribute for the number of hits returned
func SearchHits(n int) attribute.KeyValue {
	return attribute.Int(AttrSearchHits, n)
}

// GraphNode returns an attribute for a graph node ID
func GraphNode(id string) attribute.KeyValue {
	return attribute.String(AttrGraphNode, id)
}

// GraphFrom returns an attribute for a path source node
func GraphFrom(id string) attribute.KeyValue {
	return attribute.String(AttrGraphFrom, id)
}

// GraphTo returns an attribute for a path target node
func GraphTo(id string) attribute.KeyValue {
	return attribute.String(AttrGraphTo, id)
}

// GraphDepth returns an attribute for traversal depth
func GraphDepth(d int) attribute.KeyValue {
	return attribute.Int(AttrGraphDepth, d)
}

// GraphVisited returns an attribute for nodes visited during traversal
func GraphVisited(n int) attribute.KeyValue {
	return attribute.Int(AttrGraphVisited, n)
}

// QueryCacheHit returns an attribute for plan cache hit indicator
func QueryCacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrQueryCacheHit, hit)
}

// QueryHash returns an attribute for the normalized query hash
func QueryHash(h string) attribute.KeyValue {
	return attribute.String(AttrQueryHash, h)
}

// IndexJobID returns an attribute for a rebuild job ID
func IndexJobID(id string) attribute.KeyValue {
	return attribute.String(AttrIndexJobID, id)
}

// StartSearchSpan starts a span for a fuzzy match operation.
func StartSearchSpan(ctx context.Context, operation, query string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{SearchQuery(query)}
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, "fuzzymatch."+operation, trace.WithAttributes(allAttrs...))
}

// StartGraphSpan starts a span for a graph index operation.
func StartGraphSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "graphindex."+operation, trace.WithAttributes(attrs...))
}

// StartServiceSpan starts a span for a lifecycle operation on a hosted service.
func StartServiceSpan(ctx context.Context, operation, service string) (context.Context, trace.Span) {
	return StartSpan(ctx, "service."+operation, trace.WithAttributes(ServiceComponent(service)))
}
