package logger

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so logs can be
// aggregated and queried uniformly across subsystems.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Request handling
	KeyRequestID = "request_id" // HTTP request ID assigned by the router
	KeyMethod    = "method"     // HTTP method
	KeyPath      = "path"       // HTTP request path
	KeyStatus    = "status"     // HTTP response status code
	KeyClientIP  = "client_ip"  // Client IP address

	// Service lifecycle
	KeyService = "service" // Subsystem service name (fuzzy_match, graph_index, ...)
	KeyState   = "state"   // Lifecycle state name

	// Query operations
	KeyQuery    = "query"     // Query text (truncated at the call site when long)
	KeyNode     = "node"      // Graph node identifier
	KeyDepth    = "depth"     // Traversal depth
	KeyHits     = "hits"      // Result count
	KeyJobID    = "job_id"    // Rebuild job identifier
	KeyIndexDoc = "index_doc" // Indexed document identifier

	// Operation metadata
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyAttempt    = "attempt"     // Retry attempt number
)
