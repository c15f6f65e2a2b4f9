package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for MCP operations
const (
	// MCP tool attributes
	AttrMCPToolName     = "mcp.tool.name"
	AttrMCPToolStatus   = "mcp.tool.status"
	AttrMCPToolDuration = "mcp.tool.duration_ms"
	AttrMCPResultSize   = "mcp.tool.result_size"

	// Route generation attributes
	AttrItineraryID       = "ridecore.itinerary.id"
	AttrItineraryKind     = "ridecore.itinerary.kind"
	AttrItineraryCount    = "ridecore.itinerary.count"
	AttrRouteCount        = "ridecore.route.count"
	AttrAbandonedCount    = "ridecore.route.abandoned_count"
	AttrAbandonReason     = "ridecore.route.abandon_reason"
	AttrGraphPointCount   = "ridecore.graph.point_count"
	AttrGraphSegmentCount = "ridecore.graph.segment_count"

	// Cache attributes
	AttrCacheType = "ridecore.cache.type"
	AttrCacheHit  = "ridecore.cache.hit"
	AttrCacheKey  = "ridecore.cache.key"

	// HTTP transport attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPPath       = "http.path"
	AttrHTTPSessionID  = "http.session_id"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Cache types
const (
	CacheTypeGraph    = "graph"
	CacheTypeRuleFile = "rule_file"
)

// Helper functions for common attributes

// MCPToolAttributes returns attributes for MCP tool execution
func MCPToolAttributes(toolName string, status string, durationMs int64, resultSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMCPToolName, toolName),
		attribute.String(AttrMCPToolStatus, status),
		attribute.Int64(AttrMCPToolDuration, durationMs),
		attribute.Int(AttrMCPResultSize, resultSize),
	}
}

// GenerationAttributes returns attributes describing one Generate call.
func GenerationAttributes(itineraryCount, routeCount, abandonedCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrItineraryCount, itineraryCount),
		attribute.Int(AttrRouteCount, routeCount),
		attribute.Int(AttrAbandonedCount, abandonedCount),
	}
}

// GraphAttributes returns attributes describing a built graph.
func GraphAttributes(pointCount, segmentCount int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrGraphPointCount, pointCount),
		attribute.Int(AttrGraphSegmentCount, segmentCount),
	}
}

// CacheAttributes returns attributes for cache operations
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
