package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// ServiceName is the name reported in health checks and metrics.
	ServiceName = "ridecore"
)

var (
	// Tool-call metrics, recorded around every rpcserver tool handler.
	MCPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridecore_mcp_requests_total",
			Help: "Total number of MCP tool requests processed",
		},
		[]string{"tool", "status"},
	)

	MCPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ridecore_mcp_request_duration_seconds",
			Help:    "MCP tool request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"tool"},
	)

	// Route generation metrics.
	ItinerariesPlannedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ridecore_itineraries_planned_total",
			Help: "Total number of itineraries handed to the Generator",
		},
	)

	ItinerariesAbandonedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridecore_itineraries_abandoned_total",
			Help: "Total number of itineraries a Navigator abandoned, by reason",
		},
		[]string{"reason"},
	)

	RoutesProducedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ridecore_routes_produced_total",
			Help: "Total number of routes the Generator returned, after dedup",
		},
	)

	RouteGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ridecore_route_generation_duration_seconds",
			Help:    "Wall-clock time to generate all routes for one request",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	NavigatorStepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ridecore_navigator_steps_total",
			Help: "Total number of Navigator.Step calls across all itineraries",
		},
	)

	RouteTwistiness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ridecore_route_twistiness_score",
			Help:    "Twistiness score of produced routes",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		},
	)

	// Cache metrics, labeled by cache type.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridecore_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridecore_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridecore_cache_size",
			Help: "Current number of items in cache",
		},
		[]string{"cache_type"},
	)

	// Connection metrics.
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridecore_active_connections",
			Help: "Number of active connections",
		},
		[]string{"transport", "type"},
	)

	// Error metrics.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ridecore_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics.
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ridecore_system_info",
			Help: "System information",
		},
		[]string{"version", "go_version", "build_commit", "build_date"},
	)

	GoRoutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ridecore_goroutines",
			Help: "Number of goroutines",
		},
	)

	MemoryUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ridecore_memory_usage_bytes",
			Help: "Memory usage in bytes",
		},
	)

	GCRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ridecore_gc_runs_total",
			Help: "Total number of garbage collection runs",
		},
	)
)

// TransportInfo holds transport configuration and status.
type TransportInfo struct {
	Type           string `json:"type"` // "http_streaming" or "stdio"
	HTTPAddr       string `json:"http_addr,omitempty"`
	ActiveSessions int    `json:"active_sessions,omitempty"`
}

// ServiceHealth is the shape returned by the /health endpoint.
type ServiceHealth struct {
	Service       string                 `json:"service"`
	Version       string                 `json:"version"`
	Status        string                 `json:"status"` // "healthy", "degraded", "unhealthy"
	Uptime        time.Duration          `json:"uptime"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	StartTime     time.Time              `json:"start_time,omitempty"`
	Connections   map[string]ConnStatus  `json:"connections"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
	Transport     *TransportInfo         `json:"transport,omitempty"`
}

type ConnStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "connected", "disconnected", "error"
	Latency int64  `json:"latency_ms,omitempty"`
	Error   string `json:"last_error,omitempty"`
}

// RecordMCPRequest records one tool call's outcome and duration.
func RecordMCPRequest(tool string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	MCPRequestsTotal.WithLabelValues(tool, status).Inc()
	MCPRequestDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordGeneration records one Generate call's outcome: how many
// itineraries went in, how many routes came out, how long it took, and
// the abandonment reasons for the rest.
func RecordGeneration(itineraries, routes int, duration time.Duration, abandonedReasons []string) {
	ItinerariesPlannedTotal.Add(float64(itineraries))
	RoutesProducedTotal.Add(float64(routes))
	RouteGenerationDuration.Observe(duration.Seconds())
	for _, reason := range abandonedReasons {
		ItinerariesAbandonedTotal.WithLabelValues(reason).Inc()
	}
}

func RecordNavigatorStep() {
	NavigatorStepsTotal.Inc()
}

func RecordRouteTwistiness(score float64) {
	RouteTwistiness.Observe(score)
}

func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

func UpdateCacheSize(cacheType string, size int) {
	CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func UpdateActiveConnections(transport, connType string, count int) {
	ActiveConnections.WithLabelValues(transport, connType).Set(float64(count))
}
