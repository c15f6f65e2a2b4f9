package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	metrics := []prometheus.Collector{
		MCPRequestsTotal,
		MCPRequestDuration,
		ItinerariesPlannedTotal,
		ItinerariesAbandonedTotal,
		RoutesProducedTotal,
		RouteGenerationDuration,
		NavigatorStepsTotal,
		RouteTwistiness,
		CacheHits,
		CacheMisses,
		CacheSize,
		ActiveConnections,
		ErrorsTotal,
		SystemInfo,
		GoRoutines,
		MemoryUsage,
		GCRuns,
	}

	for _, metric := range metrics {
		if metric == nil {
			t.Error("Metric is nil")
		}
	}
}

func TestRecordMCPRequest(t *testing.T) {
	MCPRequestsTotal.Reset()

	RecordMCPRequest("generate_route", 100*time.Millisecond, true)
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("generate_route", "success")); got != 1 {
		t.Errorf("Expected 1 successful request, got %v", got)
	}

	RecordMCPRequest("generate_route", 200*time.Millisecond, false)
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("generate_route", "error")); got != 1 {
		t.Errorf("Expected 1 failed request, got %v", got)
	}
}

func TestRecordGeneration(t *testing.T) {
	plannedBefore := testutil.ToFloat64(ItinerariesPlannedTotal)
	routesBefore := testutil.ToFloat64(RoutesProducedTotal)
	ItinerariesAbandonedTotal.Reset()

	RecordGeneration(6, 4, 250*time.Millisecond, []string{"no_progress", "waypoint_unreachable"})

	if got := testutil.ToFloat64(ItinerariesPlannedTotal) - plannedBefore; got != 6 {
		t.Errorf("expected 6 itineraries planned, got %v", got)
	}
	if got := testutil.ToFloat64(RoutesProducedTotal) - routesBefore; got != 4 {
		t.Errorf("expected 4 routes produced, got %v", got)
	}
	if got := testutil.ToFloat64(ItinerariesAbandonedTotal.WithLabelValues("no_progress")); got != 1 {
		t.Errorf("expected 1 no_progress abandonment, got %v", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	CacheHits.Reset()
	CacheMisses.Reset()
	CacheSize.Reset()

	RecordCacheHit("graph")
	if got := testutil.ToFloat64(CacheHits.WithLabelValues("graph")); got != 1 {
		t.Errorf("Expected 1 cache hit, got %v", got)
	}

	RecordCacheMiss("graph")
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("graph")); got != 1 {
		t.Errorf("Expected 1 cache miss, got %v", got)
	}

	UpdateCacheSize("graph", 42)
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("graph")); got != 42 {
		t.Errorf("Expected cache size 42, got %v", got)
	}
}

func TestErrorMetrics(t *testing.T) {
	ErrorsTotal.Reset()

	RecordError("navigator", "no_route_found")
	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("navigator", "no_route_found")); got != 1 {
		t.Errorf("Expected 1 error, got %v", got)
	}
}

func TestUpdateActiveConnections(t *testing.T) {
	ActiveConnections.Reset()

	UpdateActiveConnections("http", "client", 5)
	if got := testutil.ToFloat64(ActiveConnections.WithLabelValues("http", "client")); got != 5 {
		t.Errorf("Expected 5 active connections, got %v", got)
	}
}

func BenchmarkRecordMCPRequest(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordMCPRequest("benchmark_tool", 100*time.Millisecond, true)
	}
}

func BenchmarkRecordCacheHit(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RecordCacheHit("benchmark_cache")
	}
}
