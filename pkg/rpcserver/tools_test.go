package rpcserver

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
)

func testService(t *testing.T) *Service {
	t.Helper()
	nodes := map[int64]osmdata.Node{
		1: {ID: 1, Lat: 57.000, Lon: 24.000},
		2: {ID: 2, Lat: 57.000, Lon: 24.002},
	}
	ents := &osmdata.Entities{
		Nodes: nodes,
		Ways:  []osmdata.Way{{ID: 1, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "primary"}}},
	}
	g, err := graph.Build(ents, graph.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return &Service{Graph: g, Logger: slog.Default()}
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestHandleGenerateRouteStartFinish(t *testing.T) {
	svc := testService(t)
	req := toolRequest(map[string]any{
		"start":  map[string]any{"lat": 57.000, "lon": 24.000},
		"finish": map[string]any{"lat": 57.000, "lon": 24.002},
	})

	result, err := svc.handleGenerateRoute(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGenerateRoute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error result: %+v", result.Content)
	}
	text := firstText(result)
	if !strings.Contains(text, "coordinates") {
		t.Fatalf("expected coordinates in output, got: %s", text)
	}
}

func TestHandleGenerateRouteMissingParams(t *testing.T) {
	svc := testService(t)
	result, err := svc.handleGenerateRoute(context.Background(), toolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handleGenerateRoute: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected an error result for missing parameters")
	}
}

func TestHandleGenerateRouteInvalidCoordinates(t *testing.T) {
	svc := testService(t)
	req := toolRequest(map[string]any{
		"start":  map[string]any{"lat": 200.0, "lon": 24.000},
		"finish": map[string]any{"lat": 57.000, "lon": 24.002},
	})

	result, err := svc.handleGenerateRoute(context.Background(), req)
	if err != nil {
		t.Fatalf("handleGenerateRoute: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected an error result for out-of-range latitude")
	}
}

func firstText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if t, ok := c.(mcp.TextContent); ok {
			return t.Text
		}
	}
	return ""
}
