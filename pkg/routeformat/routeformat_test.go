package routeformat

import (
	"bytes"
	"strings"
	"testing"

	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
	"github.com/NERVsystems/ridecore/pkg/routegen"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	nodes := map[int64]osmdata.Node{
		1: {ID: 1, Lat: 57.000, Lon: 24.000},
		2: {ID: 2, Lat: 57.000, Lon: 24.001},
	}
	ents := &osmdata.Entities{
		Nodes: nodes,
		Ways:  []osmdata.Way{{ID: 1, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "primary"}}},
	}
	g, err := graph.Build(ents, graph.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func testRoute(g *graph.Graph) routegen.Route {
	return routegen.Route{
		ItineraryID:     0,
		Segments:        []graph.SegmentID{g.Outgoing(0, graph.NoSegment)[0]},
		TotalLengthM:    100,
		LengthByHighway: map[string]float64{"primary": 100},
		LengthBySurface: map[string]float64{},
		TwistinessScore: 0,
	}
}

func TestWriteGPXProducesValidTrack(t *testing.T) {
	g := testGraph(t)
	var buf bytes.Buffer
	if err := WriteGPX(&buf, g, []routegen.Route{testRoute(g)}); err != nil {
		t.Fatalf("WriteGPX: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<trk>") || !strings.Contains(out, "<trkpt") {
		t.Fatalf("expected a track with points, got: %s", out)
	}
}

func TestWriteJSONProducesCoordinates(t *testing.T) {
	g := testGraph(t)
	var buf bytes.Buffer
	if err := WriteJSON(&buf, g, []routegen.Route{testRoute(g)}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "coordinates") {
		t.Fatalf("expected coordinates field, got: %s", buf.String())
	}
}

func TestWriteGeoJSONProducesFeatureCollection(t *testing.T) {
	g := testGraph(t)
	var buf bytes.Buffer
	if err := WriteGeoJSON(&buf, g, []routegen.Route{testRoute(g)}); err != nil {
		t.Fatalf("WriteGeoJSON: %v", err)
	}
	if !strings.Contains(buf.String(), "FeatureCollection") {
		t.Fatalf("expected a FeatureCollection, got: %s", buf.String())
	}
}
