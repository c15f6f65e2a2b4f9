package nav

import (
	"testing"

	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
	"github.com/NERVsystems/ridecore/pkg/rules"
)

func straightLineEntities(n int) *osmdata.Entities {
	nodes := make(map[int64]osmdata.Node, n)
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		id := int64(i + 1)
		ids[i] = id
		nodes[id] = osmdata.Node{ID: id, Lat: 57.0, Lon: 24.0 + float64(i)*0.001}
	}
	return &osmdata.Entities{
		Nodes: nodes,
		Ways:  []osmdata.Way{{ID: 100, NodeIDs: ids, Tags: map[string]string{"highway": "primary"}}},
	}
}

func TestNavigatorReachesSingleWaypoint(t *testing.T) {
	g, err := graph.Build(straightLineEntities(10), graph.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	start, err := g.NearestJunction(57.0, 24.0, 100)
	if err != nil {
		t.Fatalf("NearestJunction: %v", err)
	}
	finishLoc := geo.Location{Latitude: 57.0, Longitude: 24.009}

	n := New(g, rules.New(rules.Empty()), start, []geo.Location{finishLoc}, 30)
	result := n.Run(nil)
	if result != FinishedResult {
		t.Fatalf("got %v, want FinishedResult (state=%v, reason=%v)", result, n.State(), n.AbandonReason())
	}
	if len(n.Segments()) == 0 {
		t.Fatalf("expected at least one segment in the walked path")
	}
}

func TestNavigatorBacktracksFromDeadEnd(t *testing.T) {
	// Main N1-N2-N3, dead-end branch N2-N4; N4 sits on the direct line from
	// N2 to the finish but short of it, so the branch looks like the
	// straighter choice at the N2 fork and must be tried before the
	// Navigator backtracks onto the longer main road.
	//
	// Way 11 (the branch) is listed before way 10 (main) so its segments
	// get the lower segment ids: both candidates tie at weight 0 once
	// prefer_same_road is disabled below, and PickBest breaks ties by the
	// lower segment id.
	nodes := map[int64]osmdata.Node{
		1: {ID: 1, Lat: 57.000, Lon: 24.000},
		2: {ID: 2, Lat: 57.000, Lon: 24.001},
		3: {ID: 3, Lat: 57.000, Lon: 24.002},
		4: {ID: 4, Lat: 57.000, Lon: 24.0015},
	}
	ents := &osmdata.Entities{
		Nodes: nodes,
		Ways: []osmdata.Way{
			{ID: 11, NodeIDs: []int64{2, 4}, Tags: map[string]string{"highway": "track"}},
			{ID: 10, NodeIDs: []int64{1, 2, 3}, Tags: map[string]string{"highway": "primary"}},
		},
	}
	g, err := graph.Build(ents, graph.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	start, err := g.NearestJunction(57.000, 24.000, 50)
	if err != nil {
		t.Fatalf("NearestJunction start: %v", err)
	}
	finishLoc := geo.Location{Latitude: 57.000, Longitude: 24.002}

	ruleFile := rules.Empty()
	ruleFile.Basic.PreferSameRoad = 0
	n := New(g, rules.New(ruleFile), start, []geo.Location{finishLoc}, 20)

	sawDeadEnd := false
	result := n.Run(func(r MoveResult) {
		if r == DeadEnd || r == BacktrackTo {
			sawDeadEnd = true
		}
	})
	if result != FinishedResult {
		t.Fatalf("got %v, want FinishedResult (state=%v, reason=%v)", result, n.State(), n.AbandonReason())
	}
	if !sawDeadEnd {
		t.Fatalf("expected the Navigator to hit the dead-end branch and backtrack")
	}
	for _, segID := range n.Segments() {
		if way := g.Ways[g.Segments[segID].Way]; way.OSMWayID == 11 {
			t.Fatalf("route includes segment %d from the dead-end branch (way 11)", segID)
		}
	}
}

func TestNavigatorAbandonsWhenWaypointUnreachable(t *testing.T) {
	nodes := map[int64]osmdata.Node{
		1: {ID: 1, Lat: 0, Lon: 0},
		2: {ID: 2, Lat: 0, Lon: 0.001},
	}
	ents := &osmdata.Entities{
		Nodes: nodes,
		Ways:  []osmdata.Way{{ID: 1, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "track", "oneway": "yes"}}},
	}
	g, err := graph.Build(ents, graph.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	start, err := g.NearestJunction(0, 0.001, 50)
	if err != nil {
		t.Fatalf("NearestJunction: %v", err)
	}
	// Target is unreachable: the only segment is oneway away from start, and
	// start has no outgoing segments at all.
	unreachable := geo.Location{Latitude: 10, Longitude: 10}
	n := New(g, rules.New(rules.Empty()), start, []geo.Location{unreachable}, 10)
	result := n.Run(nil)
	if result != AbandonedResult || n.AbandonReason() != WaypointUnreachable {
		t.Fatalf("got result=%v reason=%v, want Abandoned/WaypointUnreachable", result, n.AbandonReason())
	}
}
