package graph

import (
	"testing"

	"github.com/NERVsystems/ridecore/pkg/osmdata"
)

// straightLine builds the S1 scenario: one way of 10 nodes along a
// straight line, no restrictions.
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
		Ways: []osmdata.Way{
			{ID: 100, NodeIDs: ids, Tags: map[string]string{"highway": "primary"}},
		},
	}
}

func TestBuildStraightLine(t *testing.T) {
	g, err := Build(straightLineEntities(10), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Only the two endpoints are boundary nodes, so exactly one segment
	// pair (forward+backward) should be produced.
	if len(g.Segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(g.Segments))
	}
	if len(g.Points) != 2 {
		t.Fatalf("got %d points, want 2", len(g.Points))
	}

	start, err := g.NearestJunction(57.0, 24.0, 100)
	if err != nil {
		t.Fatalf("NearestJunction start: %v", err)
	}
	finish, err := g.NearestJunction(57.0, 24.009, 100)
	if err != nil {
		t.Fatalf("NearestJunction finish: %v", err)
	}

	out := g.Outgoing(start, NoSegment)
	if len(out) != 1 {
		t.Fatalf("got %d outgoing from start, want 1", len(out))
	}
	seg := g.Segments[out[0]]
	if seg.To != finish {
		t.Errorf("segment does not reach finish point")
	}
	// 9 hops of ~0.001deg lon at 57N, roughly 60m each => ~540m total.
	if seg.LengthM <= 0 {
		t.Errorf("segment length must be positive, got %f", seg.LengthM)
	}
}

func TestBuildTJunctionDeadEnd(t *testing.T) {
	// Main road N1-N2-N3, side branch N2-N4 (dead end), matching S2.
	nodes := map[int64]osmdata.Node{
		1: {ID: 1, Lat: 57.000, Lon: 24.000},
		2: {ID: 2, Lat: 57.000, Lon: 24.001},
		3: {ID: 3, Lat: 57.000, Lon: 24.002},
		4: {ID: 4, Lat: 57.001, Lon: 24.001},
	}
	ents := &osmdata.Entities{
		Nodes: nodes,
		Ways: []osmdata.Way{
			{ID: 10, NodeIDs: []int64{1, 2, 3}, Tags: map[string]string{"highway": "primary"}},
			{ID: 11, NodeIDs: []int64{2, 4}, Tags: map[string]string{"highway": "track"}},
		},
	}

	g, err := Build(ents, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// N1, N2, N3, N4 are all boundary nodes (N2 shared by 2 ways, N1/N3/N4
	// are way endpoints) so 4 points and 6 segments (3 undirected pairs).
	if len(g.Points) != 4 {
		t.Fatalf("got %d points, want 4", len(g.Points))
	}
	if len(g.Segments) != 6 {
		t.Fatalf("got %d segments, want 6", len(g.Segments))
	}

	n2, err := g.NearestJunction(57.000, 24.001, 10)
	if err != nil {
		t.Fatalf("NearestJunction n2: %v", err)
	}
	n4, err := g.NearestJunction(57.001, 24.001, 200)
	if err != nil {
		t.Fatalf("NearestJunction n4: %v", err)
	}

	out := g.Outgoing(n4, NoSegment)
	if len(out) != 1 || g.Segments[out[0]].To != n2 {
		t.Errorf("dead-end point N4 should only have the segment back to N2, got %v", out)
	}

	fromN2 := g.Outgoing(n2, NoSegment)
	if len(fromN2) != 3 {
		t.Errorf("N2 should have 3 outgoing segments (towards N1, N3, N4), got %d", len(fromN2))
	}
	_ = n4
}

func TestBuildRestrictionNoLeftTurn(t *testing.T) {
	// 3-way junction at N0, with roads to N1 (A, incoming), N2 (B), N3 (C).
	nodes := map[int64]osmdata.Node{
		0: {ID: 0, Lat: 57.000, Lon: 24.000},
		1: {ID: 1, Lat: 57.000, Lon: 23.999},
		2: {ID: 2, Lat: 57.001, Lon: 24.000},
		3: {ID: 3, Lat: 57.000, Lon: 24.001},
	}
	ents := &osmdata.Entities{
		Nodes: nodes,
		Ways: []osmdata.Way{
			{ID: 1, NodeIDs: []int64{1, 0}, Tags: map[string]string{"highway": "primary", "name": "A"}},
			{ID: 2, NodeIDs: []int64{0, 2}, Tags: map[string]string{"highway": "primary", "name": "B"}},
			{ID: 3, NodeIDs: []int64{0, 3}, Tags: map[string]string{"highway": "primary", "name": "C"}},
		},
		Relations: []osmdata.Relation{
			{
				ID: 900, Tags: map[string]string{"type": "restriction", "restriction": "no_left_turn"},
				FromWay: 1, ViaNode: 0, ToWay: 2, Kind: osmdata.RestrictionNo, HasValue: true,
			},
		},
	}

	g, err := Build(ents, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	n0, err := g.NearestJunction(57.000, 24.000, 10)
	if err != nil {
		t.Fatalf("NearestJunction n0: %v", err)
	}

	var incomingFromA, toB SegmentID = NoSegment, NoSegment
	for _, s := range g.Segments {
		way := g.Ways[s.Way]
		if way.Name == "A" && s.To == n0 {
			incomingFromA = s.ID
		}
		if way.Name == "B" && s.From == n0 {
			toB = s.ID
		}
	}
	if incomingFromA == NoSegment || toB == NoSegment {
		t.Fatalf("failed to locate expected segments: incomingFromA=%d toB=%d", incomingFromA, toB)
	}

	out := g.Outgoing(n0, incomingFromA)
	for _, s := range out {
		if s == toB {
			t.Fatalf("restricted A->B transition should not be offered, got it in %v", out)
		}
	}
}

func TestBuildMissingNodeFails(t *testing.T) {
	ents := &osmdata.Entities{
		Nodes: map[int64]osmdata.Node{1: {ID: 1, Lat: 0, Lon: 0}},
		Ways: []osmdata.Way{
			{ID: 1, NodeIDs: []int64{1, 2}, Tags: map[string]string{"highway": "primary"}},
		},
	}
	if _, err := Build(ents, BuildOptions{}); err == nil {
		t.Fatal("expected BuildError for missing node, got nil")
	}
}
