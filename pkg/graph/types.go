// Package graph implements MapDataGraph: an immutable, in-memory routable
// road graph with spatial indexing, built once per process from a stream
// of OSM entities and read-only thereafter.
package graph

import "github.com/NERVsystems/ridecore/pkg/geo"

// PointID identifies a junction point within a built Graph. Stable for
// the lifetime of the Graph; never reused across rebuilds.
type PointID int32

// SegmentID identifies a directed segment within a built Graph.
type SegmentID int32

// WayID identifies a way within a built Graph.
type WayID int32

// NoPoint, NoSegment and NoWay are the -1 sentinels meaning "none"; 0 is a
// valid id.
const (
	NoPoint   PointID   = -1
	NoSegment SegmentID = -1
	NoWay     WayID     = -1
)

// Point is a junction in the graph: shared by two or more ways, or the
// terminus of a way. Intermediate vertices never become Points; they live
// only inside a Segment's Polyline.
type Point struct {
	ID       PointID
	OSMNodeID int64
	Location geo.Location

	// Out lists the ids of every segment whose From == this point, i.e.
	// the graph-level adjacency. The Navigator never sees more outgoing
	// segments than this list holds.
	Out []SegmentID
}

// Segment is a directed traversal unit between two junction points.
type Segment struct {
	ID       SegmentID
	From, To PointID
	// Intermediate holds the polyline points strictly between From and To,
	// in traversal order (from From towards To); it excludes both endpoints.
	Intermediate []geo.Location
	LengthM      float64
	OneWay       bool
	Way          WayID
}

// Way is metadata-bearing grouping of consecutive segments, immutable
// after the graph is built.
type Way struct {
	ID         WayID
	OSMWayID   int64
	Highway    string
	Surface    string
	Smoothness string
	Name       string
	Ref        string
	MaxSpeed   float64
	HasMaxSpeed bool
}

// Geometry returns the full ordered polyline of a segment, endpoints
// included, by combining the graph's point coordinates with the segment's
// stored intermediate points.
func (g *Graph) Geometry(id SegmentID) []geo.Location {
	seg := g.Segments[id]
	pts := make([]geo.Location, 0, len(seg.Intermediate)+2)
	pts = append(pts, g.Points[seg.From].Location)
	pts = append(pts, seg.Intermediate...)
	pts = append(pts, g.Points[seg.To].Location)
	return pts
}
