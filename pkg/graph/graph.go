package graph

import (
	"sort"

	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
)

// restriction is a turn restriction resolved to the (incoming, outgoing)
// segment pairs it constrains, attached to the via point.
type restriction struct {
	kind     osmdata.RestrictionKind
	fromSegs map[SegmentID]struct{}
	toSegs   map[SegmentID]struct{}
}

// Graph is the immutable, in-memory routable road graph. It is built once
// per process by Build and never mutated afterwards; all of its query
// methods are safe for concurrent use by multiple Navigators.
type Graph struct {
	Points   []Point
	Segments []Segment
	Ways     []Way

	restrictions map[PointID][]restriction
	index        *spatialIndex

	// DefaultSnapRadiusM bounds NearestJunction when the caller doesn't
	// specify one.
	DefaultSnapRadiusM float64
}

// NearestJunction snaps (lat, lon) to the closest junction point within
// radiusM. It returns a *NoJunctionInRadiusError if none is found.
func (g *Graph) NearestJunction(lat, lon, radiusM float64) (PointID, error) {
	if radiusM <= 0 {
		radiusM = g.DefaultSnapRadiusM
	}
	id, ok := g.index.nearest(g.Points, lat, lon, radiusM)
	if !ok {
		return NoPoint, &NoJunctionInRadiusError{Lat: lat, Lon: lon, RadiusM: radiusM}
	}
	return id, nil
}

// JunctionsWithin returns every junction point within radiusM of
// (lat, lon), nearest first.
func (g *Graph) JunctionsWithin(lat, lon, radiusM float64) []PointID {
	return g.index.within(g.Points, lat, lon, radiusM)
}

// Outgoing returns the segments leaving point that are legal to take given
// the segment the Navigator arrived on (incoming may be NoSegment at an
// itinerary's start). Turn restrictions attached to point are applied here;
// the caller never needs to consult them directly.
func (g *Graph) Outgoing(point PointID, incoming SegmentID) []SegmentID {
	all := g.Points[point].Out

	rules := g.restrictions[point]
	if len(rules) == 0 || incoming == NoSegment {
		out := make([]SegmentID, len(all))
		copy(out, all)
		return out
	}

	forbidden := make(map[SegmentID]struct{})
	var onlyAllowed map[SegmentID]struct{}

	for _, r := range rules {
		if _, arrivedViaThisWay := r.fromSegs[incoming]; !arrivedViaThisWay {
			continue
		}
		switch r.kind {
		case osmdata.RestrictionNo:
			for s := range r.toSegs {
				forbidden[s] = struct{}{}
			}
		case osmdata.RestrictionOnly:
			if onlyAllowed == nil {
				onlyAllowed = make(map[SegmentID]struct{})
			}
			for s := range r.toSegs {
				onlyAllowed[s] = struct{}{}
			}
		}
	}

	out := make([]SegmentID, 0, len(all))
	for _, s := range all {
		if _, no := forbidden[s]; no {
			continue
		}
		if onlyAllowed != nil {
			if _, ok := onlyAllowed[s]; !ok {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// SegmentGeometry returns the full ordered polyline of a segment.
func (g *Graph) SegmentGeometry(id SegmentID) []geo.Location {
	return g.Geometry(id)
}

// RestrictionSpec is the exported shape of a resolved turn restriction,
// used by graphcache to rehydrate a Graph without re-parsing source data.
type RestrictionSpec struct {
	ViaPoint PointID
	Kind     osmdata.RestrictionKind
	FromSegs []SegmentID
	ToSegs   []SegmentID
}

// FromParts reconstructs a Graph directly from its arena arrays and
// resolved restrictions, rebuilding only the spatial index. It is the
// graphcache package's entry point for loading a serialized graph without
// rerunning Build's OSM-parsing phases.
func FromParts(points []Point, segments []Segment, ways []Way, restrictions []RestrictionSpec, defaultSnapRadiusM, cellSizeM float64) *Graph {
	restrictionsByPoint := make(map[PointID][]restriction, len(restrictions))
	for _, r := range restrictions {
		fromSegs := make(map[SegmentID]struct{}, len(r.FromSegs))
		for _, s := range r.FromSegs {
			fromSegs[s] = struct{}{}
		}
		toSegs := make(map[SegmentID]struct{}, len(r.ToSegs))
		for _, s := range r.ToSegs {
			toSegs[s] = struct{}{}
		}
		restrictionsByPoint[r.ViaPoint] = append(restrictionsByPoint[r.ViaPoint], restriction{
			kind: r.Kind, fromSegs: fromSegs, toSegs: toSegs,
		})
	}

	hasIncoming := make(map[PointID]bool, len(segments))
	for _, s := range segments {
		hasIncoming[s.To] = true
	}

	idx := newSpatialIndex(cellSizeM)
	for _, p := range points {
		if len(p.Out) > 0 || hasIncoming[p.ID] {
			idx.insert(p)
		}
	}

	return &Graph{
		Points:             points,
		Segments:           segments,
		Ways:               ways,
		restrictions:       restrictionsByPoint,
		index:              idx,
		DefaultSnapRadiusM: defaultSnapRadiusM,
	}
}

// Restrictions returns every resolved turn restriction, exported so
// graphcache can persist them without reaching into Graph's unexported
// fields.
func (g *Graph) Restrictions() []RestrictionSpec {
	out := make([]RestrictionSpec, 0, len(g.restrictions))
	for viaPoint, rs := range g.restrictions {
		for _, r := range rs {
			spec := RestrictionSpec{ViaPoint: viaPoint, Kind: r.kind}
			for s := range r.fromSegs {
				spec.FromSegs = append(spec.FromSegs, s)
			}
			for s := range r.toSegs {
				spec.ToSegs = append(spec.ToSegs, s)
			}
			out = append(out, spec)
		}
	}
	return out
}

// CellSizeM returns the spatial index's tile size, for cache metadata.
func (g *Graph) CellSizeM() float64 { return g.index.cellSizeM }

// sortOut is a build-time helper that keeps each point's outgoing list
// ordered by segment id, so tie-breaking by "lower segment id" is stable
// without needing to re-sort at query time.
func sortOut(points []Point) {
	for i := range points {
		sort.Slice(points[i].Out, func(a, b int) bool { return points[i].Out[a] < points[i].Out[b] })
	}
}
