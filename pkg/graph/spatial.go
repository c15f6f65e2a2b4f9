package graph

import (
	"math"
	"sort"

	"github.com/NERVsystems/ridecore/pkg/geo"
)

// defaultCellSizeM is the spatial index's tile resolution: roughly one
// kilometer per cell, coarse enough to keep bucket counts low while still
// giving nearest-neighbor queries a small candidate set.
const defaultCellSizeM = 1000.0

const metersPerDegreeLat = 111320.0

type tileKey struct {
	x, y int32
}

// spatialIndex buckets junction points into fixed-size lat/lon tiles for
// k-nearest and radius queries.
type spatialIndex struct {
	cellSizeM float64
	tiles     map[tileKey][]PointID
}

func newSpatialIndex(cellSizeM float64) *spatialIndex {
	if cellSizeM <= 0 {
		cellSizeM = defaultCellSizeM
	}
	return &spatialIndex{cellSizeM: cellSizeM, tiles: make(map[tileKey][]PointID)}
}

func (s *spatialIndex) cellDegrees() float64 {
	return s.cellSizeM / metersPerDegreeLat
}

func (s *spatialIndex) keyFor(lat, lon float64) tileKey {
	d := s.cellDegrees()
	return tileKey{
		x: int32(math.Floor(lon / d)),
		y: int32(math.Floor(lat / d)),
	}
}

func (s *spatialIndex) insert(p Point) {
	k := s.keyFor(p.Location.Latitude, p.Location.Longitude)
	s.tiles[k] = append(s.tiles[k], p.ID)
}

// candidatesInRing returns point ids from tiles within `ring` tiles of the
// query point's tile (a (2*ring+1)^2 block), used to expand the search
// outward until enough candidates are found.
func (s *spatialIndex) candidatesInRing(lat, lon float64, ring int) []PointID {
	center := s.keyFor(lat, lon)
	var out []PointID
	for dx := -ring; dx <= ring; dx++ {
		for dy := -ring; dy <= ring; dy++ {
			k := tileKey{x: center.x + int32(dx), y: center.y + int32(dy)}
			out = append(out, s.tiles[k]...)
		}
	}
	return out
}

// nearest returns the closest point to (lat, lon) among those within
// maxRadiusM, expanding the search ring until the radius is exhausted.
func (s *spatialIndex) nearest(points []Point, lat, lon, maxRadiusM float64) (PointID, bool) {
	maxRing := int(math.Ceil(maxRadiusM/s.cellSizeM)) + 1

	best := NoPoint
	bestDist := math.MaxFloat64

	for ring := 0; ring <= maxRing; ring++ {
		for _, id := range s.candidatesInRing(lat, lon, ring) {
			d := geo.HaversineDistance(lat, lon, points[id].Location.Latitude, points[id].Location.Longitude)
			if d <= maxRadiusM && d < bestDist {
				bestDist = d
				best = id
			}
		}
		// Once we have a candidate and the next ring's nearest possible
		// distance already exceeds it, stop expanding.
		if best != NoPoint && float64(ring)*s.cellSizeM > bestDist {
			break
		}
	}
	if best == NoPoint {
		return NoPoint, false
	}
	return best, true
}

// within returns every point within radiusM of (lat, lon), nearest first.
func (s *spatialIndex) within(points []Point, lat, lon, radiusM float64) []PointID {
	ring := int(math.Ceil(radiusM/s.cellSizeM)) + 1

	type hit struct {
		id   PointID
		dist float64
	}
	seen := make(map[PointID]struct{})
	var hits []hit
	for _, id := range s.candidatesInRing(lat, lon, ring) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		d := geo.HaversineDistance(lat, lon, points[id].Location.Latitude, points[id].Location.Longitude)
		if d <= radiusM {
			hits = append(hits, hit{id, d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]PointID, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}
