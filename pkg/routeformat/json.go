package routeformat

import (
	"io"

	"github.com/goccy/go-json"

	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/routegen"
)

// jsonRoute is the JSON output shape: an ordered coordinate array plus a
// stats object.
type jsonRoute struct {
	ItineraryID     int         `json:"itinerary_id"`
	Coordinates     [][2]float64 `json:"coordinates"`
	TotalLengthM    float64     `json:"total_length_m"`
	LengthByHighway map[string]float64 `json:"length_by_highway"`
	LengthBySurface map[string]float64 `json:"length_by_surface"`
	TwistinessScore float64     `json:"twistiness_score"`
}

// WriteJSON renders routes as a JSON array using goccy/go-json, which the
// Overpass decoder in package osmdata also uses.
func WriteJSON(w io.Writer, g *graph.Graph, routes []routegen.Route) error {
	out := make([]jsonRoute, len(routes))
	for i, r := range routes {
		out[i] = jsonRoute{
			ItineraryID:     r.ItineraryID,
			Coordinates:     coordinates(g, r.Segments),
			TotalLengthM:    r.TotalLengthM,
			LengthByHighway: r.LengthByHighway,
			LengthBySurface: r.LengthBySurface,
			TwistinessScore: r.TwistinessScore,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func coordinates(g *graph.Graph, segs []graph.SegmentID) [][2]float64 {
	var out [][2]float64
	for i, segID := range segs {
		geom := g.Geometry(segID)
		start := 0
		if i > 0 {
			start = 1
		}
		for _, loc := range geom[start:] {
			out = append(out, [2]float64{loc.Longitude, loc.Latitude})
		}
	}
	return out
}
