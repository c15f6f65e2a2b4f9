package routeformat

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/paulmach/go.geojson"

	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/routegen"
)

// WriteGeoJSON renders routes as a FeatureCollection of LineString
// features, one per route, with route stats as feature properties.
func WriteGeoJSON(w io.Writer, g *graph.Graph, routes []routegen.Route) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range routes {
		coords := coordinates(g, r.Segments)
		line := make([][]float64, len(coords))
		for i, c := range coords {
			line[i] = []float64{c[0], c[1]}
		}
		feature := geojson.NewLineStringFeature(line)
		feature.SetProperty("itinerary_id", r.ItineraryID)
		feature.SetProperty("total_length_m", r.TotalLengthM)
		feature.SetProperty("twistiness_score", r.TwistinessScore)
		fc.AddFeature(feature)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	// Re-encode through goccy/go-json for indentation consistent with the
	// plain-JSON writer, rather than hand-rolling an indent pass.
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
