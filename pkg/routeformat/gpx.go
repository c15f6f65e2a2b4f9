// Package routeformat renders routegen.Route results to GPX 1.1, JSON, and
// GeoJSON.
package routeformat

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/routegen"
)

// No GPX library is a dependency of this module, so this writer is
// hand-rolled on encoding/xml; see DESIGN.md.

type gpxFile struct {
	XMLName xml.Name  `xml:"gpx"`
	Version string    `xml:"version,attr"`
	Creator string    `xml:"creator,attr"`
	Xmlns   string    `xml:"xmlns,attr"`
	Tracks  []gpxTrack `xml:"trk"`
}

type gpxTrack struct {
	Name       string         `xml:"name"`
	Extensions gpxExtensions  `xml:"extensions"`
	Segments   []gpxTrackSeg  `xml:"trkseg"`
}

type gpxExtensions struct {
	TotalLengthM    float64 `xml:"ridecore:total_length_m"`
	TwistinessScore float64 `xml:"ridecore:twistiness_score"`
}

type gpxTrackSeg struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxPoint struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

// WriteGPX renders routes as one <trk> per route, with the full walked
// polyline expanded into <trkpt> entries and route stats as <extensions>.
func WriteGPX(w io.Writer, g *graph.Graph, routes []routegen.Route) error {
	file := gpxFile{
		Version: "1.1",
		Creator: "ridecore",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
	}
	for _, r := range routes {
		track := gpxTrack{
			Name: fmt.Sprintf("itinerary-%d", r.ItineraryID),
			Extensions: gpxExtensions{
				TotalLengthM:    r.TotalLengthM,
				TwistinessScore: r.TwistinessScore,
			},
		}
		var seg gpxTrackSeg
		for i, segID := range r.Segments {
			geom := g.Geometry(segID)
			start := 0
			if i > 0 {
				start = 1 // drop the duplicate point shared with the previous segment's end
			}
			for _, loc := range geom[start:] {
				seg.Points = append(seg.Points, gpxPoint{Lat: loc.Latitude, Lon: loc.Longitude})
			}
		}
		track.Segments = append(track.Segments, seg)
		file.Tracks = append(file.Tracks, track)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(file)
}
