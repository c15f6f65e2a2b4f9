// Package itinerary implements the ItineraryPlanner: it turns one routing
// request into a set of candidate waypoint sequences for the Generator to
// dispatch, one Navigator per itinerary.
package itinerary

import (
	"fmt"

	"github.com/NERVsystems/ridecore/pkg/geo"
)

// Waypoint is one stop of an Itinerary: a coordinate and the radius within
// which it counts as visited.
type Waypoint struct {
	Location geo.Location
	RadiusM  float64
}

// Itinerary is a request-scoped ordered sequence of waypoints.
type Itinerary struct {
	ID        int
	Waypoints []Waypoint
	VisitAll  bool
}

// DefaultMaxItineraries bounds how many itineraries Plan produces for one
// request; callers may lower it but Plan never exceeds it.
const DefaultMaxItineraries = 6

// startFinishOffsets are signed fractions of the straight-line start-finish
// distance used to push each itinerary's single intermediate waypoint
// perpendicular to that line, alternating sides.
var startFinishOffsets = []float64{0.15, -0.15, 0.30, -0.30, 0.45, -0.45}

// roundTripBearingOffsets rotate the base arc bearing for successive
// round-trip itineraries.
var roundTripBearingOffsets = []float64{0, 20, -20, 40}

// minVisitRadiusM floors the waypoint visit radius regardless of how short
// the computed fraction of total distance would otherwise be.
const minVisitRadiusM = 25

// StartFinish produces start-finish itineraries: itinerary 0 is the direct
// start->finish pair, and subsequent ones add one waypoint offset
// perpendicular to the start-finish line by startFinishOffsets, up to
// maxItineraries total.
func StartFinish(start, finish geo.Location, maxItineraries int) ([]Itinerary, error) {
	if maxItineraries <= 0 || maxItineraries > DefaultMaxItineraries {
		maxItineraries = DefaultMaxItineraries
	}
	total := geo.Distance(start, finish)
	if total <= 0 {
		return nil, fmt.Errorf("itinerary: start and finish coincide")
	}
	radius := visitRadius(total)

	out := []Itinerary{{
		ID: 0,
		Waypoints: []Waypoint{
			{Location: start, RadiusM: radius},
			{Location: finish, RadiusM: radius},
		},
		VisitAll: true,
	}}

	bearing := geo.Bearing(start, finish)
	perp := bearing + 90

	for _, frac := range startFinishOffsets {
		if len(out) >= maxItineraries {
			break
		}
		mid := midpoint(start, finish)
		offsetM := total * frac
		bulge := geo.Destination(mid, perp, offsetM)
		out = append(out, Itinerary{
			ID: len(out),
			Waypoints: []Waypoint{
				{Location: start, RadiusM: radius},
				{Location: bulge, RadiusM: radius},
				{Location: finish, RadiusM: radius},
			},
			VisitAll: true,
		})
	}
	return out, nil
}

// RoundTrip produces round-trip itineraries: each is a loop starting and
// ending at center, of approximately distanceM total length, its first leg
// departing along bearingDeg. Successive itineraries rotate the arc by
// roundTripBearingOffsets.
func RoundTrip(center geo.Location, bearingDeg, distanceM float64, maxItineraries int) ([]Itinerary, error) {
	if distanceM <= 0 {
		return nil, fmt.Errorf("itinerary: round-trip distance must be positive")
	}
	if maxItineraries <= 0 || maxItineraries > DefaultMaxItineraries {
		maxItineraries = DefaultMaxItineraries
	}
	radius := visitRadius(distanceM)

	var out []Itinerary
	for _, rotate := range roundTripBearingOffsets {
		if len(out) >= maxItineraries {
			break
		}
		wps := []Waypoint{{Location: center, RadiusM: radius}}
		fractions := []float64{0.25, 0.5, 0.75}
		for i, frac := range fractions {
			// Sweep the bearing across the loop so the legs curve back
			// toward center instead of retracing a straight out-and-back.
			sweep := bearingDeg + rotate + float64(i)*(360.0/float64(len(fractions)+1))
			leg := geo.Destination(center, sweep, distanceM*frac)
			wps = append(wps, Waypoint{Location: leg, RadiusM: radius})
		}
		wps = append(wps, Waypoint{Location: center, RadiusM: radius})
		out = append(out, Itinerary{ID: len(out), Waypoints: wps, VisitAll: true})
	}
	return out, nil
}

// visitRadius derives a waypoint's visit radius as 3% of the itinerary's
// approximate total distance, floored at minVisitRadiusM.
func visitRadius(totalM float64) float64 {
	r := totalM * 0.03
	if r < minVisitRadiusM {
		r = minVisitRadiusM
	}
	return r
}

func midpoint(a, b geo.Location) geo.Location {
	return geo.Location{
		Latitude:  (a.Latitude + b.Latitude) / 2,
		Longitude: (a.Longitude + b.Longitude) / 2,
	}
}
