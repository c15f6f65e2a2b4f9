package itinerary

import (
	"testing"

	"github.com/NERVsystems/ridecore/pkg/geo"
)

func TestStartFinishProducesDirectPlusVariants(t *testing.T) {
	start := geo.Location{Latitude: 57.0, Longitude: 24.0}
	finish := geo.Location{Latitude: 57.05, Longitude: 24.05}

	its, err := StartFinish(start, finish, 4)
	if err != nil {
		t.Fatalf("StartFinish: %v", err)
	}
	if len(its) != 4 {
		t.Fatalf("got %d itineraries, want 4", len(its))
	}
	if len(its[0].Waypoints) != 2 {
		t.Fatalf("itinerary 0 should be the direct pair, got %d waypoints", len(its[0].Waypoints))
	}
	for _, it := range its[1:] {
		if len(it.Waypoints) != 3 {
			t.Errorf("offset itinerary should have 3 waypoints, got %d", len(it.Waypoints))
		}
		if !it.VisitAll {
			t.Errorf("expected VisitAll on every start-finish itinerary")
		}
	}
}

func TestStartFinishRejectsCoincidentPoints(t *testing.T) {
	loc := geo.Location{Latitude: 1, Longitude: 1}
	if _, err := StartFinish(loc, loc, 4); err == nil {
		t.Fatal("expected an error when start equals finish")
	}
}

func TestRoundTripStartsAndEndsAtCenter(t *testing.T) {
	center := geo.Location{Latitude: 57.0, Longitude: 24.0}
	its, err := RoundTrip(center, 0, 10000, 3)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if len(its) != 3 {
		t.Fatalf("got %d itineraries, want 3", len(its))
	}
	for _, it := range its {
		first, last := it.Waypoints[0], it.Waypoints[len(it.Waypoints)-1]
		if geo.Distance(first.Location, center) > 1 || geo.Distance(last.Location, center) > 1 {
			t.Errorf("round-trip itinerary %d does not start and end at center", it.ID)
		}
		if !it.VisitAll {
			t.Errorf("expected VisitAll on round-trip itineraries")
		}
	}
}

func TestVisitRadiusFloor(t *testing.T) {
	if got := visitRadius(100); got != minVisitRadiusM {
		t.Fatalf("got %f, want floor %f", got, float64(minVisitRadiusM))
	}
	if got := visitRadius(100000); got <= minVisitRadiusM {
		t.Fatalf("expected radius above the floor for a long itinerary, got %f", got)
	}
}
