package geo

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestHaversineDistanceZero(t *testing.T) {
	d := HaversineDistance(57.1542, 24.8535, 57.1542, 24.8535)
	if d != 0 {
		t.Errorf("HaversineDistance same point = %f, want 0", d)
	}
}

func TestHaversineDistanceKnown(t *testing.T) {
	// Riga to Tallinn, roughly 280km apart.
	d := HaversineDistance(56.9496, 24.1052, 59.4370, 24.7536)
	if d < 270000 || d > 290000 {
		t.Errorf("HaversineDistance Riga-Tallinn = %f, want ~280000", d)
	}
}

func TestBearingCardinal(t *testing.T) {
	tests := []struct {
		name string
		a, b Location
		want float64
	}{
		{"due north", Location{0, 0}, Location{1, 0}, 0},
		{"due east", Location{0, 0}, Location{0, 1}, 90},
		{"due south", Location{1, 0}, Location{0, 0}, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.a, tt.b)
			if !almostEqual(got, tt.want, 1.0) {
				t.Errorf("Bearing(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDestinationRoundTrip(t *testing.T) {
	origin := Location{Latitude: 57.1542, Longitude: 24.8535}
	dest := Destination(origin, 45, 10000)

	d := Distance(origin, dest)
	if !almostEqual(d, 10000, 1.0) {
		t.Errorf("round-trip distance = %f, want ~10000", d)
	}

	b := Bearing(origin, dest)
	if !almostEqual(b, 45, 0.5) {
		t.Errorf("round-trip bearing = %f, want ~45", b)
	}
}

func TestAngleDiff(t *testing.T) {
	tests := []struct {
		a, b float64
		want float64
	}{
		{0, 0, 0},
		{0, 180, 180},
		{350, 10, 20},
		{10, 350, 20},
	}
	for _, tt := range tests {
		got := AngleDiff(tt.a, tt.b)
		if !almostEqual(got, tt.want, 0.001) {
			t.Errorf("AngleDiff(%f, %f) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestTurnAngleUTurn(t *testing.T) {
	got := TurnAngle(0, 180)
	if math.Abs(math.Abs(got)-180) > 0.001 {
		t.Errorf("TurnAngle(0, 180) = %f, want +-180", got)
	}
}

func TestBoundingBoxExtend(t *testing.T) {
	bb := NewBoundingBox()
	bb.Extend(Location{Latitude: 10, Longitude: 20})
	bb.Extend(Location{Latitude: -5, Longitude: 30})

	if bb.MinLat != -5 || bb.MaxLat != 10 || bb.MinLon != 20 || bb.MaxLon != 30 {
		t.Errorf("unexpected bounds: %+v", bb)
	}
	if !bb.Contains(Location{Latitude: 0, Longitude: 25}) {
		t.Error("expected box to contain midpoint")
	}
}
