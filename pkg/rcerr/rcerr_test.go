package rcerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfUnwrapsWrappedError(t *testing.T) {
	inner := New(SnapFailed, "no junction within radius").WithGuidance("increase --snap-radius")
	outer := fmt.Errorf("generate-route: %w", inner)

	kind, ok := KindOf(outer)
	if !ok || kind != SnapFailed {
		t.Fatalf("got kind=%v ok=%v, want SnapFailed/true", kind, ok)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(Cancelled, "request cancelled")
	if !errors.Is(err, Cancelled) {
		t.Fatalf("expected errors.Is to match the Cancelled kind")
	}
	if errors.Is(err, NoRouteFound) {
		t.Fatalf("did not expect errors.Is to match a different kind")
	}
}

func TestNoRouteFoundItineraryKind(t *testing.T) {
	err := NoRouteFoundItinerary(3)
	if err.Kind != NoRouteFound {
		t.Fatalf("got kind %v, want NoRouteFound", err.Kind)
	}
}
