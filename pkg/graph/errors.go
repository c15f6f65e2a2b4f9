package graph

import "fmt"

// BuildError wraps a failure encountered while constructing a Graph from
// an entity stream. It always indicates malformed input, never a partial
// or recoverable condition: graph build is all-or-nothing.
type BuildError struct {
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("graph: build failed: %s", e.Reason)
}

// NoJunctionInRadiusError is returned by NearestJunction when no junction
// point falls within the configured maximum search radius.
type NoJunctionInRadiusError struct {
	Lat, Lon float64
	RadiusM  float64
}

func (e *NoJunctionInRadiusError) Error() string {
	return fmt.Sprintf("graph: no junction within %.0fm of (%f, %f)", e.RadiusM, e.Lat, e.Lon)
}
