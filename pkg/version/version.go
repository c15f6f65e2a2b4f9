// Package version holds build-time version information, set via linker
// flags at release time and reported through health checks and the
// Prometheus system-info metric.
package version

import "runtime"

// BuildVersion is the module version. Overridden at build time with
// -ldflags "-X github.com/NERVsystems/ridecore/pkg/version.BuildVersion=...".
var BuildVersion = "dev"

// Commit is the VCS commit the binary was built from.
var Commit = "unknown"

// BuildDate is when the binary was built, in RFC 3339.
var BuildDate = "unknown"

// Info returns the version fields keyed for Prometheus labels and health
// check payloads.
func Info() map[string]string {
	return map[string]string{
		"version":    BuildVersion,
		"go_version": runtime.Version(),
		"commit":     Commit,
		"build_date": BuildDate,
	}
}

// String returns a one-line human-readable version summary.
func String() string {
	return "ridecore " + BuildVersion + " (" + runtime.Version() + ", commit " + Commit + ")"
}
