package rules

import (
	"github.com/NERVsystems/ridecore/pkg/graph"
)

// Verdict is the RuleEngine's output for one candidate: either a numeric
// weight (0-255) or an outright avoid.
type Verdict struct {
	Avoid  bool
	Weight uint8
}

// EvalInput bundles everything the RuleEngine needs to score one candidate.
// Every geometric signal (bearings, lookahead) is computed by the caller
// (the Navigator), since the RuleEngine itself never queries the graph.
type EvalInput struct {
	Candidate    graph.Segment
	CandidateWay graph.Way

	HasIncoming  bool
	Incoming     graph.Segment
	IncomingWay  graph.Way

	AccumulatedDistanceM float64

	// CandidateBearingDeg is the initial bearing of the candidate segment's
	// geometry; IncomingBearingDeg is the final bearing of the incoming
	// segment's geometry (0 when HasIncoming is false).
	CandidateBearingDeg float64
	IncomingBearingDeg  float64

	// TargetBearingDeg is the bearing from the current point toward the
	// active waypoint.
	TargetBearingDeg float64

	// RejoinsIncomingWayWithinM is the distance at which the candidate's
	// path rejoins the incoming way, as determined by a short lookahead;
	// 0 means it does not rejoin within the rule's detour window.
	RejoinsIncomingWayWithinM float64

	// RecentMetersPerStep is the sliding-window progress rate in
	// meters/step; a negative value means not enough history has
	// accumulated yet to judge it.
	RecentMetersPerStep float64
}

// Engine evaluates candidates against a single, immutable rule-file. It is
// stateless between evaluations and safe to share a read-only *File across
// Engines, but each Navigator owns its own Engine instance to keep its
// evaluation history independent of concurrent itineraries.
type Engine struct {
	file *File
}

// New returns an Engine bound to file. file is never mutated.
func New(file *File) *Engine {
	return &Engine{file: file}
}

// File returns the rule-file this Engine was built from.
func (e *Engine) File() *File { return e.file }

// Evaluate scores one candidate. A single avoiding rule wins outright,
// regardless of other weights; otherwise weights are summed, penalties
// subtracted, and the result saturated into [0, 255].
func (e *Engine) Evaluate(in EvalInput) Verdict {
	var score int
	var penalty int

	if r, ok := e.file.Highway[in.CandidateWay.Highway]; ok {
		if r.Action == ActionAvoid {
			return Verdict{Avoid: true}
		}
		score += int(r.Value)
	}
	if r, ok := e.file.Surface[in.CandidateWay.Surface]; ok {
		if r.Action == ActionAvoid {
			return Verdict{Avoid: true}
		}
		score += int(r.Value)
	}
	if r, ok := e.file.Smoothness[in.CandidateWay.Smoothness]; ok {
		if r.Action == ActionAvoid {
			return Verdict{Avoid: true}
		}
		score += int(r.Value)
	}

	if in.HasIncoming && sameRoad(in.IncomingWay, in.CandidateWay) {
		score += int(e.file.Basic.PreferSameRoad)
	}

	if avoid, pen := e.progressionDirection(in); avoid {
		return Verdict{Avoid: true}
	} else {
		penalty += pen
	}

	if in.HasIncoming && e.file.Basic.NoSharpTurnsEnabled && isMultiLane(in.CandidateWay) {
		turn := turnAngleMagnitude(in.IncomingBearingDeg, in.CandidateBearingDeg)
		if turn >= e.file.Basic.SharpTurnMinDeg {
			return Verdict{Avoid: true}
		}
	}

	if e.file.Basic.NoShortDetoursEnabled && in.RejoinsIncomingWayWithinM > 0 &&
		in.RejoinsIncomingWayWithinM <= e.file.Basic.ShortDetourMaxMeters {
		penalty += int(e.file.Basic.ShortDetourPenalty)
	}

	score -= penalty
	if score < 0 {
		score = 0
	}
	if score > 255 {
		score = 255
	}
	return Verdict{Weight: uint8(score)}
}

// progressionDirection returns (avoid, penalty) for the direction rule:
// deviating beyond ProgressionDirectionAvoidDeg from the bearing toward
// the active waypoint is an outright avoid; deviating beyond
// ProgressionDirectionDeg but within the avoid band costs a penalty.
func (e *Engine) progressionDirection(in EvalInput) (bool, int) {
	diff := angleDiff(in.CandidateBearingDeg, in.TargetBearingDeg)
	if diff > e.file.Basic.ProgressionDirectionAvoidDeg {
		return true, 0
	}
	if diff > e.file.Basic.ProgressionDirectionDeg {
		return false, int(e.file.Basic.ProgressionDirectionPenalty)
	}
	return false, 0
}

// NoProgress reports whether the sliding-window progress rate has fallen
// below the configured threshold, triggering the NoProgress abandonment
// trigger. It is exposed separately from Evaluate since it is a per-step
// navigator-level check, not a per-candidate one.
func (e *Engine) NoProgress(recentMetersPerStep float64, stepsObserved int) bool {
	b := e.file.Basic
	if !b.ProgressionSpeedEnabled || stepsObserved < b.ProgressionSpeedWindow {
		return false
	}
	return recentMetersPerStep < b.ProgressionSpeedMinMetersPerStep
}

// StepLimit returns the configured hard cap on Navigator steps.
func (e *Engine) StepLimit() int { return e.file.Basic.StepLimit }

func sameRoad(a, b graph.Way) bool {
	if a.OSMWayID != 0 && a.OSMWayID == b.OSMWayID {
		return true
	}
	if a.Name != "" && a.Name == b.Name {
		return true
	}
	return a.Ref != "" && a.Ref == b.Ref
}

// isMultiLane approximates "multi-lane road" from highway classification,
// since the graph doesn't carry a parsed lanes count.
func isMultiLane(w graph.Way) bool {
	switch w.Highway {
	case "motorway", "trunk", "primary", "motorway_link", "trunk_link":
		return true
	default:
		return false
	}
}

func angleDiff(a, b float64) float64 {
	d := mod(a-b, 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func turnAngleMagnitude(incoming, outgoing float64) float64 {
	d := mod(outgoing-incoming+180, 360) - 180
	if d < 0 {
		d = -d
	}
	return d
}

func mod(a, m float64) float64 {
	r := a
	for r < 0 {
		r += m
	}
	for r >= m {
		r -= m
	}
	return r
}
