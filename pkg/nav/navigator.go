// Package nav implements the Navigator: an explicit, non-recursive
// backtracking walker over a graph.Graph, steered at every fork by a
// rules.Engine, that either reaches every waypoint of one itinerary or
// abandons it.
package nav

import (
	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/rules"
)

// State is the Navigator's coarse-grained run state.
type State int

const (
	Walking State = iota
	Backtracking
	Finished
	Abandoned
)

func (s State) String() string {
	switch s {
	case Walking:
		return "walking"
	case Backtracking:
		return "backtracking"
	case Finished:
		return "finished"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// AbandonReason explains why a Navigator gave up on its itinerary.
type AbandonReason int

const (
	NotAbandoned AbandonReason = iota
	StepLimitReached
	NoProgress
	WaypointUnreachable
	Cancelled
)

func (r AbandonReason) String() string {
	switch r {
	case StepLimitReached:
		return "step_limit"
	case NoProgress:
		return "no_progress"
	case WaypointUnreachable:
		return "waypoint_unreachable"
	case Cancelled:
		return "cancelled"
	default:
		return "not_abandoned"
	}
}

// MoveResult is the outcome of a single Step call.
type MoveResult int

const (
	Moved MoveResult = iota
	DeadEnd
	WaypointReached
	FinishedResult
	BacktrackTo
	AbandonedResult
)

func (m MoveResult) String() string {
	switch m {
	case Moved:
		return "moved"
	case DeadEnd:
		return "dead_end"
	case WaypointReached:
		return "waypoint_reached"
	case FinishedResult:
		return "finished"
	case BacktrackTo:
		return "backtrack_to"
	case AbandonedResult:
		return "abandoned"
	default:
		return "unknown"
	}
}

// step is one frame of the explicit walk stack.
type step struct {
	point           graph.PointID
	incoming        graph.SegmentID
	accumulatedM    float64
	waypointCursor  int
	// discard holds segment ids already tried and rejected from this point
	// during backtracking, so a retried Step never repeats a choice.
	discard map[graph.SegmentID]struct{}
}

// Navigator walks one itinerary: an ordered list of waypoints to visit in
// sequence, starting at a given point. A fresh Navigator is created per
// itinerary by the Generator; it is not safe for concurrent use.
type Navigator struct {
	g      *graph.Graph
	engine *rules.Engine

	waypoints       []geo.Location
	waypointRadiusM float64

	stack []step
	state State
	abandon AbandonReason

	stepCount    int
	recentSteps  []float64 // lengths of the last N forward moves
	recentWindow int

	onFork func(point graph.PointID, incoming graph.SegmentID, cands []ForkChoice, chosen graph.SegmentID)
}

// ForkChoice records one candidate's score at a fork, for debug tracing.
type ForkChoice struct {
	Segment graph.SegmentID
	Verdict rules.Verdict
}

// New creates a Navigator starting at start, visiting waypoints in order,
// each considered reached once within waypointRadiusM meters.
func New(g *graph.Graph, engine *rules.Engine, start graph.PointID, waypoints []geo.Location, waypointRadiusM float64) *Navigator {
	n := &Navigator{
		g:               g,
		engine:          engine,
		waypoints:       waypoints,
		waypointRadiusM: waypointRadiusM,
		state:           Walking,
		recentWindow:    50,
	}
	n.stack = append(n.stack, step{
		point:    start,
		incoming: graph.NoSegment,
		discard:  make(map[graph.SegmentID]struct{}),
	})
	if len(waypoints) > 0 && n.withinWaypoint(g.Points[start].Location, 0) {
		n.stack[0].waypointCursor = 1
	}
	return n
}

// OnFork installs a callback invoked after every fork decision, used by the
// debug stream to record per-step rule verdicts without coupling the
// Navigator to any serialization concern.
func (n *Navigator) OnFork(f func(point graph.PointID, incoming graph.SegmentID, cands []ForkChoice, chosen graph.SegmentID)) {
	n.onFork = f
}

// State returns the Navigator's current run state.
func (n *Navigator) State() State { return n.state }

// AbandonReason returns why the Navigator stopped, valid once State() is
// Abandoned.
func (n *Navigator) AbandonReason() AbandonReason { return n.abandon }

// Path returns the point sequence walked so far, start to current.
func (n *Navigator) Path() []graph.PointID {
	out := make([]graph.PointID, len(n.stack))
	for i, s := range n.stack {
		out[i] = s.point
	}
	return out
}

// Segments returns the segment sequence walked so far, in traversal order.
func (n *Navigator) Segments() []graph.SegmentID {
	out := make([]graph.SegmentID, 0, len(n.stack))
	for _, s := range n.stack {
		if s.incoming != graph.NoSegment {
			out = append(out, s.incoming)
		}
	}
	return out
}

// Cancel marks the Navigator Abandoned with reason Cancelled; safe to call
// from outside the Step loop, e.g. on context cancellation between steps.
func (n *Navigator) Cancel() {
	if n.state == Walking || n.state == Backtracking {
		n.state = Abandoned
		n.abandon = Cancelled
	}
}

// Step advances the Navigator by exactly one decision: either a forward
// move, a backtrack, reaching a waypoint, finishing, or abandoning.
// Calling Step after Finished or Abandoned is a no-op returning the same
// terminal result.
func (n *Navigator) Step() MoveResult {
	switch n.state {
	case Finished:
		return FinishedResult
	case Abandoned:
		return AbandonedResult
	}

	if n.stepCount >= n.engine.StepLimit() {
		n.state = Abandoned
		n.abandon = StepLimitReached
		return AbandonedResult
	}

	if n.engine.NoProgress(n.averageRecentStep(), len(n.recentSteps)) {
		n.state = Abandoned
		n.abandon = NoProgress
		return AbandonedResult
	}

	cur := &n.stack[len(n.stack)-1]
	candidates := n.g.Outgoing(cur.point, cur.incoming)

	type scored struct {
		seg     graph.SegmentID
		verdict rules.Verdict
	}
	var usable []scored
	var all []ForkChoice
	for _, segID := range candidates {
		if _, discarded := cur.discard[segID]; discarded {
			continue
		}
		v := n.evaluate(*cur, segID)
		all = append(all, ForkChoice{Segment: segID, Verdict: v})
		if !v.Avoid {
			usable = append(usable, scored{seg: segID, verdict: v})
		}
	}

	if len(usable) == 0 {
		if n.onFork != nil {
			n.onFork(cur.point, cur.incoming, all, graph.NoSegment)
		}
		return n.backtrack()
	}

	rc := make([]rules.Candidate, len(usable))
	for i, u := range usable {
		rc[i] = rules.Candidate{Segment: u.seg, LengthM: n.g.Segments[u.seg].LengthM, Verdict: u.verdict}
	}
	best := rules.PickBest(rc)
	chosen := usable[best].seg

	if n.onFork != nil {
		n.onFork(cur.point, cur.incoming, all, chosen)
	}

	seg := n.g.Segments[chosen]
	next := step{
		point:          seg.To,
		incoming:       chosen,
		accumulatedM:   cur.accumulatedM + seg.LengthM,
		waypointCursor: cur.waypointCursor,
		discard:        make(map[graph.SegmentID]struct{}),
	}
	n.stack = append(n.stack, next)
	n.stepCount++
	n.pushRecentStep(seg.LengthM)
	n.state = Walking

	top := &n.stack[len(n.stack)-1]
	if n.withinWaypoint(n.g.Points[top.point].Location, top.waypointCursor) {
		top.waypointCursor++
		if top.waypointCursor >= len(n.waypoints) {
			n.state = Finished
			return FinishedResult
		}
		return WaypointReached
	}
	return Moved
}

func (n *Navigator) evaluate(cur step, candidate graph.SegmentID) rules.Verdict {
	seg := n.g.Segments[candidate]
	way := n.g.Ways[seg.Way]
	geom := n.g.Geometry(candidate)
	candidateBearing := geo.Bearing(geom[0], geom[1])

	in := rules.EvalInput{
		Candidate:            seg,
		CandidateWay:         way,
		AccumulatedDistanceM: cur.accumulatedM,
		CandidateBearingDeg:  candidateBearing,
		TargetBearingDeg:     n.targetBearing(cur),
	}

	if cur.incoming != graph.NoSegment {
		inSeg := n.g.Segments[cur.incoming]
		inGeom := n.g.Geometry(cur.incoming)
		in.HasIncoming = true
		in.Incoming = inSeg
		in.IncomingWay = n.g.Ways[inSeg.Way]
		if len(inGeom) > 1 {
			in.IncomingBearingDeg = geo.Bearing(inGeom[len(inGeom)-2], inGeom[len(inGeom)-1])
		}
		in.RejoinsIncomingWayWithinM = n.lookaheadRejoin(seg, inSeg)
	}

	return n.engine.Evaluate(in)
}

// lookaheadRejoin checks one hop past candidate for a segment belonging to
// the same way as incoming, approximating the short-detour signal without
// a deep search.
func (n *Navigator) lookaheadRejoin(candidate, incoming graph.Segment) float64 {
	if candidate.Way == incoming.Way {
		return 0
	}
	for _, next := range n.g.Points[candidate.To].Out {
		s := n.g.Segments[next]
		if s.Way == incoming.Way {
			return candidate.LengthM + s.LengthM
		}
	}
	return 0
}

func (n *Navigator) targetBearing(cur step) float64 {
	if cur.waypointCursor >= len(n.waypoints) {
		return 0
	}
	return geo.Bearing(n.g.Points[cur.point].Location, n.waypoints[cur.waypointCursor])
}

func (n *Navigator) withinWaypoint(loc geo.Location, cursor int) bool {
	if cursor >= len(n.waypoints) {
		return false
	}
	return geo.Distance(loc, n.waypoints[cursor]) <= n.waypointRadiusM
}

// backtrack pops the current frame, marking the segment that led into it as
// discarded at its parent, so the parent retries with a different choice on
// its next Step. Abandons with WaypointUnreachable if the stack empties.
func (n *Navigator) backtrack() MoveResult {
	n.state = Backtracking
	if len(n.stack) == 1 {
		n.state = Abandoned
		n.abandon = WaypointUnreachable
		return AbandonedResult
	}
	dead := n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]
	parent := &n.stack[len(n.stack)-1]
	parent.discard[dead.incoming] = struct{}{}
	return BacktrackTo
}

func (n *Navigator) pushRecentStep(m float64) {
	n.recentSteps = append(n.recentSteps, m)
	if len(n.recentSteps) > n.recentWindow {
		n.recentSteps = n.recentSteps[1:]
	}
}

func (n *Navigator) averageRecentStep() float64 {
	if len(n.recentSteps) == 0 {
		return -1
	}
	var sum float64
	for _, v := range n.recentSteps {
		sum += v
	}
	return sum / float64(len(n.recentSteps))
}

// Run drives Step in a loop until Finished or Abandoned, invoking onStep
// (if non-nil) after every call. It returns the terminal MoveResult.
func (n *Navigator) Run(onStep func(MoveResult)) MoveResult {
	for {
		r := n.Step()
		if onStep != nil {
			onStep(r)
		}
		if r == FinishedResult || r == AbandonedResult {
			return r
		}
	}
}
