package graph

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
)

// BuildOptions configures graph construction.
type BuildOptions struct {
	// AcceptHighway reports whether a way's highway tag value should be
	// turned into segments. Nil uses DefaultAcceptHighway, which excludes
	// footway/steps/etc. and ways without a highway tag.
	AcceptHighway func(highway string) bool

	// CellSizeM is the spatial index tile size; 0 uses defaultCellSizeM.
	CellSizeM float64

	// DefaultSnapRadiusM is the graph's default NearestJunction radius.
	DefaultSnapRadiusM float64

	Logger *slog.Logger
}

// DefaultAcceptHighway excludes highway values that are not legal for
// motor vehicles.
func DefaultAcceptHighway(highway string) bool {
	switch highway {
	case "footway", "path", "steps", "pedestrian", "cycleway", "bridleway", "corridor", "platform":
		return false
	case "":
		return false
	default:
		return true
	}
}

// Build constructs a Graph from a drained entity stream. Build fails on
// malformed input: a way referencing a node id that the node pass never
// saw is a fatal BuildError.
func Build(ents *osmdata.Entities, opts BuildOptions) (*Graph, error) {
	if opts.AcceptHighway == nil {
		opts.AcceptHighway = DefaultAcceptHighway
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "graph.builder")

	b := &builder{
		ents:        ents,
		opts:        opts,
		nodeToPoint: make(map[int64]PointID),
		pointOut:    make(map[PointID][]SegmentID),
		waySegments: make(map[WayID][]SegmentID),
		osmWayToWay: make(map[int64]WayID),
		hasIncoming: make(map[PointID]bool),
		logger:      logger,
	}

	if err := b.countNodeRefs(); err != nil {
		return nil, err
	}
	if err := b.buildWays(); err != nil {
		return nil, err
	}
	b.resolveRestrictions()
	return b.finish(), nil
}

type builder struct {
	ents *osmdata.Entities
	opts BuildOptions

	nodeToPoint map[int64]PointID
	points      []Point
	segments    []Segment
	ways        []Way

	pointOut    map[PointID][]SegmentID
	waySegments map[WayID][]SegmentID
	osmWayToWay map[int64]WayID
	refCount    map[int64]int
	hasIncoming map[PointID]bool

	restrictions map[PointID][]restriction

	logger *slog.Logger
}

func (b *builder) acceptedWays() []osmdata.Way {
	out := make([]osmdata.Way, 0, len(b.ents.Ways))
	for _, w := range b.ents.Ways {
		if b.opts.AcceptHighway(w.Tags["highway"]) {
			out = append(out, w)
		}
	}
	return out
}

// countNodeRefs computes, for every node referenced by an accepted way,
// how many times it is referenced across all accepted ways (counting
// within-way repeats). A count greater than one marks a split boundary.
func (b *builder) countNodeRefs() error {
	b.refCount = make(map[int64]int)
	for _, w := range b.acceptedWays() {
		for _, nid := range w.NodeIDs {
			if _, ok := b.ents.Nodes[nid]; !ok {
				return &BuildError{Reason: "way " + strconv.FormatInt(w.ID, 10) + " references missing node " + strconv.FormatInt(nid, 10)}
			}
			b.refCount[nid]++
		}
	}
	return nil
}

func (b *builder) buildWays() error {
	for _, w := range b.acceptedWays() {
		if len(w.NodeIDs) < 2 {
			continue
		}
		wayID := b.registerWay(w)
		b.splitWay(w, wayID)
	}
	return nil
}

func (b *builder) registerWay(w osmdata.Way) WayID {
	id := WayID(len(b.ways))
	maxSpeed, hasMaxSpeed := parseMaxSpeed(w.Tags["maxspeed"])
	b.ways = append(b.ways, Way{
		ID:          id,
		OSMWayID:    w.ID,
		Highway:     w.Tags["highway"],
		Surface:     w.Tags["surface"],
		Smoothness:  w.Tags["smoothness"],
		Name:        w.Tags["name"],
		Ref:         w.Tags["ref"],
		MaxSpeed:    maxSpeed,
		HasMaxSpeed: hasMaxSpeed,
	})
	b.osmWayToWay[w.ID] = id
	return id
}

// splitWay breaks a way's node list into segments at every boundary node:
// the first and last nodes of the way, and any interior node referenced
// more than once across the accepted way set.
func (b *builder) splitWay(w osmdata.Way, wayID WayID) {
	oneway := parseOneway(w.Tags["oneway"])

	boundaryIdx := []int{0}
	for i := 1; i < len(w.NodeIDs)-1; i++ {
		if b.refCount[w.NodeIDs[i]] > 1 {
			boundaryIdx = append(boundaryIdx, i)
		}
	}
	boundaryIdx = append(boundaryIdx, len(w.NodeIDs)-1)

	for i := 0; i < len(boundaryIdx)-1; i++ {
		startIdx := boundaryIdx[i]
		endIdx := boundaryIdx[i+1]
		if startIdx == endIdx {
			continue
		}

		fromPt := b.pointFor(w.NodeIDs[startIdx])
		toPt := b.pointFor(w.NodeIDs[endIdx])

		intermediate := make([]geo.Location, 0, endIdx-startIdx-1)
		for j := startIdx + 1; j < endIdx; j++ {
			n := b.ents.Nodes[w.NodeIDs[j]]
			intermediate = append(intermediate, geo.Location{Latitude: n.Lat, Longitude: n.Lon})
		}

		full := make([]geo.Location, 0, len(intermediate)+2)
		full = append(full, b.points[fromPt].Location)
		full = append(full, intermediate...)
		full = append(full, b.points[toPt].Location)
		length := geo.PathLength(full)
		if length <= 0 {
			length = 0.01
		}

		switch oneway {
		case onewayForward:
			b.addSegment(fromPt, toPt, intermediate, length, true, wayID)
		case onewayBackward:
			b.addSegment(toPt, fromPt, reverseLocations(intermediate), length, true, wayID)
		default:
			b.addSegment(fromPt, toPt, intermediate, length, false, wayID)
			b.addSegment(toPt, fromPt, reverseLocations(intermediate), length, false, wayID)
		}
	}
}

func (b *builder) pointFor(nodeID int64) PointID {
	if id, ok := b.nodeToPoint[nodeID]; ok {
		return id
	}
	n := b.ents.Nodes[nodeID]
	id := PointID(len(b.points))
	b.points = append(b.points, Point{
		ID:        id,
		OSMNodeID: nodeID,
		Location:  geo.Location{Latitude: n.Lat, Longitude: n.Lon},
	})
	b.nodeToPoint[nodeID] = id
	return id
}

func (b *builder) addSegment(from, to PointID, intermediate []geo.Location, length float64, oneWay bool, wayID WayID) {
	id := SegmentID(len(b.segments))
	b.segments = append(b.segments, Segment{
		ID:           id,
		From:         from,
		To:           to,
		Intermediate: intermediate,
		LengthM:      length,
		OneWay:       oneWay,
		Way:          wayID,
	})
	b.pointOut[from] = append(b.pointOut[from], id)
	b.waySegments[wayID] = append(b.waySegments[wayID], id)
	b.hasIncoming[to] = true
}

// resolveRestrictions turns type=restriction relations into per-point
// (incoming segment, outgoing segment) predicates. Relations that cannot be resolved to segments actually
// present in the graph are skipped with a warning rather than failing the
// build: a dangling restriction is a data-quality issue, not malformed
// input in the sense Build's contract covers.
func (b *builder) resolveRestrictions() {
	b.restrictions = make(map[PointID][]restriction)

	for _, rel := range b.ents.Relations {
		if !rel.HasValue {
			continue
		}
		viaPt, ok := b.nodeToPoint[rel.ViaNode]
		if !ok {
			b.logger.Warn("restriction via node is not a graph junction, skipping", "relation", rel.ID)
			continue
		}
		fromWay, ok := b.osmWayToWay[rel.FromWay]
		if !ok {
			b.logger.Warn("restriction from-way not in graph, skipping", "relation", rel.ID)
			continue
		}
		toWay, ok := b.osmWayToWay[rel.ToWay]
		if !ok {
			b.logger.Warn("restriction to-way not in graph, skipping", "relation", rel.ID)
			continue
		}

		r := restriction{
			kind:     rel.Kind,
			fromSegs: make(map[SegmentID]struct{}),
			toSegs:   make(map[SegmentID]struct{}),
		}
		for _, segID := range b.waySegments[fromWay] {
			if b.segments[segID].To == viaPt {
				r.fromSegs[segID] = struct{}{}
			}
		}
		for _, segID := range b.waySegments[toWay] {
			if b.segments[segID].From == viaPt {
				r.toSegs[segID] = struct{}{}
			}
		}
		if len(r.fromSegs) == 0 || len(r.toSegs) == 0 {
			b.logger.Warn("restriction does not touch any segment at its via point, skipping", "relation", rel.ID)
			continue
		}
		b.restrictions[viaPt] = append(b.restrictions[viaPt], r)
	}
}

func (b *builder) finish() *Graph {
	for pt, segs := range b.pointOut {
		b.points[pt].Out = segs
	}
	sortOut(b.points)

	snapRadius := b.opts.DefaultSnapRadiusM
	if snapRadius <= 0 {
		snapRadius = 2000
	}

	idx := newSpatialIndex(b.opts.CellSizeM)
	for _, p := range b.points {
		if len(p.Out) > 0 || b.hasIncoming[p.ID] {
			idx.insert(p)
		}
	}

	return &Graph{
		Points:             b.points,
		Segments:           b.segments,
		Ways:                b.ways,
		restrictions:       b.restrictions,
		index:              idx,
		DefaultSnapRadiusM: snapRadius,
	}
}

type onewayMode int

const (
	onewayNone onewayMode = iota
	onewayForward
	onewayBackward
)

func parseOneway(v string) onewayMode {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return onewayForward
	case "-1", "reverse":
		return onewayBackward
	default:
		return onewayNone
	}
}

func parseMaxSpeed(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	v = strings.TrimSuffix(v, " mph")
	f, err := strconv.ParseFloat(strings.TrimSuffix(v, " km/h"), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func reverseLocations(in []geo.Location) []geo.Location {
	out := make([]geo.Location, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
