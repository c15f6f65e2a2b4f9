// Package graphcache serializes a built graph.Graph to a single binary
// file so a server or CLI invocation can skip re-parsing the source map
// data on every run.
package graphcache

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
)

// magic identifies a ridecore graph cache file; schemaVersion bumps
// whenever the on-disk layout changes incompatibly.
var magic = [4]byte{'R', 'C', 'G', 'C'}

const schemaVersion = 1

// ErrVersionMismatch is returned by Load when the cache file's magic or
// schema version doesn't match, signaling the caller should rebuild.
var ErrVersionMismatch = errors.New("graphcache: version mismatch, rebuild required")

// document is the on-disk shape: a flattened rebuild of graph.Graph's
// arena-style fields with the already-resolved restrictions and the
// snap-radius/cell-size settings; the spatial index is not stored and is
// rebuilt from the points on load.
type document struct {
	Points             []pointDoc
	Segments           []segmentDoc
	Ways               []wayDoc
	Restrictions       []restrictionDoc
	DefaultSnapRadiusM float64
	CellSizeM          float64
}

type pointDoc struct {
	OSMNodeID int64
	Lat, Lon  float64
	Out       []int32
}

type segmentDoc struct {
	From, To     int32
	Intermediate []locDoc
	LengthM      float64
	OneWay       bool
	Way          int32
}

type locDoc struct {
	Lat, Lon float64
}

type wayDoc struct {
	OSMWayID            int64
	Highway, Surface    string
	Smoothness          string
	Name, Ref           string
	MaxSpeed            float64
	HasMaxSpeed         bool
}

type restrictionDoc struct {
	ViaPoint int32
	Kind     osmdata.RestrictionKind
	FromSegs []int32
	ToSegs   []int32
}

// Save writes g's contents to path as a msgpack-encoded document with a
// magic header and schema version prefix.
func Save(path string, g *graph.Graph, cellSizeM float64) error {
	doc := toDocument(g, cellSizeM)
	body, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("graphcache: encoding: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graphcache: creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(magic[:]); err != nil {
		return err
	}
	if err := writeUint32(f, schemaVersion); err != nil {
		return err
	}
	_, err = f.Write(body)
	return err
}

// Load reconstitutes a graph.Graph from path. It returns ErrVersionMismatch
// (wrapping no rebuild information itself; the caller triggers a rebuild)
// if the header doesn't match this binary's expectations.
func Load(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graphcache: opening %s: %w", path, err)
	}
	defer f.Close()

	var gotMagic [4]byte
	if _, err := io.ReadFull(f, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("graphcache: reading header: %w", err)
	}
	if gotMagic != magic {
		return nil, ErrVersionMismatch
	}
	version, err := readUint32(f)
	if err != nil {
		return nil, fmt.Errorf("graphcache: reading schema version: %w", err)
	}
	if version != schemaVersion {
		return nil, ErrVersionMismatch
	}

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("graphcache: reading body: %w", err)
	}
	var doc document
	if err := msgpack.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("graphcache: decoding: %w", err)
	}
	return fromDocument(doc)
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

func toDocument(g *graph.Graph, cellSizeM float64) document {
	doc := document{
		DefaultSnapRadiusM: g.DefaultSnapRadiusM,
		CellSizeM:          cellSizeM,
	}

	doc.Points = make([]pointDoc, len(g.Points))
	for i, p := range g.Points {
		out := make([]int32, len(p.Out))
		for j, s := range p.Out {
			out[j] = int32(s)
		}
		doc.Points[i] = pointDoc{
			OSMNodeID: p.OSMNodeID,
			Lat:       p.Location.Latitude,
			Lon:       p.Location.Longitude,
			Out:       out,
		}
	}

	doc.Segments = make([]segmentDoc, len(g.Segments))
	for i, s := range g.Segments {
		intermediate := make([]locDoc, len(s.Intermediate))
		for j, loc := range s.Intermediate {
			intermediate[j] = locDoc{Lat: loc.Latitude, Lon: loc.Longitude}
		}
		doc.Segments[i] = segmentDoc{
			From:         int32(s.From),
			To:           int32(s.To),
			Intermediate: intermediate,
			LengthM:      s.LengthM,
			OneWay:       s.OneWay,
			Way:          int32(s.Way),
		}
	}

	doc.Ways = make([]wayDoc, len(g.Ways))
	for i, w := range g.Ways {
		doc.Ways[i] = wayDoc{
			OSMWayID:    w.OSMWayID,
			Highway:     w.Highway,
			Surface:     w.Surface,
			Smoothness:  w.Smoothness,
			Name:        w.Name,
			Ref:         w.Ref,
			MaxSpeed:    w.MaxSpeed,
			HasMaxSpeed: w.HasMaxSpeed,
		}
	}

	for _, r := range g.Restrictions() {
		rd := restrictionDoc{ViaPoint: int32(r.ViaPoint), Kind: r.Kind}
		for _, s := range r.FromSegs {
			rd.FromSegs = append(rd.FromSegs, int32(s))
		}
		for _, s := range r.ToSegs {
			rd.ToSegs = append(rd.ToSegs, int32(s))
		}
		doc.Restrictions = append(doc.Restrictions, rd)
	}

	return doc
}

func fromDocument(doc document) (*graph.Graph, error) {
	points := make([]graph.Point, len(doc.Points))
	for i, p := range doc.Points {
		out := make([]graph.SegmentID, len(p.Out))
		for j, s := range p.Out {
			out[j] = graph.SegmentID(s)
		}
		points[i] = graph.Point{
			ID:        graph.PointID(i),
			OSMNodeID: p.OSMNodeID,
			Location:  geo.Location{Latitude: p.Lat, Longitude: p.Lon},
			Out:       out,
		}
	}

	segments := make([]graph.Segment, len(doc.Segments))
	for i, s := range doc.Segments {
		intermediate := make([]geo.Location, len(s.Intermediate))
		for j, loc := range s.Intermediate {
			intermediate[j] = geo.Location{Latitude: loc.Lat, Longitude: loc.Lon}
		}
		segments[i] = graph.Segment{
			ID:           graph.SegmentID(i),
			From:         graph.PointID(s.From),
			To:           graph.PointID(s.To),
			Intermediate: intermediate,
			LengthM:      s.LengthM,
			OneWay:       s.OneWay,
			Way:          graph.WayID(s.Way),
		}
	}

	ways := make([]graph.Way, len(doc.Ways))
	for i, w := range doc.Ways {
		ways[i] = graph.Way{
			ID:          graph.WayID(i),
			OSMWayID:    w.OSMWayID,
			Highway:     w.Highway,
			Surface:     w.Surface,
			Smoothness:  w.Smoothness,
			Name:        w.Name,
			Ref:         w.Ref,
			MaxSpeed:    w.MaxSpeed,
			HasMaxSpeed: w.HasMaxSpeed,
		}
	}

	restrictions := make([]graph.RestrictionSpec, len(doc.Restrictions))
	for i, r := range doc.Restrictions {
		spec := graph.RestrictionSpec{ViaPoint: graph.PointID(r.ViaPoint), Kind: r.Kind}
		for _, s := range r.FromSegs {
			spec.FromSegs = append(spec.FromSegs, graph.SegmentID(s))
		}
		for _, s := range r.ToSegs {
			spec.ToSegs = append(spec.ToSegs, graph.SegmentID(s))
		}
		restrictions[i] = spec
	}

	return graph.FromParts(points, segments, ways, restrictions, doc.DefaultSnapRadiusM, doc.CellSizeM), nil
}
