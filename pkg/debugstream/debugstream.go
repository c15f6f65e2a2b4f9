// Package debugstream implements the optional DebugStream: an append-only,
// per-request directory of structured trace records, one stream per record
// kind, readable after the run for offline inspection.
package debugstream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind is one of the fixed record streams a Writer can emit.
type Kind string

const (
	KindItineraries      Kind = "itineraries"
	KindItineraryWaypoints Kind = "itinerary_waypoints"
	KindSteps            Kind = "steps"
	KindStepResults       Kind = "step_results"
	KindForkChoices       Kind = "fork_choices"
	KindForkChoiceWeights Kind = "fork_choice_weights"
)

var allKinds = []Kind{
	KindItineraries, KindItineraryWaypoints, KindSteps,
	KindStepResults, KindForkChoices, KindForkChoiceWeights,
}

// ItineraryRecord is one entry in the itineraries stream.
type ItineraryRecord struct {
	ItineraryID int    `msgpack:"itinerary_id"`
	Kind        string `msgpack:"kind"`
}

// WaypointRecord is one entry in the itinerary_waypoints stream.
type WaypointRecord struct {
	ItineraryID int     `msgpack:"itinerary_id"`
	Index       int     `msgpack:"index"`
	Lat         float64 `msgpack:"lat"`
	Lon         float64 `msgpack:"lon"`
	RadiusM     float64 `msgpack:"radius_m"`
}

// StepRecord is one entry in the steps stream.
type StepRecord struct {
	ItineraryID int   `msgpack:"itinerary_id"`
	StepNumber  int   `msgpack:"step_number"`
	Point       int32 `msgpack:"point"`
	Incoming    int32 `msgpack:"incoming"`
}

// StepResultRecord is one entry in the step_results stream.
type StepResultRecord struct {
	ItineraryID int    `msgpack:"itinerary_id"`
	StepNumber  int    `msgpack:"step_number"`
	Result      string `msgpack:"result"`
}

// ForkChoiceRecord is one entry in the fork_choices stream: the candidate
// offered and whether it was chosen.
type ForkChoiceRecord struct {
	ItineraryID int   `msgpack:"itinerary_id"`
	StepNumber  int   `msgpack:"step_number"`
	Segment     int32 `msgpack:"segment"`
	Chosen      bool  `msgpack:"chosen"`
}

// ForkChoiceWeightRecord is one entry in the fork_choice_weights stream.
type ForkChoiceWeightRecord struct {
	ItineraryID int   `msgpack:"itinerary_id"`
	StepNumber  int   `msgpack:"step_number"`
	Segment     int32 `msgpack:"segment"`
	Avoid       bool  `msgpack:"avoid"`
	Weight      uint8 `msgpack:"weight"`
}

// Writer owns one buffered, length-delimited msgpack file per Kind under a
// request-scoped directory. All itineraries share these buffers behind one
// mutex; records are not buffered per itinerary. Buffers are flushed only
// by FlushItinerary and Close, not automatically when an itinerary
// completes.
type Writer struct {
	dir string

	mu      sync.Mutex
	files   map[Kind]*os.File
	buffers map[Kind]*bufio.Writer
}

// Open creates dir (if needed) and one append-only file per record Kind.
func Open(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("debugstream: creating %s: %w", dir, err)
	}
	w := &Writer{
		dir:     dir,
		files:   make(map[Kind]*os.File),
		buffers: make(map[Kind]*bufio.Writer),
	}
	for _, k := range allKinds {
		f, err := os.OpenFile(filepath.Join(dir, string(k)+".msgpack"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("debugstream: opening %s stream: %w", k, err)
		}
		w.files[k] = f
		w.buffers[k] = bufio.NewWriter(f)
	}
	return w, nil
}

// Write appends one record to its stream as a length-delimited msgpack
// value: a 4-byte big-endian length prefix followed by the encoded record.
func (w *Writer) Write(kind Kind, record any) error {
	data, err := msgpack.Marshal(record)
	if err != nil {
		return fmt.Errorf("debugstream: encoding %s record: %w", kind, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	buf, ok := w.buffers[kind]
	if !ok {
		return fmt.Errorf("debugstream: unknown stream kind %q", kind)
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(data)))
	if _, err := buf.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err = buf.Write(data)
	return err
}

// FlushItinerary flushes every stream's buffer, making records for a just
// completed itinerary visible to a concurrent reader. It does not close
// the underlying files, since other itineraries still write to them.
func (w *Writer) FlushItinerary() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, buf := range w.buffers {
		if err := buf.Flush(); err != nil {
			return fmt.Errorf("debugstream: flushing %s stream: %w", k, err)
		}
	}
	return nil
}

// Close flushes and closes every stream file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for k, buf := range w.buffers {
		if buf != nil {
			if err := buf.Flush(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if f := w.files[k]; f != nil {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
