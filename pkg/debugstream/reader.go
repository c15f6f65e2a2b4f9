package debugstream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// ReadAll decodes every record of kind in dir into dst, a pointer to a
// slice of the matching record type (e.g. *[]StepRecord).
func ReadAll(dir string, kind Kind, dst any) error {
	f, err := os.Open(filepath.Join(dir, string(kind)+".msgpack"))
	if err != nil {
		return fmt.Errorf("debugstream: opening %s stream: %w", kind, err)
	}
	defer f.Close()

	return forEachRecord(f, func(raw []byte) error {
		return appendDecoded(dst, raw)
	})
}

// Each streams every record of kind in dir to fn, stopping at the first
// error fn returns.
func Each(dir string, kind Kind, fn func(raw []byte) error) error {
	f, err := os.Open(filepath.Join(dir, string(kind)+".msgpack"))
	if err != nil {
		return fmt.Errorf("debugstream: opening %s stream: %w", kind, err)
	}
	defer f.Close()
	return forEachRecord(f, fn)
}

func forEachRecord(r io.Reader, fn func(raw []byte) error) error {
	var lenPrefix [4]byte
	for {
		_, err := io.ReadFull(r, lenPrefix[:])
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("debugstream: reading record length: %w", err)
		}
		n := binary.BigEndian.Uint32(lenPrefix[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("debugstream: reading record body: %w", err)
		}
		if err := fn(buf); err != nil {
			return err
		}
	}
}

// appendDecoded decodes raw into a fresh value of dst's slice element type
// and appends it, since msgpack needs a concrete destination type per call.
func appendDecoded(dst any, raw []byte) error {
	switch d := dst.(type) {
	case *[]ItineraryRecord:
		var v ItineraryRecord
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return err
		}
		*d = append(*d, v)
	case *[]WaypointRecord:
		var v WaypointRecord
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return err
		}
		*d = append(*d, v)
	case *[]StepRecord:
		var v StepRecord
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return err
		}
		*d = append(*d, v)
	case *[]StepResultRecord:
		var v StepResultRecord
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return err
		}
		*d = append(*d, v)
	case *[]ForkChoiceRecord:
		var v ForkChoiceRecord
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return err
		}
		*d = append(*d, v)
	case *[]ForkChoiceWeightRecord:
		var v ForkChoiceWeightRecord
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return err
		}
		*d = append(*d, v)
	default:
		return fmt.Errorf("debugstream: unsupported destination type %T", dst)
	}
	return nil
}
