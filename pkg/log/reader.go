package log

import (
	"errors"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// Record selects events carrying a record of this kind.
	Record *RecordKind

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Device matches the device name exactly, or the name of a device
	// mirrored from a remote server without its " @ host" suffix.
	Device   string
	Property string
}

// Match reports whether event passes the filter.
func (f *Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.Record != nil && (event.Record == nil || event.Record.Kind != *f.Record):
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	case f.Device != "" && !matchDevice(event.Device, f.Device):
		return false
	case f.Property != "" && event.Property != f.Property:
		return false
	}
	return true
}

func matchDevice(name, want string) bool {
	if name == want {
		return true
	}
	local, _, remote := strings.Cut(name, " @ ")
	return remote && local == want
}

// Reader streams events from a capture.
type Reader struct {
	closer io.Closer
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens a capture file and reads every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file and reads the events matching
// filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewStreamReader(f, filter)
	r.closer = f
	return r, nil
}

// NewStreamReader reads a capture from r, for example standard input.
func NewStreamReader(r io.Reader, filter Filter) *Reader {
	return &Reader{dec: newDecoder(r), filter: filter}
}

// Next returns the next matching event, or io.EOF at the end of the
// capture. A capture cut off inside an event yields io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// All ranges over the remaining matching events. A read error is yielded
// once as the last pair; the end of the capture is not an error.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			event, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the file opened by NewReader or NewFilteredReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
