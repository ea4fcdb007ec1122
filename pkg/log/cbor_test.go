package log

import (
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 21, 5, 0, 123456789, time.UTC)
	code := 2
	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, got Event)
	}{
		{
			name: "frame",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionIn, Layer: LayerTransport,
				RemoteAddr: "10.0.0.5:51234",
				Frame:      &FrameEvent{Size: 4096, Data: []byte("<getProperties"), Truncated: true},
			},
			check: func(t *testing.T, got Event) {
				if got.Frame == nil || got.Frame.Size != 4096 || !got.Frame.Truncated || string(got.Frame.Data) != "<getProperties" {
					t.Errorf("Frame = %+v", got.Frame)
				}
				if got.RemoteAddr != "10.0.0.5:51234" {
					t.Errorf("RemoteAddr = %q", got.RemoteAddr)
				}
			},
		},
		{
			name: "record",
			event: Event{
				Timestamp: ts, Direction: DirectionOut, Layer: LayerWire, LocalRole: RoleClient,
				Device: "CCD Simulator", Property: "CCD_EXPOSURE",
				Record: &RecordEvent{Kind: RecordUpdate, Type: "Number", State: "Busy", Items: 1, Version: "2.0"},
			},
			check: func(t *testing.T, got Event) {
				if got.Record == nil || got.Record.Kind != RecordUpdate || got.Record.State != "Busy" || got.Record.Items != 1 {
					t.Errorf("Record = %+v", got.Record)
				}
				if got.Device != "CCD Simulator" || got.Property != "CCD_EXPOSURE" || got.LocalRole != RoleClient {
					t.Errorf("identifiers = %q %q %v", got.Device, got.Property, got.LocalRole)
				}
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp: ts, Layer: LayerBus, Category: CategoryState,
				StateChange: &StateChangeEvent{Entity: StateEntityDevice, OldState: "", NewState: "ATTACHED"},
			},
			check: func(t *testing.T, got Event) {
				if got.StateChange == nil || got.StateChange.Entity != StateEntityDevice || got.StateChange.NewState != "ATTACHED" {
					t.Errorf("StateChange = %+v", got.StateChange)
				}
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp: ts, Layer: LayerBus, Category: CategoryError,
				Error: &ErrorEventData{Layer: LayerBus, Message: "too many elements", Code: &code, Context: "attach device"},
			},
			check: func(t *testing.T, got Event) {
				if got.Error == nil || got.Error.Code == nil || *got.Error.Code != 2 || got.Error.Context != "attach device" {
					t.Errorf("Error = %+v", got.Error)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			if !got.Timestamp.Equal(tt.event.Timestamp) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.event.Timestamp)
			}
			if got.Layer != tt.event.Layer || got.Direction != tt.event.Direction || got.Category != tt.event.Category {
				t.Errorf("header = %v/%v/%v", got.Layer, got.Direction, got.Category)
			}
			tt.check(t, got)
		})
	}
}

func TestEventCBORUsesIntegerKeys(t *testing.T) {
	data, err := EncodeEvent(Event{Timestamp: time.Now(), Device: "Sim"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	var raw map[any]any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for k := range raw {
		if _, ok := k.(uint64); !ok {
			t.Errorf("key %v (%T) is not an integer", k, k)
		}
	}
	if raw[uint64(8)] != "Sim" {
		t.Errorf("device key 8 = %v", raw[uint64(8)])
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("DecodeEvent accepted garbage")
	}
}
