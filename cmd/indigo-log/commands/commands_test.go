package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/log"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ilog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

var ts = time.Date(2026, 3, 14, 21, 30, 0, 0, time.UTC)

func sampleEvents() []log.Event {
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryState,
			RemoteAddr:   "127.0.0.1:50000",
			StateChange:  &log.StateChangeEvent{Entity: log.StateEntityConnection, NewState: "CONNECTED"},
		},
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryControl,
			Record:       &log.RecordEvent{Kind: log.RecordGetProperties, Version: "2.0"},
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "abc12345-6789",
			Direction:    log.DirectionOut,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			Frame:        &log.FrameEvent{Size: 42, Data: []byte(`<defSwitchVector device="CCD" name="CONNECTION">`)},
		},
		{
			Timestamp: ts.Add(3 * time.Millisecond),
			Direction: log.DirectionOut,
			Layer:     log.LayerBus,
			Category:  log.CategoryMessage,
			Device:    "CCD",
			Property:  "CONNECTION",
			Record:    &log.RecordEvent{Kind: log.RecordDefine, Type: "Switch", State: "Ok", Items: 2},
		},
		{
			Timestamp: ts.Add(4 * time.Millisecond),
			Direction: log.DirectionOut,
			Layer:     log.LayerBus,
			Category:  log.CategoryError,
			Device:    "Mount",
			Error:     &log.ErrorEventData{Layer: log.LayerBus, Message: "device locked", Context: "change"},
		},
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"2026-03-14T21:30:00.000000Z [conn:abc12345] IN  TRANSPORT State",
		"-> CONNECTED",
		"Remote: 127.0.0.1:50000 (SERVER)",
		"GET_PROPERTIES",
		"Version: 2.0",
		`Data: <defSwitchVector device="CCD" name="CONNECTION">`,
		"[conn:-] OUT BUS DEFINE CCD.CONNECTION",
		"Type: Switch  State: Ok  Items: 2",
		"Message: device locked",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunViewFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	bus := log.LayerBus
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Layer: &bus, Device: "CCD"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "CCD.CONNECTION") {
		t.Errorf("expected the CCD define, got\n%s", out)
	}
	if strings.Contains(out, "TRANSPORT") || strings.Contains(out, "Mount") {
		t.Errorf("filter let other events through\n%s", out)
	}
}

func TestRunViewMissingFile(t *testing.T) {
	if err := RunView(filepath.Join(t.TempDir(), "nope.ilog"), log.Filter{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRunViewRemoteDevice(t *testing.T) {
	events := sampleEvents()
	events[3].Device = "CCD @ dome.local"
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Device: "CCD"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if !strings.Contains(buf.String(), "CCD @ dome.local.CONNECTION") {
		t.Errorf("expected the mirrored define, got\n%s", buf.String())
	}
}

func TestRunViewRecordFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	kind := log.RecordGetProperties
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Record: &kind}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "GET_PROPERTIES") {
		t.Errorf("expected the getProperties record, got\n%s", out)
	}
	if strings.Contains(out, "DEFINE") || strings.Contains(out, "State") {
		t.Errorf("filter let other events through\n%s", out)
	}
}

func TestParseRecordFlag(t *testing.T) {
	tests := []struct {
		in   string
		want log.RecordKind
	}{
		{"define", log.RecordDefine},
		{"get-properties", log.RecordGetProperties},
		{"GET_PROPERTIES", log.RecordGetProperties},
	}
	for _, tt := range tests {
		got, err := ParseRecordFlag(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseRecordFlag(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseRecordFlag("teleport"); err == nil {
		t.Error("expected error for unknown record kind")
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("BUS"); err != nil || l != log.LayerBus {
		t.Errorf("ParseLayerFlag(BUS) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("service"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("out"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(out) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("Control"); err != nil || c != log.CategoryControl {
		t.Errorf("ParseCategoryFlag(Control) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("snapshot"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Total Events: 5",
		"TRANSPORT:",
		"BUS:",
		"GET_PROPERTIES:",
		"DEFINE:",
		"Devices: 2",
		"Connections: 1",
		"[abc12345] 3 events",
		"Remote: 127.0.0.1:50000",
		"Protocol: 2.0",
		"Bytes: 42",
		"Errors: 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunStatsEmpty(t *testing.T) {
	path := createTestLogFile(t, nil)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Total Events: 0") {
		t.Errorf("unexpected output\n%s", buf.String())
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	var event log.Event
	if err := json.Unmarshal([]byte(lines[3]), &event); err != nil {
		t.Fatalf("line 4 is not an event: %v", err)
	}
	if event.Device != "CCD" || event.Record == nil || event.Record.Kind != log.RecordDefine {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header and 5 rows, got %d", len(rows))
	}
	if rows[0][5] != "device" {
		t.Errorf("unexpected header %v", rows[0])
	}
	define := rows[4]
	if define[5] != "CCD" || define[6] != "CONNECTION" || define[7] != "DEFINE" || define[8] != "Ok" || define[9] != "2" {
		t.Errorf("unexpected define row %v", define)
	}
	for _, i := range []int{1, 5} {
		if rows[i][8] != "" || rows[i][9] != "" {
			t.Errorf("row %d: expected empty state and items, got %v", i, rows[i])
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.ilog")

	n, err := RunFilter(path, FilterOptions{Output: out, ConnID: "abc12345-6789", Layer: "transport"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 events, got %d", n)
	}

	reader, err := log.NewReader(out)
	if err != nil {
		t.Fatalf("open filtered: %v", err)
	}
	defer reader.Close()
	for i := 0; i < 2; i++ {
		event, err := reader.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if event.Layer != log.LayerTransport {
			t.Errorf("event %d has layer %s", i, event.Layer)
		}
	}
}

func TestRunFilterBadOptions(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.ilog")

	for _, opts := range []FilterOptions{
		{Output: out, TimeStart: "yesterday"},
		{Output: out, TimeEnd: "tomorrow"},
		{Output: out, Layer: "service"},
		{Output: out, Direction: "up"},
		{Output: out, Category: "snapshot"},
	} {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}
