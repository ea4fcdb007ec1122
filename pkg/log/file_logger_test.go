package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readAll(t *testing.T, path string) []Event {
	t.Helper()
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	var events []Event
	for {
		e, err := r.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, e)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.ilog")

	for _, dev := range []string{"CCD", "Mount"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), Layer: LayerBus, Device: dev})
		if err := logger.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}

	events := readAll(t, path)
	if len(events) != 2 || events[0].Device != "CCD" || events[1].Device != "Mount" {
		t.Errorf("events = %+v", events)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.ilog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				logger.Log(Event{Timestamp: time.Now(), ConnectionID: fmt.Sprintf("conn-%d", g)})
			}
		}(g)
	}
	wg.Wait()
	logger.Close()

	if n := len(readAll(t, path)); n != 200 {
		t.Errorf("read %d events, want 200", n)
	}
}

func TestFileLoggerClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.ilog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{Timestamp: time.Now()})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	logger.Log(Event{Timestamp: time.Now()})

	if n := len(readAll(t, path)); n != 1 {
		t.Errorf("read %d events after close, want 1", n)
	}
}

func TestNewFileLoggerBadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "x.ilog"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFileLoggerFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.ilog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	logger.Log(Event{Timestamp: time.Now(), Device: "CCD"})
	if n := len(readAll(t, path)); n != 0 {
		t.Errorf("read %d events before flush, want 0", n)
	}

	// State changes flush on their own.
	logger.Log(Event{Timestamp: time.Now(), StateChange: &StateChangeEvent{NewState: "CONNECTED"}})
	if n := len(readAll(t, path)); n != 2 {
		t.Errorf("read %d events after state change, want 2", n)
	}

	logger.Log(Event{Timestamp: time.Now(), Device: "Mount"})
	if err := logger.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n := len(readAll(t, path)); n != 3 {
		t.Errorf("read %d events after Flush, want 3", n)
	}
	if logger.Count() != 3 {
		t.Errorf("Count() = %d, want 3", logger.Count())
	}
	if logger.Err() != nil {
		t.Errorf("Err() = %v", logger.Err())
	}
}
