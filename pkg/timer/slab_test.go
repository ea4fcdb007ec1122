package timer

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSetTimerFires(t *testing.T) {
	s := NewSlab(Config{Size: 4})
	defer s.Close()

	type fired struct {
		device string
		id     int
		data   any
		delay  time.Duration
	}
	ch := make(chan fired, 1)
	tm, err := s.SetTimer("CCD", 7, "payload", 10*time.Millisecond, func(device string, id int, data any, delay time.Duration) {
		ch <- fired{device, id, data, delay}
	})
	if err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	if tm.Device() != "CCD" || tm.ID() != 7 {
		t.Errorf("handle = %s/%d", tm.Device(), tm.ID())
	}

	select {
	case f := <-ch:
		if f.device != "CCD" || f.id != 7 || f.data != "payload" || f.delay != 10*time.Millisecond {
			t.Errorf("callback got %+v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	waitFor(t, func() bool { return s.InUse() == 0 }, "slot not released after firing")
	if err := s.Reschedule(tm, time.Millisecond); !errors.Is(err, ErrStale) {
		t.Errorf("Reschedule() on fired timer error = %v, want ErrStale", err)
	}
}

func TestSetTimerAt(t *testing.T) {
	s := NewSlab(Config{Size: 1})
	defer s.Close()

	done := make(chan struct{})
	at := time.Now().Add(20 * time.Millisecond)
	if _, err := s.SetTimerAt("Mount", 1, nil, at, func(string, int, any, time.Duration) {
		close(done)
	}); err != nil {
		t.Fatalf("SetTimerAt() error = %v", err)
	}
	select {
	case <-done:
		if time.Now().Before(at) {
			t.Error("timer fired before its deadline")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestSlabCapacity(t *testing.T) {
	s := NewSlab(Config{Size: 8})
	defer s.Close()

	var wg sync.WaitGroup
	var ok, full atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := s.SetTimer("Sim", id, nil, time.Hour, func(string, int, any, time.Duration) {})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrTooManyElements):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok.Load() != 8 || full.Load() != 2 {
		t.Errorf("succeeded=%d full=%d, want 8 and 2", ok.Load(), full.Load())
	}
	if s.InUse() != 8 {
		t.Errorf("InUse() = %d, want 8", s.InUse())
	}
}

func TestCancelBeforeDeadline(t *testing.T) {
	s := NewSlab(Config{Size: 2})
	defer s.Close()

	var fired atomic.Bool
	tm, err := s.SetTimer("Sim", 1, nil, 50*time.Millisecond, func(string, int, any, time.Duration) {
		fired.Store(true)
	})
	if err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	if !s.Cancel(tm) {
		t.Error("Cancel() = false for pending timer")
	}
	if s.Cancel(tm) {
		t.Error("second Cancel() = true")
	}
	if s.InUse() != 0 {
		t.Errorf("InUse() = %d after cancel", s.InUse())
	}

	time.Sleep(150 * time.Millisecond)
	if fired.Load() {
		t.Error("canceled timer fired")
	}
}

func TestCancelSyncWaitsForCallback(t *testing.T) {
	s := NewSlab(Config{Size: 1})
	defer s.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	tm, err := s.SetTimer("Sim", 1, nil, 0, func(string, int, any, time.Duration) {
		close(started)
		<-release
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	<-started

	returned := make(chan bool)
	go func() { returned <- s.CancelSync(tm) }()

	select {
	case <-returned:
		t.Fatal("CancelSync returned while callback was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case pending := <-returned:
		if pending {
			t.Error("CancelSync reported a pending firing for a running timer")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("CancelSync did not return")
	}
	if !finished.Load() {
		t.Error("CancelSync returned before callback finished")
	}
	waitFor(t, func() bool { return s.InUse() == 0 }, "slot not released")
}

func TestRescheduleFromCallback(t *testing.T) {
	s := NewSlab(Config{Size: 1})
	defer s.Close()

	var handle atomic.Pointer[Timer]
	var count atomic.Int32
	gate := make(chan struct{})
	tm, err := s.SetTimer("Focuser", 3, nil, 10*time.Millisecond, func(string, int, any, time.Duration) {
		<-gate
		if count.Add(1) < 3 {
			if err := s.Reschedule(handle.Load(), 10*time.Millisecond); err != nil {
				t.Errorf("Reschedule() error = %v", err)
			}
		}
	})
	if err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	handle.Store(tm)
	close(gate)

	waitFor(t, func() bool { return count.Load() == 3 && s.InUse() == 0 }, "polling timer did not run three times")
	time.Sleep(50 * time.Millisecond)
	if n := count.Load(); n != 3 {
		t.Errorf("callback ran %d times, want 3", n)
	}
}

func TestStaleHandleDoesNotCancelReusedSlot(t *testing.T) {
	s := NewSlab(Config{Size: 1})
	defer s.Close()

	old, err := s.SetTimer("Sim", 1, nil, time.Hour, func(string, int, any, time.Duration) {})
	if err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	s.Cancel(old)

	done := make(chan struct{})
	fresh, err := s.SetTimer("Sim", 2, nil, 20*time.Millisecond, func(string, int, any, time.Duration) {
		close(done)
	})
	if err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	if fresh.Slot() != old.Slot() {
		t.Fatalf("expected slot reuse, got %d and %d", old.Slot(), fresh.Slot())
	}
	if s.Cancel(old) {
		t.Error("stale handle canceled the new occupant")
	}
	if err := s.Reschedule(old, time.Hour); !errors.Is(err, ErrStale) {
		t.Errorf("Reschedule() with stale handle error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("new timer did not fire")
	}
}

func TestCancelAllAndByID(t *testing.T) {
	s := NewSlab(Config{Size: 4})
	defer s.Close()

	noop := func(string, int, any, time.Duration) {}
	for i, dev := range []string{"A", "A", "B", "B"} {
		if _, err := s.SetTimer(dev, i, nil, time.Hour, noop); err != nil {
			t.Fatalf("SetTimer() error = %v", err)
		}
	}

	if n := s.CancelAll("A"); n != 2 {
		t.Errorf("CancelAll(A) = %d, want 2", n)
	}
	if !s.CancelByID("B", 3) {
		t.Error("CancelByID(B, 3) = false")
	}
	if s.CancelByID("B", 3) {
		t.Error("CancelByID(B, 3) succeeded twice")
	}
	if s.InUse() != 1 {
		t.Errorf("InUse() = %d, want 1", s.InUse())
	}
}

func TestCallbackPanicRecovered(t *testing.T) {
	s := NewSlab(Config{Size: 1})
	defer s.Close()

	if _, err := s.SetTimer("Sim", 1, nil, 0, func(string, int, any, time.Duration) {
		panic("boom")
	}); err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	waitFor(t, func() bool { return s.InUse() == 0 }, "panicking timer kept its slot")

	done := make(chan struct{})
	if _, err := s.SetTimer("Sim", 2, nil, 0, func(string, int, any, time.Duration) {
		close(done)
	}); err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking callback")
	}
}

func TestClose(t *testing.T) {
	s := NewSlab(Config{Size: 2})
	if _, err := s.SetTimer("Sim", 1, nil, time.Hour, func(string, int, any, time.Duration) {}); err != nil {
		t.Fatalf("SetTimer() error = %v", err)
	}
	s.Close()
	s.Close()

	if _, err := s.SetTimer("Sim", 2, nil, 0, func(string, int, any, time.Duration) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("SetTimer() after Close error = %v, want ErrClosed", err)
	}
	if s.Size() != 2 {
		t.Errorf("Size() = %d", s.Size())
	}
}
