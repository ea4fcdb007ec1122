package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Timer slab errors.
var (
	ErrTooManyElements = errors.New("too many timers")
	ErrStale           = errors.New("stale timer handle")
	ErrClosed          = errors.New("timer slab closed")
)

// DefaultSize is the slot count of a slab built with a zero Config.Size.
const DefaultSize = 256

// Callback is invoked on the slot's worker when a timer fires. delay is
// the delay the timer was last scheduled with.
type Callback func(device string, id int, data any, delay time.Duration)

// Config configures a Slab.
type Config struct {
	// Size bounds the number of timers pending or running at once.
	Size int

	// Logger receives callback panics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Timer is a handle to a scheduled callback. It stays valid until the
// timer fires without being rescheduled, or is canceled.
type Timer struct {
	slot   *slot
	gen    uint64
	device string
	id     int
}

// Device returns the device the timer was registered for.
func (t *Timer) Device() string { return t.device }

// ID returns the caller-chosen timer ID.
func (t *Timer) ID() int { return t.id }

// Slot returns the index of the slot backing the timer.
func (t *Timer) Slot() int { return t.slot.index }

type slot struct {
	index int
	inUse bool

	// gen is bumped whenever the current occupant is canceled or released.
	gen uint64

	device   string
	id       int
	data     any
	delay    time.Duration
	deadline time.Time
	cb       Callback

	scheduled  bool
	running    bool
	runningGen uint64
	started    bool

	park *sync.Cond
	wake chan struct{}
}

// Slab is a fixed-size pool of timer slots, each backed by one reusable
// worker goroutine.
type Slab struct {
	mu     sync.Mutex
	slots  []*slot
	free   []int
	closed bool

	// idle is broadcast whenever a callback returns.
	idle *sync.Cond

	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewSlab creates a slab. Worker goroutines are started the first time
// their slot is used.
func NewSlab(cfg Config) *Slab {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Slab{
		slots:  make([]*slot, cfg.Size),
		free:   make([]int, 0, cfg.Size),
		logger: cfg.Logger,
	}
	s.idle = sync.NewCond(&s.mu)
	for i := range s.slots {
		s.slots[i] = &slot{
			index: i,
			park:  sync.NewCond(&s.mu),
			wake:  make(chan struct{}, 1),
		}
	}
	// Lowest index on top of the stack.
	for i := cfg.Size - 1; i >= 0; i-- {
		s.free = append(s.free, i)
	}
	return s
}

// SetTimer schedules cb to run after delay.
func (s *Slab) SetTimer(device string, id int, data any, delay time.Duration, cb Callback) (*Timer, error) {
	return s.schedule(device, id, data, delay, time.Now().Add(delay), cb)
}

// SetTimerAt schedules cb to run at the given wall-clock time.
func (s *Slab) SetTimerAt(device string, id int, data any, at time.Time, cb Callback) (*Timer, error) {
	return s.schedule(device, id, data, time.Until(at), at, cb)
}

func (s *Slab) schedule(device string, id int, data any, delay time.Duration, deadline time.Time, cb Callback) (*Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if len(s.free) == 0 {
		return nil, ErrTooManyElements
	}
	idx := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	sl := s.slots[idx]
	sl.inUse = true
	sl.device = device
	sl.id = id
	sl.data = data
	sl.delay = delay
	sl.deadline = deadline
	sl.cb = cb
	sl.scheduled = true

	if !sl.started {
		sl.started = true
		s.wg.Add(1)
		go s.run(sl)
	} else {
		sl.park.Signal()
		poke(sl.wake)
	}
	return &Timer{slot: sl, gen: sl.gen, device: device, id: id}, nil
}

// Reschedule re-arms a timer to fire after delay. It may be called from
// the timer's own callback, which keeps the slot for another round.
func (s *Slab) Reschedule(t *Timer, delay time.Duration) error {
	if t == nil {
		return ErrStale
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := t.slot
	if !sl.inUse || sl.gen != t.gen {
		return ErrStale
	}
	sl.delay = delay
	sl.deadline = time.Now().Add(delay)
	sl.scheduled = true
	sl.park.Signal()
	poke(sl.wake)
	return nil
}

// Cancel prevents a pending firing. It returns true if the timer was
// scheduled and will now not run. A running callback is not interrupted.
func (s *Slab) Cancel(t *Timer) bool {
	if t == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(t.slot, t.gen)
}

// CancelSync is Cancel that also waits for an in-flight callback of the
// timer to return. It must not be called from that callback.
func (s *Slab) CancelSync(t *Timer) bool {
	if t == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	canceled := s.cancelLocked(t.slot, t.gen)
	for t.slot.running && t.slot.runningGen == t.gen {
		s.idle.Wait()
	}
	return canceled
}

// CancelAll synchronously cancels every timer of device and returns how
// many pending firings were prevented.
func (s *Slab) CancelAll(device string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	type inflight struct {
		sl  *slot
		gen uint64
	}
	var wait []inflight
	n := 0
	for _, sl := range s.slots {
		if !sl.inUse || sl.device != device {
			continue
		}
		gen := sl.gen
		if sl.running && sl.runningGen == gen {
			wait = append(wait, inflight{sl, gen})
		}
		if s.cancelLocked(sl, gen) {
			n++
		}
	}
	for _, w := range wait {
		for w.sl.running && w.sl.runningGen == w.gen {
			s.idle.Wait()
		}
	}
	return n
}

// CancelByID cancels the timer registered as (device, id).
func (s *Slab) CancelByID(device string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sl := range s.slots {
		if sl.inUse && sl.device == device && sl.id == id {
			return s.cancelLocked(sl, sl.gen)
		}
	}
	return false
}

// InUse returns the number of slots holding a pending or running timer.
func (s *Slab) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots) - len(s.free)
}

// Size returns the slot count.
func (s *Slab) Size() int {
	return len(s.slots)
}

// Close stops every worker and waits for running callbacks to return.
// Pending timers are dropped. It must not be called from a callback.
func (s *Slab) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, sl := range s.slots {
		sl.park.Broadcast()
		poke(sl.wake)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Slab) cancelLocked(sl *slot, gen uint64) bool {
	if !sl.inUse || sl.gen != gen {
		return false
	}
	pending := sl.scheduled
	sl.scheduled = false
	if sl.running {
		// The worker releases the slot once the callback returns.
		sl.gen++
	} else {
		s.release(sl)
	}
	poke(sl.wake)
	return pending
}

func (s *Slab) release(sl *slot) {
	sl.inUse = false
	sl.gen++
	sl.data = nil
	sl.cb = nil
	s.free = append(s.free, sl.index)
}

func (s *Slab) run(sl *slot) {
	defer s.wg.Done()

	s.mu.Lock()
	for {
		for !sl.scheduled && !s.closed {
			sl.park.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		gen, deadline := sl.gen, sl.deadline
		s.mu.Unlock()

		if wait := time.Until(deadline); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-sl.wake:
			}
			t.Stop()
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if sl.gen != gen || !sl.scheduled || time.Now().Before(sl.deadline) {
			continue
		}
		sl.scheduled = false
		sl.running = true
		sl.runningGen = gen
		device, id, data, delay, cb := sl.device, sl.id, sl.data, sl.delay, sl.cb
		s.mu.Unlock()

		s.invoke(cb, device, id, data, delay)

		s.mu.Lock()
		sl.running = false
		if sl.inUse && !sl.scheduled {
			s.release(sl)
		}
		s.idle.Broadcast()
	}
}

func (s *Slab) invoke(cb Callback, device string, id int, data any, delay time.Duration) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("timer callback panicked", "device", device, "id", id, "panic", r)
		}
	}()
	cb(device, id, data, delay)
}

func poke(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
