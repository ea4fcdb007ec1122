package timer

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueClosed is returned by Add after Delete.
var ErrQueueClosed = errors.New("queue closed")

type task struct {
	device string
	at     time.Time
	fn     func()
}

// Queue runs tasks one at a time in submission order.
type Queue struct {
	mu     sync.Mutex
	tasks  []task
	closed bool

	wake   chan struct{}
	done   chan struct{}
	logger *slog.Logger
}

// NewQueue creates a queue and starts its worker.
func NewQueue(logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	go q.run()
	return q
}

// Add enqueues fn to run no earlier than delay from now, after every task
// added before it.
func (q *Queue) Add(device string, delay time.Duration, fn func()) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.tasks = append(q.tasks, task{device: device, at: time.Now().Add(delay), fn: fn})
	q.mu.Unlock()
	poke(q.wake)
	return nil
}

// Remove drops the pending tasks of device and returns how many were
// dropped. A task already running is not affected.
func (q *Queue) Remove(device string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.tasks[:0]
	for _, t := range q.tasks {
		if t.device != device {
			kept = append(kept, t)
		}
	}
	n := len(q.tasks) - len(kept)
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = task{}
	}
	q.tasks = kept
	if n > 0 {
		poke(q.wake)
	}
	return n
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Delete discards pending tasks, stops the worker and waits for a running
// task to return. It must not be called from a task.
func (q *Queue) Delete() {
	q.mu.Lock()
	q.closed = true
	q.tasks = nil
	q.mu.Unlock()
	poke(q.wake)
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			<-q.wake
			continue
		}
		head := q.tasks[0]
		if wait := time.Until(head.at); wait > 0 {
			q.mu.Unlock()
			t := time.NewTimer(wait)
			select {
			case <-t.C:
			case <-q.wake:
			}
			t.Stop()
			continue
		}
		q.tasks[0] = task{}
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.invoke(head)
	}
}

func (q *Queue) invoke(t task) {
	if t.fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queued task panicked", "device", t.device, "panic", r)
		}
	}()
	t.fn()
}
