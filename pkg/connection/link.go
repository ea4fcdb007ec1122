package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrLinkClosed is returned by Run once the link has been closed.
var ErrLinkClosed = errors.New("link closed")

// State is the state of a Link.
type State uint8

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateWaiting
	StateClosed
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateWaiting:
		return "WAITING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Session is one established connection. *wire.RemoteDevice implements it.
type Session interface {
	Done() <-chan struct{}
	Err() error
	Close() error
}

// DialFunc establishes a session. ctx spans the life of the session, so
// the session must end when it is cancelled.
type DialFunc func(ctx context.Context) (Session, error)

// Config configures a Link.
type Config struct {
	Backoff BackoffConfig

	Logger *slog.Logger

	// OnStateChange is called outside the link lock on every transition.
	OnStateChange func(old, new State)
}

// Link redials a remote server whenever its session ends.
type Link struct {
	name    string
	dial    DialFunc
	cfg     Config
	backoff *Backoff
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	sessions int
	lastErr  error
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewLink creates a link named name, usually the server address.
func NewLink(name string, dial DialFunc, cfg Config) *Link {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{
		name:    name,
		dial:    dial,
		cfg:     cfg,
		backoff: NewBackoff(cfg.Backoff),
		logger:  logger.With("link", name),
	}
}

// Name returns the name the link was created with.
func (l *Link) Name() string { return l.name }

// State returns the current state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Sessions returns how many sessions have been established.
func (l *Link) Sessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sessions
}

// LastErr returns the error of the last failed attempt or ended session.
func (l *Link) LastErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	old := l.state
	if old == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = s
	l.mu.Unlock()
	if old != s {
		l.logger.Debug("link state", "from", old, "to", s)
		if l.cfg.OnStateChange != nil {
			l.cfg.OnStateChange(old, s)
		}
	}
}

// Start runs the link in a goroutine until ctx is cancelled or Close is
// called.
func (l *Link) Start(ctx context.Context) {
	l.mu.Lock()
	if l.done != nil || l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
}

// Run dials and redials until ctx is cancelled. It returns ctx.Err(), or
// ErrLinkClosed if the link was closed.
func (l *Link) Run(ctx context.Context) error {
	for {
		if l.State() == StateClosed {
			return ErrLinkClosed
		}
		l.setState(StateConnecting)
		s, err := l.dial(ctx)
		if err == nil {
			l.backoff.Reset()
			l.mu.Lock()
			l.sessions++
			l.mu.Unlock()
			l.setState(StateConnected)
			l.logger.Info("connected")
			err = l.wait(ctx, s)
			if ctx.Err() == nil {
				l.logger.Warn("connection lost", "error", err)
			}
		} else if ctx.Err() == nil {
			l.logger.Warn("connect failed", "error", err, "attempt", l.backoff.Attempts()+1)
		}
		l.mu.Lock()
		l.lastErr = err
		l.mu.Unlock()

		if ctx.Err() != nil {
			l.setState(StateIdle)
			return ctx.Err()
		}
		l.setState(StateWaiting)
		t := time.NewTimer(l.backoff.Next())
		select {
		case <-ctx.Done():
			t.Stop()
			l.setState(StateIdle)
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Link) wait(ctx context.Context, s Session) error {
	select {
	case <-s.Done():
	case <-ctx.Done():
		_ = s.Close()
		<-s.Done()
	}
	return s.Err()
}

// Close stops a started link and waits for its session to end.
func (l *Link) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	l.setState(StateClosed)
}
