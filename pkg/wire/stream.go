package wire

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/metrics"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/version"
)

const (
	// MaxLogRecordSize bounds the raw bytes copied into a captured frame.
	MaxLogRecordSize = 4096

	// DefaultWriteTimeout bounds a single record write.
	DefaultWriteTimeout = 10 * time.Second
)

// Config configures a RemoteClient or RemoteDevice.
type Config struct {
	// Name is the participant name on the local bus. RemoteDevice
	// prefixes it with "@ ".
	Name string

	// ConnID and RemoteAddr identify the connection in logs.
	ConnID     string
	RemoteAddr string

	// Translator spells names for legacy peers. Defaults to
	// version.Default().
	Translator *version.Translator

	Logger         *slog.Logger
	ProtocolLogger log.Logger
	Metrics        *metrics.Bus

	// Reshare lets devices of one remote server be seen, and driven, by
	// clients connected over another remote link.
	Reshare bool

	// MaxValueSize bounds non-BLOB values; zero means DefaultMaxValueSize.
	MaxValueSize int

	// WriteTimeout bounds each record write; zero means
	// DefaultWriteTimeout. A peer that times out is disconnected.
	WriteTimeout time.Duration
}

func (c *Config) defaults() {
	if c.Translator == nil {
		c.Translator = version.Default()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	if c.MaxValueSize == 0 {
		c.MaxValueSize = DefaultMaxValueSize
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// remote is implemented by the synthetic participants of this package.
type remote interface {
	isRemote()
}

func isRemote(v any) bool {
	_, ok := v.(remote)
	return ok
}

// stream is the connection plumbing shared by both adapters.
type stream struct {
	rwc    io.ReadWriteCloser
	role   log.Role
	cfg    Config
	logger *slog.Logger

	closeOnce sync.Once
	closing   atomic.Bool
}

func newStream(rwc io.ReadWriteCloser, role log.Role, cfg Config) *stream {
	logger := cfg.Logger
	if cfg.ConnID != "" {
		logger = logger.With("conn_id", cfg.ConnID)
	}
	return &stream{rwc: rwc, role: role, cfg: cfg, logger: logger}
}

// send writes one rendered record and captures it.
func (s *stream) send(buf *bytes.Buffer, kind log.RecordKind, rec *log.RecordEvent, device, name string) error {
	if s.closing.Load() {
		return net.ErrClosed
	}
	data := buf.Bytes()
	if err := writeRecord(s.rwc, data, s.cfg.WriteTimeout); err != nil {
		s.logger.Debug("write failed", "error", err)
		if errors.Is(err, os.ErrDeadlineExceeded) {
			s.logger.Warn("peer stalled, closing connection")
			_ = s.close()
		}
		return err
	}
	s.capture(log.DirectionOut, kind, rec, device, name, data)
	return nil
}

func (s *stream) capture(dir log.Direction, kind log.RecordKind, rec *log.RecordEvent, device, name string, raw []byte) {
	s.cfg.Metrics.Record(dir.String(), kind.String())
	if _, noop := s.cfg.ProtocolLogger.(log.NoopLogger); noop {
		return
	}
	if rec == nil {
		rec = &log.RecordEvent{}
	}
	rec.Kind = kind
	ev := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.cfg.ConnID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    s.role,
		RemoteAddr:   s.cfg.RemoteAddr,
		Device:       device,
		Property:     name,
		Record:       rec,
	}
	if kind == log.RecordGetProperties || kind == log.RecordEnableBlob || kind == log.RecordSwitchProtocol {
		ev.Category = log.CategoryControl
	}
	if raw != nil {
		frame := &log.FrameEvent{Size: len(raw), Data: raw}
		if len(raw) > MaxLogRecordSize {
			frame.Data = raw[:MaxLogRecordSize]
			frame.Truncated = true
		}
		frame.Data = append([]byte(nil), frame.Data...)
		ev.Frame = frame
	}
	s.cfg.ProtocolLogger.Log(ev)
}

func (s *stream) captureError(err error, context string) {
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.cfg.ConnID,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		LocalRole:    s.role,
		RemoteAddr:   s.cfg.RemoteAddr,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: context,
		},
	})
}

func (s *stream) captureState(old, state, reason string) {
	s.cfg.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.cfg.ConnID,
		Layer:        log.LayerWire,
		Category:     log.CategoryState,
		LocalRole:    s.role,
		RemoteAddr:   s.cfg.RemoteAddr,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityProtocol,
			OldState: old,
			NewState: state,
			Reason:   reason,
		},
	})
}

func (s *stream) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		err = s.rwc.Close()
	})
	return err
}

// readLoop feeds records to handle until the stream ends. A clean end of
// stream, or one caused by close, returns nil.
func (s *stream) readLoop(handle func(*Record)) error {
	dec := NewDecoder(s.rwc)
	dec.SetMaxValueSize(s.cfg.MaxValueSize)
	for {
		rec, err := dec.Next()
		if err == nil {
			handle(rec)
			continue
		}
		if errors.Is(err, ErrValueTooLarge) {
			s.logger.Warn("record skipped", "error", err)
			s.captureError(err, "decode")
			continue
		}
		if errors.Is(err, io.EOF) || s.closing.Load() {
			return nil
		}
		s.logger.Warn("stream error", "error", err)
		s.captureError(err, "decode")
		return err
	}
}

func recordEvent(p *property.Property, v version.Protocol, message string) *log.RecordEvent {
	rec := &log.RecordEvent{Items: len(p.Items), Message: message}
	if p.Type != 0 {
		rec.Type = p.Type.String()
		rec.State = p.State.String()
	}
	if v != version.None {
		rec.Version = v.String()
	}
	return rec
}
