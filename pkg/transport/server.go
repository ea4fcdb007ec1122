package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/metrics"
	"github.com/indigo-bus/indigo-go/pkg/version"
	"github.com/indigo-bus/indigo-go/pkg/wire"
)

// DefaultPort is the port the server listens on by default.
const DefaultPort = wire.DefaultPort

// Server errors.
var (
	// ErrAbnormalTermination is returned by Serve when the listener fails
	// before Stop was called.
	ErrAbnormalTermination = errors.New("abnormal termination")

	ErrServerRunning = errors.New("server already running")
)

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on (e.g., ":7624" or "127.0.0.1:0").
	Address string

	// Bus receives a RemoteClient for every connection. Required.
	Bus *bus.Bus

	// OnConnectionCount is called with the number of live connections
	// whenever it changes, and with 0 once the listener is bound.
	OnConnectionCount func(count int)

	// Logger for operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// ProtocolLogger receives connection state and record events
	// (optional).
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Bus

	// Reshare makes devices of remote servers visible to connected
	// clients.
	Reshare bool

	// Translator, MaxValueSize and WriteTimeout are passed to every
	// connection's adapter.
	Translator   *version.Translator
	MaxValueSize int
	WriteTimeout time.Duration

	// KeepAlive is the TCP keep-alive period of accepted connections.
	// Zero selects the system default; negative disables keep-alive.
	KeepAlive time.Duration
}

// Server accepts client connections and attaches each to the bus through
// a wire.RemoteClient.
type Server struct {
	config ServerConfig
	logger *slog.Logger
	plog   log.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer creates a server. It does not listen until Serve or Start.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ProtocolLogger == nil {
		config.ProtocolLogger = log.NoopLogger{}
	}
	return &Server{
		config: config,
		logger: config.Logger,
		plog:   config.ProtocolLogger,
		conns:  make(map[net.Conn]struct{}),
	}, nil
}

// Serve binds the listener and accepts connections until Stop, Shutdown
// or ctx cancellation, which all return nil. Cancelling ctx also closes
// every connection. A bind failure wraps bus.ErrCantStartServer; any other
// accept failure wraps ErrAbnormalTermination.
func (s *Server) Serve(ctx context.Context) error {
	ln, ctx, err := s.listen(ctx)
	if err != nil {
		return err
	}
	return s.acceptLoop(ctx, ln)
}

// Start binds the listener and serves in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	ln, ctx, err := s.listen(ctx)
	if err != nil {
		return err
	}
	go func() {
		if err := s.acceptLoop(ctx, ln); err != nil {
			s.logger.Error("server terminated", "error", err)
		}
	}()
	return nil
}

func (s *Server) listen(ctx context.Context) (net.Listener, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil, nil, ErrServerRunning
	}
	lc := net.ListenConfig{KeepAlive: s.config.KeepAlive}
	ln, err := lc.Listen(ctx, "tcp", s.config.Address)
	if err != nil {
		s.logger.Error("can't start server", "address", s.config.Address, "error", err)
		return nil, nil, fmt.Errorf("%w: listen %s: %w", bus.ErrCantStartServer, s.config.Address, err)
	}
	s.listener = ln
	ctx, cancel := context.WithCancel(ctx)
	// Shutdown still reaches connections accepted before a restart.
	if prev := s.cancel; prev != nil {
		s.cancel = func() { cancel(); prev() }
	} else {
		s.cancel = cancel
	}
	context.AfterFunc(ctx, func() { _ = ln.Close() })

	s.logger.Info("server started", "address", ln.Addr().String())
	if s.config.OnConnectionCount != nil {
		s.config.OnConnectionCount(0)
	}
	return ln, ctx, nil
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Stop already let go of ln; otherwise release it here so the
			// server can be started again.
			s.mu.Lock()
			stopped := s.listener != ln
			if !stopped {
				s.listener = nil
			}
			s.mu.Unlock()

			if stopped || ctx.Err() != nil {
				s.logger.Info("server stopped")
				return nil
			}
			s.logger.Error("accept failed", "error", err)
			return fmt.Errorf("%w: %v", ErrAbnormalTermination, err)
		}

		// Handlers are only added while ln is live, so Shutdown's Wait
		// cannot miss one.
		s.mu.Lock()
		if s.listener != ln {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		s.mu.Unlock()
		go s.handleConnection(ctx, conn)
	}
}

// Stop closes the listener. Live connections keep running. A stopped
// server can be started again.
func (s *Server) Stop() error {
	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, closes every live connection and waits for
// their handlers to finish.
func (s *Server) Shutdown() error {
	err := s.Stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// Addr returns the bound address, or nil before the server listens.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of live connections.
func (s *Server) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
	n := len(s.conns)
	s.mu.Unlock()
	if add {
		s.config.Metrics.ConnectionOpened()
	} else {
		s.config.Metrics.ConnectionClosed()
	}
	if s.config.OnConnectionCount != nil {
		s.config.OnConnectionCount(n)
	}
}

// handleConnection processes a single connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	connID := uuid.New().String()
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("conn_id", connID, "remote", remote)

	s.track(conn, true)
	// Shutdown may have swept the connections just before this one was
	// tracked.
	if ctx.Err() != nil {
		_ = conn.Close()
	}
	s.logState(connID, remote, "", "CONNECTED", "")
	logger.Debug("connection accepted")

	reason := s.serveConnection(ctx, conn, connID, remote, logger)

	_ = conn.Close()
	s.track(conn, false)
	s.logState(connID, remote, "CONNECTED", "DISCONNECTED", reason)
	logger.Debug("connection closed", "reason", reason)
}

// serveConnection picks the protocol from the first byte and runs it. It
// returns why the connection ended.
func (s *Server) serveConnection(ctx context.Context, conn net.Conn, connID, remote string, logger *slog.Logger) string {
	r := bufio.NewReader(conn)
	first, err := firstByte(r)
	if err != nil {
		return "closed before first record"
	}
	switch first {
	case '<':
	case '{':
		logger.Warn("JSON protocol is not supported")
		return "unsupported protocol"
	default:
		logger.Warn("unknown protocol", "first_byte", fmt.Sprintf("%q", first))
		return "unknown protocol"
	}

	client := wire.NewRemoteClient(s.config.Bus, &peekedConn{Conn: conn, r: r}, wire.Config{
		ConnID:         connID,
		RemoteAddr:     remote,
		Translator:     s.config.Translator,
		Logger:         s.logger,
		ProtocolLogger: s.plog,
		Metrics:        s.config.Metrics,
		Reshare:        s.config.Reshare,
		MaxValueSize:   s.config.MaxValueSize,
		WriteTimeout:   s.config.WriteTimeout,
	})
	if err := s.config.Bus.AttachClient(client); err != nil {
		logger.Warn("can't attach client", "error", err)
		return "attach failed"
	}
	if err := client.Serve(ctx); err != nil {
		return err.Error()
	}
	return ""
}

// firstByte skips leading whitespace and returns the next byte without
// consuming it.
func firstByte(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = r.ReadByte()
		default:
			return b[0], nil
		}
	}
}

// peekedConn reads through the reader that inspected the first byte.
type peekedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *peekedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (s *Server) logState(connID, remote, old, state, reason string) {
	s.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   remote,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: old,
			NewState: state,
			Reason:   reason,
		},
	})
}
