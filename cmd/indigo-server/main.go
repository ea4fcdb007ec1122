// Command indigo-server runs an INDIGO property bus and serves it to XML
// clients over TCP.
//
// Besides the network server it can host the simulator device, write a
// protocol capture, export Prometheus metrics, advertise itself over mDNS
// and mirror every property to an MQTT broker.
//
// Usage:
//
//	indigo-server [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-listen string          Listen address (default ":7624")
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-log-format string      Log format: text, json (default "text")
//	-protocol-log string    Write a protocol capture to this file
//	-metrics-listen string  Serve /metrics and /health on this address
//	-mdns                   Advertise the server over mDNS
//	-simulator string       Simulator device name; empty disables it (default "Sim")
//	-mqtt-broker string     Mirror properties to this MQTT broker
//	-remote value           Connect to a remote server at host[:port]; repeatable
//	-reshare                Share remote devices with other remote clients
//	-master-token uint      Master access token; 0 disables it
//
// Examples:
//
//	# Serve the simulator on the default port
//	indigo-server
//
//	# Capture all traffic and expose metrics
//	indigo-server -protocol-log server.ilog -metrics-listen :9090
//
//	# Run from a config file, mirroring to a local broker
//	indigo-server -config /etc/indigo/server.yaml -mqtt-broker tcp://localhost:1883
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/connection"
	"github.com/indigo-bus/indigo-go/pkg/discovery"
	plog "github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/metrics"
	"github.com/indigo-bus/indigo-go/pkg/mirror"
	"github.com/indigo-bus/indigo-go/pkg/simulator"
	"github.com/indigo-bus/indigo-go/pkg/timer"
	"github.com/indigo-bus/indigo-go/pkg/transport"
	"github.com/indigo-bus/indigo-go/pkg/version"
	"github.com/indigo-bus/indigo-go/pkg/wire"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "indigo-server: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogging(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *Config) *slog.Logger {
	level, _ := parseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level, AddSource: level < slog.LevelInfo}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// server holds everything run builds, in the order it is torn down.
type server struct {
	logger     *slog.Logger
	bus        *bus.Bus
	slab       *timer.Slab
	net        transport.TransportServer
	links      []*connection.Link
	advertiser discovery.Advertiser
	metricsSrv *http.Server
	capture    *plog.FileLogger
	info       *discovery.ServerInfo
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	s := &server{logger: logger}
	defer s.close()

	var protocolLogger plog.Logger
	if cfg.ProtocolLog != "" {
		capture, err := plog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("protocol log: %w", err)
		}
		s.capture = capture
		protocolLogger = capture
		logger.Info("protocol capture enabled", "path", cfg.ProtocolLog)
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		protocolLogger = plog.Multi(protocolLogger, plog.NewSlogAdapter(logger))
	}

	var m *metrics.Bus
	if cfg.MetricsListen != "" {
		var err error
		if m, err = metrics.New(nil); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	s.slab = timer.NewSlab(timer.Config{Logger: logger})
	if err := m.WatchSlab(s.slab.InUse, s.slab.Size()); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	s.bus = bus.New(bus.Config{
		Logger:         logger,
		ProtocolLogger: protocolLogger,
		Metrics:        m,
	})
	s.bus.SetMasterToken(cfg.MasterToken)

	if cfg.Simulator != "" {
		sim := simulator.NewSim(cfg.Simulator, simulator.Config{Slab: s.slab, Logger: logger})
		if err := s.bus.AttachDevice(sim); err != nil {
			return fmt.Errorf("simulator: %w", err)
		}
	}

	if cfg.MQTT.Broker != "" {
		if err := s.startMirror(cfg); err != nil {
			return err
		}
	}

	for _, addr := range cfg.RemoteServers {
		s.startLink(ctx, addr, wire.Config{
			Logger:         logger,
			ProtocolLogger: protocolLogger,
			Metrics:        m,
			Reshare:        cfg.Reshare,
		})
	}

	srv, err := transport.NewServer(transport.ServerConfig{
		Address:        cfg.Listen,
		Bus:            s.bus,
		Logger:         logger,
		ProtocolLogger: protocolLogger,
		Metrics:        m,
		Reshare:        cfg.Reshare,
		OnConnectionCount: func(count int) {
			logger.Debug("connections", "count", count)
		},
	})
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return err
	}
	s.net = srv
	logger.Info("server started", "addr", srv.Addr().String(), "devices", len(s.bus.Devices()))

	if m != nil {
		s.startMetrics(cfg.MetricsListen, m)
	}
	if cfg.MDNS {
		s.startAdvertiser(ctx, cfg)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return s.shutdown()
}

func (s *server) startMirror(cfg *Config) error {
	client, err := mirror.Connect(mirror.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    cfg.MQTT.ClientID,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
		Logger:      s.logger,
	})
	if err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	mir := mirror.New(client, mirror.Options{
		TopicPrefix: cfg.MQTT.TopicPrefix,
		Logger:      s.logger,
		Token:       cfg.MasterToken,
	})
	if err := s.bus.AttachClient(mir); err != nil {
		_ = client.Close()
		return fmt.Errorf("mqtt: %w", err)
	}
	s.logger.Info("mqtt mirror attached", "broker", cfg.MQTT.Broker)
	return nil
}

// startLink keeps a connection to the server at addr, redialing with
// backoff whenever it drops.
func (s *server) startLink(ctx context.Context, addr string, wcfg wire.Config) {
	link := connection.NewLink(addr, func(ctx context.Context) (connection.Session, error) {
		d, err := wire.Dial(ctx, s.bus, addr, wcfg)
		if err != nil {
			return nil, err
		}
		return d, nil
	}, connection.Config{Logger: s.logger})
	link.Start(ctx)
	s.links = append(s.links, link)
	s.logger.Info("remote server link started", "addr", addr)
}

func (s *server) startMetrics(addr string, m *metrics.Bus) {
	s.metricsSrv = &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(m.Registry()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("metrics enabled", "addr", addr)
}

func (s *server) startAdvertiser(ctx context.Context, cfg *Config) {
	name := cfg.MDNSName
	if name == "" {
		name, _ = os.Hostname()
	}
	port := uint16(transport.DefaultPort)
	if tcp, ok := s.net.Addr().(*net.TCPAddr); ok {
		port = uint16(tcp.Port)
	} else if _, p, err := net.SplitHostPort(cfg.Listen); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			port = uint16(n)
		}
	}
	s.info = &discovery.ServerInfo{
		Instance: name,
		Port:     port,
		Version:  version.Current.String(),
		Devices:  len(s.bus.Devices()),
		ID:       uuid.NewString(),
	}
	adv := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{})
	if err := adv.Advertise(ctx, s.info); err != nil {
		s.logger.Warn("mdns advertisement failed", "error", err)
		return
	}
	s.advertiser = adv
	s.logger.Info("advertising over mdns", "instance", name, "port", port)
}

// shutdown stops accepting, detaches the devices and then stops the bus,
// which detaches the remaining clients.
func (s *server) shutdown() error {
	if s.advertiser != nil {
		s.advertiser.Stop()
		s.advertiser = nil
	}
	if err := s.net.Stop(); err != nil {
		s.logger.Warn("closing listener", "error", err)
	}
	for _, link := range s.links {
		link.Close()
	}
	s.links = nil
	for _, d := range s.bus.Devices() {
		if err := s.bus.DetachDevice(d); err != nil {
			s.logger.Warn("detaching device", "device", d.Name(), "error", err)
		}
	}
	err := s.bus.Stop()
	if serr := s.net.Shutdown(); serr != nil && err == nil {
		err = serr
	}
	s.net = nil
	return err
}

// close releases what run acquired, on every exit path.
func (s *server) close() {
	if s.advertiser != nil {
		s.advertiser.Stop()
	}
	for _, link := range s.links {
		link.Close()
	}
	if s.net != nil {
		_ = s.net.Shutdown()
	}
	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = s.metricsSrv.Shutdown(ctx)
		cancel()
	}
	if s.slab != nil {
		s.slab.Close()
	}
	if s.capture != nil {
		_ = s.capture.Close()
	}
}
