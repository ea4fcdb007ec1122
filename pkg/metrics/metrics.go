// Package metrics exposes Prometheus instrumentation for the bus, the
// network server and the timer slab.
//
// All methods are safe on a nil *Bus, so components can take an optional
// metrics handle without guarding every call.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "indigo"

// Bus holds the collectors shared by the bus core and its adapters.
type Bus struct {
	registry *prometheus.Registry

	broadcasts     *prometheus.CounterVec // By kind (define/update/delete/message)
	requests       *prometheus.CounterVec // By kind (enumerate/change/enable_blob) and result
	callbackErrors *prometheus.CounterVec // By callback and result

	devices prometheus.Gauge
	clients prometheus.Gauge

	connections      prometheus.Gauge
	connectionsTotal prometheus.Counter
	records          *prometheus.CounterVec // By direction and record
}

// New creates and registers the collectors. A nil registry gets a fresh
// one, available through Registry.
func New(registry *prometheus.Registry) (*Bus, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Bus{
		registry: registry,
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "broadcasts_total",
			Help:      "Property broadcasts from devices to clients",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "requests_total",
			Help:      "Requests from clients to devices",
		}, []string{"kind", "result"}),
		callbackErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "callback_errors_total",
			Help:      "Participant callbacks that returned an error or panicked",
		}, []string{"callback", "result"}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "devices",
			Help:      "Attached devices",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "clients",
			Help:      "Attached clients",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections",
			Help:      "Open protocol connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Accepted protocol connections",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wire",
			Name:      "records_total",
			Help:      "Protocol records encoded or decoded",
		}, []string{"direction", "record"}),
	}

	for _, c := range []prometheus.Collector{
		m.broadcasts, m.requests, m.callbackErrors,
		m.devices, m.clients,
		m.connections, m.connectionsTotal, m.records,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Registry returns the registry the collectors live in.
func (m *Bus) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Broadcast counts one device-to-client broadcast.
func (m *Bus) Broadcast(kind string) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(kind).Inc()
}

// Request counts one client-to-device request.
func (m *Bus) Request(kind, result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(kind, result).Inc()
}

// CallbackError counts a failed participant callback.
func (m *Bus) CallbackError(callback, result string) {
	if m == nil {
		return
	}
	m.callbackErrors.WithLabelValues(callback, result).Inc()
}

// SetParticipants records the registry sizes.
func (m *Bus) SetParticipants(devices, clients int) {
	if m == nil {
		return
	}
	m.devices.Set(float64(devices))
	m.clients.Set(float64(clients))
}

// ConnectionOpened counts an accepted or dialed connection.
func (m *Bus) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.connectionsTotal.Inc()
}

// ConnectionClosed records the end of a connection.
func (m *Bus) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Record counts a protocol record; direction is "in" or "out".
func (m *Bus) Record(direction, record string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(direction, record).Inc()
}

// WatchSlab exports the occupancy of a timer slab, read on every scrape.
func (m *Bus) WatchSlab(inUse func() int, size int) error {
	if m == nil {
		return nil
	}
	used := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "timer",
		Name:      "slots_in_use",
		Help:      "Timer slots holding a pending or running timer",
	}, func() float64 { return float64(inUse()) })
	capacity := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "timer",
		Name:      "slots",
		Help:      "Timer slab size",
	})
	capacity.Set(float64(size))
	if err := m.registry.Register(used); err != nil {
		return err
	}
	return m.registry.Register(capacity)
}

// Handler serves the registry on /metrics and a liveness probe on /health.
func Handler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}
