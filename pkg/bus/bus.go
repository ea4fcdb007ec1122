package bus

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/metrics"
	"github.com/indigo-bus/indigo-go/pkg/property"
)

// Device is a participant that owns properties and handles client requests.
type Device interface {
	Name() string
	Attach(b *Bus) error
	EnumerateProperties(b *Bus, c Client, filter *property.Property) error
	ChangeProperty(b *Bus, c Client, patch *property.Property) error
	EnableBlob(b *Bus, c Client, filter *property.Property, mode property.BlobMode) error
	Detach(b *Bus) error
}

// Client is a participant that observes device properties.
type Client interface {
	Name() string
	Attach(b *Bus) error
	DefineProperty(b *Bus, d Device, p *property.Property, message string) error
	UpdateProperty(b *Bus, d Device, p *property.Property, message string) error
	DeleteProperty(b *Bus, d Device, p *property.Property, message string) error
	SendMessage(b *Bus, d Device, message string) error
	Detach(b *Bus) error
}

// LockedMessage is sent to clients when a change request does not carry
// the device's access token.
const LockedMessage = "Device '%s' is protected or locked for exclusive access"

// Config configures a Bus.
type Config struct {
	// MaxDevices and MaxClients bound the registries. Zero is unbounded.
	MaxDevices int
	MaxClients int

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// ProtocolLogger receives bus-level protocol events.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Bus
}

// delivery is one callback queued for a client.
type delivery struct {
	callback string
	p        *property.Property
	fn       func(Client, *property.Property) error
}

type clientEntry struct {
	client Client

	// One goroutine at a time delivers to the client. Deliveries that
	// arrive while it is busy, including those caused from inside its own
	// callbacks, wait in queue and are run by that goroutine in order.
	mu       sync.Mutex
	busy     bool
	queue    []delivery
	detached atomic.Bool
}

// Bus routes requests from clients to devices and broadcasts property
// changes from devices to clients. Operations run participant callbacks on
// the caller's goroutine. A client already busy with a callback gets the
// delivery after that callback returns, so a client may issue requests
// from inside its callbacks.
type Bus struct {
	mu      sync.RWMutex
	devices []Device
	clients []*clientEntry
	tokens  map[string]uint64
	master  uint64
	stopped bool

	maxDevices int
	maxClients int
	logger     *slog.Logger
	plog       log.Logger
	metrics    *metrics.Bus
}

// New creates a started bus.
func New(cfg Config) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ProtocolLogger == nil {
		cfg.ProtocolLogger = log.NoopLogger{}
	}
	return &Bus{
		tokens:     make(map[string]uint64),
		maxDevices: cfg.MaxDevices,
		maxClients: cfg.MaxClients,
		logger:     cfg.Logger,
		plog:       cfg.ProtocolLogger,
		metrics:    cfg.Metrics,
	}
}

// Logger returns the operational logger participants should log to.
func (b *Bus) Logger() *slog.Logger {
	return b.logger
}

// AttachDevice registers d and calls its Attach callback. If the callback
// fails the device is unregistered again.
func (b *Bus) AttachDevice(d Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrFailed)
	}
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return fmt.Errorf("%w: bus stopped", ErrFailed)
	}
	for _, x := range b.devices {
		if x == d {
			b.mu.Unlock()
			return fmt.Errorf("%w: device %q already attached", ErrDuplicated, d.Name())
		}
	}
	if b.maxDevices > 0 && len(b.devices) >= b.maxDevices {
		b.mu.Unlock()
		b.logger.Error("max device count reached", "device", d.Name(), "max", b.maxDevices)
		return fmt.Errorf("%w: %d devices attached", ErrTooManyElements, b.maxDevices)
	}
	b.devices = append(b.devices, d)
	b.updateGauges()
	b.mu.Unlock()

	if err := b.call("attach", d.Name(), func() error { return d.Attach(b) }); err != nil {
		b.removeDevice(d)
		return fmt.Errorf("%w: attach device %q: %v", ErrFailed, d.Name(), err)
	}
	b.logger.Debug("device attached", "device", d.Name())
	b.logState(log.StateEntityDevice, d.Name(), "ATTACHED")
	return nil
}

// AttachClient registers c and calls its Attach callback. If the callback
// fails the client is unregistered again.
func (b *Bus) AttachClient(c Client) error {
	if c == nil {
		return fmt.Errorf("%w: nil client", ErrFailed)
	}
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return fmt.Errorf("%w: bus stopped", ErrFailed)
	}
	for _, e := range b.clients {
		if e.client == c {
			b.mu.Unlock()
			return fmt.Errorf("%w: client %q already attached", ErrDuplicated, c.Name())
		}
	}
	if b.maxClients > 0 && len(b.clients) >= b.maxClients {
		b.mu.Unlock()
		b.logger.Error("max client count reached", "client", c.Name(), "max", b.maxClients)
		return fmt.Errorf("%w: %d clients attached", ErrTooManyElements, b.maxClients)
	}
	b.clients = append(b.clients, &clientEntry{client: c})
	b.updateGauges()
	b.mu.Unlock()

	if err := b.call("attach", c.Name(), func() error { return c.Attach(b) }); err != nil {
		b.removeClient(c)
		return fmt.Errorf("%w: attach client %q: %v", ErrFailed, c.Name(), err)
	}
	b.logger.Debug("client attached", "client", c.Name())
	b.logState(log.StateEntityClient, c.Name(), "ATTACHED")
	return nil
}

// DetachDevice unregisters d, tells every client that all of its
// properties are gone, and calls its Detach callback.
func (b *Bus) DetachDevice(d Device) error {
	if d == nil {
		return fmt.Errorf("%w: nil device", ErrFailed)
	}
	if !b.removeDevice(d) {
		return fmt.Errorf("%w: device %q", ErrNotFound, d.Name())
	}
	all := property.NewRequest(property.TextVector, d.Name(), "")
	all.State = property.Ok
	all.Perm = property.ReadOnly
	b.broadcast("delete", d, all, "", func(c Client, p *property.Property) error {
		return c.DeleteProperty(b, d, p, "")
	})
	_ = b.call("detach", d.Name(), func() error { return d.Detach(b) })
	b.logger.Debug("device detached", "device", d.Name())
	b.logState(log.StateEntityDevice, d.Name(), "DETACHED")
	return nil
}

// DetachClient unregisters c and calls its Detach callback.
func (b *Bus) DetachClient(c Client) error {
	if c == nil {
		return fmt.Errorf("%w: nil client", ErrFailed)
	}
	if !b.removeClient(c) {
		return fmt.Errorf("%w: client %q", ErrNotFound, c.Name())
	}
	_ = b.call("detach", c.Name(), func() error { return c.Detach(b) })
	b.logger.Debug("client detached", "client", c.Name())
	b.logState(log.StateEntityClient, c.Name(), "DETACHED")
	return nil
}

// EnumerateProperties asks every matching device to define its properties
// selected by filter. A nil filter selects everything.
func (b *Bus) EnumerateProperties(c Client, filter *property.Property) error {
	if filter == nil {
		filter = &property.Property{}
	}
	filter = anyDevice(filter)
	devices, _, err := b.route(filter.Device)
	if err != nil {
		return err
	}
	b.logRecord(log.DirectionIn, log.RecordGetProperties, filter, "")
	for _, d := range devices {
		_ = b.call("enumerate_properties", d.Name(), func() error {
			return d.EnumerateProperties(b, c, filter)
		})
	}
	b.metrics.Request("enumerate", ResultOK.String())
	return nil
}

// ChangeProperty forwards a change request to every matching device. A
// device whose access token is set rejects patches that carry neither that
// token nor the master token; clients are told with LockedMessage and the
// call returns ErrLockError.
func (b *Bus) ChangeProperty(c Client, patch *property.Property) error {
	if patch == nil {
		return fmt.Errorf("%w: nil property", ErrFailed)
	}
	devices, tokens, err := b.route(patch.Device)
	if err != nil {
		return err
	}
	b.logRecord(log.DirectionIn, log.RecordChange, patch, "")

	var locked []string
	for i, d := range devices {
		if tokens[i].locks(patch.AccessToken) {
			b.logger.Debug("change rejected by access token", "device", d.Name(), "property", patch.Name)
			_ = b.SendMessage(d, fmt.Sprintf(LockedMessage, d.Name()))
			locked = append(locked, d.Name())
			continue
		}
		_ = b.call("change_property", d.Name(), func() error {
			return d.ChangeProperty(b, c, patch)
		})
	}
	if len(locked) > 0 {
		b.metrics.Request("change", ResultLockError.String())
		return fmt.Errorf("%w: %s", ErrLockError, strings.Join(locked, ", "))
	}
	b.metrics.Request("change", ResultOK.String())
	return nil
}

// EnableBlob forwards a BLOB delivery mode request to every matching
// device.
func (b *Bus) EnableBlob(c Client, filter *property.Property, mode property.BlobMode) error {
	if filter == nil {
		return fmt.Errorf("%w: nil property", ErrFailed)
	}
	filter = anyDevice(filter)
	devices, _, err := b.route(filter.Device)
	if err != nil {
		return err
	}
	b.plog.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionIn,
		Layer:     log.LayerBus,
		Category:  log.CategoryControl,
		Device:    filter.Device,
		Property:  filter.Name,
		Record:    &log.RecordEvent{Kind: log.RecordEnableBlob, Mode: mode.String()},
	})
	for _, d := range devices {
		_ = b.call("enable_blob", d.Name(), func() error {
			return d.EnableBlob(b, c, filter, mode)
		})
	}
	b.metrics.Request("enable_blob", ResultOK.String())
	return nil
}

// DefineProperty marks p defined and sends it to every client. Hidden
// properties are not broadcast.
func (b *Bus) DefineProperty(d Device, p *property.Property, message string) error {
	if p == nil {
		return fmt.Errorf("%w: nil property", ErrFailed)
	}
	if err := b.checkStarted(); err != nil {
		return err
	}
	if p.Hidden {
		return nil
	}
	p.Defined = true
	b.broadcast("define", d, p, message, func(c Client, p *property.Property) error {
		return c.DefineProperty(b, d, p, message)
	})
	return nil
}

// DefinePropertyTo marks p defined and sends it to c alone. Devices answer
// EnumerateProperties with it so the other clients do not see the
// definition twice. A nil c broadcasts like DefineProperty.
func (b *Bus) DefinePropertyTo(c Client, d Device, p *property.Property, message string) error {
	if c == nil {
		return b.DefineProperty(d, p, message)
	}
	if p == nil {
		return fmt.Errorf("%w: nil property", ErrFailed)
	}
	if err := b.checkStarted(); err != nil {
		return err
	}
	if p.Hidden {
		return nil
	}
	p.Defined = true
	b.logRecord(log.DirectionOut, log.RecordDefine, p, message)
	b.metrics.Broadcast("define")

	define := func(c Client, p *property.Property) error {
		return c.DefineProperty(b, d, p, message)
	}
	if e := b.entry(c); e != nil {
		b.deliver(e, "define_property", p, define)
		return nil
	}
	// Not attached, so there is no delivery order to keep.
	_ = b.call("define_property", c.Name(), func() error { return define(c, p) })
	return nil
}

// UpdateProperty sends the current values of p to every client. Write-only
// properties are sent without items.
func (b *Bus) UpdateProperty(d Device, p *property.Property, message string) error {
	if p == nil {
		return fmt.Errorf("%w: nil property", ErrFailed)
	}
	if err := b.checkStarted(); err != nil {
		return err
	}
	if p.Hidden {
		return nil
	}
	if p.Perm == property.WriteOnly {
		q := *p
		q.Items = nil
		p = &q
	}
	b.broadcast("update", d, p, message, func(c Client, p *property.Property) error {
		return c.UpdateProperty(b, d, p, message)
	})
	return nil
}

// DeleteProperty marks p undefined and tells every client. A property with
// an empty name stands for every property of the device.
func (b *Bus) DeleteProperty(d Device, p *property.Property, message string) error {
	if p == nil {
		return fmt.Errorf("%w: nil property", ErrFailed)
	}
	if err := b.checkStarted(); err != nil {
		return err
	}
	if p.Hidden {
		return nil
	}
	p.Defined = false
	b.broadcast("delete", d, p, message, func(c Client, p *property.Property) error {
		return c.DeleteProperty(b, d, p, message)
	})
	return nil
}

// SendMessage sends a free-text message to every client. d may be nil for
// messages not tied to a device.
func (b *Bus) SendMessage(d Device, message string) error {
	if err := b.checkStarted(); err != nil {
		return err
	}
	name := ""
	if d != nil {
		name = d.Name()
	}
	b.logger.Debug("message sent", "device", name, "message", message)
	b.broadcast("message", d, &property.Property{Device: name}, message, func(c Client, _ *property.Property) error {
		return c.SendMessage(b, d, message)
	})
	return nil
}

// SetDeviceToken locks device to clients presenting token. Zero unlocks.
func (b *Bus) SetDeviceToken(device string, token uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if token == 0 {
		delete(b.tokens, device)
		return
	}
	b.tokens[device] = token
}

// SetMasterToken sets the token that unlocks every device. Zero disables it.
func (b *Bus) SetMasterToken(token uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.master = token
}

// Token returns the token a client should present to device: its own
// token if one is set, otherwise the master token.
func (b *Bus) Token(device string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if t, ok := b.tokens[device]; ok {
		return t
	}
	return b.master
}

// Devices returns a snapshot of the attached devices in attachment order.
func (b *Bus) Devices() []Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Device(nil), b.devices...)
}

// Clients returns a snapshot of the attached clients in attachment order.
func (b *Bus) Clients() []Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Client, len(b.clients))
	for i, e := range b.clients {
		out[i] = e.client
	}
	return out
}

// Device returns the attached device with the given name.
func (b *Bus) Device(name string) (Device, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, d := range b.devices {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// Stop detaches every client. It returns ErrBusy, leaving the bus running,
// if devices are still attached; drivers must detach first.
func (b *Bus) Stop() error {
	b.mu.Lock()
	clients := b.clients
	b.clients = nil
	b.updateGauges()
	b.mu.Unlock()

	for _, e := range clients {
		e.detached.Store(true)
		c := e.client
		_ = b.call("detach", c.Name(), func() error { return c.Detach(b) })
		b.logState(log.StateEntityClient, c.Name(), "DETACHED")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.devices) > 0 {
		name := b.devices[0].Name()
		b.logger.Error("can't stop bus, device is attached", "device", name)
		return fmt.Errorf("%w: device %q is attached", ErrBusy, name)
	}
	b.stopped = true
	return nil
}

type accessToken struct {
	device uint64
	master uint64
}

func (t accessToken) locks(presented uint64) bool {
	if t.device == 0 || presented == t.device {
		return false
	}
	return t.master == 0 || presented != t.master
}

// AnyDevice addresses a request to every device, like an empty name.
const AnyDevice = property.AnyDevice

// anyDevice returns filter with AnyDevice replaced by the empty name, so
// devices only ever see one spelling of the wildcard.
func anyDevice(filter *property.Property) *property.Property {
	if filter.Device != AnyDevice {
		return filter
	}
	f := *filter
	f.Device = ""
	return &f
}

// routes reports whether a request addressed to target reaches d. Remote
// adapters are named "@ host" and receive requests for any device named
// "<name> @ host".
func routes(d Device, target string) bool {
	name := d.Name()
	switch {
	case target == "" || target == AnyDevice:
		return true
	case target == name:
		return true
	default:
		return strings.HasPrefix(name, "@") && strings.HasSuffix(target, " "+name)
	}
}

func (b *Bus) route(target string) ([]Device, []accessToken, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return nil, nil, fmt.Errorf("%w: bus stopped", ErrFailed)
	}
	var devices []Device
	var tokens []accessToken
	for _, d := range b.devices {
		if routes(d, target) {
			devices = append(devices, d)
			tokens = append(tokens, accessToken{device: b.tokens[d.Name()], master: b.master})
		}
	}
	return devices, tokens, nil
}

func (b *Bus) checkStarted() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return fmt.Errorf("%w: bus stopped", ErrFailed)
	}
	return nil
}

func (b *Bus) broadcast(kind string, d Device, p *property.Property, message string, fn func(Client, *property.Property) error) {
	b.mu.RLock()
	entries := append([]*clientEntry(nil), b.clients...)
	b.mu.RUnlock()

	var rk log.RecordKind
	switch kind {
	case "define":
		rk = log.RecordDefine
	case "update":
		rk = log.RecordUpdate
	case "delete":
		rk = log.RecordDelete
	default:
		rk = log.RecordMessage
	}
	b.logRecord(log.DirectionOut, rk, p, message)
	b.metrics.Broadcast(kind)

	callback := kind + "_property"
	if kind == "message" {
		callback = "send_message"
	}
	for _, e := range entries {
		b.deliver(e, callback, p, fn)
	}
}

// deliver runs fn for the client of e, or queues it if another delivery to
// that client is in progress. A queued delivery gets its own copy of p
// because the caller may change p as soon as deliver returns.
func (b *Bus) deliver(e *clientEntry, callback string, p *property.Property, fn func(Client, *property.Property) error) {
	e.mu.Lock()
	if e.busy {
		e.queue = append(e.queue, delivery{callback: callback, p: p.Clone(), fn: fn})
		e.mu.Unlock()
		return
	}
	e.busy = true
	e.mu.Unlock()

	next := delivery{callback: callback, p: p, fn: fn}
	for {
		if !e.detached.Load() {
			c := e.client
			_ = b.call(next.callback, c.Name(), func() error { return next.fn(c, next.p) })
		}
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.busy = false
			e.mu.Unlock()
			return
		}
		next = e.queue[0]
		e.queue[0] = delivery{}
		e.queue = e.queue[1:]
		e.mu.Unlock()
	}
}

func (b *Bus) entry(c Client) *clientEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, e := range b.clients {
		if e.client == c {
			return e
		}
	}
	return nil
}

// call runs a participant callback, turning panics into errors. Failures
// are logged and counted; the bus never propagates them to broadcasters.
func (b *Bus) call(callback, participant string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrFailed, callback, r)
		}
		if err != nil {
			b.logger.Warn("callback failed", "callback", callback, "participant", participant, "error", err)
			b.metrics.CallbackError(callback, ResultOf(err).String())
			code := int(ResultOf(err))
			b.plog.Log(log.Event{
				Timestamp: time.Now(),
				Layer:     log.LayerBus,
				Category:  log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerBus,
					Message: err.Error(),
					Code:    &code,
					Context: callback + " " + participant,
				},
			})
		}
	}()
	return fn()
}

func (b *Bus) removeDevice(d Device) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range b.devices {
		if x == d {
			b.devices = append(b.devices[:i], b.devices[i+1:]...)
			b.updateGauges()
			return true
		}
	}
	return false
}

func (b *Bus) removeClient(c Client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.clients {
		if e.client == c {
			e.detached.Store(true)
			b.clients = append(b.clients[:i], b.clients[i+1:]...)
			b.updateGauges()
			return true
		}
	}
	return false
}

// updateGauges must be called with mu held.
func (b *Bus) updateGauges() {
	b.metrics.SetParticipants(len(b.devices), len(b.clients))
}

func (b *Bus) logState(entity log.StateEntity, name, state string) {
	ev := log.Event{
		Timestamp:   time.Now(),
		Layer:       log.LayerBus,
		Category:    log.CategoryState,
		StateChange: &log.StateChangeEvent{Entity: entity, NewState: state},
	}
	if entity == log.StateEntityDevice {
		ev.Device = name
	} else {
		ev.StateChange.Reason = name
	}
	b.plog.Log(ev)
}

func (b *Bus) logRecord(dir log.Direction, kind log.RecordKind, p *property.Property, message string) {
	rec := &log.RecordEvent{Kind: kind, Items: len(p.Items), Message: message}
	if p.Type != 0 {
		rec.Type = p.Type.String()
	}
	if kind == log.RecordDefine || kind == log.RecordUpdate {
		rec.State = p.State.String()
	}
	cat := log.CategoryMessage
	if kind == log.RecordGetProperties {
		cat = log.CategoryControl
	}
	b.plog.Log(log.Event{
		Timestamp: time.Now(),
		Direction: dir,
		Layer:     log.LayerBus,
		Category:  cat,
		Device:    p.Device,
		Property:  p.Name,
		Record:    rec,
	})
}
