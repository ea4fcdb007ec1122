package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/timer"
	"github.com/indigo-bus/indigo-go/pkg/version"
)

// ErrInvalidProperty is returned by Define for a property that fails
// validation or belongs to another device.
var ErrInvalidProperty = errors.New("invalid property")

// Standard property and item names.
const (
	MainGroup = "Main"

	ConnectionProperty = "CONNECTION"
	ConnectedItem      = "CONNECTED"
	DisconnectedItem   = "DISCONNECTED"

	InfoProperty      = "DEVICE_INFO"
	InfoNameItem      = "NAME"
	InfoVersionItem   = "VERSION"
	InfoInterfaceItem = "INTERFACE"
)

// Interface is the bitmask published in DEVICE_INFO.INTERFACE.
type Interface uint32

const (
	InterfaceMount   Interface = 1 << 0
	InterfaceCCD     Interface = 1 << 1
	InterfaceGuider  Interface = 1 << 2
	InterfaceFocuser Interface = 1 << 3
	InterfaceWheel   Interface = 1 << 4
	InterfaceDome    Interface = 1 << 5
	InterfaceGPS     Interface = 1 << 6
	InterfaceAO      Interface = 1 << 8
	InterfaceRotator Interface = 1 << 12
	InterfaceAgent   Interface = 1 << 14
	InterfaceAux     Interface = 1 << 15
)

// Config configures a Base.
type Config struct {
	// Version is the driver's own version, major<<8|minor.
	Version uint16

	Interface Interface

	// Slab runs the device's timers. If nil the device gets a private
	// slab whose workers are stopped on Detach.
	Slab *timer.Slab

	// Translator resolves legacy property names. Defaults to
	// version.Default().
	Translator *version.Translator

	Logger *slog.Logger

	// OnConnect is called, with the device lock held, when a client
	// toggles CONNECTION. An error leaves the device in its previous
	// connection state and turns the property Alert.
	OnConnect func(connected bool) error
}

// Base is the property registry of one device plus default
// implementations of the bus.Device callbacks.
type Base struct {
	self       bus.Device
	name       string
	slab       *timer.Slab
	ownSlab    bool
	translator *version.Translator
	logger     *slog.Logger
	onConnect  func(bool) error

	mu    sync.Mutex
	bus   *bus.Bus
	props []*property.Property
	index map[string]*property.Property

	// Connection and Info are the standard properties every device has.
	Connection *property.Property
	Info       *property.Property
}

var _ bus.Device = (*Base)(nil)

// NewBase creates the registry for the device called name and registers
// CONNECTION and DEVICE_INFO. self is the concrete device embedding the
// Base; it is the Device passed to clients on broadcasts. Nil means the
// Base itself.
func NewBase(self bus.Device, name string, cfg Config) *Base {
	d := &Base{
		self:       self,
		name:       name,
		slab:       cfg.Slab,
		translator: cfg.Translator,
		logger:     cfg.Logger,
		onConnect:  cfg.OnConnect,
		index:      make(map[string]*property.Property),
	}
	if d.self == nil {
		d.self = d
	}
	if d.slab == nil {
		d.slab = timer.NewSlab(timer.Config{Logger: cfg.Logger})
		d.ownSlab = true
	}
	if d.translator == nil {
		d.translator = version.Default()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("device", name)

	d.Connection = property.NewSwitch(name, ConnectionProperty, MainGroup, "Connection status",
		property.Idle, property.ReadWrite, property.OneOfMany,
		property.SwitchItem(ConnectedItem, "Connected", false),
		property.SwitchItem(DisconnectedItem, "Disconnected", true),
	)
	d.Info = property.NewText(name, InfoProperty, MainGroup, "Device info",
		property.Idle, property.ReadOnly,
		property.TextItem(InfoNameItem, "Name", name),
		property.TextItem(InfoVersionItem, "Version", fmt.Sprintf("%d.%d.%d.%d",
			version.Current.Major(), version.Current.Minor(), cfg.Version>>8, cfg.Version&0xFF)),
		property.TextItem(InfoInterfaceItem, "Interface", strconv.FormatUint(uint64(cfg.Interface), 10)),
	)
	d.register(d.Connection)
	d.register(d.Info)
	return d
}

// Name returns the device name.
func (d *Base) Name() string { return d.name }

// Lock acquires the device lock.
func (d *Base) Lock() { d.mu.Lock() }

// Unlock releases the device lock.
func (d *Base) Unlock() { d.mu.Unlock() }

// Logger returns the device logger.
func (d *Base) Logger() *slog.Logger { return d.logger }

// Timers returns the slab the device schedules its timers on.
func (d *Base) Timers() *timer.Slab { return d.slab }

// Bus returns the bus the device is attached to, or nil.
func (d *Base) Bus() *bus.Bus { return d.bus }

// Connected reports whether CONNECTION.CONNECTED is on.
func (d *Base) Connected() bool {
	on, _ := d.Connection.Switch(ConnectedItem)
	return on
}

// Define registers p and, once the device is attached, broadcasts it.
func (d *Base) Define(p *property.Property) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	if p.Device != d.name {
		return fmt.Errorf("%w: %s belongs to %q", ErrInvalidProperty, p.Key(), p.Device)
	}
	if _, dup := d.index[p.Name]; dup {
		return fmt.Errorf("%w: %s", bus.ErrDuplicated, p.Key())
	}
	d.register(p)
	if d.bus != nil {
		return d.bus.DefineProperty(d.self, p, "")
	}
	return nil
}

// Delete broadcasts the removal of the named property and forgets it.
func (d *Base) Delete(name, message string) error {
	p, ok := d.index[name]
	if !ok {
		return fmt.Errorf("%w: %s.%s", bus.ErrNotFound, d.name, name)
	}
	delete(d.index, name)
	for i, x := range d.props {
		if x == p {
			d.props = append(d.props[:i], d.props[i+1:]...)
			break
		}
	}
	if d.bus != nil && p.Defined {
		return d.bus.DeleteProperty(d.self, p, message)
	}
	p.Defined = false
	return nil
}

// Update broadcasts the current values of p. It is a no-op while the
// device is detached.
func (d *Base) Update(p *property.Property, message string) error {
	if d.bus == nil {
		return nil
	}
	return d.bus.UpdateProperty(d.self, p, message)
}

// Message sends a device-scoped message to every client.
func (d *Base) Message(message string) error {
	if d.bus == nil {
		return nil
	}
	return d.bus.SendMessage(d.self, message)
}

// Property returns the registered property with the current name name.
func (d *Base) Property(name string) *property.Property {
	return d.index[name]
}

// Lookup returns the property a peer speaking v calls name.
func (d *Base) Lookup(v version.Protocol, name string) *property.Property {
	if p, ok := d.index[name]; ok {
		return p
	}
	return d.index[d.translator.CurrentPropertyName(v, name)]
}

// Properties returns the registered properties in definition order.
func (d *Base) Properties() []*property.Property {
	return append([]*property.Property(nil), d.props...)
}

// SetTimer runs fn after delay on the device's slab. The timer is
// canceled automatically on Detach.
func (d *Base) SetTimer(id int, delay time.Duration, fn func()) (*timer.Timer, error) {
	return d.slab.SetTimer(d.name, id, nil, delay, func(string, int, any, time.Duration) { fn() })
}

// HandleStandard applies patch if it targets one of the standard
// properties and reports whether it did. The caller must hold the lock.
func (d *Base) HandleStandard(patch *property.Property) bool {
	switch patch.Name {
	case ConnectionProperty:
		d.changeConnection(patch)
		return true
	case InfoProperty:
		return true
	}
	return false
}

func (d *Base) changeConnection(patch *property.Property) {
	was := d.Connected()
	d.Connection.CopyValues(patch, false)
	now := d.Connected()
	if now == was || d.onConnect == nil {
		d.Connection.State = property.Ok
		_ = d.Update(d.Connection, "")
		return
	}
	if err := d.onConnect(now); err != nil {
		d.logger.Warn("connection change failed", "connected", now, "error", err)
		d.Connection.SetSwitch(ConnectedItem, was)
		d.Connection.SetSwitch(DisconnectedItem, !was)
		d.Connection.State = property.Alert
		_ = d.Update(d.Connection, err.Error())
		return
	}
	d.logger.Info("connection changed", "connected", now)
	d.Connection.State = property.Ok
	_ = d.Update(d.Connection, "")
}

// Attach records the bus and defines every registered property.
func (d *Base) Attach(b *bus.Bus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bus = b
	for _, p := range d.props {
		if !p.Hidden {
			_ = b.DefineProperty(d.self, p, "")
		}
	}
	d.logger.Debug("device attached", "properties", len(d.props))
	return nil
}

// EnumerateProperties defines every visible property selected by filter
// to the asking client. A legacy filter name resolves to the property it
// aliases.
func (d *Base) EnumerateProperties(b *bus.Bus, c bus.Client, filter *property.Property) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if filter != nil && filter.Name != "" {
		if _, ok := d.index[filter.Name]; !ok {
			f := *filter
			f.Name = d.translator.CurrentPropertyName(version.Legacy, filter.Name)
			filter = &f
		}
	}
	for _, p := range d.props {
		if !p.Hidden && p.Match(filter) {
			_ = b.DefinePropertyTo(c, d.self, p, "")
		}
	}
	return nil
}

// ChangeProperty handles changes of the standard properties and ignores
// everything else.
func (d *Base) ChangeProperty(_ *bus.Bus, _ bus.Client, patch *property.Property) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.HandleStandard(patch)
	return nil
}

// EnableBlob accepts every mode; BLOB filtering is done by the client
// adapters.
func (d *Base) EnableBlob(*bus.Bus, bus.Client, *property.Property, property.BlobMode) error {
	return nil
}

// Detach cancels the device's timers, waiting for running callbacks, and
// marks every property undefined. The bus has already told clients the
// properties are gone.
func (d *Base) Detach(*bus.Bus) error {
	if n := d.slab.CancelAll(d.name); n > 0 {
		d.logger.Debug("timers canceled", "count", n)
	}
	d.mu.Lock()
	for _, p := range d.props {
		p.Defined = false
	}
	d.bus = nil
	d.mu.Unlock()
	if d.ownSlab {
		d.slab.Close()
		d.slab = timer.NewSlab(timer.Config{Logger: d.logger})
	}
	d.logger.Debug("device detached")
	return nil
}

func (d *Base) register(p *property.Property) {
	d.props = append(d.props, p)
	d.index[p.Name] = p
}
