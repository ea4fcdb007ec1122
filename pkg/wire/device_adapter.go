package wire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/version"
)

// DefaultPort is the registered TCP port of the protocol.
const DefaultPort = 7624

// RemoteDevice is a bus.Device standing for every device of a remote
// server. It is named "@ host"; the devices it mirrors appear on the local
// bus as "name @ host", which the bus routes back to it.
type RemoteDevice struct {
	s       *stream
	bus     *bus.Bus
	name    string
	suffix  string
	tr      *version.Translator
	reshare bool

	mu      sync.Mutex
	version version.Protocol
	props   []*property.Property

	done chan struct{}
	err  error
}

var _ bus.Device = (*RemoteDevice)(nil)

// NewRemoteDevice wraps a connection to a remote server. host names the
// server in device names. The caller attaches it to b and then runs Serve.
func NewRemoteDevice(b *bus.Bus, rwc io.ReadWriteCloser, host string, cfg Config) *RemoteDevice {
	cfg.defaults()
	if cfg.Name == "" {
		cfg.Name = host
	}
	return &RemoteDevice{
		s:       newStream(rwc, log.RoleClient, cfg),
		bus:     b,
		name:    "@ " + cfg.Name,
		suffix:  " @ " + cfg.Name,
		tr:      cfg.Translator,
		reshare: cfg.Reshare,
		version: version.Legacy,
		done:    make(chan struct{}),
	}
}

// Dial connects to the server at addr and runs Connect on the connection.
// A missing port selects DefaultPort. ctx bounds both the dial and the
// life of the connection.
func Dial(ctx context.Context, b *bus.Bus, addr string, cfg Config) (*RemoteDevice, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if cfg.RemoteAddr == "" {
		cfg.RemoteAddr = conn.RemoteAddr().String()
	}
	if cfg.ConnID == "" {
		cfg.ConnID = uuid.NewString()
	}
	return Connect(ctx, b, conn, host, cfg)
}

// Connect attaches a RemoteDevice for the server on rwc to b, asks for
// every property and serves the connection in a goroutine until it ends
// or ctx is cancelled. rwc is closed on failure.
func Connect(ctx context.Context, b *bus.Bus, rwc io.ReadWriteCloser, host string, cfg Config) (*RemoteDevice, error) {
	d := NewRemoteDevice(b, rwc, host, cfg)
	if err := b.AttachDevice(d); err != nil {
		_ = rwc.Close()
		return nil, err
	}
	// Serve must be reading before the request goes out: on a synchronous
	// pipe the reply would otherwise block the server.
	go func() {
		_ = d.Serve(ctx)
	}()
	var buf bytes.Buffer
	d.encoder().GetProperties(&buf, "", "", "")
	if err := d.s.send(&buf, log.RecordGetProperties, &log.RecordEvent{Version: version.Legacy.String()}, "", ""); err != nil {
		_ = d.Close()
		<-d.done
		return nil, fmt.Errorf("send getProperties: %w", err)
	}
	return d, nil
}

func (d *RemoteDevice) isRemote() {}

// Name returns "@ host".
func (d *RemoteDevice) Name() string { return d.name }

// Version returns the version the server speaks to us.
func (d *RemoteDevice) Version() version.Protocol {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Properties returns copies of the cached remote properties in definition
// order.
func (d *RemoteDevice) Properties() []*property.Property {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*property.Property, len(d.props))
	for i, p := range d.props {
		out[i] = p.Clone()
	}
	return out
}

// Done is closed when Serve returns.
func (d *RemoteDevice) Done() <-chan struct{} { return d.done }

// Err returns the error Serve ended with. It is valid after Done is closed.
func (d *RemoteDevice) Err() error {
	<-d.done
	return d.err
}

// Close ends the connection.
func (d *RemoteDevice) Close() error {
	return d.s.close()
}

func (d *RemoteDevice) encoder() Encoder {
	return Encoder{Version: d.Version(), Translator: d.tr}
}

// remoteName strips the host suffix from a local device name. The empty
// name and "*" select every remote device.
func (d *RemoteDevice) remoteName(local string) (string, bool) {
	if local == "" || local == "*" {
		return "", true
	}
	return strings.CutSuffix(local, d.suffix)
}

// refuse reports whether a request from c must not reach the remote
// server.
func (d *RemoteDevice) refuse(c bus.Client) bool {
	return c != nil && isRemote(c) && !d.reshare
}

func (d *RemoteDevice) Attach(b *bus.Bus) error {
	d.s.logger.Debug("remote device attached", "device", d.name)
	return nil
}

func (d *RemoteDevice) EnumerateProperties(b *bus.Bus, c bus.Client, filter *property.Property) error {
	if d.refuse(c) {
		return nil
	}
	device, ok := d.remoteName(filter.Device)
	if !ok {
		return nil
	}
	client := ""
	if c != nil {
		client = c.Name()
	}
	enc := d.encoder()
	var buf bytes.Buffer
	enc.GetProperties(&buf, device, filter.Name, client)
	return d.s.send(&buf, log.RecordGetProperties, &log.RecordEvent{Version: enc.Version.String()}, filter.Device, filter.Name)
}

func (d *RemoteDevice) ChangeProperty(b *bus.Bus, c bus.Client, patch *property.Property) error {
	if d.refuse(c) {
		return nil
	}
	device, ok := d.remoteName(patch.Device)
	if !ok || device == "" {
		return nil
	}
	enc := d.encoder()
	var buf bytes.Buffer
	if !enc.Change(&buf, device, patch) {
		return fmt.Errorf("%w: %s vectors cannot be changed", bus.ErrFailed, patch.Type)
	}
	return d.s.send(&buf, log.RecordChange, recordEvent(patch, enc.Version, ""), patch.Device, patch.Name)
}

func (d *RemoteDevice) EnableBlob(b *bus.Bus, c bus.Client, filter *property.Property, mode property.BlobMode) error {
	if d.refuse(c) {
		return nil
	}
	device, ok := d.remoteName(filter.Device)
	if !ok {
		return nil
	}
	var devices []string
	if device != "" {
		devices = []string{device}
	} else {
		for _, local := range d.cachedDevices() {
			name, _ := strings.CutSuffix(local, d.suffix)
			devices = append(devices, name)
		}
	}
	enc := d.encoder()
	for _, dev := range devices {
		var buf bytes.Buffer
		enc.EnableBlob(&buf, dev, filter.Name, mode)
		if err := d.s.send(&buf, log.RecordEnableBlob, &log.RecordEvent{Mode: mode.String()}, dev+d.suffix, filter.Name); err != nil {
			return err
		}
	}
	return nil
}

// Detach closes the connection, which ends Serve.
func (d *RemoteDevice) Detach(b *bus.Bus) error {
	if err := d.s.close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Serve replays records from the remote server on the local bus until the
// connection ends. It then deletes every mirrored property, detaches the
// device and closes the connection. A clean end of stream returns nil.
func (d *RemoteDevice) Serve(ctx context.Context) error {
	defer close(d.done)
	stop := context.AfterFunc(ctx, func() { _ = d.s.close() })
	defer stop()

	err := d.s.readLoop(d.handle)
	for _, dev := range d.cachedDevices() {
		_ = d.bus.DeleteProperty(d, &property.Property{Device: dev}, "")
	}
	d.mu.Lock()
	d.props = nil
	d.mu.Unlock()
	if derr := d.bus.DetachDevice(d); derr != nil && !errors.Is(derr, bus.ErrNotFound) {
		d.s.logger.Warn("detach failed", "device", d.name, "error", derr)
	}
	_ = d.s.close()
	d.err = err
	return err
}

func (d *RemoteDevice) handle(r *Record) {
	switch r.Tag {
	case "delProperty":
		d.deleteProperty(r)
	case "message":
		d.message(r)
	case "switchProtocol":
		d.switchProtocol(r)
	default:
		verb, _, ok := vectorType(r.Tag)
		switch {
		case ok && verb == "def":
			d.define(r)
		case ok && verb == "set":
			d.update(r)
		default:
			d.s.logger.Debug("record ignored", "tag", r.Tag)
		}
	}
}

// decode reads a vector and moves it under the host suffix.
func (d *RemoteDevice) decode(r *Record) (*property.Property, version.Protocol, bool) {
	v := d.Version()
	p, skipped, err := DecodeVector(r, v, d.tr)
	if err != nil {
		d.s.logger.Warn("record dropped", "tag", r.Tag, "error", err)
		d.s.captureError(err, r.Tag)
		return nil, v, false
	}
	for _, e := range skipped {
		d.s.logger.Warn("item skipped", "device", p.Device, "property", p.Name, "error", e)
	}
	if p.Device == "" || p.Name == "" {
		d.s.logger.Warn("record dropped", "tag", r.Tag, "error", ErrMalformed)
		return nil, v, false
	}
	p.Device += d.suffix
	return p, v, true
}

// find must be called with mu held.
func (d *RemoteDevice) find(device, name string) int {
	for i, p := range d.props {
		if p.Device == device && p.Name == name {
			return i
		}
	}
	return -1
}

func (d *RemoteDevice) cachedDevices() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	seen := make(map[string]struct{})
	for _, p := range d.props {
		if _, ok := seen[p.Device]; !ok {
			seen[p.Device] = struct{}{}
			out = append(out, p.Device)
		}
	}
	return out
}

func (d *RemoteDevice) define(r *Record) {
	p, v, ok := d.decode(r)
	if !ok {
		return
	}
	message := r.Attr("message")
	d.s.capture(log.DirectionIn, log.RecordDefine, recordEvent(p, v, message), p.Device, p.Name, nil)
	p.Defined = true

	d.mu.Lock()
	if i := d.find(p.Device, p.Name); i >= 0 {
		d.props[i] = p
	} else {
		d.props = append(d.props, p)
	}
	out := p.Clone()
	d.mu.Unlock()

	if err := d.bus.DefineProperty(d, out, message); err != nil {
		d.s.logger.Debug("define failed", "device", p.Device, "property", p.Name, "error", err)
	}
}

func (d *RemoteDevice) update(r *Record) {
	p, v, ok := d.decode(r)
	if !ok {
		return
	}
	message := r.Attr("message")
	d.s.capture(log.DirectionIn, log.RecordUpdate, recordEvent(p, v, message), p.Device, p.Name, nil)

	d.mu.Lock()
	i := d.find(p.Device, p.Name)
	if i < 0 {
		d.mu.Unlock()
		d.s.logger.Debug("update for unknown property", "device", p.Device, "property", p.Name)
		return
	}
	cached := d.props[i]
	if cached.Type != p.Type {
		d.mu.Unlock()
		d.s.logger.Warn("update type mismatch", "device", p.Device, "property", p.Name, "type", p.Type)
		return
	}
	if r.Attr("state") == "" {
		p.State = cached.State
	}
	merge(cached, p)
	out := cached.Clone()
	d.mu.Unlock()

	if err := d.bus.UpdateProperty(d, out, message); err != nil {
		d.s.logger.Debug("update failed", "device", p.Device, "property", p.Name, "error", err)
	}
}

func (d *RemoteDevice) deleteProperty(r *Record) {
	device := r.Attr("device")
	if device == "" {
		return
	}
	p := &property.Property{
		Device: device + d.suffix,
		Name:   d.tr.CurrentPropertyName(d.Version(), r.Attr("name")),
	}
	message := r.Attr("message")
	d.s.capture(log.DirectionIn, log.RecordDelete, &log.RecordEvent{Message: message}, p.Device, p.Name, nil)

	d.mu.Lock()
	kept := d.props[:0]
	removed := 0
	for _, x := range d.props {
		if x.Device == p.Device && (p.Name == "" || x.Name == p.Name) {
			removed++
			continue
		}
		kept = append(kept, x)
	}
	clear(d.props[len(kept):])
	d.props = kept
	d.mu.Unlock()

	if removed == 0 {
		return
	}
	if err := d.bus.DeleteProperty(d, p, message); err != nil {
		d.s.logger.Debug("delete failed", "device", p.Device, "property", p.Name, "error", err)
	}
}

func (d *RemoteDevice) message(r *Record) {
	message := r.Attr("message")
	var from bus.Device = d
	device := r.Attr("device")
	if device != "" {
		from = &mirroredDevice{RemoteDevice: d, name: device + d.suffix}
	}
	d.s.capture(log.DirectionIn, log.RecordMessage, &log.RecordEvent{Message: message}, from.Name(), "", nil)
	if err := d.bus.SendMessage(from, message); err != nil {
		d.s.logger.Debug("message failed", "error", err)
	}
}

func (d *RemoteDevice) switchProtocol(r *Record) {
	v, err := version.ParseProtocol(r.Attr("version"))
	if err != nil {
		d.s.logger.Warn("switchProtocol ignored", "error", err)
		return
	}
	d.mu.Lock()
	old := d.version
	d.version = v
	d.mu.Unlock()
	d.s.capture(log.DirectionIn, log.RecordSwitchProtocol, &log.RecordEvent{Version: v.String()}, "", "", nil)
	if old != v {
		d.s.logger.Debug("protocol switched", "device", d.name, "version", v.String())
		d.s.captureState(old.String(), v.String(), "switchProtocol")
	}
}

// mirroredDevice names one device of the remote server in messages sent
// on the local bus.
type mirroredDevice struct {
	*RemoteDevice
	name string
}

func (m *mirroredDevice) Name() string { return m.name }

// merge applies an update from the remote server to the cached definition.
// Limits are taken only when sent; values are clamped to the limits.
func merge(dst, src *property.Property) {
	dst.State = src.State
	if dst.Type == property.SwitchVector && dst.Rule != property.AnyOfMany {
		for i := range dst.Items {
			dst.Items[i].Switch = false
		}
	}
	for j := range src.Items {
		s := &src.Items[j]
		it := dst.Item(s.Name)
		if it == nil {
			continue
		}
		switch dst.Type {
		case property.TextVector:
			it.Text = s.Text
		case property.NumberVector:
			n := &it.Number
			if !math.IsNaN(s.Number.Min) {
				n.Min = s.Number.Min
			}
			if !math.IsNaN(s.Number.Max) {
				n.Max = s.Number.Max
			}
			if !math.IsNaN(s.Number.Step) {
				n.Step = s.Number.Step
			}
			n.Value = s.Number.Value
			if n.Min < n.Max {
				n.Value = max(n.Min, min(n.Max, n.Value))
			}
			n.Target = s.Number.Target
		case property.SwitchVector:
			it.Switch = s.Switch
		case property.LightVector:
			it.Light = s.Light
		case property.BlobVector:
			it.Blob = s.Blob
		}
	}
}
