package wire

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/log"
	"github.com/indigo-bus/indigo-go/pkg/property"
	"github.com/indigo-bus/indigo-go/pkg/version"
)

// blobRule is one enableBLOB record received from a client.
type blobRule struct {
	device string
	name   string
	mode   property.BlobMode
}

func (r blobRule) matches(p *property.Property) bool {
	return (r.device == "" || r.device == p.Device) && (r.name == "" || r.name == p.Name)
}

// RemoteClient is a bus.Client serving one client connected over the wire.
//
// A client sees a property only after asking for it: defines are forwarded
// when they match one of its getProperties filters, and updates and
// deletes only for properties it has been sent a define for.
type RemoteClient struct {
	s       *stream
	bus     *bus.Bus
	name    string
	tr      *version.Translator
	reshare bool

	mu        sync.Mutex
	version   version.Protocol
	interests []*property.Property
	defined   map[string]map[string]struct{}
	blobs     []blobRule
}

var _ bus.Client = (*RemoteClient)(nil)

// NewRemoteClient wraps a client connection. The caller attaches it to b
// and then runs Serve.
func NewRemoteClient(b *bus.Bus, rwc io.ReadWriteCloser, cfg Config) *RemoteClient {
	cfg.defaults()
	if cfg.Name == "" {
		cfg.Name = "@ " + cfg.RemoteAddr
	}
	return &RemoteClient{
		s:       newStream(rwc, log.RoleServer, cfg),
		bus:     b,
		name:    cfg.Name,
		tr:      cfg.Translator,
		reshare: cfg.Reshare,
		defined: make(map[string]map[string]struct{}),
	}
}

func (c *RemoteClient) isRemote() {}

// Name returns the participant name.
func (c *RemoteClient) Name() string { return c.name }

// Version returns the protocol version negotiated so far.
func (c *RemoteClient) Version() version.Protocol {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *RemoteClient) Attach(b *bus.Bus) error {
	c.s.logger.Debug("remote client attached", "client", c.name)
	return nil
}

// Detach closes the connection, which ends Serve.
func (c *RemoteClient) Detach(b *bus.Bus) error {
	if err := c.s.close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// skip reports whether broadcasts from d stay off this connection.
func (c *RemoteClient) skip(d bus.Device) bool {
	return d != nil && isRemote(d) && !c.reshare
}

func (c *RemoteClient) encoder(v version.Protocol) Encoder {
	return Encoder{Version: v, Translator: c.tr}
}

// interested must be called with mu held.
func (c *RemoteClient) interested(p *property.Property) bool {
	for _, f := range c.interests {
		if (f.Device == "" || f.Device == p.Device) && (f.Name == "" || f.Name == p.Name) {
			return true
		}
	}
	return false
}

// sent must be called with mu held.
func (c *RemoteClient) sent(p *property.Property) bool {
	_, ok := c.defined[p.Device][p.Name]
	return ok
}

func (c *RemoteClient) DefineProperty(b *bus.Bus, d bus.Device, p *property.Property, message string) error {
	if c.skip(d) {
		return nil
	}
	c.mu.Lock()
	v := c.version
	if v == version.None || !c.interested(p) {
		c.mu.Unlock()
		return nil
	}
	names, ok := c.defined[p.Device]
	if !ok {
		names = make(map[string]struct{})
		c.defined[p.Device] = names
	}
	names[p.Name] = struct{}{}
	c.mu.Unlock()

	var buf bytes.Buffer
	c.encoder(v).Define(&buf, p, message)
	return c.s.send(&buf, log.RecordDefine, recordEvent(p, v, message), p.Device, p.Name)
}

func (c *RemoteClient) UpdateProperty(b *bus.Bus, d bus.Device, p *property.Property, message string) error {
	if c.skip(d) {
		return nil
	}
	c.mu.Lock()
	v := c.version
	if v == version.None || !c.sent(p) {
		c.mu.Unlock()
		return nil
	}
	mode := c.blobModeLocked(p)
	c.mu.Unlock()

	var buf bytes.Buffer
	if !c.encoder(v).Update(&buf, p, message, mode) {
		return nil
	}
	return c.s.send(&buf, log.RecordUpdate, recordEvent(p, v, message), p.Device, p.Name)
}

func (c *RemoteClient) DeleteProperty(b *bus.Bus, d bus.Device, p *property.Property, message string) error {
	if c.skip(d) {
		return nil
	}
	c.mu.Lock()
	v := c.version
	if v == version.None {
		c.mu.Unlock()
		return nil
	}
	if p.Name == "" {
		if len(c.defined[p.Device]) == 0 {
			c.mu.Unlock()
			return nil
		}
		delete(c.defined, p.Device)
	} else {
		if !c.sent(p) {
			c.mu.Unlock()
			return nil
		}
		delete(c.defined[p.Device], p.Name)
		if len(c.defined[p.Device]) == 0 {
			delete(c.defined, p.Device)
		}
	}
	c.mu.Unlock()

	var buf bytes.Buffer
	c.encoder(v).Delete(&buf, p, message)
	return c.s.send(&buf, log.RecordDelete, recordEvent(p, v, message), p.Device, p.Name)
}

func (c *RemoteClient) SendMessage(b *bus.Bus, d bus.Device, message string) error {
	if c.skip(d) {
		return nil
	}
	device := ""
	if d != nil {
		device = d.Name()
	}
	c.mu.Lock()
	v := c.version
	known := device == "" || len(c.defined[device]) > 0
	c.mu.Unlock()
	if v == version.None || !known {
		return nil
	}

	var buf bytes.Buffer
	c.encoder(v).Message(&buf, device, message)
	return c.s.send(&buf, log.RecordMessage, &log.RecordEvent{Message: message, Version: v.String()}, device, "")
}

// Serve reads records from the connection until it ends, then detaches the
// client from the bus and closes the connection. Cancelling ctx closes the
// connection. A clean end of stream returns nil.
func (c *RemoteClient) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = c.s.close() })
	defer stop()

	err := c.s.readLoop(c.handle)
	if derr := c.bus.DetachClient(c); derr != nil && !errors.Is(derr, bus.ErrNotFound) {
		c.s.logger.Warn("detach failed", "client", c.name, "error", derr)
	}
	_ = c.s.close()
	return err
}

func (c *RemoteClient) handle(r *Record) {
	switch r.Tag {
	case "getProperties":
		c.getProperties(r)
	case "enableBLOB":
		c.enableBlob(r)
	default:
		if verb, _, ok := vectorType(r.Tag); ok && verb == "new" {
			c.change(r)
			return
		}
		c.s.logger.Debug("record ignored", "tag", r.Tag)
	}
}

// peerVersion is the version used to read names from the client. A client
// that has not negotiated yet is read as legacy.
func (c *RemoteClient) peerVersion() version.Protocol {
	v := c.Version()
	if v == version.None {
		return version.Legacy
	}
	return v
}

func (c *RemoteClient) getProperties(r *Record) {
	c.mu.Lock()
	old := c.version
	switched := false
	if old == version.None {
		// The first request fixes the version for the connection.
		c.version = version.Legacy
		if v, err := version.ParseProtocol(r.Attr("version")); err == nil {
			c.version = v
		}
		if v, err := version.ParseProtocol(r.Attr("switch")); err == nil && v > c.version {
			c.version = min(v, version.Current)
			switched = true
		}
	}
	v := c.version
	filter := &property.Property{
		Device: anyDevice(r.Attr("device")),
		Name:   c.tr.CurrentPropertyName(v, r.Attr("name")),
	}
	known := false
	for _, f := range c.interests {
		if f.Device == filter.Device && f.Name == filter.Name {
			known = true
			break
		}
	}
	if !known {
		c.interests = append(c.interests, filter)
	}
	c.mu.Unlock()

	c.s.capture(log.DirectionIn, log.RecordGetProperties, &log.RecordEvent{Version: v.String()}, filter.Device, filter.Name, nil)
	if old != v {
		c.s.logger.Debug("protocol negotiated", "client", c.name, "version", v.String(), "peer", r.Attr("client"))
		c.s.captureState(protocolState(old), v.String(), "getProperties")
	}
	if switched {
		var buf bytes.Buffer
		c.encoder(v).SwitchProtocol(&buf)
		if err := c.s.send(&buf, log.RecordSwitchProtocol, &log.RecordEvent{Version: v.String()}, "", ""); err != nil {
			return
		}
	}
	if err := c.bus.EnumerateProperties(c, filter); err != nil {
		c.s.logger.Debug("enumerate failed", "error", err)
	}
}

func (c *RemoteClient) change(r *Record) {
	v := c.peerVersion()
	p, skipped, err := DecodeVector(r, v, c.tr)
	if err != nil {
		c.s.logger.Warn("change request dropped", "tag", r.Tag, "error", err)
		c.s.captureError(err, r.Tag)
		return
	}
	for _, e := range skipped {
		c.s.logger.Warn("item skipped", "device", p.Device, "property", p.Name, "error", e)
	}
	c.s.capture(log.DirectionIn, log.RecordChange, recordEvent(p, v, ""), p.Device, p.Name, nil)
	if err := c.bus.ChangeProperty(c, p); err != nil {
		c.s.logger.Debug("change rejected", "device", p.Device, "property", p.Name, "error", err)
	}
}

func (c *RemoteClient) enableBlob(r *Record) {
	v := c.peerVersion()
	mode, err := property.ParseBlobMode(stripSpace(r.Text))
	if err != nil {
		c.s.logger.Warn("enableBLOB ignored", "error", err)
		return
	}
	rule := blobRule{
		device: anyDevice(r.Attr("device")),
		name:   c.tr.CurrentPropertyName(v, r.Attr("name")),
		mode:   mode,
	}

	c.mu.Lock()
	kept := c.blobs[:0]
	for _, x := range c.blobs {
		if x.device == rule.device && (rule.name == "" || x.name == "" || x.name == rule.name) {
			continue
		}
		kept = append(kept, x)
	}
	c.blobs = kept
	if mode != property.BlobNever {
		c.blobs = append([]blobRule{rule}, c.blobs...)
	}
	c.mu.Unlock()

	c.s.capture(log.DirectionIn, log.RecordEnableBlob, &log.RecordEvent{Mode: mode.String()}, rule.device, rule.name, nil)
	filter := &property.Property{Device: rule.device, Name: rule.name}
	if err := c.bus.EnableBlob(c, filter, mode); err != nil {
		c.s.logger.Debug("enableBLOB failed", "error", err)
	}
}

// BlobMode returns the delivery mode in effect for p.
func (c *RemoteClient) BlobMode(p *property.Property) property.BlobMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blobModeLocked(p)
}

// blobModeLocked must be called with mu held. The newest matching record
// wins.
func (c *RemoteClient) blobModeLocked(p *property.Property) property.BlobMode {
	for _, r := range c.blobs {
		if r.matches(p) {
			return r.mode
		}
	}
	return property.BlobNever
}

// anyDevice maps the "*" wildcard a client may send to the empty name
// used by interest and BLOB filters.
func anyDevice(device string) string {
	if device == bus.AnyDevice {
		return ""
	}
	return device
}

func protocolState(v version.Protocol) string {
	if v == version.None {
		return ""
	}
	return v.String()
}
