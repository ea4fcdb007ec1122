package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/indigo-bus/indigo-go/pkg/bus"
	"github.com/indigo-bus/indigo-go/pkg/property"
)

// DefaultName is the client name the mirror attaches under.
const DefaultName = "MQTT mirror"

// Options configures a Mirror.
type Options struct {
	Name        string
	TopicPrefix string
	Logger      *slog.Logger

	// Token is presented with every change request. Devices locked with
	// another token reject requests from the broker.
	Token uint64
}

// Mirror is a bus client that publishes every property it sees and turns
// set topics into change requests.
type Mirror struct {
	pub    Publisher
	name   string
	topics Topics
	logger *slog.Logger
	token  uint64

	mu    sync.Mutex
	bus   *bus.Bus
	props map[string]*property.Property
}

// New creates a mirror publishing through pub. Attach it with
// bus.AttachClient.
func New(pub Publisher, opts Options) *Mirror {
	if opts.Name == "" {
		opts.Name = DefaultName
	}
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Mirror{
		pub:    pub,
		name:   opts.Name,
		topics: Topics{Prefix: opts.TopicPrefix},
		logger: opts.Logger.With("component", "mirror"),
		token:  opts.Token,
		props:  make(map[string]*property.Property),
	}
}

func (m *Mirror) Name() string { return m.name }

func (m *Mirror) key(device, name string) string {
	return Segment(device) + "/" + Segment(name)
}

// Attach subscribes to the set topics and asks every device for its
// properties.
func (m *Mirror) Attach(b *bus.Bus) error {
	m.mu.Lock()
	m.bus = b
	m.mu.Unlock()

	if err := m.pub.Subscribe(m.topics.AllSets(), m.handleSet); err != nil {
		return err
	}
	return b.EnumerateProperties(m, nil)
}

func (m *Mirror) DefineProperty(_ *bus.Bus, _ bus.Device, p *property.Property, message string) error {
	m.mu.Lock()
	m.props[m.key(p.Device, p.Name)] = p.Clone()
	m.mu.Unlock()
	return m.publish(p, message)
}

func (m *Mirror) UpdateProperty(_ *bus.Bus, _ bus.Device, p *property.Property, message string) error {
	m.mu.Lock()
	cached, ok := m.props[m.key(p.Device, p.Name)]
	if ok {
		cached.State = p.State
		for i := range p.Items {
			if dst := cached.Item(p.Items[i].Name); dst != nil {
				*dst = p.Items[i]
			}
		}
		p = cached.Clone()
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.publish(p, message)
}

// DeleteProperty clears the retained state of the deleted properties.
func (m *Mirror) DeleteProperty(_ *bus.Bus, _ bus.Device, p *property.Property, _ string) error {
	var gone []*property.Property
	m.mu.Lock()
	for k, x := range m.props {
		if x.Device == p.Device && (p.Name == "" || x.Name == p.Name) {
			gone = append(gone, x)
			delete(m.props, k)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, x := range gone {
		if err := m.pub.Publish(m.topics.Property(x.Device, x.Name), nil, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type messagePayload struct {
	Device  string `json:"device,omitempty"`
	Message string `json:"message"`
}

func (m *Mirror) SendMessage(_ *bus.Bus, d bus.Device, message string) error {
	msg := messagePayload{Message: message}
	if d != nil {
		msg.Device = d.Name()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return m.pub.Publish(m.topics.Message(), payload, false)
}

// Detach drops the cache and closes the publisher.
func (m *Mirror) Detach(_ *bus.Bus) error {
	m.mu.Lock()
	m.props = make(map[string]*property.Property)
	m.bus = nil
	m.mu.Unlock()
	return m.pub.Close()
}

func (m *Mirror) publish(p *property.Property, message string) error {
	payload, err := EncodeState(p, message)
	if err != nil {
		return fmt.Errorf("encode %s.%s: %w", p.Device, p.Name, err)
	}
	return m.pub.Publish(m.topics.Property(p.Device, p.Name), payload, true)
}

// handleSet is the MessageHandler of the set topics.
func (m *Mirror) handleSet(topic string, payload []byte) error {
	device, name, ok := m.topics.ParseSet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}
	m.mu.Lock()
	b := m.bus
	p, ok := m.props[device+"/"+name]
	if ok {
		p = p.Clone()
	}
	m.mu.Unlock()
	if !ok || b == nil {
		return fmt.Errorf("%w: %s/%s", ErrUnknownProperty, device, name)
	}

	req, err := DecodeRequest(p, payload)
	if err != nil {
		return err
	}
	req.AccessToken = m.token
	m.logger.Debug("forwarding change", "device", p.Device, "property", p.Name, "items", len(req.Items))
	return b.ChangeProperty(m, req)
}

var _ bus.Client = (*Mirror)(nil)
