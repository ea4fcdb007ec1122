package mirror

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// Connection constants.
const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	maxQoS                   = 2
)

// MessageHandler is the callback signature for received messages. Errors
// are logged.
type MessageHandler func(topic string, payload []byte) error

// Publisher is the broker connection the mirror talks through.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
	Close() error
}

// Config configures the broker connection.
type Config struct {
	// Broker URL, e.g. "tcp://localhost:1883".
	Broker string

	// ClientID defaults to "indigo-" followed by a random UUID.
	ClientID string

	Username string
	Password string

	// TopicPrefix defaults to DefaultTopicPrefix.
	TopicPrefix string

	// QoS used for publishing and subscribing (0..2).
	QoS byte

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ClientID == "" {
		c.ClientID = "indigo-" + uuid.NewString()
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client is a Publisher backed by paho.mqtt.golang. Subscriptions are
// restored after reconnects.
type Client struct {
	client pahomqtt.Client
	cfg    Config
	topics Topics
	logger *slog.Logger

	subMu         sync.RWMutex
	subscriptions map[string]MessageHandler
}

// Connect establishes a connection to the broker. The mirror's status
// topic reads "online" while connected; the broker publishes "offline" as
// the last will.
func Connect(cfg Config) (*Client, error) {
	cfg.defaults()
	if cfg.QoS > maxQoS {
		return nil, fmt.Errorf("%w: qos %d", ErrConnectionFailed, cfg.QoS)
	}
	c := &Client{
		cfg:           cfg,
		topics:        Topics{Prefix: cfg.TopicPrefix},
		logger:        cfg.Logger.With("component", "mqtt", "client_id", cfg.ClientID),
		subscriptions: make(map[string]MessageHandler),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(c.topics.Status(), "offline", cfg.QoS, true)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("broker connection lost", "error", err)
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func (c *Client) handleConnect() {
	c.logger.Info("connected to broker", "broker", c.cfg.Broker)
	c.client.Publish(c.topics.Status(), c.cfg.QoS, true, "online")

	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for topic, handler := range c.subscriptions {
		c.client.Subscribe(topic, c.cfg.QoS, c.wrapHandler(handler))
	}
}

// Publish sends payload to topic and waits for the broker's acknowledgment.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.cfg.QoS, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe registers handler for topic, which may contain wildcards.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.client.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = handler
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, c.cfg.QoS, c.wrapHandler(handler))
	var err error
	if !token.WaitTimeout(defaultPublishTimeout) {
		err = fmt.Errorf("timeout after %v", defaultPublishTimeout)
	} else {
		err = token.Error()
	}
	if err != nil {
		c.subMu.Lock()
		delete(c.subscriptions, topic)
		c.subMu.Unlock()
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// Close publishes the offline status and disconnects.
func (c *Client) Close() error {
	if c.client.IsConnected() {
		token := c.client.Publish(c.topics.Status(), c.cfg.QoS, true, "offline")
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}

// wrapHandler adapts a MessageHandler to paho with panic recovery.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()
		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}

var _ Publisher = (*Client)(nil)
