package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/indigo-bus/indigo-go/pkg/simulator"
)

// Config is the server configuration. It is read from an optional YAML
// file; flags given on the command line override it.
type Config struct {
	Listen        string `yaml:"listen"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	ProtocolLog   string `yaml:"protocol_log"`
	MetricsListen string `yaml:"metrics_listen"`

	MDNS     bool   `yaml:"mdns"`
	MDNSName string `yaml:"mdns_name"`

	// Simulator is the name of the simulator device; empty disables it.
	Simulator string `yaml:"simulator"`

	MQTT MQTTConfig `yaml:"mqtt"`

	// RemoteServers are dialed at startup and redialed when lost. Their
	// devices appear locally as "name @ host".
	RemoteServers []string `yaml:"remote_servers"`

	Reshare     bool   `yaml:"reshare"`
	MasterToken uint64 `yaml:"master_token"`
}

// MQTTConfig configures the MQTT mirror. An empty broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
}

func defaultConfig() *Config {
	return &Config{
		Listen:    ":7624",
		LogLevel:  "info",
		LogFormat: "text",
		Simulator: simulator.DefaultName,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INDIGO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := os.Getenv("INDIGO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("listen: %v", err))
	}
	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			errs = append(errs, fmt.Sprintf("metrics_listen: %v", err))
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	for _, r := range c.RemoteServers {
		if strings.TrimSpace(r) == "" {
			errs = append(errs, "remote_servers: empty address")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// flags holds the command line. Only flags that were set override the
// file.
type flags struct {
	set        *flag.FlagSet
	configFile string
	values     Config
	mqttBroker string
	remotes    []string
}

func newFlags() *flags {
	f := &flags{set: flag.NewFlagSet("indigo-server", flag.ContinueOnError)}
	fs := f.set
	fs.StringVar(&f.configFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&f.values.Listen, "listen", ":7624", "Listen address")
	fs.StringVar(&f.values.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.StringVar(&f.values.LogFormat, "log-format", "text", "Log format: text, json")
	fs.StringVar(&f.values.ProtocolLog, "protocol-log", "", "Write a protocol capture to this file")
	fs.StringVar(&f.values.MetricsListen, "metrics-listen", "", "Serve /metrics and /health on this address")
	fs.BoolVar(&f.values.MDNS, "mdns", false, "Advertise the server over mDNS")
	fs.StringVar(&f.values.MDNSName, "mdns-name", "", "mDNS instance name (default: host name)")
	fs.StringVar(&f.values.Simulator, "simulator", simulator.DefaultName, "Simulator device name; empty disables it")
	fs.StringVar(&f.mqttBroker, "mqtt-broker", "", "Mirror properties to this MQTT broker, e.g. tcp://localhost:1883")
	fs.Func("remote", "Connect to a remote server at host[:port]; repeatable", func(v string) error {
		f.remotes = append(f.remotes, v)
		return nil
	})
	fs.BoolVar(&f.values.Reshare, "reshare", false, "Share remote devices with other remote clients")
	fs.Uint64Var(&f.values.MasterToken, "master-token", 0, "Master access token; 0 disables it")
	return f
}

// apply copies every flag given on the command line into cfg.
func (f *flags) apply(cfg *Config) {
	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "listen":
			cfg.Listen = f.values.Listen
		case "log-level":
			cfg.LogLevel = f.values.LogLevel
		case "log-format":
			cfg.LogFormat = f.values.LogFormat
		case "protocol-log":
			cfg.ProtocolLog = f.values.ProtocolLog
		case "metrics-listen":
			cfg.MetricsListen = f.values.MetricsListen
		case "mdns":
			cfg.MDNS = f.values.MDNS
		case "mdns-name":
			cfg.MDNSName = f.values.MDNSName
		case "simulator":
			cfg.Simulator = f.values.Simulator
		case "mqtt-broker":
			cfg.MQTT.Broker = f.mqttBroker
		case "remote":
			cfg.RemoteServers = append(cfg.RemoteServers, f.remotes...)
		case "reshare":
			cfg.Reshare = f.values.Reshare
		case "master-token":
			cfg.MasterToken = f.values.MasterToken
		}
	})
}

// loadConfig parses args, loads the file they name and applies the flag
// overrides.
func loadConfig(args []string) (*Config, error) {
	f := newFlags()
	if err := f.set.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := LoadConfig(f.configFile)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}
