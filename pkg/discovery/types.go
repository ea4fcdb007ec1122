package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of property bus servers.
	ServiceType = "_indigo._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default server port.
	DefaultPort = 7624
)

// TXT record key constants.
const (
	TXTKeyVersion = "ver"
	TXTKeyDevices = "dev"
	TXTKeyID      = "id"
)

// Timing constants.
const (
	// DefaultTTL is the record TTL used when the config leaves it zero.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout bounds Find when the context carries no deadline.
	BrowseTimeout = 10 * time.Second
)

// MaxInstanceNameLen is the DNS label limit.
const MaxInstanceNameLen = 63

// Errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// ServerInfo is what a server advertises.
type ServerInfo struct {
	// Instance is the friendly server name.
	Instance string

	// Port the XML listener is bound to. Zero selects DefaultPort.
	Port uint16

	// Version is the highest protocol version spoken, e.g. "2.0".
	Version string

	// Devices is the number of attached devices.
	Devices int

	// ID identifies the server process.
	ID string
}

// Service is a server found by browsing.
type Service struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	Version   string
	Devices   int
	ID        string
}

// Address returns a dialable "host:port" for the service, preferring the
// first resolved address over the host name.
func (s *Service) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}
