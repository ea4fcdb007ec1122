// Package version provides protocol version negotiation and the legacy
// name translator.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol is a negotiated wire protocol version, encoded as major<<8|minor.
type Protocol uint16

const (
	// None means no version has been negotiated yet. Peers in this state
	// receive nothing.
	None Protocol = 0

	// Legacy is the 1.7 generation of the XML protocol, with its own
	// spelling for many standard property and item names.
	Legacy Protocol = 0x0107

	// V2 is the 2.0 protocol.
	V2 Protocol = 0x0200

	// Current is the version whose names are used inside the process.
	Current = V2
)

// Major returns the major version.
func (p Protocol) Major() int { return int(p >> 8) }

// Minor returns the minor version.
func (p Protocol) Minor() int { return int(p & 0xFF) }

// String returns the version as "major.minor".
func (p Protocol) String() string {
	return fmt.Sprintf("%d.%d", p.Major(), p.Minor())
}

// ParseProtocol parses the version attribute of getProperties and
// switchProtocol. Any "1.x" is Legacy; "2.0" is V2.
func ParseProtocol(s string) (Protocol, error) {
	if strings.HasPrefix(s, "1.") {
		return Legacy, nil
	}
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return None, fmt.Errorf("invalid protocol version %q: expected major.minor", s)
	}
	ma, err := strconv.ParseUint(major, 10, 8)
	if err != nil || major == "" {
		return None, fmt.Errorf("invalid protocol version %q: bad major component", s)
	}
	mi, err := strconv.ParseUint(minor, 10, 8)
	if err != nil || minor == "" {
		return None, fmt.Errorf("invalid protocol version %q: bad minor component", s)
	}
	p := Protocol(ma<<8 | mi)
	if p != V2 {
		return None, fmt.Errorf("unsupported protocol version %q", s)
	}
	return p, nil
}
