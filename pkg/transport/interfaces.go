package transport

import (
	"context"
	"net"
)

// TransportServer represents an XML protocol server.
// Implemented by Server.
type TransportServer interface {
	// Start binds the listener and begins accepting connections.
	Start(ctx context.Context) error

	// Stop closes the listener.
	Stop() error

	// Shutdown stops the server and closes every live connection.
	Shutdown() error

	// Addr returns the server's listen address.
	Addr() net.Addr

	// ConnectionCount returns the number of active connections.
	ConnectionCount() int
}

// Compile-time interface satisfaction checks.
var _ TransportServer = (*Server)(nil)
