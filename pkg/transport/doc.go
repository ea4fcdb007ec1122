// Package transport provides the TCP server that exposes a bus to remote
// clients.
//
// The server listens on port 7624 by default. Each accepted connection is
// classified by its first non-whitespace byte:
//
//	'<'   XML protocol, served by a wire.RemoteClient attached to the bus
//	'{'   JSON protocol, not supported, the connection is closed
//	other unknown protocol, the connection is closed
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Bus (devices, clients)       │
//	├────────────────────────────────┤
//	│   wire.RemoteClient adapter    │
//	├────────────────────────────────┤
//	│   XML records (1.7 / 2.0)      │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Lifecycle
//
// Stop closes the listener and leaves live connections to end on their
// own. Shutdown additionally closes every connection and waits for the
// handlers. A client connection ends by detaching its adapter from the
// bus.
package transport
