// Package wire implements the XML dialect of the bus protocol.
//
// A connection carries a sequence of self-delimited top-level elements
// with no enclosing document. Each side is represented on the local bus by
// a synthetic participant:
//
//   - RemoteClient is a bus.Client serving one connected client. It
//     encodes bus broadcasts as def/set/delProperty/message records and
//     turns incoming getProperties, new*Vector and enableBLOB records into
//     bus requests.
//   - RemoteDevice is a bus.Device named "@ host" standing for a remote
//     server. It forwards bus requests as getProperties, new*Vector and
//     enableBLOB records and replays incoming def/set/delProperty/message
//     records on the local bus, with " @ host" appended to device names.
//
// # Versions
//
// A peer starts unversioned and receives nothing until it has sent its
// first getProperties. Property and item names are translated with a
// version.Translator keyed by the peer's negotiated version, so a 1.7
// peer sees legacy spellings in both directions.
//
// # Serialization
//
// Every record is rendered into a buffer and written with one Write call
// while holding a process-wide mutex, so records from concurrent
// broadcasts never interleave on any connection.
//
// # Errors
//
// A bad value inside a well-formed element is logged and the item is
// skipped. Unknown elements are skipped whole. An XML syntax error ends
// the read loop and the connection.
package wire
