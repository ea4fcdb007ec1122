// Package log provides structured protocol logging for the property bus.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, bus).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	file, err := log.NewFileLogger("/var/log/indigo/server.ilog")
//	cfg.ProtocolLogger = file
//
//	// Both
//	cfg.ProtocolLogger = log.Multi(log.NewSlogAdapter(slog.Default()), file)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw XML text (FrameEvent)
//   - Wire: Decoded records (RecordEvent)
//   - Bus: Broadcasts and attachments (RecordEvent, StateChangeEvent)
//
// Errors at any layer have a dedicated event type.
//
// # File Format
//
// Log files use CBOR encoding with .ilog extension. The indigo-log CLI tool
// provides viewing, filtering, and export capabilities.
package log
