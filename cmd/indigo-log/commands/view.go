// Package commands implements the indigo-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/indigo-bus/indigo-go/pkg/log"
)

// maxFrameText is how much of a captured frame view prints.
const maxFrameText = 512

// eventType returns the short label of the event payload.
func eventType(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Record != nil:
		return event.Record.Kind.String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	if connID == "" {
		connID = "-"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s", ts, connID, event.Direction.String(), event.Layer.String(), eventType(event))
	if event.Device != "" {
		fmt.Fprintf(w, " %s", event.Device)
		if event.Property != "" {
			fmt.Fprintf(w, ".%s", event.Property)
		}
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Record != nil:
		formatRecordDetails(w, event.Record)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s (%s)\n", event.RemoteAddr, event.LocalRole.String())
	}

	fmt.Fprintln(w)
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatFrameDetails prints the captured XML text, which is readable as is.
func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) == 0 {
		return
	}
	text := frame.Data
	cut := frame.Truncated
	if len(text) > maxFrameText {
		text = text[:maxFrameText]
		cut = true
	}
	if !utf8.Valid(text) {
		fmt.Fprintf(w, "  Data: %q", text)
	} else {
		fmt.Fprintf(w, "  Data: %s", strings.TrimSpace(string(text)))
	}
	if cut {
		fmt.Fprint(w, " (truncated)")
	}
	fmt.Fprintln(w)
}

func formatRecordDetails(w io.Writer, rec *log.RecordEvent) {
	if rec.Type != "" {
		fmt.Fprintf(w, "  Type: %s", rec.Type)
		if rec.State != "" {
			fmt.Fprintf(w, "  State: %s", rec.State)
		}
		fmt.Fprintf(w, "  Items: %d\n", rec.Items)
	}
	if rec.Version != "" {
		fmt.Fprintf(w, "  Version: %s\n", rec.Version)
	}
	if rec.Mode != "" {
		fmt.Fprintf(w, "  Mode: %s\n", rec.Mode)
	}
	if rec.Message != "" {
		fmt.Fprintf(w, "  Message: %s\n", rec.Message)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "bus":
		return log.LayerBus, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or bus)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "control":
		return log.CategoryControl, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, control, state, or error)", s)
	}
}

// ParseRecordFlag parses a record kind name such as "define" or
// "get_properties".
func ParseRecordFlag(s string) (log.RecordKind, error) {
	want := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for k := log.RecordDefine; k <= log.RecordSwitchProtocol; k++ {
		if k.String() == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid record kind: %s (e.g. define, update, change, get_properties)", s)
}

// RunView prints the events of the capture at path that match filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for event, err := range reader.All() {
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
