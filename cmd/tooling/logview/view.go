// Package logview renders protocol log files for the tooling CLI.
package logview

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tooling-api/tooling-go/pkg/log"
)

// FormatEvent writes a human-readable representation of the event to w.
func FormatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION ROLE LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.Message != nil:
		typeLabel = event.Message.Type.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %-6s %s %s\n",
		ts, connID, event.Direction.String(), event.LocalRole.String(), event.Layer.String(), typeLabel)
	if event.BuildID != "" || event.BuildRoot != "" {
		fmt.Fprintf(w, "  Build: %s %s\n", event.BuildID, event.BuildRoot)
	}

	switch {
	case event.Frame != nil:
		formatFrame(w, event.Frame)
	case event.Message != nil:
		formatMessage(w, event.Message)
	case event.StateChange != nil:
		formatStateChange(w, event.StateChange)
	case event.Error != nil:
		formatError(w, event.Error)
	}

	fmt.Fprintln(w)
}

func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrame(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessage(w io.Writer, msg *log.MessageEvent) {
	if msg.MessageID != 0 {
		fmt.Fprintf(w, "  MessageID: %d\n", msg.MessageID)
	}
	if msg.ModelCategory != "" {
		fmt.Fprintf(w, "  Model: %s\n", msg.ModelCategory)
	}
	if msg.Status != nil {
		fmt.Fprintf(w, "  Status: %s (%d)\n", msg.Status.String(), *msg.Status)
	}
	if msg.EngineVersion != "" {
		fmt.Fprintf(w, "  Engine: %s\n", msg.EngineVersion)
	}
	if msg.ProcessingTime != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*msg.ProcessingTime))
	}
}

func formatStateChange(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatError(w io.Writer, e *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", e.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", e.Message)
	if e.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", e.Context)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayer parses a layer name (case-insensitive).
func ParseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or session)", s)
	}
}

// ParseDirection parses a direction name (case-insensitive).
func ParseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// FilterFlags holds the textual filter options of the log commands.
type FilterFlags struct {
	Layer     string
	Direction string
	Category  string
	ConnID    string
	BuildID   string
}

// Filter converts the flags into a log filter.
func (f FilterFlags) Filter() (log.Filter, error) {
	filter := log.Filter{ConnectionID: f.ConnID, BuildID: f.BuildID}
	if f.Layer != "" {
		l, err := ParseLayer(f.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if f.Direction != "" {
		d, err := ParseDirection(f.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if f.Category != "" {
		c, err := ParseCategory(f.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// View writes every event of r to w.
func View(r *log.Reader, w io.Writer) error {
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		FormatEvent(w, event)
	}
}

// RunView opens path and writes its matching events to w.
func RunView(path string, filter log.Filter, w io.Writer) error {
	r, err := log.OpenFile(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer r.Close()
	return View(r, w)
}
