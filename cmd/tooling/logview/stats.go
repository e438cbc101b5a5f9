package logview

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/tooling-api/tooling-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Errors            int
	Start, End        time.Time
}

// ConnectionStats holds statistics for a single session.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	BuildID   string
	BuildRoot string
	Requests  int
	Engine    string
}

// Collect reads every event of r and aggregates them.
func Collect(r *log.Reader) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.Start.IsZero() || event.Timestamp.Before(stats.Start) {
			stats.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.End) {
			stats.End = event.Timestamp
		}

		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if conn.BuildID == "" {
			conn.BuildID = event.BuildID
		}
		if conn.BuildRoot == "" {
			conn.BuildRoot = event.BuildRoot
		}
		if m := event.Message; m != nil && event.Layer == log.LayerWire && event.Direction == log.DirectionOut && m.ModelCategory != "" && m.Status == nil {
			conn.Requests++
		}
		if m := event.Message; m != nil && m.EngineVersion != "" {
			conn.Engine = m.EngineVersion
		}

		if event.Error != nil {
			stats.Errors++
		}
	}
}

// RunStats analyzes the log file at path and prints statistics.
func RunStats(path string, w io.Writer) error {
	r, err := log.OpenFile(path, log.Filter{})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer r.Close()

	stats, err := Collect(r)
	if err != nil {
		return err
	}
	PrintStats(w, stats)
	return nil
}

// PrintStats writes stats in human-readable form.
func PrintStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", stats.Start.Format(time.RFC3339), stats.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.End.Sub(stats.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Connections))
	type connInfo struct {
		id    string
		stats *ConnectionStats
	}
	conns := make([]connInfo, 0, len(stats.Connections))
	for id, cs := range stats.Connections {
		conns = append(conns, connInfo{id, cs})
	}
	sort.Slice(conns, func(i, j int) bool {
		return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
	})
	for _, c := range conns {
		duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, %d model requests, duration %s\n",
			shortenID(c.id), c.stats.Events, c.stats.Requests, duration)
		if c.stats.BuildID != "" || c.stats.BuildRoot != "" {
			fmt.Fprintf(w, "           Build: %s %s\n", c.stats.BuildID, c.stats.BuildRoot)
		}
		if c.stats.Engine != "" {
			fmt.Fprintf(w, "           Engine: %s\n", c.stats.Engine)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
