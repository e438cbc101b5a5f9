package logview

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooling-api/tooling-go/pkg/log"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

var ts = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

const connID = "abc12345-6789-0123-4567-890abcdef012"

func sampleEvents() []log.Event {
	success := wire.StatusSuccess
	rtt := 1500 * time.Microsecond
	return []log.Event{
		{
			Timestamp: ts, ConnectionID: connID, Layer: log.LayerSession, Category: log.CategoryState,
			BuildID: "0a1b2c3d4e5f", StateChange: &log.StateChangeEvent{NewState: "HANDSHAKE"},
		},
		{
			Timestamp: ts.Add(time.Millisecond), ConnectionID: connID, Direction: log.DirectionOut,
			Layer: log.LayerTransport, Category: log.CategoryMessage,
			Frame: &log.FrameEvent{Size: 128, Data: []byte{0xa1, 0x01}, Truncated: true},
		},
		{
			Timestamp: ts.Add(2 * time.Millisecond), ConnectionID: connID, Direction: log.DirectionOut,
			Layer: log.LayerWire, Category: log.CategoryMessage,
			Message: &log.MessageEvent{Type: wire.MessageTypeModelRequest, MessageID: 1, ModelCategory: "GradleBuild"},
		},
		{
			Timestamp: ts.Add(4 * time.Millisecond), ConnectionID: connID, Direction: log.DirectionIn,
			Layer: log.LayerWire, Category: log.CategoryMessage,
			Message: &log.MessageEvent{
				Type: wire.MessageTypeModelResponse, MessageID: 1, ModelCategory: "GradleBuild",
				Status: &success, ProcessingTime: &rtt,
			},
		},
		{
			Timestamp: ts.Add(5 * time.Millisecond), ConnectionID: "ffff0000", Layer: log.LayerSession,
			Category: log.CategoryError, LocalRole: log.RoleEngine,
			Error: &log.ErrorEventData{Layer: log.LayerTransport, Message: "engine disconnected: EOF", Context: "read"},
		},
	}
}

func writeLog(t *testing.T, events []log.Event) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	sl := log.NewStreamLogger(&buf)
	for _, e := range events {
		sl.Log(e)
	}
	return &buf
}

func TestFormatEvent(t *testing.T) {
	events := sampleEvents()
	tests := []struct {
		name  string
		event log.Event
		want  []string
	}{
		{"state", events[0], []string{"2026-01-28T10:15:32.123456Z", "[conn:abc12345]", "SESSION State", "-> HANDSHAKE", "Build: 0a1b2c3d4e5f"}},
		{"frame", events[1], []string{"OUT", "TRANSPORT Frame", "Size: 128 bytes", "Data: a101 (truncated)"}},
		{"request", events[2], []string{"WIRE MODEL_REQUEST", "MessageID: 1", "Model: GradleBuild"}},
		{"response", events[3], []string{"MODEL_RESPONSE", "Status: SUCCESS (0)", "Duration: 1.500ms"}},
		{"error", events[4], []string{"[conn:ffff0000]", "ENGINE", "Error", "Message: engine disconnected: EOF", "Context: read"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatEvent(&buf, tt.event)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250.000us", formatDuration(250*time.Microsecond))
	assert.Equal(t, "12.000ms", formatDuration(12*time.Millisecond))
	assert.Equal(t, "2.500s", formatDuration(2500*time.Millisecond))
}

func TestViewFiltered(t *testing.T) {
	buf := writeLog(t, sampleEvents())

	filter, err := FilterFlags{Layer: "wire", Direction: "in"}.Filter()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, View(log.NewReader(buf, filter), &out))
	assert.Contains(t, out.String(), "MODEL_RESPONSE")
	assert.NotContains(t, out.String(), "MODEL_REQUEST")
	assert.NotContains(t, out.String(), "Frame")
}

func TestFilterFlags(t *testing.T) {
	_, err := FilterFlags{Layer: "service"}.Filter()
	assert.ErrorContains(t, err, "invalid layer")
	_, err = FilterFlags{Direction: "sideways"}.Filter()
	assert.ErrorContains(t, err, "invalid direction")
	_, err = FilterFlags{Category: "snapshot"}.Filter()
	assert.ErrorContains(t, err, "invalid category")

	f, err := FilterFlags{Category: "ERROR", ConnID: connID, BuildID: "b"}.Filter()
	require.NoError(t, err)
	require.NotNil(t, f.Category)
	assert.Equal(t, log.CategoryError, *f.Category)
	assert.Equal(t, connID, f.ConnectionID)
	assert.Equal(t, "b", f.BuildID)
}

func TestCollect(t *testing.T) {
	stats, err := Collect(log.NewReader(writeLog(t, sampleEvents()), log.Filter{}))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalEvents)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 2, stats.EventsByLayer[log.LayerWire])
	assert.Len(t, stats.Connections, 2)

	conn := stats.Connections[connID]
	require.NotNil(t, conn)
	assert.Equal(t, 4, conn.Events)
	assert.Equal(t, 1, conn.Requests)
	assert.Equal(t, "0a1b2c3d4e5f", conn.BuildID)
	assert.Equal(t, 4*time.Millisecond, conn.LastSeen.Sub(conn.FirstSeen))

	var out bytes.Buffer
	PrintStats(&out, stats)
	assert.Contains(t, out.String(), "Total Events: 5")
	assert.Contains(t, out.String(), "Sessions: 2")
	assert.Contains(t, out.String(), "[abc12345] 4 events, 1 model requests")
	assert.Contains(t, out.String(), "Errors: 1")
}
