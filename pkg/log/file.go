package log

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// logEncMode is the CBOR encoder mode for log events.
// Timestamps keep nanosecond precision.
var logEncMode cbor.EncMode

// logDecMode is the CBOR decoder mode for log events.
var logDecMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	logEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create log CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	logDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create log CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return logEncMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := logDecMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// StreamLogger writes events as a CBOR stream to any writer.
// It is safe for concurrent use.
type StreamLogger struct {
	mu      sync.Mutex
	encoder *cbor.Encoder
	closer  io.Closer
	closed  bool
}

// NewStreamLogger creates a StreamLogger writing to w. If w is also an
// io.Closer it is closed by Close.
func NewStreamLogger(w io.Writer) *StreamLogger {
	sl := &StreamLogger{encoder: logEncMode.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		sl.closer = c
	}
	return sl
}

// NewFileLogger creates a StreamLogger appending to the file at path. The
// file is created with permissions 0644 if it doesn't exist.
func NewFileLogger(path string) (*StreamLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening protocol log: %w", err)
	}
	return NewStreamLogger(f), nil
}

// Log writes an event. Encoding errors are dropped: capture must never
// disturb the exchange being captured.
func (l *StreamLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	_ = l.encoder.Encode(event)
}

// Close closes the underlying writer if it is closable. Safe to call more
// than once; later Log calls are ignored.
func (l *StreamLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Logger = (*StreamLogger)(nil)
