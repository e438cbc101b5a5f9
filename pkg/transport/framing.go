package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tooling-api/tooling-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum message size (16 MiB).
	// Models of large builds are big; the limit only guards against a
	// corrupted length prefix.
	DefaultMaxMessageSize = 16 << 20

	// MaxLogFrameDataSize is the maximum frame data size to include in logs (4 KB).
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the message exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty message.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the frame was truncated.
	ErrFrameTruncated = errors.New("frame truncated")
)

// frameTap emits transport-layer capture events when a logger is set.
type frameTap struct {
	logger  log.Logger
	connID  string
	buildID string
}

func (ft *frameTap) emit(data []byte, direction log.Direction) {
	if ft.logger == nil {
		return
	}
	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}
	ft.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: ft.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		BuildID:      ft.buildID,
		Frame: &log.FrameEvent{
			Size:      FrameSize(len(data)),
			Data:      frameData,
			Truncated: truncated,
		},
	})
}

// FrameWriter writes length-prefixed frames to an underlying writer.
type FrameWriter struct {
	w              io.Writer
	maxMessageSize uint32
	mu             sync.Mutex
	tap            frameTap
}

// NewFrameWriter creates a frame writer with the given max size (0 selects
// DefaultMaxMessageSize).
func NewFrameWriter(w io.Writer, maxSize uint32) *FrameWriter {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &FrameWriter{w: w, maxMessageSize: maxSize}
}

// WriteFrame writes a length-prefixed frame.
// Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint32(len(data)) > fw.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), fw.maxMessageSize)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	// Prefix and payload go out in one write so a pipe reader never sees a
	// prefix without its payload.
	buf := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)

	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	fw.tap.emit(data, log.DirectionOut)
	return nil
}

// FrameReader reads length-prefixed frames from an underlying reader.
type FrameReader struct {
	r              io.Reader
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte
	tap            frameTap
}

// NewFrameReader creates a frame reader with the given max size (0 selects
// DefaultMaxMessageSize).
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &FrameReader{r: r, maxMessageSize: maxSize}
}

// ReadFrame reads a length-prefixed frame.
// Returns the frame payload (without the length prefix). Not safe for
// concurrent use.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > fr.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, fr.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	fr.tap.emit(payload, log.DirectionIn)
	return payload, nil
}

// Framer combines frame reading and writing.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional communication.
func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw, maxSize),
		FrameWriter: NewFrameWriter(rw, maxSize),
	}
}

// SetLogger configures capture for both directions. Pass nil to disable.
func (f *Framer) SetLogger(logger log.Logger, connID, buildID string) {
	tap := frameTap{logger: logger, connID: connID, buildID: buildID}
	f.FrameReader.tap = tap
	f.FrameWriter.tap = tap
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}
