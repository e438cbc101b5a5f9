package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tooling-api/tooling-go/pkg/log"
	"github.com/tooling-api/tooling-go/pkg/version"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

// Session errors.
var (
	// ErrSessionClosed indicates the session was closed or aborted.
	ErrSessionClosed = errors.New("session closed")

	// ErrUnexpectedMessage indicates the engine sent a message out of turn.
	ErrUnexpectedMessage = errors.New("unexpected message")
)

// Session states reported in protocol logs.
const (
	sessionStateHandshake = "HANDSHAKE"
	sessionStateReady     = "READY"
	sessionStateClosed    = "CLOSED"
)

// HandshakeError reports an engine that refused the session.
type HandshakeError struct {
	Status  wire.Status
	Message string
}

func (e *HandshakeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("engine rejected session: %s", e.Status)
	}
	return fmt.Sprintf("engine rejected session: %s: %s", e.Status, e.Message)
}

// SessionOptions configures a client session.
type SessionOptions struct {
	// Client identifies the caller in the handshake.
	Client string

	// BuildID tags protocol log events (typically a build fingerprint).
	BuildID string

	// ProtocolLogger captures frames and messages (nil disables capture).
	ProtocolLogger log.Logger

	// MaxMessageSize bounds a single frame (0 selects DefaultMaxMessageSize).
	MaxMessageSize uint32
}

// Session is a client-side exchange with one engine for one build.
// Exchanges are serialized; a session is safe for concurrent use.
type Session struct {
	rwc    io.ReadWriteCloser
	framer *Framer
	opts   SessionOptions
	logger log.Logger
	connID string

	engineVersion string
	product       string

	mu     sync.Mutex // serializes exchanges
	nextID uint32

	stateMu sync.Mutex
	broken  bool

	streamOnce sync.Once
	streamErr  error
	closeOnce  sync.Once
	closeErr   error
}

// OpenSession performs the handshake for rootDir over rwc. On failure rwc
// is closed.
func OpenSession(ctx context.Context, rwc io.ReadWriteCloser, rootDir string, opts SessionOptions) (*Session, error) {
	s := &Session{
		rwc:    rwc,
		framer: NewFramer(rwc, opts.MaxMessageSize),
		opts:   opts,
		logger: opts.ProtocolLogger,
		connID: uuid.New().String(),
	}
	if s.logger != nil {
		s.framer.SetLogger(s.logger, s.connID, opts.BuildID)
	}
	s.logState("", sessionStateHandshake, "")

	reply, err := s.exchange(ctx, wire.NewHello(version.Current, opts.Client, rootDir))
	if err != nil {
		s.abort()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	if reply.Type != wire.MessageTypeHelloReply {
		s.abort()
		return nil, fmt.Errorf("handshake: %w: got %s", ErrUnexpectedMessage, reply.Type)
	}

	hr := reply.HelloReply
	if !hr.Status.IsSuccess() {
		s.abort()
		return nil, &HandshakeError{Status: hr.Status, Message: hr.Message}
	}
	if err := version.CheckCompatible(hr.ProtocolVersion); err != nil {
		s.abort()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	s.engineVersion = hr.EngineVersion
	s.product = hr.Product
	s.logState(sessionStateHandshake, sessionStateReady, "")
	return s, nil
}

// ConnectionID returns the identifier used in protocol logs.
func (s *Session) ConnectionID() string { return s.connID }

// EngineVersion returns the version the engine reported in the handshake.
func (s *Session) EngineVersion() string { return s.engineVersion }

// Product returns the product name the engine reported in the handshake.
func (s *Session) Product() string { return s.product }

// RequestModel asks the engine for a model of category. A non-nil error
// means the exchange itself failed; engine-side outcomes are reported in
// the response status.
func (s *Session) RequestModel(ctx context.Context, category string) (*wire.ModelResponse, error) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	start := time.Now()
	reply, err := s.exchange(ctx, wire.NewModelRequest(id, category))
	if err != nil {
		return nil, err
	}
	if reply.Type != wire.MessageTypeModelResponse {
		s.abort()
		return nil, fmt.Errorf("%w: got %s", ErrUnexpectedMessage, reply.Type)
	}
	if reply.ID != id {
		s.abort()
		return nil, fmt.Errorf("%w: response id %d for request %d", ErrUnexpectedMessage, reply.ID, id)
	}

	if s.logger != nil {
		me := log.NewMessageEvent(reply)
		elapsed := time.Since(start)
		me.ProcessingTime = &elapsed
		s.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.connID,
			Direction:    log.DirectionIn,
			Layer:        log.LayerSession,
			Category:     log.CategoryMessage,
			BuildID:      s.opts.BuildID,
			Message:      me,
		})
	}
	return reply.Response, nil
}

// Close sends a normal close to the engine if the session is healthy and
// releases the stream. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		healthy := !s.broken
		s.broken = true
		s.stateMu.Unlock()

		if !healthy {
			s.closeStream()
			return
		}
		if s.mu.TryLock() {
			if data, err := wire.Encode(wire.NewClose(wire.CloseReasonNormal)); err == nil {
				_ = s.framer.WriteFrame(data)
			}
			s.mu.Unlock()
		}
		s.closeErr = s.closeStream()
		s.logState(sessionStateReady, sessionStateClosed, "")
	})
	return s.closeErr
}

// exchange writes out and reads one reply. When ctx ends first the stream
// is closed to unblock the read and the context error is returned.
func (s *Session) exchange(ctx context.Context, out *wire.Message) (*wire.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isBroken() {
		return nil, ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, s.abort)
	defer stop()

	data, err := wire.Encode(out)
	if err != nil {
		return nil, err
	}
	if err := s.framer.WriteFrame(data); err != nil {
		return nil, s.failure(ctx, "write", err)
	}
	s.logMessage(out, log.DirectionOut)

	frame, err := s.framer.ReadFrame()
	if err != nil {
		return nil, s.failure(ctx, "read", err)
	}
	in, err := wire.Decode(frame)
	if err != nil {
		return nil, s.failure(ctx, "decode", err)
	}
	s.logMessage(in, log.DirectionIn)

	if in.Type == wire.MessageTypeClose {
		s.abort()
		return nil, fmt.Errorf("%w: engine closed the session", ErrSessionClosed)
	}
	return in, nil
}

// failure prefers the context error when cancellation caused the fault.
func (s *Session) failure(ctx context.Context, op string, err error) error {
	s.abort()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", op, ctxErr)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, ErrFrameTruncated) {
		err = fmt.Errorf("engine disconnected: %w", err)
	}
	if s.logger != nil {
		s.logger.Log(log.Event{
			Timestamp:    time.Now(),
			ConnectionID: s.connID,
			Layer:        log.LayerSession,
			Category:     log.CategoryError,
			BuildID:      s.opts.BuildID,
			Error:        &log.ErrorEventData{Layer: log.LayerTransport, Message: err.Error(), Context: op},
		})
	}
	return err
}

// abort marks the session unusable and closes the stream so blocked reads
// return.
func (s *Session) abort() {
	s.stateMu.Lock()
	already := s.broken
	s.broken = true
	s.stateMu.Unlock()
	if !already {
		s.closeStream()
		s.logState(sessionStateReady, sessionStateClosed, "aborted")
	}
}

func (s *Session) closeStream() error {
	s.streamOnce.Do(func() { s.streamErr = s.rwc.Close() })
	return s.streamErr
}

func (s *Session) isBroken() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.broken
}

func (s *Session) logMessage(msg *wire.Message, dir log.Direction) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		BuildID:      s.opts.BuildID,
		Message:      log.NewMessageEvent(msg),
	})
}

func (s *Session) logState(oldState, newState, reason string) {
	if s.logger == nil {
		return
	}
	s.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.connID,
		Layer:        log.LayerSession,
		Category:     log.CategoryState,
		BuildID:      s.opts.BuildID,
		StateChange:  &log.StateChangeEvent{OldState: oldState, NewState: newState, Reason: reason},
	})
}
