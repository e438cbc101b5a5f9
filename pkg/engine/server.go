package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tooling-api/tooling-go/pkg/log"
	"github.com/tooling-api/tooling-go/pkg/transport"
	"github.com/tooling-api/tooling-go/pkg/version"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

// DefaultProduct is the product name reported when none is configured.
const DefaultProduct = "Gradle"

// ErrProtocol indicates the client violated the exchange.
var ErrProtocol = errors.New("protocol violation")

// Server answers model exchanges for one engine version.
type Server struct {
	engineVersion  string
	product        string
	registry       *Registry
	validateRoot   func(rootDir string) error
	logger         *slog.Logger
	protocolLogger log.Logger
	maxMessageSize uint32
}

// Option configures a Server.
type Option func(*Server)

// WithProduct sets the product name reported in the handshake.
func WithProduct(product string) Option {
	return func(s *Server) { s.product = product }
}

// WithBuilder registers a builder for category.
func WithBuilder(category string, b Builder) Option {
	return func(s *Server) { s.registry.Register(category, b) }
}

// WithRegistry replaces the builder registry.
func WithRegistry(r *Registry) Option {
	return func(s *Server) { s.registry = r }
}

// WithRootValidator rejects handshakes for root directories the engine
// cannot load.
func WithRootValidator(fn func(rootDir string) error) Option {
	return func(s *Server) { s.validateRoot = fn }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithProtocolLogger captures frames and messages on the engine side.
func WithProtocolLogger(l log.Logger) Option {
	return func(s *Server) { s.protocolLogger = l }
}

// WithMaxMessageSize bounds a single frame.
func WithMaxMessageSize(n uint32) Option {
	return func(s *Server) { s.maxMessageSize = n }
}

// NewServer creates a server reporting engineVersion.
func NewServer(engineVersion string, opts ...Option) *Server {
	s := &Server{
		engineVersion: engineVersion,
		product:       DefaultProduct,
		registry:      NewRegistry(),
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the server's builder registry.
func (s *Server) Registry() *Registry { return s.registry }

// session is the per-stream state of an exchange.
type session struct {
	connID  string
	rootDir string
	ready   bool
}

// Serve runs one session over rw until the client closes it, the stream
// ends or ctx is done. If rw is an io.Closer it is closed when ctx ends so
// a pending read returns.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	sess := &session{connID: uuid.New().String()}
	framer := transport.NewFramer(rw, s.maxMessageSize)
	if s.protocolLogger != nil {
		framer.SetLogger(s.protocolLogger, sess.connID, "")
	}

	if c, ok := rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	for {
		frame, err := framer.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				s.logger.Debug("client disconnected", "conn_id", sess.connID)
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		msg, err := wire.Decode(frame)
		if err != nil {
			s.send(framer, sess, wire.NewClose(wire.CloseReasonProtocolError))
			return fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		s.logMessage(sess, msg, log.DirectionIn)

		reply, done, err := s.handle(ctx, sess, msg)
		if reply != nil {
			if werr := s.send(framer, sess, reply); werr != nil {
				return werr
			}
		}
		if done {
			return err
		}
	}
}

// handle answers one message. done reports the end of the session.
func (s *Server) handle(ctx context.Context, sess *session, msg *wire.Message) (reply *wire.Message, done bool, err error) {
	switch msg.Type {
	case wire.MessageTypeHello:
		return s.handleHello(sess, msg.Hello), false, nil
	case wire.MessageTypeModelRequest:
		return s.handleModelRequest(ctx, sess, msg.ID, msg.Request), false, nil
	case wire.MessageTypeClose:
		s.logger.Debug("session closed by client", "conn_id", sess.connID, "root", sess.rootDir)
		return nil, true, nil
	default:
		return wire.NewClose(wire.CloseReasonProtocolError), true,
			fmt.Errorf("%w: client sent %s", ErrProtocol, msg.Type)
	}
}

func (s *Server) handleHello(sess *session, hello *wire.Hello) *wire.Message {
	reply := wire.HelloReply{ProtocolVersion: version.Current, Product: s.product}

	if sess.ready {
		reply.Status = wire.StatusBadRequest
		reply.Message = "session already established"
		return wire.NewHelloReply(reply)
	}
	if err := version.CheckCompatible(hello.ProtocolVersion); err != nil {
		reply.Status = wire.StatusUnsupportedProtocol
		reply.Message = err.Error()
		return wire.NewHelloReply(reply)
	}
	if s.validateRoot != nil {
		if err := s.validateRoot(hello.RootDir); err != nil {
			reply.Status = wire.StatusInvalidBuild
			reply.Message = err.Error()
			return wire.NewHelloReply(reply)
		}
	}

	sess.rootDir = hello.RootDir
	sess.ready = true
	reply.Status = wire.StatusSuccess
	reply.EngineVersion = s.engineVersion
	s.logger.Debug("session established",
		"conn_id", sess.connID, "root", hello.RootDir, "client", hello.Client)
	return wire.NewHelloReply(reply)
}

func (s *Server) handleModelRequest(ctx context.Context, sess *session, id uint32, req *wire.ModelRequest) *wire.Message {
	if !sess.ready {
		return errorResponse(id, req.Category, wire.StatusBadRequest, "session not established")
	}

	b, ok := s.registry.Lookup(req.Category)
	if !ok {
		return errorResponse(id, req.Category, wire.StatusNoBuilder,
			fmt.Sprintf("no builder registered for '%s'", req.Category))
	}

	start := time.Now()
	model, err := s.build(ctx, b, sess.rootDir)
	if err != nil {
		s.logger.Warn("model build failed", "category", req.Category, "root", sess.rootDir, "err", err)
		return errorResponse(id, req.Category, wire.StatusBuildFailed, err.Error())
	}
	raw, err := wire.EncodeModel(model)
	if err != nil {
		return errorResponse(id, req.Category, wire.StatusBuildFailed, err.Error())
	}

	s.logger.Debug("model built",
		"category", req.Category, "root", sess.rootDir, "elapsed", time.Since(start))
	return wire.NewModelResponse(id, wire.ModelResponse{
		Status:   wire.StatusSuccess,
		Category: req.Category,
		Model:    raw,
	})
}

// build runs b, converting a panic into an error.
func (s *Server) build(ctx context.Context, b Builder, rootDir string) (model any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("builder panicked: %v", r)
		}
	}()
	return b.BuildModel(ctx, rootDir)
}

func (s *Server) send(framer *transport.Framer, sess *session, msg *wire.Message) error {
	data, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	if err := framer.WriteFrame(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	s.logMessage(sess, msg, log.DirectionOut)
	return nil
}

func (s *Server) logMessage(sess *session, msg *wire.Message, dir log.Direction) {
	if s.protocolLogger == nil {
		return
	}
	s.protocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: sess.connID,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		LocalRole:    log.RoleEngine,
		BuildRoot:    sess.rootDir,
		Message:      log.NewMessageEvent(msg),
	})
}

// errorResponse creates a non-success model response.
func errorResponse(id uint32, category string, status wire.Status, message string) *wire.Message {
	return wire.NewModelResponse(id, wire.ModelResponse{
		Status:   status,
		Category: category,
		Message:  message,
	})
}
