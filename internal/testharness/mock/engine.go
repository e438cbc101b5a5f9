// Package mock provides in-memory engines for testing model exchanges.
//
// A Fleet maps installation locations to mock engines and implements the
// transport Dialer interface over net.Pipe, so clients run the real
// framing, handshake and exchange code without processes or sockets.
package mock

import (
	"context"
	"time"

	"github.com/tooling-api/tooling-go/pkg/engine"
)

// Behavior selects how a mock engine treats a session.
type Behavior uint8

const (
	// BehaviorServe answers the exchange normally.
	BehaviorServe Behavior = iota

	// BehaviorHang reads requests but never replies.
	BehaviorHang

	// BehaviorDisconnect completes the handshake and drops the stream on
	// the first model request.
	BehaviorDisconnect
)

// Engine describes one mock engine installation.
type Engine struct {
	// Version is reported in the handshake.
	Version string

	// Product is reported in the handshake (engine default if empty).
	Product string

	// Behavior selects how sessions are handled.
	Behavior Behavior

	// DialErr, if set, fails every dial to this engine.
	DialErr error

	registry *engine.Registry
}

// NewEngine creates a serving mock engine at version.
func NewEngine(version string) *Engine {
	return &Engine{Version: version, registry: engine.NewRegistry()}
}

// WithModel registers a builder that returns model for category.
func (e *Engine) WithModel(category string, model any) *Engine {
	e.registry.Register(category, engine.StaticBuilder(model))
	return e
}

// WithBuilder registers b for category.
func (e *Engine) WithBuilder(category string, b engine.Builder) *Engine {
	e.registry.Register(category, b)
	return e
}

// Hang makes the engine stop replying after the stream opens.
func (e *Engine) Hang() *Engine {
	e.Behavior = BehaviorHang
	return e
}

// Disconnect makes the engine drop the stream on the first model request.
func (e *Engine) Disconnect() *Engine {
	e.Behavior = BehaviorDisconnect
	return e
}

// FailDial makes every dial to the engine fail with err.
func (e *Engine) FailDial(err error) *Engine {
	e.DialErr = err
	return e
}

func (e *Engine) server() *engine.Server {
	opts := []engine.Option{engine.WithRegistry(e.registry)}
	if e.Product != "" {
		opts = append(opts, engine.WithProduct(e.Product))
	}
	return engine.NewServer(e.Version, opts...)
}

// SlowBuilder returns a builder that yields model after delay, or the
// context error if the exchange is cancelled first.
func SlowBuilder(delay time.Duration, model any) engine.Builder {
	return engine.BuilderFunc(func(ctx context.Context, _ string) (any, error) {
		select {
		case <-time.After(delay):
			return model, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}
