package mock

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/tooling-api/tooling-go/pkg/transport"
	"github.com/tooling-api/tooling-go/pkg/version"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

// Fleet is a set of mock engines addressed by installation location. It
// implements transport.Dialer.
type Fleet struct {
	mu      sync.Mutex
	engines map[string]*Engine
	dials   map[string]int
	open    int
	wg      sync.WaitGroup
}

// NewFleet creates an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{
		engines: make(map[string]*Engine),
		dials:   make(map[string]int),
	}
}

// Install places e at location.
func (f *Fleet) Install(location string, e *Engine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engines[location] = e
}

// Dials returns how many times location was dialed.
func (f *Fleet) Dials(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials[location]
}

// TotalDials returns the number of dials across all locations.
func (f *Fleet) TotalDials() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.dials {
		n += d
	}
	return n
}

// OpenStreams returns the number of client streams not yet closed.
func (f *Fleet) OpenStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Wait blocks until every engine goroutine has finished.
func (f *Fleet) Wait() {
	f.wg.Wait()
}

// Dial connects to the mock engine at target.Location.
func (f *Fleet) Dial(ctx context.Context, target transport.Target) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.dials[target.Location]++
	e, ok := f.engines[target.Location]
	if !ok {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoEngine, target.Location)
	}
	if e.DialErr != nil {
		f.mu.Unlock()
		return nil, e.DialErr
	}
	f.open++
	f.mu.Unlock()

	client, server := net.Pipe()
	streamCtx, cancel := context.WithCancel(context.Background())

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer server.Close()
		f.run(streamCtx, e, server)
	}()

	return &stream{Conn: client, cancel: cancel, fleet: f}, nil
}

func (f *Fleet) run(ctx context.Context, e *Engine, conn net.Conn) {
	switch e.Behavior {
	case BehaviorHang:
		_, _ = io.Copy(io.Discard, conn)
	case BehaviorDisconnect:
		framer := transport.NewFramer(conn, 0)
		if _, err := framer.ReadFrame(); err != nil {
			return
		}
		reply, _ := wire.Encode(wire.NewHelloReply(wire.HelloReply{
			ProtocolVersion: version.Current,
			Status:          wire.StatusSuccess,
			EngineVersion:   e.Version,
			Product:         e.Product,
		}))
		if err := framer.WriteFrame(reply); err != nil {
			return
		}
		_, _ = framer.ReadFrame()
	default:
		_ = e.server().Serve(ctx, conn)
	}
}

// stream is the client end of a mock session.
type stream struct {
	net.Conn
	cancel context.CancelFunc
	fleet  *Fleet
	once   sync.Once
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.fleet.mu.Lock()
		s.fleet.open--
		s.fleet.mu.Unlock()
	})
	return s.Conn.Close()
}

// Compile-time interface satisfaction check.
var _ transport.Dialer = (*Fleet)(nil)
