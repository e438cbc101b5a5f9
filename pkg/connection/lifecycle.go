package connection

import (
	"context"
	"errors"
	"sync"
)

// Lifecycle errors.
var (
	ErrNotOpen     = errors.New("not open")
	ErrClosed      = errors.New("closed")
	ErrAlreadyOpen = errors.New("already open")
)

// State is the lifecycle state of a connection.
type State uint8

const (
	// StateCreated is the state before Open.
	StateCreated State = iota

	// StateOpen accepts operations.
	StateOpen

	// StateClosed is terminal.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Lifecycle guards the Created -> Open -> Closed state machine of a
// connection and tracks the operations running against it.
//
// An operation calls Acquire, runs with the returned context and calls the
// release function when done. Close moves to Closed atomically with respect
// to Acquire, cancels every operation context, waits for the running
// operations to release and then frees resources exactly once. Acquire never
// observes a half-closed state: it either succeeds before Close (and Close
// waits for it) or fails with ErrClosed.
type Lifecycle struct {
	mu       sync.Mutex
	state    State
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	done     chan struct{}
	closeErr error

	onStateChange func(oldState, newState State)
}

// NewLifecycle creates a lifecycle in StateCreated.
func NewLifecycle() *Lifecycle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{
		state:  StateCreated,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// OnStateChange registers a callback invoked after each transition.
// Must be set before Open.
func (l *Lifecycle) OnStateChange(fn func(oldState, newState State)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onStateChange = fn
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Open moves Created -> Open.
func (l *Lifecycle) Open() error {
	l.mu.Lock()
	switch l.state {
	case StateOpen:
		l.mu.Unlock()
		return ErrAlreadyOpen
	case StateClosed:
		l.mu.Unlock()
		return ErrClosed
	}
	l.state = StateOpen
	fn := l.onStateChange
	l.mu.Unlock()

	if fn != nil {
		fn(StateCreated, StateOpen)
	}
	return nil
}

// Acquire registers an operation. The returned context is derived from
// parent and is also cancelled when Close starts. The release function must
// be called exactly once when the operation finishes.
func (l *Lifecycle) Acquire(parent context.Context) (context.Context, func(), error) {
	l.mu.Lock()
	switch l.state {
	case StateCreated:
		l.mu.Unlock()
		return nil, nil, ErrNotOpen
	case StateClosed:
		l.mu.Unlock()
		return nil, nil, ErrClosed
	}
	l.inflight.Add(1)
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(l.ctx, cancel)

	var once sync.Once
	release := func() {
		once.Do(func() {
			stop()
			cancel()
			l.inflight.Done()
		})
	}
	return ctx, release, nil
}

// Close moves to Closed, cancels running operations, waits for them and
// then calls free. Later calls free nothing and return nil once the first
// Close has finished. Close must not be called from inside an acquired
// operation.
func (l *Lifecycle) Close(free func() error) error {
	l.mu.Lock()
	if l.state == StateClosed {
		l.mu.Unlock()
		<-l.done
		return nil
	}
	old := l.state
	l.state = StateClosed
	fn := l.onStateChange
	l.mu.Unlock()

	l.cancel()
	l.inflight.Wait()

	if free != nil {
		l.closeErr = free()
	}
	close(l.done)

	if fn != nil {
		fn(old, StateClosed)
	}
	return l.closeErr
}

// Done is closed once Close has released resources.
func (l *Lifecycle) Done() <-chan struct{} {
	return l.done
}
