package composite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tooling-api/tooling-go/pkg/connection"
	"github.com/tooling-api/tooling-go/pkg/transport"
	"github.com/tooling-api/tooling-go/pkg/version"
	"github.com/tooling-api/tooling-go/pkg/wire"
)

// Connection retrieves models from a fixed set of participants.
//
// GetModels is valid only while the connection is open. Close cancels
// fetches in flight, waits for them and releases every engine session
// exactly once; it is safe to call more than once and concurrently with
// GetModels.
type Connection struct {
	lifecycle  *connection.Lifecycle
	members    []*member
	identities []BuildIdentity
	fetcher    *Fetcher
	opts       options
}

// Open validates participants and returns an open connection. Engines are
// contacted lazily, on the first GetModels that needs them.
func Open(participants []Participant, opts ...Option) (*Connection, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if len(participants) == 0 {
		return nil, &UsageError{Op: "Open", Err: ErrNoParticipants}
	}
	if o.dialer == nil {
		o.dialer = transport.NewSchemeDialer()
	}

	c := &Connection{
		lifecycle: connection.NewLifecycle(),
		fetcher:   NewFetcher(o.table, o.logger, o.metrics, o.fetchTimeout),
		opts:      o,
	}

	seen := make(map[BuildIdentity]bool, len(participants))
	for _, p := range participants {
		if p.identity.IsZero() {
			return nil, &UsageError{Op: "Open", Err: ErrInvalidParticipant, Detail: "participant not created with NewParticipant"}
		}
		if seen[p.identity] {
			return nil, &UsageError{Op: "Open", Err: ErrDuplicateParticipant, Detail: p.identity.String()}
		}
		seen[p.identity] = true
		c.identities = append(c.identities, p.identity)
		c.members = append(c.members, newMember(p, o))
	}

	c.lifecycle.OnStateChange(func(oldState, newState connection.State) {
		o.logger.Debug("connection state changed",
			"old_state", oldState.String(), "new_state", newState.String(), "participants", len(participants))
	})
	if err := c.lifecycle.Open(); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the lifecycle state.
func (c *Connection) State() connection.State {
	return c.lifecycle.State()
}

// Participants returns the participants in registration order.
func (c *Connection) Participants() []Participant {
	out := make([]Participant, len(c.members))
	for i, m := range c.members {
		out[i] = m.participant
	}
	return out
}

// GetModels fetches a model of category from every participant
// concurrently. The ResultSet always holds one result per participant;
// per-participant failures are results, not errors. The returned error is
// a *UsageError when the connection is not open.
func (c *Connection) GetModels(ctx context.Context, category string) (*ResultSet, error) {
	if category == "" {
		return nil, &UsageError{Op: "GetModels", Err: ErrInvalidCategory}
	}

	ctx, release, err := c.lifecycle.Acquire(ctx)
	if err != nil {
		return nil, &UsageError{Op: "GetModels", Err: ErrConnectionClosed}
	}
	defer release()

	results := make([]ModelResult, len(c.members))
	var g errgroup.Group
	if c.opts.maxParallel > 0 {
		g.SetLimit(c.opts.maxParallel)
	}
	for i, m := range c.members {
		g.Go(func() error {
			results[i] = c.fetcher.Fetch(ctx, m, category)
			return nil
		})
	}
	_ = g.Wait()

	rs, err := Merge(c.identities, results)
	if err != nil {
		return nil, fmt.Errorf("get models: %w", err)
	}
	c.opts.logger.Info("models retrieved",
		"category", category,
		"participants", rs.Len(),
		"failures", len(rs.Failures()))
	return rs, nil
}

// Close releases all engine sessions. In-flight GetModels calls are
// cancelled; their participants fail with a ConnectionError.
func (c *Connection) Close() error {
	return c.lifecycle.Close(func() error {
		var errs []error
		for _, m := range c.members {
			if err := m.close(); err != nil {
				errs = append(errs, fmt.Errorf("closing %s: %w", m.participant.identity, err))
			}
		}
		return errors.Join(errs...)
	})
}

// member is a participant's engine session, opened on demand and reused
// across fetches.
type member struct {
	participant Participant
	dialer      transport.Dialer
	sessionOpts transport.SessionOptions
	logger      *slog.Logger
	metrics     *Metrics

	mu       sync.Mutex
	session  *transport.Session
	reported version.EngineVersion
	product  string
}

func newMember(p Participant, o options) *member {
	return &member{
		participant: p,
		dialer:      o.dialer,
		sessionOpts: transport.SessionOptions{
			Client:         o.clientName,
			BuildID:        p.identity.Fingerprint(),
			ProtocolLogger: o.protocolLogger,
			MaxMessageSize: o.maxMessageSize,
		},
		logger:  o.logger.With("build", p.identity.Fingerprint()),
		metrics: o.metrics,
	}
}

// Identity implements Source.
func (m *member) Identity() BuildIdentity {
	return m.participant.identity
}

// EngineVersion implements Source. A declared installation version is
// returned without contacting the engine.
func (m *member) EngineVersion(ctx context.Context) (version.EngineVersion, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if declared := m.participant.declared; !declared.IsZero() {
		return declared, m.product, nil
	}
	if _, err := m.sessionLocked(ctx); err != nil {
		return version.EngineVersion{}, "", err
	}
	return m.reported, m.product, nil
}

// RequestModel implements Source. A failed exchange drops the session so
// the next fetch starts a fresh one.
func (m *member) RequestModel(ctx context.Context, category string) (*wire.ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.sessionLocked(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := sess.RequestModel(ctx, category)
	if err != nil {
		m.dropLocked()
		return nil, err
	}
	return resp, nil
}

func (m *member) sessionLocked(ctx context.Context) (*transport.Session, error) {
	if m.session != nil {
		return m.session, nil
	}

	target := transport.Target{
		RootDir:  m.participant.identity.Path(),
		Location: m.participant.installation.Location,
	}
	rwc, err := m.dialer.Dial(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("starting engine %s: %w", target.Location, err)
	}
	sess, err := transport.OpenSession(ctx, rwc, target.RootDir, m.sessionOpts)
	if err != nil {
		return nil, err
	}
	reported, err := version.ParseEngine(sess.EngineVersion())
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("engine reported an invalid version: %w", err)
	}

	m.session = sess
	m.reported = reported
	m.product = sess.Product()
	m.metrics.sessionOpened()
	m.logger.Debug("engine session opened",
		"conn_id", sess.ConnectionID(), "engine_version", reported.String(), "location", target.Location)
	return sess, nil
}

func (m *member) dropLocked() {
	if m.session == nil {
		return
	}
	_ = m.session.Close()
	m.session = nil
	m.metrics.sessionClosed()
}

func (m *member) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	m.metrics.sessionClosed()
	return err
}

// Compile-time interface satisfaction check.
var _ Source = (*member)(nil)
