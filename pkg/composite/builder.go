package composite

import (
	"log/slog"
	"time"

	"github.com/tooling-api/tooling-go/pkg/capability"
	"github.com/tooling-api/tooling-go/pkg/log"
	"github.com/tooling-api/tooling-go/pkg/transport"
)

// DefaultClientName identifies this client in engine handshakes.
const DefaultClientName = "tooling-go"

type options struct {
	logger         *slog.Logger
	protocolLogger log.Logger
	metrics        *Metrics
	table          *capability.Table
	dialer         transport.Dialer
	maxParallel    int
	fetchTimeout   time.Duration
	clientName     string
	maxMessageSize uint32
}

func defaultOptions() options {
	return options{
		logger:     slog.New(slog.DiscardHandler),
		clientName: DefaultClientName,
	}
}

// Option configures a connection.
type Option func(*options)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProtocolLogger captures every session's frames and messages.
func WithProtocolLogger(l log.Logger) Option {
	return func(o *options) { o.protocolLogger = l }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCapabilities replaces the default capability table.
func WithCapabilities(t *capability.Table) Option {
	return func(o *options) { o.table = t }
}

// WithDialer sets how engines are reached. The default launches
// installation directories as processes and dials tcp:// locations.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithMaxParallel bounds concurrent fetches per GetModels call (0 means
// one goroutine per participant).
func WithMaxParallel(n int) Option {
	return func(o *options) { o.maxParallel = n }
}

// WithFetchTimeout bounds each participant's fetch. A fetch that runs out
// of time fails with a ConnectionError for that participant only.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// WithClientName sets the name reported in engine handshakes.
func WithClientName(name string) Option {
	return func(o *options) { o.clientName = name }
}

// WithMaxMessageSize bounds a single protocol frame.
func WithMaxMessageSize(n uint32) Option {
	return func(o *options) { o.maxMessageSize = n }
}

// Builder collects participants and opens a Connection.
//
//	b := composite.NewBuilder(composite.WithFetchTimeout(time.Minute))
//	b.NewParticipant("projects/app").UseInstallation("/opt/gradle-2.13").Create()
//	b.NewParticipant("projects/lib").UseInstallation("/opt/gradle-2.8").Create()
//	conn, err := b.Build()
type Builder struct {
	opts         []Option
	participants []Participant
	seen         map[BuildIdentity]bool
}

// NewBuilder creates a builder; opts apply to the built connection.
func NewBuilder(opts ...Option) *Builder {
	return &Builder{opts: opts, seen: make(map[BuildIdentity]bool)}
}

// ParticipantBuilder configures one participant before registration.
type ParticipantBuilder struct {
	b    *Builder
	root string
	inst Installation
}

// NewParticipant starts configuring the participant rooted at root.
func (b *Builder) NewParticipant(root string) *ParticipantBuilder {
	return &ParticipantBuilder{b: b, root: root}
}

// UseInstallation sets the engine installation location.
func (pb *ParticipantBuilder) UseInstallation(location string) *ParticipantBuilder {
	pb.inst.Location = location
	return pb
}

// UseVersion declares the installation's engine version.
func (pb *ParticipantBuilder) UseVersion(v string) *ParticipantBuilder {
	pb.inst.Version = v
	return pb
}

// Create registers the participant. Registering a second participant with
// the same identity fails with a *UsageError wrapping
// ErrDuplicateParticipant.
func (pb *ParticipantBuilder) Create() (Participant, error) {
	p, err := NewParticipant(pb.root, pb.inst)
	if err != nil {
		return Participant{}, err
	}
	if pb.b.seen[p.identity] {
		return Participant{}, &UsageError{Op: "Create", Err: ErrDuplicateParticipant, Detail: p.identity.String()}
	}
	pb.b.seen[p.identity] = true
	pb.b.participants = append(pb.b.participants, p)
	return p, nil
}

// Participants returns the registered participants in registration order.
func (b *Builder) Participants() []Participant {
	return append([]Participant(nil), b.participants...)
}

// Build opens a connection over the registered participants.
func (b *Builder) Build() (*Connection, error) {
	return Open(b.participants, b.opts...)
}
