package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooling-api/tooling-go/pkg/composite"
	"github.com/tooling-api/tooling-go/pkg/transport"
)

const sample = `
log_level: debug
client_name: ide-sync
fetch_timeout: 30s
max_parallel: 4
protocol_log: logs/session.mlog
dialer:
  engine_binary: my-engine
  engine_args: ["--offline"]
  connect_timeout: 2s
  connect_attempts: 3
  grace_period: 500ms
participants:
  - root: app
    installation: engines/2.13
  - root: /abs/legacy
    installation: tcp://127.0.0.1:7070
    version: "2.8"
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample), "/work")
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, c.Level())
	assert.Equal(t, "ide-sync", c.ClientName)
	assert.Equal(t, 30*time.Second, c.FetchTimeout)
	assert.Equal(t, 4, c.MaxParallel)
	assert.Equal(t, "/work/logs/session.mlog", c.ProtocolLogPath())
	assert.Equal(t, 500*time.Millisecond, c.Dialer.GracePeriod)
	require.Len(t, c.Participants, 2)
	assert.Equal(t, "2.8", c.Participants[1].Version)
}

func TestNewDialer(t *testing.T) {
	c, err := Parse([]byte(sample), "/work")
	require.NoError(t, err)

	d := c.NewDialer()
	proc, ok := d.Process.(*transport.ProcessDialer)
	require.True(t, ok)
	assert.Equal(t, "my-engine", proc.Binary)
	assert.Equal(t, []string{"--offline"}, proc.Args)
	assert.Equal(t, 500*time.Millisecond, proc.GracePeriod)

	tcp, ok := d.TCP.(*transport.TCPDialer)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, tcp.Timeout)
	assert.Equal(t, 3, tcp.Attempts)
}

func TestDialerDefaults(t *testing.T) {
	c, err := Parse([]byte("participants: [{root: a, installation: b}]"), "/work")
	require.NoError(t, err)

	d := c.NewDialer()
	proc := d.Process.(*transport.ProcessDialer)
	assert.Equal(t, transport.DefaultEngineBinary, proc.Binary)
	assert.Equal(t, transport.DefaultGracePeriod, proc.GracePeriod)
	assert.Equal(t, transport.DefaultDialAttempts, d.TCP.(*transport.TCPDialer).Attempts)
	assert.Equal(t, slog.LevelInfo, c.Level())
}

func TestRegister(t *testing.T) {
	c, err := Parse([]byte(sample), "/work")
	require.NoError(t, err)

	b := composite.NewBuilder()
	require.NoError(t, c.Register(b))

	ps := b.Participants()
	require.Len(t, ps, 2)
	assert.Equal(t, "/work/app", ps[0].Identity().Path())
	assert.Equal(t, "/work/engines/2.13", ps[0].Installation().Location)
	assert.Equal(t, "tcp://127.0.0.1:7070", ps[1].Installation().Location)
	assert.Equal(t, "2.8", ps[1].DeclaredVersion().String())
}

func TestRegisterDuplicate(t *testing.T) {
	c, err := Parse([]byte(`
participants:
  - {root: app, installation: e1}
  - {root: ./app/, installation: e2}
`), "/work")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Register(composite.NewBuilder()), composite.ErrDuplicateParticipant)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"no participants", "log_level: info", ErrNoParticipants},
		{"missing root", "participants: [{installation: e}]", ErrMissingRoot},
		{"missing installation", "participants: [{root: a}]", ErrMissingInstallation},
		{"bad level", "log_level: loud\nparticipants: [{root: a, installation: e}]", ErrInvalidLogLevel},
		{"negative timeout", "fetch_timeout: -1s\nparticipants: [{root: a, installation: e}]", ErrNegativeValue},
		{"negative parallel", "max_parallel: -2\nparticipants: [{root: a, installation: e}]", ErrNegativeValue},
		{"negative attempts", "dialer: {connect_attempts: -1}\nparticipants: [{root: a, installation: e}]", ErrNegativeValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), "/work")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("participants: [unterminated"), "/work")
	assert.ErrorContains(t, err, "parsing config")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	overlay := "custom_models_since: \"1.6\"\ncategories:\n  - name: KotlinDslScripts\n    since: \"4.8\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "caps.yaml"), []byte(overlay), 0o644))
	cfg := "capabilities: caps.yaml\nparticipants: [{root: app, installation: engine}]\n"
	path := filepath.Join(dir, "tooling.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app"), c.Resolve("app"))

	table, err := c.CapabilityTable()
	require.NoError(t, err)
	rec, ok := table.Lookup("KotlinDslScripts")
	require.True(t, ok)
	assert.Equal(t, "4.8", rec.IntroducedIn)
	_, ok = table.Lookup("ProjectPublications")
	assert.True(t, ok, "overlay keeps built-in categories")

	opts, err := c.Options()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
