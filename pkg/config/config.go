// Package config loads the YAML description of a composite connection.
//
// A configuration file lists the participating builds and how to reach
// their engines:
//
//	log_level: info
//	fetch_timeout: 30s
//	max_parallel: 4
//	capabilities: extra-capabilities.yaml
//	protocol_log: session.mlog
//	dialer:
//	  engine_binary: tooling-engine
//	  connect_timeout: 5s
//	  connect_attempts: 5
//	participants:
//	  - root: ./app
//	    installation: /opt/engines/2.13
//	  - root: ./legacy
//	    installation: tcp://127.0.0.1:7070
//	    version: "2.8"
//
// Relative paths are resolved against the directory containing the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tooling-api/tooling-go/pkg/capability"
	"github.com/tooling-api/tooling-go/pkg/composite"
	"github.com/tooling-api/tooling-go/pkg/transport"
)

// Validation errors.
var (
	ErrNoParticipants      = errors.New("at least one participant is required")
	ErrMissingRoot         = errors.New("participant root is required")
	ErrMissingInstallation = errors.New("participant installation is required")
	ErrInvalidLogLevel     = errors.New("invalid log level")
	ErrNegativeValue       = errors.New("value must not be negative")
)

// Config is a composite connection description.
type Config struct {
	LogLevel     string        `yaml:"log_level"`
	ClientName   string        `yaml:"client_name"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	MaxParallel  int           `yaml:"max_parallel"`
	Capabilities string        `yaml:"capabilities"`
	ProtocolLog  string        `yaml:"protocol_log"`
	Dialer       Dialer        `yaml:"dialer"`
	Participants []Participant `yaml:"participants"`

	// baseDir is where relative paths are resolved.
	baseDir string
}

// Dialer configures how engines are started or reached.
type Dialer struct {
	EngineBinary    string        `yaml:"engine_binary"`
	EngineArgs      []string      `yaml:"engine_args"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	GracePeriod     time.Duration `yaml:"grace_period"`
}

// Participant is one build and its engine installation.
type Participant struct {
	Root         string `yaml:"root"`
	Installation string `yaml:"installation"`
	Version      string `yaml:"version,omitempty"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	return Parse(data, filepath.Dir(abs))
}

// Parse decodes and validates a configuration. Relative paths are resolved
// against baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	c.baseDir = baseDir
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Participants) == 0 {
		return ErrNoParticipants
	}
	for i, p := range c.Participants {
		if strings.TrimSpace(p.Root) == "" {
			return fmt.Errorf("participants[%d]: %w", i, ErrMissingRoot)
		}
		if strings.TrimSpace(p.Installation) == "" {
			return fmt.Errorf("participants[%d] (%s): %w", i, p.Root, ErrMissingInstallation)
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch_timeout: %w", ErrNegativeValue)
	}
	if c.MaxParallel < 0 {
		return fmt.Errorf("max_parallel: %w", ErrNegativeValue)
	}
	if c.Dialer.ConnectTimeout < 0 || c.Dialer.GracePeriod < 0 {
		return fmt.Errorf("dialer: %w", ErrNegativeValue)
	}
	if c.Dialer.ConnectAttempts < 0 {
		return fmt.Errorf("dialer.connect_attempts: %w", ErrNegativeValue)
	}
	return nil
}

// ParseLevel maps a configured log level to an slog level. Empty selects
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}

// Level returns the configured log level.
func (c *Config) Level() slog.Level {
	level, _ := ParseLevel(c.LogLevel)
	return level
}

// Resolve returns path made absolute against the config directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// resolveLocation leaves tcp:// addresses untouched.
func (c *Config) resolveLocation(location string) string {
	if strings.HasPrefix(location, transport.TCPScheme) {
		return location
	}
	return c.Resolve(location)
}

// ProtocolLogPath returns the resolved protocol log path (empty if unset).
func (c *Config) ProtocolLogPath() string {
	return c.Resolve(c.ProtocolLog)
}

// NewDialer builds the engine dialer described by the configuration.
func (c *Config) NewDialer() *transport.SchemeDialer {
	d := transport.NewSchemeDialer()

	proc := transport.NewProcessDialer()
	if c.Dialer.EngineBinary != "" {
		proc.Binary = c.Dialer.EngineBinary
	}
	proc.Args = c.Dialer.EngineArgs
	if c.Dialer.GracePeriod > 0 {
		proc.GracePeriod = c.Dialer.GracePeriod
	}
	d.Process = proc

	tcp := transport.NewTCPDialer()
	if c.Dialer.ConnectTimeout > 0 {
		tcp.Timeout = c.Dialer.ConnectTimeout
	}
	if c.Dialer.ConnectAttempts > 0 {
		tcp.Attempts = c.Dialer.ConnectAttempts
	}
	d.TCP = tcp
	return d
}

// CapabilityTable returns the default table with the configured overlay
// applied.
func (c *Config) CapabilityTable() (*capability.Table, error) {
	table := capability.Default()
	if c.Capabilities == "" {
		return table, nil
	}
	return table.LoadFile(c.Resolve(c.Capabilities))
}

// Options returns the connection options the configuration describes.
// Loggers and metrics are left to the caller.
func (c *Config) Options() ([]composite.Option, error) {
	table, err := c.CapabilityTable()
	if err != nil {
		return nil, err
	}
	opts := []composite.Option{
		composite.WithCapabilities(table),
		composite.WithDialer(c.NewDialer()),
		composite.WithMaxParallel(c.MaxParallel),
		composite.WithFetchTimeout(c.FetchTimeout),
	}
	if c.ClientName != "" {
		opts = append(opts, composite.WithClientName(c.ClientName))
	}
	return opts, nil
}

// Register adds every configured participant to b.
func (c *Config) Register(b *composite.Builder) error {
	for _, p := range c.Participants {
		pb := b.NewParticipant(c.Resolve(p.Root)).UseInstallation(c.resolveLocation(p.Installation))
		if p.Version != "" {
			pb = pb.UseVersion(p.Version)
		}
		if _, err := pb.Create(); err != nil {
			return fmt.Errorf("participant %s: %w", p.Root, err)
		}
	}
	return nil
}
