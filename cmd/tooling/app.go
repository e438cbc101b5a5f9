package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tooling-api/tooling-go/internal/logging"
	"github.com/tooling-api/tooling-go/pkg/composite"
	"github.com/tooling-api/tooling-go/pkg/config"
	"github.com/tooling-api/tooling-go/pkg/log"
	"github.com/tooling-api/tooling-go/pkg/version"
)

// globals are the persistent flags shared by every command.
type globals struct {
	configPath   string
	logLevel     string
	protocolLog  string
	capabilities string
	participants []string
	fetchTimeout time.Duration
	maxParallel  int
	metricsAddr  string
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "tooling",
		Short:         "Retrieve models from several builds at once",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Connection configuration file (YAML)")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&g.protocolLog, "protocol-log", "", "Write protocol events to this file (overrides config)")
	pf.StringVar(&g.capabilities, "capabilities", "", "Capability overlay file (overrides config)")
	pf.StringArrayVar(&g.participants, "participant", nil, "Participant as root=installation[@version] (repeatable)")
	pf.DurationVar(&g.fetchTimeout, "timeout", 0, "Per-participant fetch timeout (overrides config)")
	pf.IntVar(&g.maxParallel, "parallel", 0, "Maximum concurrent fetches (overrides config)")
	pf.StringVar(&g.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	root.AddCommand(
		newFetchCmd(g),
		newReplCmd(g),
		newCapabilitiesCmd(g),
		newLogCmd(),
	)
	return root
}

// parseParticipant splits root=installation[@version]. The text after the
// last '@' is taken as the version only if it parses as one, so locations
// such as tcp://user@host:7070 stay intact.
func parseParticipant(s string) (config.Participant, error) {
	root, rest, ok := strings.Cut(s, "=")
	if !ok || root == "" || rest == "" {
		return config.Participant{}, fmt.Errorf("invalid participant %q (want root=installation[@version])", s)
	}
	p := config.Participant{Root: root, Installation: rest}
	if i := strings.LastIndex(rest, "@"); i > 0 {
		if _, err := version.ParseEngine(rest[i+1:]); err == nil {
			p.Installation, p.Version = rest[:i], rest[i+1:]
		}
	}
	return p, nil
}

// loadConfig merges the configuration file with command-line overrides.
func (g *globals) loadConfig() (*config.Config, error) {
	var c *config.Config
	if g.configPath != "" {
		loaded, err := config.Load(g.configPath)
		if err != nil {
			return nil, err
		}
		c = loaded
	} else {
		c = &config.Config{}
	}

	for _, s := range g.participants {
		p, err := parseParticipant(s)
		if err != nil {
			return nil, err
		}
		c.Participants = append(c.Participants, p)
	}
	if g.logLevel != "" {
		c.LogLevel = g.logLevel
	}
	if g.protocolLog != "" {
		c.ProtocolLog = g.protocolLog
	}
	if g.capabilities != "" {
		c.Capabilities = g.capabilities
	}
	if g.fetchTimeout > 0 {
		c.FetchTimeout = g.fetchTimeout
	}
	if g.maxParallel > 0 {
		c.MaxParallel = g.maxParallel
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// session is an open connection with the resources it owns.
type session struct {
	conn    *composite.Connection
	logger  *slog.Logger
	closers []func() error
}

// Close closes the connection, then the resources it used.
func (s *session) Close() error {
	errs := []error{s.conn.Close()}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// open builds a connection from the merged configuration.
func (g *globals) open(ctx context.Context) (*session, error) {
	c, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(c.Level())
	s := &session{logger: logger}

	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts, composite.WithLogger(logger))

	if path := c.ProtocolLogPath(); path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, fl.Close)
		opts = append(opts, composite.WithProtocolLogger(fl))
	}

	if g.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics, err := composite.NewMetrics(reg)
		if err != nil {
			s.closeResources()
			return nil, err
		}
		stop, err := serveMetrics(ctx, g.metricsAddr, reg, logger)
		if err != nil {
			s.closeResources()
			return nil, err
		}
		s.closers = append(s.closers, stop)
		opts = append(opts, composite.WithMetrics(metrics))
	}

	b := composite.NewBuilder(opts...)
	if err := c.Register(b); err != nil {
		s.closeResources()
		return nil, err
	}
	conn, err := b.Build()
	if err != nil {
		s.closeResources()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

func (s *session) closeResources() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) (func() error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}
