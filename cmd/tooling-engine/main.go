// Command tooling-engine is a stub build engine. It serves the models listed
// in build-models.yaml of a project directory over the model exchange
// protocol.
//
// Usage:
//
//	tooling-engine --project-dir <dir> [flags]
//
// By default one session is served on stdin/stdout, which is how the
// process dialer launches an engine from an installation directory. With
// --listen the engine accepts TCP sessions instead, for installations given
// as tcp://host:port.
//
// Examples:
//
//	# Serve on stdio, reporting engine version 2.8
//	tooling-engine --project-dir ./app --engine-version 2.8
//
//	# Serve over TCP
//	tooling-engine --project-dir ./app --listen 127.0.0.1:7070
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tooling-api/tooling-go/internal/logging"
	"github.com/tooling-api/tooling-go/pkg/config"
	"github.com/tooling-api/tooling-go/pkg/engine"
	"github.com/tooling-api/tooling-go/pkg/log"
	"github.com/tooling-api/tooling-go/pkg/version"
)

// engineVersion is the version reported when --engine-version is not given.
// Override at link time with -ldflags "-X main.engineVersion=...".
var engineVersion = "2.13"

type flags struct {
	projectDir    string
	engineVersion string
	product       string
	listen        string
	logLevel      string
	protocolLog   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "tooling-engine",
		Short:         "Serve models described by build-models.yaml",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.projectDir, "project-dir", "", "Root directory of the build")
	fl.StringVar(&f.engineVersion, "engine-version", engineVersion, "Engine version reported in the handshake")
	fl.StringVar(&f.product, "product", engine.DefaultProduct, "Product name reported in the handshake")
	fl.StringVar(&f.listen, "listen", "", "Accept TCP sessions on this address instead of stdio")
	fl.StringVar(&f.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	fl.StringVar(&f.protocolLog, "protocol-log", "", "Write protocol events to this file")
	_ = cmd.MarkFlagRequired("project-dir")
	return cmd
}

func run(ctx context.Context, f flags) error {
	level, err := config.ParseLevel(f.logLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level)

	if _, err := version.ParseEngine(f.engineVersion); err != nil {
		return fmt.Errorf("--engine-version: %w", err)
	}

	desc, err := engine.LoadDescription(f.projectDir)
	if err != nil {
		return err
	}

	opts := []engine.Option{
		engine.WithProduct(f.product),
		engine.WithRegistry(desc.Registry()),
		engine.WithLogger(logger),
		engine.WithRootValidator(directoryExists),
	}
	if f.protocolLog != "" {
		fl, err := log.NewFileLogger(f.protocolLog)
		if err != nil {
			return err
		}
		defer fl.Close()
		opts = append(opts, engine.WithProtocolLogger(fl))
	}
	srv := engine.NewServer(f.engineVersion, opts...)

	logger.Info("engine ready",
		"project_dir", f.projectDir,
		"engine_version", f.engineVersion,
		"categories", desc.Categories())

	if f.listen != "" {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", f.listen)
		if err != nil {
			return err
		}
		logger.Info("listening", "addr", ln.Addr().String())
		return serveTCP(ctx, srv, ln, logger)
	}
	err = srv.Serve(ctx, stdio{})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveTCP serves every accepted connection until ctx ends.
func serveTCP(ctx context.Context, srv *engine.Server, ln net.Listener, logger *slog.Logger) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			if err := srv.Serve(ctx, conn); err != nil && ctx.Err() == nil {
				logger.Warn("session ended with error", "remote", conn.RemoteAddr().String(), "err", err)
			}
		}()
	}
}

func directoryExists(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("build root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("build root %s is not a directory", root)
	}
	return nil
}

// stdio is the engine's protocol stream when launched by a process dialer.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdin.Close() }

var _ io.ReadWriteCloser = stdio{}
