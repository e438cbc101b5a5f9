package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// DefaultEngineBinary is the engine executable looked up under
// <installation>/bin.
const DefaultEngineBinary = "tooling-engine"

// DefaultGracePeriod is how long Close waits for an engine to exit after
// its input is closed before killing it.
const DefaultGracePeriod = 2 * time.Second

// ProcessDialer launches one engine process per session and talks to it
// over stdin/stdout.
type ProcessDialer struct {
	// Binary is the executable name under <installation>/bin.
	Binary string

	// Args are extra arguments passed after the project directory flag.
	Args []string

	// Env is appended to the current environment.
	Env []string

	// Stderr receives the engine's diagnostic output (discarded if nil).
	Stderr io.Writer

	// GracePeriod bounds the wait for a clean exit on Close.
	GracePeriod time.Duration
}

// NewProcessDialer creates a process dialer with default settings.
func NewProcessDialer() *ProcessDialer {
	return &ProcessDialer{Binary: DefaultEngineBinary, GracePeriod: DefaultGracePeriod}
}

// EnginePath returns the executable the dialer launches for an installation.
func (d *ProcessDialer) EnginePath(location string) string {
	binary := d.Binary
	if binary == "" {
		binary = DefaultEngineBinary
	}
	return filepath.Join(location, "bin", binary)
}

// Dial starts the engine for target. The process is not tied to ctx; it
// lives until the returned stream is closed.
func (d *ProcessDialer) Dial(ctx context.Context, target Target) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if target.Location == "" {
		return nil, errors.New("no engine installation configured")
	}

	path := d.EnginePath(target.Location)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("engine not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("engine path %s is a directory", path)
	}

	args := append([]string{"--project-dir", target.RootDir}, d.Args...)
	cmd := exec.Command(path, args...)
	cmd.Dir = target.RootDir
	cmd.Env = append(cmd.Environ(), d.Env...)
	cmd.Stderr = d.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %s: %w", path, err)
	}

	grace := d.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &processConn{cmd: cmd, stdin: stdin, stdout: stdout, grace: grace}, nil
}

// processConn is the stdio stream of a running engine.
type processConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	grace  time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (c *processConn) Read(p []byte) (int, error)  { return c.stdout.Read(p) }
func (c *processConn) Write(p []byte) (int, error) { return c.stdin.Write(p) }

// Close ends the engine's input and reaps the process, killing it if it
// has not exited within the grace period. Closing stdout first releases a
// Read still blocked on the engine; Wait must not run while one is pending.
func (c *processConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.stdin.Close()
		_ = c.stdout.Close()

		exited := make(chan error, 1)
		go func() { exited <- c.cmd.Wait() }()

		select {
		case err := <-exited:
			var exitErr *exec.ExitError
			if err != nil && !errors.As(err, &exitErr) {
				c.closeErr = err
			}
		case <-time.After(c.grace):
			_ = c.cmd.Process.Kill()
			<-exited
		}
	})
	return c.closeErr
}
