package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/tooling-api/tooling-go/pkg/connection"
)

// TCPScheme prefixes installation locations served by a running engine.
const TCPScheme = "tcp://"

// DefaultDialAttempts is the number of TCP connect attempts before giving up.
const DefaultDialAttempts = 5

// TCPDialer connects to an engine that is already listening.
type TCPDialer struct {
	// Timeout bounds each connect attempt (0 means no per-attempt bound).
	Timeout time.Duration

	// Attempts is the maximum number of connect attempts.
	Attempts int

	// Backoff configures the delay between attempts.
	Backoff connection.BackoffConfig
}

// NewTCPDialer creates a TCP dialer with default retry settings.
func NewTCPDialer() *TCPDialer {
	return &TCPDialer{
		Timeout:  5 * time.Second,
		Attempts: DefaultDialAttempts,
		Backoff:  connection.BackoffConfig{Jitter: connection.JitterFactor},
	}
}

// Dial connects to the host:port in target.Location, retrying refused
// connections with exponential backoff until the attempts are used up or
// ctx ends.
func (d *TCPDialer) Dial(ctx context.Context, target Target) (io.ReadWriteCloser, error) {
	addr, ok := strings.CutPrefix(target.Location, TCPScheme)
	if !ok || addr == "" {
		return nil, fmt.Errorf("invalid tcp location %q", target.Location)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("invalid tcp location %q: %w", target.Location, err)
	}

	attempts := d.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := connection.NewBackoffWithConfig(d.Backoff)
	dialer := net.Dialer{Timeout: d.Timeout}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := backoff.Wait(ctx); err != nil {
				return nil, fmt.Errorf("dial %s: %w (last error: %v)", addr, err, lastErr)
			}
		}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, ctx.Err())
		}
	}
	return nil, fmt.Errorf("dial %s: giving up after %d attempts: %w", addr, attempts, lastErr)
}
