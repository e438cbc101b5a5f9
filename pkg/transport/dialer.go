package transport

import (
	"context"
	"io"
	"strings"
)

// Target names the engine a dialer should reach for one build.
type Target struct {
	// RootDir is the canonical root directory of the build.
	RootDir string

	// Location is the engine installation: a directory or a tcp:// address.
	Location string
}

// Dialer opens a byte stream to the engine serving a target.
type Dialer interface {
	Dial(ctx context.Context, target Target) (io.ReadWriteCloser, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, target Target) (io.ReadWriteCloser, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, target Target) (io.ReadWriteCloser, error) {
	return f(ctx, target)
}

// SchemeDialer routes tcp:// locations to TCP and everything else to Process.
type SchemeDialer struct {
	TCP     Dialer
	Process Dialer
}

// NewSchemeDialer returns a SchemeDialer with default process and TCP dialers.
func NewSchemeDialer() *SchemeDialer {
	return &SchemeDialer{TCP: NewTCPDialer(), Process: NewProcessDialer()}
}

// Dial selects a dialer from the target location.
func (d *SchemeDialer) Dial(ctx context.Context, target Target) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(target.Location, TCPScheme) {
		return d.TCP.Dial(ctx, target)
	}
	return d.Process.Dial(ctx, target)
}

// Compile-time interface satisfaction checks.
var (
	_ Dialer = DialerFunc(nil)
	_ Dialer = (*SchemeDialer)(nil)
	_ Dialer = (*ProcessDialer)(nil)
	_ Dialer = (*TCPDialer)(nil)
)
