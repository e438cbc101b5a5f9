package composite

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// BuildIdentity is the canonical root directory of a participant. Two
// identities are equal exactly when their canonical paths are equal; the
// type is comparable and can be used as a map key.
type BuildIdentity struct {
	path string
}

// NewBuildIdentity canonicalizes root: the path is made absolute and
// cleaned, and symlinks are resolved when the path exists.
func NewBuildIdentity(root string) (BuildIdentity, error) {
	if root == "" {
		return BuildIdentity{}, errors.New("empty root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return BuildIdentity{}, fmt.Errorf("resolving %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		abs = resolved
	case errors.Is(err, os.ErrNotExist):
		// Keep the cleaned absolute path for builds not on this disk.
	default:
		return BuildIdentity{}, fmt.Errorf("resolving %s: %w", root, err)
	}
	return BuildIdentity{path: filepath.Clean(abs)}, nil
}

// MustBuildIdentity is like NewBuildIdentity but panics on error.
func MustBuildIdentity(root string) BuildIdentity {
	id, err := NewBuildIdentity(root)
	if err != nil {
		panic(err)
	}
	return id
}

// Path returns the canonical root directory.
func (id BuildIdentity) Path() string { return id.path }

// String returns the canonical root directory.
func (id BuildIdentity) String() string { return id.path }

// IsZero reports whether id was never initialized.
func (id BuildIdentity) IsZero() bool { return id.path == "" }

// Equal reports whether id and other name the same build.
func (id BuildIdentity) Equal(other BuildIdentity) bool { return id.path == other.path }

// Fingerprint returns a short stable digest of the canonical path, used to
// tag log lines and protocol captures.
func (id BuildIdentity) Fingerprint() string {
	sum := blake2b.Sum256([]byte(id.path))
	return hex.EncodeToString(sum[:6])
}
