// Package version provides protocol and engine version parsing and comparison.
//
// Two kinds of versions travel through the client:
//   - ProtocolVersion is the "major.minor" version of the model exchange
//     protocol, negotiated during the handshake.
//   - EngineVersion is the release version of the build engine a participant
//     runs (for example "2.8", "1.12", "5.0-rc-1"), used to decide which model
//     categories the engine can produce.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the protocol version implemented by this library.
const Current = "1.0"

// ProtocolVersion represents a parsed "major.minor" protocol version.
type ProtocolVersion struct {
	Major uint16
	Minor uint16
}

// ParseProtocol parses a "major.minor" protocol version string.
func ParseProtocol(s string) (ProtocolVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return ProtocolVersion{}, fmt.Errorf("invalid protocol version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid protocol version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return ProtocolVersion{}, fmt.Errorf("invalid protocol version %q: bad minor component", s)
	}

	return ProtocolVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// CheckCompatible parses a peer's protocol version and verifies it shares the
// major version of Current.
func CheckCompatible(peer string) error {
	local, _ := ParseProtocol(Current)
	remote, err := ParseProtocol(peer)
	if err != nil {
		return err
	}
	if !local.Compatible(remote) {
		return fmt.Errorf("protocol version %s is not compatible with %s", remote, local)
	}
	return nil
}
