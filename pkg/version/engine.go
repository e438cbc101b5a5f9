package version

import (
	"fmt"
	"strconv"
	"strings"
)

// EngineVersion is a parsed build engine release version.
//
// Accepted forms are one to three dot-separated numeric components optionally
// followed by a qualifier: "2.8", "4.10.3", "1.0-milestone-8", "5.0-rc-1",
// "7.6-20221024231219+0000".
type EngineVersion struct {
	raw       string
	parts     [3]uint64
	qualifier string
}

// ParseEngine parses an engine version string.
func ParseEngine(s string) (EngineVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EngineVersion{}, fmt.Errorf("invalid engine version: empty")
	}

	numeric, qualifier, _ := strings.Cut(s, "-")
	comps := strings.Split(numeric, ".")
	if len(comps) > 3 {
		return EngineVersion{}, fmt.Errorf("invalid engine version %q: too many components", s)
	}

	v := EngineVersion{raw: s, qualifier: qualifier}
	for i, c := range comps {
		n, err := strconv.ParseUint(c, 10, 32)
		if err != nil || c == "" {
			return EngineVersion{}, fmt.Errorf("invalid engine version %q: bad component %q", s, c)
		}
		v.parts[i] = n
	}
	if strings.Contains(s, "-") && qualifier == "" {
		return EngineVersion{}, fmt.Errorf("invalid engine version %q: empty qualifier", s)
	}
	return v, nil
}

// MustParseEngine is like ParseEngine but panics on error. Intended for
// constants and tests.
func MustParseEngine(s string) EngineVersion {
	v, err := ParseEngine(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version exactly as it was parsed.
func (v EngineVersion) String() string {
	return v.raw
}

// IsZero reports whether v is the zero value (never parsed).
func (v EngineVersion) IsZero() bool {
	return v.raw == ""
}

// Qualifier returns the pre-release or snapshot qualifier, if any.
func (v EngineVersion) Qualifier() string {
	return v.qualifier
}

// IsRelease reports whether v carries no qualifier.
func (v EngineVersion) IsRelease() bool {
	return v.qualifier == ""
}

// BaseVersion returns v with its qualifier dropped, so "5.0-rc-1" becomes
// "5.0".
func (v EngineVersion) BaseVersion() EngineVersion {
	if v.qualifier == "" {
		return v
	}
	base, _, _ := strings.Cut(v.raw, "-")
	return EngineVersion{raw: base, parts: v.parts}
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to,
// or after other. A release sorts after any qualified build of the same
// numeric version.
func (v EngineVersion) Compare(other EngineVersion) int {
	for i := range v.parts {
		switch {
		case v.parts[i] < other.parts[i]:
			return -1
		case v.parts[i] > other.parts[i]:
			return 1
		}
	}
	return compareQualifiers(v.qualifier, other.qualifier)
}

// AtLeast reports whether v satisfies the minimum version min. A release
// minimum is met by any build of its base version, so "5.0-rc-1" is at least
// "5.0". A qualified minimum such as "1.0-milestone-8" is compared in full.
func (v EngineVersion) AtLeast(min EngineVersion) bool {
	if min.IsRelease() {
		return v.BaseVersion().Compare(min) >= 0
	}
	return v.Compare(min) >= 0
}

// Stage ranks for qualified builds. Unknown qualifiers sit between milestones
// and release candidates.
const (
	stageSnapshot = iota
	stageMilestone
	stageOther
	stageRC
	stageRelease
)

func compareQualifiers(a, b string) int {
	sa, na := splitQualifier(a)
	sb, nb := splitQualifier(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	case na < nb:
		return -1
	case na > nb:
		return 1
	}
	return strings.Compare(a, b)
}

func splitQualifier(q string) (stage int, number uint64) {
	if q == "" {
		return stageRelease, 0
	}
	name, num, _ := strings.Cut(q, "-")
	n, _ := strconv.ParseUint(num, 10, 32)
	switch {
	case name == "rc":
		return stageRC, n
	case name == "milestone":
		return stageMilestone, n
	case len(name) > 0 && name[0] >= '0' && name[0] <= '9':
		// Timestamped nightly/snapshot builds.
		return stageSnapshot, 0
	default:
		return stageOther, n
	}
}
