package capability

import (
	"github.com/tooling-api/tooling-go/pkg/version"
)

// Kind is the outcome of classifying a category against an engine version.
type Kind uint8

const (
	// Supported means the engine version can build the category; whether
	// this particular build has a builder is decided by the live exchange.
	Supported Kind = iota

	// UnsupportedByVersion means the engine predates the category.
	UnsupportedByVersion

	// UnknownCategory means the category is not in the table. It is treated
	// as build-declared: the engine supports custom models, and the live
	// exchange decides whether the build provides it.
	UnknownCategory
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Supported:
		return "SUPPORTED"
	case UnsupportedByVersion:
		return "UNSUPPORTED_BY_VERSION"
	case UnknownCategory:
		return "UNKNOWN_CATEGORY"
	default:
		return "UNKNOWN"
	}
}

// Classification is the result of Classify.
type Classification struct {
	Kind     Kind
	Category string

	// Connected is the engine version that was classified.
	Connected version.EngineVersion

	// MinVersion is the version reported to users as the one that added
	// support. Set only for UnsupportedByVersion.
	MinVersion version.EngineVersion

	// Required is the version actually needed by this client, which can be
	// later than MinVersion when composite retrieval arrived after the
	// category itself. Set only for UnsupportedByVersion.
	Required version.EngineVersion
}

// Proceed reports whether a live exchange should be attempted.
func (c Classification) Proceed() bool {
	return c.Kind != UnsupportedByVersion
}

// Classify decides whether an engine at the given version can be asked for a
// model of the given category.
func (t *Table) Classify(category string, engine version.EngineVersion) Classification {
	c := Classification{Category: category, Connected: engine}

	e, known := t.entries[category]
	if !known || e.record.Custom {
		if !engine.AtLeast(t.customSince) {
			c.Kind = UnsupportedByVersion
			c.MinVersion = t.customSince
			c.Required = t.customSince
			return c
		}
		if !known {
			c.Kind = UnknownCategory
			return c
		}
	}

	if !engine.AtLeast(e.introducedIn) {
		c.Kind = UnsupportedByVersion
		c.MinVersion = e.introducedIn
		c.Required = e.introducedIn
		return c
	}
	if !e.compositeSince.IsZero() && !engine.AtLeast(e.compositeSince) {
		c.Kind = UnsupportedByVersion
		c.MinVersion = e.introducedIn
		c.Required = e.compositeSince
		return c
	}

	c.Kind = Supported
	return c
}
