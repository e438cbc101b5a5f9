// Package capability maps model categories to the engine versions able to
// build them.
//
// The table is configuration data: the built-in categories are embedded from
// capabilities.yaml and further records can be layered on top with Overlay or
// LoadFile without touching the classification rules in Classify.
//
// A Table is immutable once built and is safe for concurrent use.
package capability

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tooling-api/tooling-go/pkg/version"
)

//go:embed capabilities.yaml
var builtin []byte

// DefaultProduct is the engine product name used when a manifest omits one.
const DefaultProduct = "Gradle"

// Record describes one model category.
type Record struct {
	// Category is the model type token, e.g. "ProjectPublications".
	Category string `yaml:"name"`

	// IntroducedIn is the first engine version able to build the category.
	IntroducedIn string `yaml:"since"`

	// Custom marks build-declared categories; they additionally require
	// custom model support in the engine.
	Custom bool `yaml:"custom,omitempty"`

	// CompositeSince is the first engine version able to serve the category
	// over a multi-participant connection. Empty means IntroducedIn.
	CompositeSince string `yaml:"composite_since,omitempty"`
}

// Manifest is the YAML document shape of a capability table.
type Manifest struct {
	Product           string   `yaml:"product,omitempty"`
	CustomModelsSince string   `yaml:"custom_models_since,omitempty"`
	Categories        []Record `yaml:"categories"`
}

type entry struct {
	record         Record
	introducedIn   version.EngineVersion
	compositeSince version.EngineVersion
}

// Table is a read-only category → minimum version mapping.
type Table struct {
	product     string
	customSince version.EngineVersion
	entries     map[string]entry
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Parse(builtin)
})

// Default returns the table built from the embedded capabilities.yaml.
// The result is shared; callers must treat it as read-only (all Table
// methods are).
func Default() *Table {
	t, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("embedded capability table is invalid: %v", err))
	}
	return t
}

// Parse builds a table from a YAML manifest.
func Parse(data []byte) (*Table, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing capability manifest: %w", err)
	}
	return New(m)
}

// New builds a table from a manifest value.
func New(m Manifest) (*Table, error) {
	t := &Table{
		product: m.Product,
		entries: make(map[string]entry, len(m.Categories)),
	}
	if t.product == "" {
		t.product = DefaultProduct
	}
	if m.CustomModelsSince == "" {
		return nil, fmt.Errorf("capability manifest: custom_models_since is required")
	}
	cs, err := version.ParseEngine(m.CustomModelsSince)
	if err != nil {
		return nil, fmt.Errorf("capability manifest: custom_models_since: %w", err)
	}
	t.customSince = cs

	if err := t.add(m.Categories); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadFile reads a YAML overlay from path and layers it on top of t.
func (t *Table) LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capability overlay: %w", err)
	}
	return t.Overlay(data)
}

// Overlay returns a new table containing t's records merged with the records
// of the YAML manifest in data. Records in the overlay replace records of the
// same category; product and custom_models_since are replaced when set.
func (t *Table) Overlay(data []byte) (*Table, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing capability overlay: %w", err)
	}

	out := t.clone()
	if m.Product != "" {
		out.product = m.Product
	}
	if m.CustomModelsSince != "" {
		cs, err := version.ParseEngine(m.CustomModelsSince)
		if err != nil {
			return nil, fmt.Errorf("capability overlay: custom_models_since: %w", err)
		}
		out.customSince = cs
	}
	if err := out.add(m.Categories); err != nil {
		return nil, err
	}
	return out, nil
}

// With returns a new table with the given records added or replaced.
func (t *Table) With(records ...Record) (*Table, error) {
	out := t.clone()
	if err := out.add(records); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Table) clone() *Table {
	out := &Table{
		product:     t.product,
		customSince: t.customSince,
		entries:     make(map[string]entry, len(t.entries)),
	}
	for k, v := range t.entries {
		out.entries[k] = v
	}
	return out
}

func (t *Table) add(records []Record) error {
	for _, r := range records {
		if r.Category == "" {
			return fmt.Errorf("capability record: empty category name")
		}
		intro, err := version.ParseEngine(r.IntroducedIn)
		if err != nil {
			return fmt.Errorf("capability record %s: since: %w", r.Category, err)
		}
		e := entry{record: r, introducedIn: intro}
		if r.CompositeSince != "" {
			cs, err := version.ParseEngine(r.CompositeSince)
			if err != nil {
				return fmt.Errorf("capability record %s: composite_since: %w", r.Category, err)
			}
			e.compositeSince = cs
		}
		t.entries[r.Category] = e
	}
	return nil
}

// Product returns the engine product name used in user-facing messages.
func (t *Table) Product() string {
	return t.product
}

// CustomModelsSince returns the first engine version supporting
// build-declared model categories.
func (t *Table) CustomModelsSince() version.EngineVersion {
	return t.customSince
}

// Lookup returns the record for a category.
func (t *Table) Lookup(category string) (Record, bool) {
	e, ok := t.entries[category]
	return e.record, ok
}

// Records returns all records sorted by category name.
func (t *Table) Records() []Record {
	out := make([]Record, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
