package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Builder produces the model of one category for a build.
type Builder interface {
	BuildModel(ctx context.Context, rootDir string) (any, error)
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, rootDir string) (any, error)

// BuildModel calls f.
func (f BuilderFunc) BuildModel(ctx context.Context, rootDir string) (any, error) {
	return f(ctx, rootDir)
}

// StaticBuilder returns a builder that always yields model.
func StaticBuilder(model any) Builder {
	return BuilderFunc(func(context.Context, string) (any, error) {
		return model, nil
	})
}

// FailingBuilder returns a builder that always fails with message.
func FailingBuilder(message string) Builder {
	err := errors.New(message)
	return BuilderFunc(func(context.Context, string) (any, error) {
		return nil, err
	})
}

// Registry maps model categories to builders. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds or replaces the builder for category.
func (r *Registry) Register(category string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[category] = b
}

// Lookup returns the builder for category.
func (r *Registry) Lookup(category string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[category]
	return b, ok
}

// Categories returns the registered categories, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builders))
	for c := range r.builders {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
