package ms

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Options carries the parsed pieces of a table URL to a backend factory.
type Options struct {
	Path   string
	Host   string
	Params map[string]string
}

// String returns a query parameter or the default when unset.
func (o Options) String(key, def string) string {
	if v, ok := o.Params[key]; ok && v != "" {
		return v
	}
	return def
}

// Int returns an integer query parameter or the default when unset or invalid.
func (o Options) Int(key string, def int) int {
	if v, ok := o.Params[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Int64 returns a 64-bit integer query parameter or the default.
func (o Options) Int64(key string, def int64) int64 {
	if v, ok := o.Params[key]; ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

// Float returns a float query parameter or the default.
func (o Options) Float(key string, def float64) float64 {
	if v, ok := o.Params[key]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns a boolean query parameter or the default.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o.Params[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Ints parses a comma-separated integer list parameter. Unset or empty
// yields nil.
func (o Options) Ints(key string) []int {
	v, ok := o.Params[key]
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Factory creates a table backend from parsed URL options.
type Factory func(ctx context.Context, opts Options) (Table, error)

// Registry holds table backend factories indexed by URL scheme.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for the given scheme.
// Panics if the scheme is already registered.
func (r *Registry) Register(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[scheme]; exists {
		panic(fmt.Sprintf("table backend already registered: %s", scheme))
	}
	r.factories[scheme] = factory
}

// Get returns the factory for the given scheme.
func (r *Registry) Get(scheme string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[scheme]
	return factory, ok
}

// List returns all registered schemes.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}

// Open resolves a table URL ("sim:?seed=42", "bundle:/data/export",
// "bridge://host:7040/AS209") against the registry and opens the table.
func (r *Registry) Open(ctx context.Context, rawURL string) (Table, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, WrapError(CodeInvalidConfig, false, err)
	}
	if u.Scheme == "" {
		return nil, Errorf(CodeUnknownBackend, false, "table URL %q has no backend scheme", rawURL)
	}
	factory, ok := r.Get(u.Scheme)
	if !ok {
		return nil, Errorf(CodeUnknownBackend, false, "unknown table backend: %s", u.Scheme)
	}

	opts := Options{Host: u.Host, Params: map[string]string{}}
	if u.Opaque != "" {
		opts.Path = u.Opaque
	} else {
		opts.Path = u.Path
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			opts.Params[k] = vs[0]
		}
	}
	return factory(ctx, opts)
}

// --- Default Global Registry ---

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global backend registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(scheme string, factory Factory) {
	defaultRegistry.Register(scheme, factory)
}

// Open opens a table URL against the default registry.
func Open(ctx context.Context, rawURL string) (Table, error) {
	return defaultRegistry.Open(ctx, rawURL)
}
