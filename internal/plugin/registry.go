package plugin

import (
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitepress/internal/source"
)

type registered struct {
	ext Extension
	seq int
}

// Registry holds extensions in priority order. Extensions with equal
// priority keep their registration order.
type Registry struct {
	mu     sync.RWMutex
	exts   []registered
	names  map[string]struct{}
	seq    int
	sorted []Extension
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds an extension. Names must be unique.
func (r *Registry) Register(ext Extension) error {
	if ext == nil {
		return fmt.Errorf("cannot register nil extension")
	}
	name := ext.Name()
	if name == "" {
		return fmt.Errorf("extension name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		return fmt.Errorf("extension %s already registered", name)
	}
	r.names[name] = struct{}{}
	r.exts = append(r.exts, registered{ext: ext, seq: r.seq})
	r.seq++
	r.sorted = nil
	return nil
}

// MustRegister registers every extension and panics on error.
func (r *Registry) MustRegister(exts ...Extension) {
	for _, ext := range exts {
		if err := r.Register(ext); err != nil {
			panic(err)
		}
	}
}

// Has reports whether an extension with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[name]
	return ok
}

// Extensions returns all extensions in execution order.
func (r *Registry) Extensions() []Extension {
	r.mu.RLock()
	if r.sorted != nil {
		out := r.sorted
		r.mu.RUnlock()
		return out
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sorted == nil {
		r.sorted = sortExtensions(r.exts)
	}
	return r.sorted
}

func sortExtensions(exts []registered) []Extension {
	ordered := make([]registered, len(exts))
	copy(ordered, exts)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := ordered[i].ext.Priority(), ordered[j].ext.Priority()
		if pi != pj {
			return pi < pj
		}
		return ordered[i].seq < ordered[j].seq
	})
	out := make([]Extension, len(ordered))
	for i, e := range ordered {
		out[i] = e.ext
	}
	return out
}

// Collect returns the extensions implementing T, in execution order.
func Collect[T any](r *Registry) []T {
	var out []T
	for _, ext := range r.Extensions() {
		if t, ok := ext.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Converters returns all registered converters in execution order.
// Converters grouped in a Composite are returned in the composite's
// position, in child order.
func (r *Registry) Converters() []Converter {
	var out []Converter
	var walk func(exts []Extension)
	walk = func(exts []Extension) {
		for _, ext := range exts {
			if c, ok := ext.(Converter); ok {
				out = append(out, c)
			}
			if comp, ok := ext.(*Composite); ok {
				walk(comp.Children())
			}
		}
	}
	walk(r.Extensions())
	return out
}

// Generators returns all registered generators in execution order.
func (r *Registry) Generators() []Generator { return Collect[Generator](r) }

// Converter returns the first converter matching src.
func (r *Registry) Converter(src source.Source) (Converter, error) {
	for _, c := range r.Converters() {
		if c.Matches(src) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoConverterFound, src.Entry().RelPath())
}
