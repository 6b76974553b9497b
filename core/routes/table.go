package routes

import (
	"fmt"
	"slices"
	"sync"
)

// Builder collects routes during startup. Build freezes it.
type Builder struct {
	mu       sync.Mutex
	bindings []*Binding
	keys     map[string]struct{}
	frozen   bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{keys: make(map[string]struct{})}
}

// Add validates r and records its binding.
func (b *Builder) Add(r Route) (*Binding, error) {
	binding, err := newBinding(r)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frozen {
		return nil, ErrFrozen
	}
	for _, m := range binding.methods {
		key := m + " " + binding.Pattern()
		if _, dup := b.keys[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
		}
	}
	for _, m := range binding.methods {
		b.keys[m+" "+binding.Pattern()] = struct{}{}
	}

	b.bindings = append(b.bindings, binding)
	return binding, nil
}

// Freeze closes registration without building a table.
func (b *Builder) Freeze() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
}

// Frozen reports whether registration is closed.
func (b *Builder) Frozen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frozen
}

// Bindings returns the bindings added so far without freezing.
func (b *Builder) Bindings() []*Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.bindings)
}

// Build freezes the builder and returns the immutable table.
// Calling Build again returns an equivalent table.
func (b *Builder) Build() *Table {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frozen = true
	return &Table{bindings: slices.Clone(b.bindings)}
}

// Table is the immutable set of route bindings. Safe for concurrent use.
type Table struct {
	bindings []*Binding
}

// Bindings returns the bindings in registration order.
func (t *Table) Bindings() []*Binding {
	return slices.Clone(t.bindings)
}

// Len returns the number of bindings.
func (t *Table) Len() int { return len(t.bindings) }

// Lookup returns the first binding serving method whose pattern matches path.
// Engines do their own matching; Lookup serves tests and introspection.
func (t *Table) Lookup(method, path string) (*Binding, bool) {
	for _, b := range t.bindings {
		if !slices.Contains(b.methods, method) {
			continue
		}
		if _, ok := b.pattern.Match(path); ok {
			return b, true
		}
	}
	return nil, false
}
