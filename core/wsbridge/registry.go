package wsbridge

import "sync"

// Registry is a mutex-guarded map keyed by connection ID.
// The bridge keeps live connections and pending handler tasks in separate registries.
type Registry[T any] struct {
	mu    sync.RWMutex
	items map[uint64]T
}

// NewRegistry returns an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{items: make(map[uint64]T)}
}

// Store sets the entry for id.
func (r *Registry[T]) Store(id uint64, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = v
}

// Load returns the entry for id.
func (r *Registry[T]) Load(id uint64) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.items[id]
	return v, ok
}

// LoadAndDelete removes the entry for id and returns it.
func (r *Registry[T]) LoadAndDelete(id uint64) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	delete(r.items, id)
	return v, ok
}

// Delete removes the entry for id.
func (r *Registry[T]) Delete(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Snapshot returns a copy of all entries.
func (r *Registry[T]) Snapshot() map[uint64]T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint64]T, len(r.items))
	for id, v := range r.items {
		out[id] = v
	}
	return out
}
