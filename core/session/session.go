package session

import (
	"maps"
	"slices"
	"sync"
)

// Session is a key/value mapping bound to one request.
// Any mutation marks it modified; only modified sessions are persisted.
type Session struct {
	mu   sync.RWMutex
	data map[string]any

	// isModified tracks if the session needs saving
	isModified bool
}

// New returns an empty, unmodified session.
func New() *Session {
	return &Session{data: make(map[string]any)}
}

// FromMap returns an unmodified session holding a copy of data.
func FromMap(data map[string]any) *Session {
	s := New()
	for k, v := range data {
		s.data[k] = normalize(v)
	}
	return s
}

// Get returns the value stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// GetString returns the value under key if it is a string.
func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetInt returns the value under key if it is a whole number.
func (s *Session) GetInt(key string) (int64, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}

// Has reports whether key is present.
func (s *Session) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key. Numbers are stored as int64 when whole and as
// float64 otherwise, the same shape they have after a cookie round trip.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = normalize(value)
	s.isModified = true
}

// Delete removes key. Deleting a missing key still marks the session modified.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	s.isModified = true
}

// Pop removes key and returns its previous value.
func (s *Session) Pop(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	delete(s.data, key)
	s.isModified = true
	return v, ok
}

// Update stores every entry of values.
func (s *Session) Update(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.data[k] = normalize(v)
	}
	s.isModified = true
}

// Clear removes all keys.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
	s.isModified = true
}

// Keys returns the keys in sorted order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Len returns the number of keys.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Values returns a copy of the session contents.
func (s *Session) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// IsModified returns true if the session has been modified and needs saving.
func (s *Session) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isModified
}

// MarkModified forces a save, e.g. after mutating a nested value in place.
func (s *Session) MarkModified() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isModified = true
}
