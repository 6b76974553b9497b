package scheduler

import (
	"context"
	"sync"
)

// Shared is the process-wide background loop, built explicitly and started lazily.
// The loop is created at most once. It stays alive while at least one holder has
// acquired it; the last Release shuts it down and later Acquire calls fail.
type Shared struct {
	mu      sync.Mutex
	opts    []Option
	loop    *Loop
	refs    int
	created bool
}

// NewShared returns a Shared that will build its loop with opts on first Acquire.
func NewShared(opts ...Option) *Shared {
	return &Shared{opts: append([]Option{WithName("background")}, opts...)}
}

// Acquire returns the shared loop, starting it on the first call, and takes a reference.
func (s *Shared) Acquire() (*Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loop == nil {
		if s.created {
			return nil, ErrSharedClosed
		}
		s.loop = NewLoop(s.opts...)
		s.created = true
	}

	s.refs++
	return s.loop, nil
}

// Release drops a reference. The last one closes the loop and waits for its tasks
// until ctx is done.
func (s *Shared) Release(ctx context.Context) error {
	s.mu.Lock()
	if s.refs == 0 {
		s.mu.Unlock()
		return ErrNotAcquired
	}
	s.refs--
	if s.refs > 0 {
		s.mu.Unlock()
		return nil
	}
	loop := s.loop
	s.loop = nil
	s.mu.Unlock()

	return loop.Close(ctx)
}

// Refs returns the number of outstanding references.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Started reports whether the loop has ever been created.
func (s *Shared) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created
}

// Lease holds at most one reference to a Shared loop. The reference is taken on the
// first Loop call and dropped by Release, so a component that may never need the
// background loop never starts it.
type Lease struct {
	shared *Shared

	mu       sync.Mutex
	loop     *Loop
	released bool
}

// Lease returns a lease on s.
func (s *Shared) Lease() *Lease {
	return &Lease{shared: s}
}

// Loop returns the leased loop, acquiring it on first use.
func (l *Lease) Loop() (*Loop, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil, ErrSharedClosed
	}
	if l.loop != nil {
		return l.loop, nil
	}

	loop, err := l.shared.Acquire()
	if err != nil {
		return nil, err
	}
	l.loop = loop
	return loop, nil
}

// Release drops the reference if one was taken. Later Loop calls fail.
func (l *Lease) Release(ctx context.Context) error {
	l.mu.Lock()
	held := l.loop != nil
	l.loop = nil
	l.released = true
	l.mu.Unlock()

	if !held {
		return nil
	}
	return l.shared.Release(ctx)
}
