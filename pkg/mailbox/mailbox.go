package mailbox

import (
	"context"
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// ErrClosed is returned by Push after Close, and by Pop once a closed mailbox is drained.
var ErrClosed = errors.New("mailbox: closed")

// Mailbox is an unbounded FIFO with many producers and one consumer.
// Push never blocks; Pop blocks until an item arrives, the mailbox is closed and
// drained, or the context is done.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  *queue.Queue
	closed bool
	notify chan struct{}
}

// New returns an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		items:  queue.New(),
		notify: make(chan struct{}, 1),
	}
}

// Push appends v. Items pushed by one goroutine are popped in the order pushed.
func (m *Mailbox[T]) Push(v T) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.items.Add(v)
	m.mu.Unlock()

	m.wake()
	return nil
}

// Pop removes the oldest item, waiting for one if necessary.
func (m *Mailbox[T]) Pop(ctx context.Context) (T, error) {
	for {
		if v, ok, err := m.tryPop(); ok || err != nil {
			return v, err
		}

		select {
		case <-m.notify:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes the oldest item without waiting.
func (m *Mailbox[T]) TryPop() (T, bool) {
	v, ok, _ := m.tryPop()
	return v, ok
}

// Close stops accepting items. Items already queued can still be popped.
// Close is idempotent.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.wake()
}

// Closed reports whether Close was called.
func (m *Mailbox[T]) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Length()
}

func (m *Mailbox[T]) tryPop() (T, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.items.Length() > 0 {
		v := m.items.Remove().(T)
		if m.items.Length() > 0 {
			// keep the consumer awake for the rest of the backlog
			m.wake()
		}
		return v, true, nil
	}

	var zero T
	if m.closed {
		return zero, false, ErrClosed
	}
	return zero, false, nil
}

func (m *Mailbox[T]) wake() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
