package async

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when AwaitWithTimeout gives up before completion.
	ErrTimeout = errors.New("async: timeout waiting for future")
	// ErrNoFutures is returned by WaitAny without futures.
	ErrNoFutures = errors.New("async: no futures provided")
)

// Future holds the eventual result of an asynchronous computation.
// It is completed exactly once; later Resolve calls are ignored.
type Future[T any] struct {
	val  T
	err  error
	once sync.Once
	done chan struct{}
}

// NewFuture returns an unresolved future. The producer completes it with Resolve.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolve completes the future. It reports whether this call won.
func (f *Future[T]) Resolve(val T, err error) bool {
	won := false
	f.once.Do(func() {
		f.val, f.err = val, err
		won = true
		close(f.done)
	})
	return won
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future is resolved.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.val, f.err
}

// AwaitContext blocks until the future resolves or ctx is done.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout blocks for at most timeout.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-f.done:
		return f.val, f.err
	case <-t.C:
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete reports whether the future is resolved without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Async runs fn in a new goroutine and returns its future.
// A context canceled before fn starts resolves the future with ctx.Err().
func Async[T, U any](ctx context.Context, param T, fn func(context.Context, T) (U, error)) *Future[U] {
	f := NewFuture[U]()

	go func() {
		select {
		case <-ctx.Done():
			var zero U
			f.Resolve(zero, ctx.Err())
			return
		default:
		}

		f.Resolve(fn(ctx, param))
	}()

	return f
}

// WaitAll waits for every future and returns the results in order.
// The first error encountered, in order, is returned.
func WaitAll[T any](futures ...*Future[T]) ([]T, error) {
	out := make([]T, len(futures))
	var firstErr error
	for i, f := range futures {
		v, err := f.Await()
		out[i] = v
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return out, firstErr
}

// WaitAny returns the index and result of the first future to resolve.
func WaitAny[T any](futures ...*Future[T]) (int, T, error) {
	if len(futures) == 0 {
		var zero T
		return -1, zero, ErrNoFutures
	}

	type result struct {
		index int
		val   T
		err   error
	}
	done := make(chan result, len(futures))

	for i, f := range futures {
		go func(index int, f *Future[T]) {
			v, err := f.Await()
			done <- result{index, v, err}
		}(i, f)
	}

	res := <-done
	return res.index, res.val, res.err
}
