package scheduler

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrLoopClosed is returned when posting to or spawning on a closed loop.
	ErrLoopClosed = errors.New("scheduler: loop closed")
	// ErrSharedClosed is returned by Shared.Acquire after the shared loop was shut down.
	ErrSharedClosed = errors.New("scheduler: shared loop already shut down")
	// ErrNotAcquired is returned by Shared.Release without a matching Acquire.
	ErrNotAcquired = errors.New("scheduler: release without acquire")
)

// PanicError wraps a value recovered from a panicking task or callback.
type PanicError struct {
	value any
	stack []byte
}

// NewPanicError captures the current stack for a recovered value.
func NewPanicError(v any) *PanicError {
	return &PanicError{value: v, stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Value returns the original panic value.
func (e *PanicError) Value() any { return e.value }

// Stack returns the stack trace captured at the recover point.
func (e *PanicError) Stack() []byte { return e.stack }

// Unwrap exposes a panicked error to errors.Is and errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
