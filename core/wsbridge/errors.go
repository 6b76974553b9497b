package wsbridge

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamClosed is returned by Receive after end-of-stream was reported once.
	ErrStreamClosed = errors.New("wsbridge: stream closed")
	// ErrNotOpen is returned when sending on a connection that is not open.
	ErrNotOpen = errors.New("wsbridge: connection not open")
)

// BridgeError reports a failed cross-goroutine handoff for a connection.
type BridgeError struct {
	ConnID uint64
	Op     string
	Err    error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("wsbridge: %s for connection %d: %v", e.Op, e.ConnID, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }
