package enginekit

import (
	"errors"

	"github.com/dmitrymomot/enginekit/core/routes"
)

var (
	// ErrFrozen is returned when registering after Mount.
	ErrFrozen = routes.ErrFrozen
	// ErrMounted is returned when Mount is called twice.
	ErrMounted = errors.New("enginekit: app is already mounted")
	// ErrNotMounted is returned by Close before Mount.
	ErrNotMounted = errors.New("enginekit: app is not mounted")
	// ErrDuplicateSocket is returned when a WebSocket pattern is registered twice.
	ErrDuplicateSocket = errors.New("enginekit: duplicate websocket route")
	// ErrNilHandler is returned for a nil WebSocket handler.
	ErrNilHandler = errors.New("enginekit: nil handler")
)
