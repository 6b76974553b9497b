package httpengine

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning   = errors.New("httpengine: server is already running")
	ErrMissingAddress   = errors.New("httpengine: server address is required")
	ErrInvalidPattern   = errors.New("httpengine: invalid route pattern")
	ErrDuplicateRoute   = errors.New("httpengine: duplicate route")
	ErrNilHandler       = errors.New("httpengine: nil handler")
	ErrWildcardPosition = errors.New("httpengine: wildcard '*' must be the last pattern token")
	ErrParamDelimiter   = errors.New("httpengine: route param closing delimiter '}' is missing")
	ErrConnClosed       = errors.New("httpengine: websocket connection closed")
)

func duplicateRoute(method, pattern string) error {
	return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, method, pattern)
}
