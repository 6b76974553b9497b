package routes

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrFrozen is returned when registering after the table has been built.
	ErrFrozen = errors.New("routes: registration is closed, table already built")
	// ErrInvalidPattern is returned for malformed route patterns.
	ErrInvalidPattern = errors.New("routes: invalid pattern")
	// ErrNilHandler is returned when a route has no handler.
	ErrNilHandler = errors.New("routes: nil handler")
	// ErrDuplicateRoute is returned when the same method and pattern are registered twice.
	ErrDuplicateRoute = errors.New("routes: duplicate route")
)

// ErrNoMatch is returned by Extract when the path does not fit the pattern. It maps to 404.
var ErrNoMatch error = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string   { return "routes: path does not match pattern" }
func (*notFoundError) StatusCode() int { return http.StatusNotFound }

// ValidationError reports a malformed or out-of-range parameter. It maps to 400.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for '%s': %s", e.Param, e.Message)
}

// StatusCode implements the status-bearing error convention.
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

func invalid(param, format string, args ...any) *ValidationError {
	return &ValidationError{Param: param, Message: fmt.Sprintf(format, args...)}
}
