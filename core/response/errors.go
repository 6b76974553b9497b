package response

import (
	"errors"
	"net/http"
	"strings"
)

// HTTPError is an error that carries the HTTP status to reply with.
// The dispatcher uses StatusCode when no registered error handler matches.
type HTTPError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewHTTPError creates an HTTPError. An empty message defaults to the status text.
func NewHTTPError(status int, message string) HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return HTTPError{
		Status:  status,
		Code:    statusCodeName(status),
		Message: message,
	}
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for the error.
func (e HTTPError) StatusCode() int {
	return e.Status
}

// Is matches HTTPErrors by status and code, so errors.Is(err, ErrNotFound) holds
// for customized copies.
func (e HTTPError) Is(target error) bool {
	var t HTTPError
	if !errors.As(target, &t) {
		return false
	}
	return e.Status == t.Status && e.Code == t.Code
}

// WithMessage returns a copy of the error with a custom message.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e HTTPError) WithDetails(details map[string]any) HTTPError {
	e.Details = details
	return e
}

// Predefined HTTP errors using http.StatusText for default messages.
var (
	ErrBadRequest            = NewHTTPError(http.StatusBadRequest, "")
	ErrUnauthorized          = NewHTTPError(http.StatusUnauthorized, "")
	ErrForbidden             = NewHTTPError(http.StatusForbidden, "")
	ErrNotFound              = NewHTTPError(http.StatusNotFound, "")
	ErrMethodNotAllowed      = NewHTTPError(http.StatusMethodNotAllowed, "")
	ErrConflict              = NewHTTPError(http.StatusConflict, "")
	ErrRequestEntityTooLarge = NewHTTPError(http.StatusRequestEntityTooLarge, "")
	ErrUnprocessableEntity   = NewHTTPError(http.StatusUnprocessableEntity, "")
	ErrTooManyRequests       = NewHTTPError(http.StatusTooManyRequests, "")
	ErrInternalServerError   = NewHTTPError(http.StatusInternalServerError, "")
	ErrServiceUnavailable    = NewHTTPError(http.StatusServiceUnavailable, "")
)

// ErrNilResponse is returned by Normalize for a bare nil handler result.
var ErrNilResponse = NewHTTPError(http.StatusInternalServerError, "handler returned a nil response")

// StatusOf returns the status carried by err through a StatusCode method,
// or 500 when there is none.
func StatusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code > 0 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// statusCodeName turns "Not Found" into "not_found".
func statusCodeName(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	text = strings.ToLower(text)
	text = strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text)
	return text
}
