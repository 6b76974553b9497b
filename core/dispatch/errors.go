package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// ErrorHandler turns an error into a handler-style result.
type ErrorHandler func(ctx context.Context, req *reqctx.Request, err error) (any, error)

type typedHandler func(ctx context.Context, req *reqctx.Request, err error) (any, bool, error)

// ErrorTable maps errors to responses. Type-keyed handlers are tried first in
// registration order, then status-keyed handlers. Register before dispatch starts.
type ErrorTable struct {
	typed    []typedHandler
	byStatus map[int]ErrorHandler
}

// NewErrorTable returns an empty table.
func NewErrorTable() *ErrorTable {
	return &ErrorTable{byStatus: make(map[int]ErrorHandler)}
}

// OnError registers h for errors that errors.As can convert to E.
func OnError[E error](t *ErrorTable, h func(ctx context.Context, req *reqctx.Request, err E) (any, error)) {
	t.typed = append(t.typed, func(ctx context.Context, req *reqctx.Request, err error) (any, bool, error) {
		var target E
		if !errors.As(err, &target) {
			return nil, false, nil
		}
		v, herr := h(ctx, req, target)
		return v, true, herr
	})
}

// OnStatus registers h for errors whose status is code. Errors without a
// StatusCode method count as 500. A later registration for the same code wins.
func (t *ErrorTable) OnStatus(code int, h ErrorHandler) {
	t.byStatus[code] = h
}

// Len returns the number of registered handlers.
func (t *ErrorTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.typed) + len(t.byStatus)
}

// lookup runs the first matching handler. ok is false when nothing matched.
func (t *ErrorTable) lookup(ctx context.Context, req *reqctx.Request, err error) (result any, ok bool, herr error) {
	if t == nil {
		return nil, false, nil
	}
	for _, h := range t.typed {
		if result, ok, herr = h(ctx, req, err); ok {
			return result, ok, herr
		}
	}
	if h, found := t.byStatus[response.StatusOf(err)]; found {
		result, herr = h(ctx, req, err)
		return result, true, herr
	}
	return nil, false, nil
}

// DefaultErrorResponse renders err as text with the status it carries, or 500.
func DefaultErrorResponse(err error) *response.Response {
	status := response.StatusOf(err)
	msg := err.Error()
	if msg == "" {
		msg = http.StatusText(status)
	}
	resp := response.New(status, []byte(msg))
	resp.Header.Set("Content-Type", response.ContentTypeText)
	return resp
}
