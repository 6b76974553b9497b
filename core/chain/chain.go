package chain

import (
	"context"
	"net/http"
	"slices"

	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// Middleware processes a request before the handler and its response after.
type Middleware interface {
	// ProcessRequest returns a non-nil response to short-circuit the remaining
	// request-phase middleware and the handler.
	ProcessRequest(ctx context.Context, req *reqctx.Request) (*response.Response, error)
	// ProcessResponse returns the response to pass on. Returning nil keeps resp.
	ProcessResponse(ctx context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error)
}

// Funcs adapts plain functions to Middleware. Either field may be nil.
type Funcs struct {
	Request  func(ctx context.Context, req *reqctx.Request) (*response.Response, error)
	Response func(ctx context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error)
}

func (f Funcs) ProcessRequest(ctx context.Context, req *reqctx.Request) (*response.Response, error) {
	if f.Request == nil {
		return nil, nil
	}
	return f.Request(ctx, req)
}

func (f Funcs) ProcessResponse(ctx context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error) {
	if f.Response == nil {
		return resp, nil
	}
	return f.Response(ctx, req, resp)
}

// Chain is an ordered middleware list. The zero value is an empty chain.
// A Chain must not be modified once dispatch has started.
type Chain struct {
	entries []Middleware
}

// New returns a chain holding mws in order.
func New(mws ...Middleware) *Chain {
	c := &Chain{}
	c.Use(mws...)
	return c
}

// Use appends middleware. Nil entries are ignored.
func (c *Chain) Use(mws ...Middleware) {
	for _, mw := range mws {
		if mw != nil {
			c.entries = append(c.entries, mw)
		}
	}
}

// Len returns the number of entries.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Clone returns an independent copy.
func (c *Chain) Clone() *Chain {
	if c == nil {
		return &Chain{}
	}
	return &Chain{entries: slices.Clone(c.entries)}
}

// ProcessRequest runs the request phase in registration order. The first non-nil
// response stops the phase and is returned. An error also stops the phase.
func (c *Chain) ProcessRequest(ctx context.Context, req *reqctx.Request) (*response.Response, error) {
	if c == nil {
		return nil, nil
	}
	for _, mw := range c.entries {
		resp, err := mw.ProcessRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}

// ProcessResponse runs the response phase over every entry in reverse order,
// including after a short-circuit. An error stops the phase.
func (c *Chain) ProcessResponse(ctx context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error) {
	if c == nil {
		return resp, nil
	}
	for _, mw := range slices.Backward(c.entries) {
		next, err := mw.ProcessResponse(ctx, req, resp)
		if err != nil {
			return resp, err
		}
		if next != nil {
			if next.Header == nil {
				next.Header = http.Header{}
			}
			resp = next
		}
	}
	return resp, nil
}
