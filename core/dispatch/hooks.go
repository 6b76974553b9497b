package dispatch

import (
	"context"

	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// BeforeFunc runs before request-phase middleware. A non-nil response skips the
// middleware request phase and the handler.
type BeforeFunc func(ctx context.Context, req *reqctx.Request) (*response.Response, error)

// AfterFunc runs after the middleware response phase. A non-nil return replaces resp.
type AfterFunc func(ctx context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error)

// TeardownFunc always runs at the end of a dispatch. err is the error that
// produced the response, if any. Failures are logged and never change the response.
type TeardownFunc func(ctx context.Context, req *reqctx.Request, err error) error
