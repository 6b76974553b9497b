package middleware

import (
	"context"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// RequestID echoes the request ID assigned by the request context manager in the
// X-Request-ID response header.
func RequestID() chain.Middleware {
	return RequestIDWithHeader(reqctx.DefaultRequestIDHeader)
}

// RequestIDWithHeader is RequestID with a custom header name.
func RequestIDWithHeader(header string) chain.Middleware {
	if header == "" {
		header = reqctx.DefaultRequestIDHeader
	}
	return chain.Funcs{
		Response: func(_ context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error) {
			if id := req.ID(); id != "" {
				resp.Header.Set(header, id)
			}
			return resp, nil
		},
	}
}
