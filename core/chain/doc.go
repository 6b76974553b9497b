// Package chain runs ordered request/response middleware around a handler.
//
// The request phase visits middleware in registration order. The first middleware
// that returns a non-nil *response.Response short-circuits: later request-phase
// middleware and the handler are skipped. The response phase always visits every
// middleware in reverse order, short-circuited or not.
//
//	c := chain.New(
//		middleware.RequestID(),
//		chain.Funcs{
//			Request: func(ctx context.Context, req *reqctx.Request) (*response.Response, error) {
//				if req.Header().Get("Authorization") == "" {
//					return response.New(http.StatusUnauthorized, nil), nil
//				}
//				return nil, nil
//			},
//		},
//	)
package chain
