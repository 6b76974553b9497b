package enginekit

import (
	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/core/routes"
	"github.com/dmitrymomot/enginekit/core/wsbridge"
)

type (
	// Request is the per-dispatch request context handed to handlers.
	Request = reqctx.Request
	// Params holds converted path and query parameters.
	Params = routes.Params
	// Handler is a route handler.
	Handler = routes.Handler
	// Response is a normalized response.
	Response = response.Response
	// Middleware participates in the request and response phases.
	Middleware = chain.Middleware
	// WebSocket is a bridged connection.
	WebSocket = wsbridge.WebSocket
	// SocketHandler serves one WebSocket connection.
	SocketHandler = wsbridge.Handler
)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method    string
	Pattern   string
	WebSocket bool
}

// RouteOption adjusts a route before it is added.
type RouteOption func(*routes.Route)

// Cooperative runs the handler as a task on a scheduler loop instead of the
// engine's delivering goroutine.
func Cooperative() RouteOption {
	return func(r *routes.Route) { r.Mode = routes.Cooperative }
}

// Rule constrains the named path parameter.
func Rule(name string, rules ...routes.Rule) RouteOption {
	return func(r *routes.Route) {
		if r.Rules == nil {
			r.Rules = make(map[string][]routes.Rule)
		}
		r.Rules[name] = append(r.Rules[name], rules...)
	}
}

// Query declares typed query string parameters.
func Query(params ...routes.QueryParam) RouteOption {
	return func(r *routes.Route) { r.Query = append(r.Query, params...) }
}
