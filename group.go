package enginekit

import (
	"net/http"

	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/routes"
)

// Group registers routes under a shared URL prefix.
type Group struct {
	app    *App
	prefix string
}

// Prefix returns the group's URL prefix.
func (g *Group) Prefix() string { return g.prefix }

// Group returns a nested group.
func (g *Group) Group(prefix string) *Group {
	return g.app.Group(g.prefix + prefix)
}

func (g *Group) Route(r routes.Route) error {
	r.Pattern = g.prefix + r.Pattern
	return g.app.Route(r)
}

func (g *Group) Handle(methods []string, pattern string, h Handler, opts ...RouteOption) error {
	return g.app.Handle(methods, g.prefix+pattern, h, opts...)
}

func (g *Group) Get(pattern string, h Handler, opts ...RouteOption) error {
	return g.Handle([]string{http.MethodGet}, pattern, h, opts...)
}

func (g *Group) Post(pattern string, h Handler, opts ...RouteOption) error {
	return g.Handle([]string{http.MethodPost}, pattern, h, opts...)
}

func (g *Group) Put(pattern string, h Handler, opts ...RouteOption) error {
	return g.Handle([]string{http.MethodPut}, pattern, h, opts...)
}

func (g *Group) Patch(pattern string, h Handler, opts ...RouteOption) error {
	return g.Handle([]string{http.MethodPatch}, pattern, h, opts...)
}

func (g *Group) Delete(pattern string, h Handler, opts ...RouteOption) error {
	return g.Handle([]string{http.MethodDelete}, pattern, h, opts...)
}

func (g *Group) WebSocket(pattern string, h SocketHandler, cfg ...engine.WebSocketConfig) error {
	return g.app.WebSocket(g.prefix+pattern, h, cfg...)
}
