// Package httpengine is a net/http implementation of the engine contracts.
//
// It stands in for a native engine in the demo binary and in end-to-end tests.
// Routes use the application pattern syntax ("/user/<int:id>") and are matched by a
// radix tree; converters are enforced by the dispatch layer, not here. WebSocket
// routes are upgraded with gorilla/websocket. Per-route limits are enforced in the
// reader goroutine and reported only as a disconnect reason:
//
//	e := httpengine.New(httpengine.DefaultConfig())
//	_ = e.RegisterRoute(http.MethodGet, "/ping", func(ctx context.Context, req engine.Request) engine.Reply {
//		return engine.Reply{Status: http.StatusOK, Body: []byte("pong")}
//	})
//	g.Go(e.Run(ctx))
package httpengine
