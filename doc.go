// Package enginekit connects application handlers to a native network engine.
//
// The engine owns sockets, HTTP parsing and route matching, and it invokes
// callbacks on arbitrary goroutines. An App collects routes, middleware, hooks
// and WebSocket handlers during startup, then Mount registers one callback per
// route with the engine. Every callback runs the request through a scoped
// request context, the middleware chain, the cookie session and error handling
// before a reply is handed back.
//
// # Packages
//
//   - core/engine: the engine contracts and a StaticRequest helper
//   - core/engine/httpengine: a net/http engine with gorilla/websocket upgrades
//   - core/reqctx: per-request context acquired and released around each dispatch
//   - core/dispatch: sync, async and fast-path dispatch wrappers
//   - core/chain: request and response phase middleware
//   - core/session, core/cookie: signed cookie sessions
//   - core/wsbridge: per-connection ordered message streams for WebSocket handlers
//   - core/routes: typed patterns, converters and the immutable route table
//   - core/response: result normalization and response helpers
//   - core/scheduler: cooperative loops and the shared background loop
//   - core/config, core/logger: environment configuration and slog setup
//   - middleware: RequestID, Logging, BodyLimit, SecurityHeaders, CORS, RateLimit
//   - pkg/async, pkg/mailbox, pkg/ratelimiter: supporting primitives
//
// # Usage
//
//	app, err := enginekit.New(enginekit.WithConfig(cfg))
//	if err != nil {
//		return err
//	}
//	app.Use(middleware.RequestID())
//	app.Get("/users/<int:id>", func(ctx context.Context, req *enginekit.Request, p enginekit.Params) (any, error) {
//		return map[string]any{"id": p.Int("id")}, nil
//	})
//	app.WebSocket("/echo", func(ctx context.Context, ws *enginekit.WebSocket) error {
//		for msg := range ws.Messages(ctx) {
//			if err := ws.Send(msg.Text()); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
//	return app.Run(ctx)
package enginekit
