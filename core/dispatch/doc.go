// Package dispatch adapts one engine callback into the request pipeline:
//
//	(a) acquire the request context
//	(b) open the session when a signing key is configured
//	(c) run before-request hooks, then request-phase middleware; the first non-nil
//	    response short-circuits the rest and the handler
//	(d) extract typed parameters and call the handler
//	(e) normalize the result into (body, status, headers)
//	(f) run response-phase middleware in reverse order, then after-request hooks
//	(g) save the session when it was modified
//	(h) run teardown hooks; their failures are logged and never change the reply
//	(i) release the request context
//
// Errors and panics raised in (b) through (f) go through the ErrorTable: handlers
// registered with OnError are matched with errors.As in registration order, then
// status handlers registered with OnStatus, then DefaultErrorResponse.
//
// When a Dispatcher has no middleware, sessions or hooks, string, byte slice and
// structured results skip straight to (body, 200, default headers). The reply is
// identical to the one the full pipeline would produce.
//
// Blocking routes use Wrap and run on the engine's goroutine. Cooperative routes use
// WrapAsync: the handler becomes a task on the scheduler loop found in the delivering
// context, or on the shared background loop, and the reply is passed to the engine's
// completion callback.
package dispatch
