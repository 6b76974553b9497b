// Package reqctx manages the lifetime of the per-dispatch request context.
//
// Manager.Acquire builds a Request from the engine's native view and binds it into
// a context.Context slot owned by the dispatching frame. Scope.Release empties that
// slot, so a context that outlives its dispatch can no longer reach the request:
//
//	ctx, scope := manager.Acquire(ctx, native)
//	defer scope.Release()
//
//	req, ok := reqctx.FromContext(ctx)
//
// The Manager counts acquisitions and releases; Stats makes "released exactly once"
// observable in tests. LogExtractor plugs the request ID into core/logger.
package reqctx
