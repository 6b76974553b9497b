// Package async provides a small generic Future type.
//
// A Future is resolved exactly once, either by Async (which runs a function in its own
// goroutine) or by a producer holding it directly:
//
//	f := async.NewFuture[engine.Reply]()
//	loop.Go(ctx, func(ctx context.Context) {
//		f.Resolve(render(ctx), nil)
//	})
//	reply, err := f.AwaitContext(ctx)
//
// WaitAll and WaitAny coordinate several futures. All operations are safe for
// concurrent use.
package async
