// Package scheduler runs cooperative handler tasks on behalf of engines that deliver
// events on arbitrary goroutines and have no scheduler of their own.
//
// A Loop owns one goroutine that executes posted callbacks strictly in order, which
// makes it the single logical owner for state that must only be mutated in sequence.
// Tasks started with Loop.Go run in their own goroutines but are tracked by the loop:
// Close waits for them and never cancels them.
//
// Shared is the one deliberate process-wide resource: an explicitly constructed,
// lazily started, reference-counted background loop.
//
//	shared := scheduler.NewShared(scheduler.WithLogger(log))
//	loop, err := shared.Acquire()
//	if err != nil {
//		return err
//	}
//	defer shared.Release(ctx)
//
// Engines that run their own loop pass it down with WithLoop; FromContext finds it.
package scheduler
