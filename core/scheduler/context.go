package scheduler

import "context"

type loopKey struct{}

// WithLoop returns a context that carries l. Engines that run their own loop use it
// to let cooperative handlers borrow the loop instead of the shared one.
func WithLoop(ctx context.Context, l *Loop) context.Context {
	return context.WithValue(ctx, loopKey{}, l)
}

// FromContext returns the loop carried by ctx, if any and still open.
func FromContext(ctx context.Context) (*Loop, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loopKey{}).(*Loop)
	if !ok || l == nil || l.Closed() {
		return nil, false
	}
	return l, true
}
