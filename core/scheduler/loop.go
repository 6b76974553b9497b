package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/pkg/async"
	"github.com/dmitrymomot/enginekit/pkg/mailbox"
)

// Loop is a cooperative scheduler: one goroutine runs posted callbacks strictly in
// post order, and handler tasks spawned with Go are tracked until they return.
// Post and Go are safe to call from any goroutine.
type Loop struct {
	name   string
	logger *slog.Logger

	posts *mailbox.Mailbox[func()]
	tasks sync.WaitGroup

	mu     sync.Mutex
	closed bool

	active atomic.Int64
	done   chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered callback panics.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithName labels the loop in log records.
func WithName(name string) Option {
	return func(lp *Loop) {
		if name != "" {
			lp.name = name
		}
	}
}

// NewLoop starts a loop goroutine and returns the loop.
func NewLoop(opts ...Option) *Loop {
	l := &Loop{
		name:   "loop",
		logger: logger.Discard(),
		posts:  mailbox.New[func()](),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		fn, err := l.posts.Pop(context.Background())
		if err != nil {
			return
		}
		l.invoke(fn)
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			pe := NewPanicError(p)
			l.logger.Error("scheduler callback panicked",
				logger.Component("scheduler"),
				slog.String("loop", l.name),
				logger.Panic(p),
				logger.StackBytes(pe.Stack()),
			)
		}
	}()
	fn()
}

// Post hands fn to the loop goroutine. Callbacks run one at a time in post order.
func (l *Loop) Post(fn func()) error {
	if err := l.posts.Push(fn); err != nil {
		return ErrLoopClosed
	}
	return nil
}

// Go starts fn as a task owned by the loop. The task context carries the loop, so
// work started from inside the task can borrow it via FromContext.
// The returned future resolves when fn returns; a panic resolves it with *PanicError.
func (l *Loop) Go(ctx context.Context, fn func(ctx context.Context) error) (*async.Future[struct{}], error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLoopClosed
	}
	l.tasks.Add(1)
	l.mu.Unlock()

	l.active.Add(1)
	f := async.NewFuture[struct{}]()
	taskCtx := WithLoop(ctx, l)

	go func() {
		defer l.tasks.Done()
		defer l.active.Add(-1)

		var err error
		defer func() {
			if p := recover(); p != nil {
				err = NewPanicError(p)
			}
			f.Resolve(struct{}{}, err)
		}()

		err = fn(taskCtx)
	}()

	return f, nil
}

// Active returns the number of running tasks.
func (l *Loop) Active() int {
	return int(l.active.Load())
}

// Closed reports whether Close has been called.
func (l *Loop) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops accepting work, runs callbacks already posted, and waits for running
// tasks until ctx is done. Tasks are never canceled by the loop.
func (l *Loop) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	tasksDone := make(chan struct{})
	go func() {
		l.tasks.Wait()
		close(tasksDone)
	}()

	select {
	case <-tasksDone:
	case <-ctx.Done():
		l.posts.Close()
		return ctx.Err()
	}

	l.posts.Close()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
