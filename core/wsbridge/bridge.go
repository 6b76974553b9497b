package wsbridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/scheduler"
	"github.com/dmitrymomot/enginekit/pkg/async"
)

// Handler serves one WebSocket connection. It runs once per connection as a task on
// a scheduler loop. Returning closes the connection if it is still open.
type Handler func(ctx context.Context, ws *WebSocket) error

// TeardownFunc runs once per connection after both the disconnect and the handler
// return have happened.
type TeardownFunc func(connID uint64, reason string)

// Bridge implements engine.ConnHandler. It turns per-connection engine events into
// an ordered message stream consumed by a single handler task.
type Bridge struct {
	handler  Handler
	conns    *Registry[*WebSocket]
	tasks    *Registry[*async.Future[struct{}]]
	lease    *scheduler.Lease
	teardown TeardownFunc
	logger   *slog.Logger
}

var _ engine.ConnHandler = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithConnRegistry injects the live-connection registry.
func WithConnRegistry(r *Registry[*WebSocket]) Option {
	return func(b *Bridge) {
		if r != nil {
			b.conns = r
		}
	}
}

// WithTaskRegistry injects the pending-task registry.
func WithTaskRegistry(r *Registry[*async.Future[struct{}]]) Option {
	return func(b *Bridge) {
		if r != nil {
			b.tasks = r
		}
	}
}

// WithSharedLoop sets the background loop used when OnConnect's context carries none.
func WithSharedLoop(s *scheduler.Shared) Option {
	return func(b *Bridge) {
		if s != nil {
			b.lease = s.Lease()
		}
	}
}

// WithTeardown sets a callback run when a connection is fully torn down.
func WithTeardown(fn TeardownFunc) Option {
	return func(b *Bridge) {
		b.teardown = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New returns a Bridge serving h.
func New(h Handler, opts ...Option) *Bridge {
	b := &Bridge{
		handler: h,
		conns:   NewRegistry[*WebSocket](),
		tasks:   NewRegistry[*async.Future[struct{}]](),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.lease == nil {
		b.lease = scheduler.NewShared(scheduler.WithLogger(b.logger)).Lease()
	}
	return b
}

// Connections returns the number of live connections.
func (b *Bridge) Connections() int { return b.conns.Len() }

// PendingTasks returns the number of handler tasks that have not returned.
func (b *Bridge) PendingTasks() int { return b.tasks.Len() }

// Wait blocks until every pending handler task has returned or ctx is done.
func (b *Bridge) Wait(ctx context.Context) error {
	for _, f := range b.tasks.Snapshot() {
		if _, err := f.AwaitContext(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Close releases the background loop reference, waiting for its tasks until ctx is done.
func (b *Bridge) Close(ctx context.Context) error {
	return b.lease.Release(ctx)
}

// OnConnect registers the connection and schedules the handler exactly once.
func (b *Bridge) OnConnect(ctx context.Context, conn engine.Conn, header http.Header, cookies []*http.Cookie) {
	id := conn.ID()
	ws := newWebSocket(conn, header, cookies)
	log := b.logger.With(logger.Component("wsbridge"), logger.ConnID(id))

	loop, ok := scheduler.FromContext(ctx)
	if !ok {
		var err error
		if loop, err = b.lease.Loop(); err != nil {
			b.handoffFailed(log, ws, "acquire loop", err)
			return
		}
	}

	life := &lifecycle{}
	ws.life = life
	ws.loop = loop
	done := async.NewFuture[struct{}]()

	b.conns.Store(id, ws)
	b.tasks.Store(id, done)
	ws.open()

	// The handler outlives the handshake, so it must not inherit its cancellation.
	_, err := loop.Go(context.WithoutCancel(ctx), func(taskCtx context.Context) error {
		defer done.Resolve(struct{}{}, nil)
		b.serve(taskCtx, log, ws, life)
		return nil
	})
	if err != nil {
		b.conns.Delete(id)
		b.tasks.Delete(id)
		done.Resolve(struct{}{}, err)
		b.handoffFailed(log, ws, "schedule handler", err)
		return
	}

	log.DebugContext(ctx, "websocket connected")
}

// OnMessage enqueues a text message. Messages for unknown or closed connections are dropped.
func (b *Bridge) OnMessage(connID uint64, text string) {
	b.deliver(connID, Message{Type: TextMessage, Data: []byte(text)})
}

// OnBinary enqueues a binary message into the same ordered stream as text messages.
func (b *Bridge) OnBinary(connID uint64, data []byte) {
	b.deliver(connID, Message{Type: BinaryMessage, Data: data})
}

// OnDisconnect ends the connection's stream and removes it from the live registry.
// The handler is not interrupted; it observes end-of-stream from Receive.
func (b *Bridge) OnDisconnect(connID uint64, reason string) {
	ws, ok := b.conns.LoadAndDelete(connID)
	if !ok {
		return
	}

	b.logger.Debug("websocket disconnected",
		logger.Component("wsbridge"),
		logger.ConnID(connID),
		logger.Reason(reason),
	)

	// End-of-stream travels the same path as messages so it lands after them.
	end := func() {
		ws.disconnected(reason)
		if ws.life.finish() {
			b.tornDown(connID, reason)
		}
	}
	if err := ws.loop.Post(end); err != nil {
		end()
	}
}

// deliver hands msg to the loop captured at connect time. A failed handoff closes
// the connection.
func (b *Bridge) deliver(id uint64, msg Message) {
	ws, ok := b.conns.Load(id)
	if !ok {
		b.dropped(id)
		return
	}

	err := ws.loop.Post(func() {
		if !ws.deliver(msg) {
			b.dropped(id)
		}
	})
	if err != nil {
		log := b.logger.With(logger.Component("wsbridge"), logger.ConnID(id))
		b.handoffFailed(log, ws, "deliver message", err)
	}
}

func (b *Bridge) dropped(id uint64) {
	b.logger.Debug("message for unknown connection dropped",
		logger.Component("wsbridge"),
		logger.ConnID(id),
	)
}

func (b *Bridge) serve(ctx context.Context, log *slog.Logger, ws *WebSocket, life *lifecycle) {
	defer func() {
		b.tasks.Delete(ws.ID())
		if life.finish() {
			b.tornDown(ws.ID(), ws.CloseReason())
		}
	}()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = scheduler.NewPanicError(p)
			}
		}()
		return b.handler(ctx, ws)
	}()

	if err != nil && !endOfStream(err) {
		attrs := []any{logger.Error(err)}
		var pe *scheduler.PanicError
		if errors.As(err, &pe) {
			attrs = append(attrs, logger.StackBytes(pe.Stack()))
		}
		log.ErrorContext(ctx, "websocket handler failed", attrs...)
	}

	if ws.State() == StateOpen {
		if cerr := ws.Close(engine.ReasonServerClosed); cerr != nil {
			log.DebugContext(ctx, "close after handler return failed", logger.Error(cerr))
		}
	}
}

func (b *Bridge) handoffFailed(log *slog.Logger, ws *WebSocket, op string, err error) {
	berr := &BridgeError{ConnID: ws.ID(), Op: op, Err: err}
	log.Error("websocket handoff failed", logger.Error(berr))
	if cerr := ws.Close(engine.ReasonServerClosed); cerr != nil {
		log.Debug("close after handoff failure failed", logger.Error(cerr))
	}
}

func (b *Bridge) tornDown(id uint64, reason string) {
	b.logger.Debug("websocket torn down",
		logger.Component("wsbridge"),
		logger.ConnID(id),
		logger.Reason(reason),
	)
	if b.teardown != nil {
		b.teardown(id, reason)
	}
}

func endOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrStreamClosed)
}

// lifecycle counts the two events that end a connection: disconnect and handler return.
type lifecycle struct {
	events atomic.Int32
}

// finish records one event and reports whether it was the last.
func (l *lifecycle) finish() bool {
	return l.events.Add(1) == 2
}
