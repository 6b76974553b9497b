package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/core/routes"
	"github.com/dmitrymomot/enginekit/core/scheduler"
	"github.com/dmitrymomot/enginekit/core/session"
)

// Dispatcher adapts engine callbacks into the request pipeline for route bindings.
// Its configuration is fixed at construction and it is safe for concurrent use.
type Dispatcher struct {
	manager  *reqctx.Manager
	chain    *chain.Chain
	sessions *session.CookieStore
	errors   *ErrorTable
	before   []BeforeFunc
	after    []AfterFunc
	teardown []TeardownFunc
	lease    *scheduler.Lease
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithManager sets the request context manager.
func WithManager(m *reqctx.Manager) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.manager = m
		}
	}
}

// WithChain sets the middleware chain.
func WithChain(c *chain.Chain) Option {
	return func(d *Dispatcher) {
		d.chain = c
	}
}

// WithSessions enables cookie sessions. A nil store keeps them disabled.
func WithSessions(s *session.CookieStore) Option {
	return func(d *Dispatcher) {
		d.sessions = s
	}
}

// WithErrorTable sets the error handler table.
func WithErrorTable(t *ErrorTable) Option {
	return func(d *Dispatcher) {
		d.errors = t
	}
}

// WithBefore appends before-request hooks.
func WithBefore(fns ...BeforeFunc) Option {
	return func(d *Dispatcher) {
		d.before = append(d.before, fns...)
	}
}

// WithAfter appends after-request hooks.
func WithAfter(fns ...AfterFunc) Option {
	return func(d *Dispatcher) {
		d.after = append(d.after, fns...)
	}
}

// WithTeardown appends teardown hooks.
func WithTeardown(fns ...TeardownFunc) Option {
	return func(d *Dispatcher) {
		d.teardown = append(d.teardown, fns...)
	}
}

// WithSharedLoop sets the background loop used by cooperative routes when the
// delivering context carries no loop.
func WithSharedLoop(s *scheduler.Shared) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.lease = s.Lease()
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		manager: reqctx.NewManager(),
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.lease == nil {
		d.lease = scheduler.NewShared(scheduler.WithLogger(d.logger)).Lease()
	}
	return d
}

// Manager returns the request context manager.
func (d *Dispatcher) Manager() *reqctx.Manager { return d.manager }

// Close releases the background loop reference, waiting for its tasks until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	return d.lease.Release(ctx)
}

// Wrap returns the engine callback for a blocking route.
func (d *Dispatcher) Wrap(b *routes.Binding) engine.DispatchFunc {
	return func(ctx context.Context, native engine.Request) engine.Reply {
		return d.Handle(ctx, native, b)
	}
}

// WrapAsync returns the engine callback for a cooperative route. The handler runs
// as a task on the loop carried by ctx, or on the shared background loop.
// done is called exactly once.
func (d *Dispatcher) WrapAsync(b *routes.Binding) engine.AsyncDispatchFunc {
	return func(ctx context.Context, native engine.Request, done func(engine.Reply)) {
		var once sync.Once
		complete := func(r engine.Reply) { once.Do(func() { done(r) }) }

		loop, ok := scheduler.FromContext(ctx)
		if !ok {
			var err error
			if loop, err = d.lease.Loop(); err != nil {
				d.logger.ErrorContext(ctx, "no scheduler loop for cooperative route",
					logger.Component("dispatch"),
					logger.Pattern(b.Pattern()),
					logger.Error(err),
				)
				complete(DefaultErrorResponse(response.ErrServiceUnavailable).Reply())
				return
			}
		}

		_, err := loop.Go(ctx, func(taskCtx context.Context) error {
			complete(d.Handle(taskCtx, native, b))
			return nil
		})
		if err != nil {
			d.logger.ErrorContext(ctx, "cooperative task handoff failed",
				logger.Component("dispatch"),
				logger.Pattern(b.Pattern()),
				logger.Error(err),
			)
			complete(DefaultErrorResponse(response.ErrServiceUnavailable).Reply())
		}
	}
}

// Handle runs the full pipeline for one request and returns the reply.
func (d *Dispatcher) Handle(ctx context.Context, native engine.Request, b *routes.Binding) engine.Reply {
	ctx, scope := d.manager.Acquire(ctx, native)
	defer scope.Release()
	req := scope.Request()

	if d.fastPathEligible() {
		return d.fastPath(ctx, req, b)
	}

	start := time.Now()
	resp, primary := d.pipeline(ctx, req, b)
	d.runTeardown(ctx, req, primary)

	d.logger.DebugContext(ctx, "request dispatched",
		logger.Component("dispatch"),
		logger.Method(req.Method()),
		logger.Path(req.Path()),
		logger.StatusCode(resp.Status),
		logger.Duration(time.Since(start)),
	)

	return resp.Reply()
}

func (d *Dispatcher) fastPathEligible() bool {
	return d.chain.Len() == 0 && d.sessions == nil &&
		len(d.before) == 0 && len(d.after) == 0 && len(d.teardown) == 0
}

// fastPath serves dispatchers without middleware, sessions or hooks. Bare string,
// bytes and structured results go straight to (body, 200, default headers).
func (d *Dispatcher) fastPath(ctx context.Context, req *reqctx.Request, b *routes.Binding) engine.Reply {
	params, err := b.Extract(req.Path(), req.Query())
	if err != nil {
		return d.resolveError(ctx, req, err).Reply()
	}

	result, err := d.invoke(ctx, req, b, params)
	if err != nil {
		return d.resolveError(ctx, req, err).Reply()
	}
	if !isBareValue(result) {
		resp, err := response.Normalize(result)
		if err != nil {
			resp = d.resolveError(ctx, req, err)
		}
		return resp.Reply()
	}

	body, contentType, err := response.Encode(result)
	if err != nil {
		return d.resolveError(ctx, req, err).Reply()
	}
	return engine.Reply{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{contentType}},
		Body:   body,
	}
}

// pipeline runs steps from session open to session save. primary is the error that
// shaped the response, passed on to teardown hooks.
func (d *Dispatcher) pipeline(ctx context.Context, req *reqctx.Request, b *routes.Binding) (resp *response.Response, primary error) {
	sess := d.sessions.Open(req)
	req.AttachSession(sess)

	resp, primary = d.requestPhase(ctx, req, b)
	if primary != nil {
		resp = d.resolveError(ctx, req, primary)
	}

	final, err := d.responsePhase(ctx, req, resp)
	if err != nil {
		if primary == nil {
			primary = err
		}
		final = d.resolveError(ctx, req, err)
	}
	resp = final

	if err := safely(func() error { return d.sessions.Save(sess, resp) }); err != nil {
		d.logger.ErrorContext(ctx, "session save failed",
			logger.Component("dispatch"),
			logger.Error(err),
		)
		if primary == nil {
			primary = err
		}
		resp = d.resolveError(ctx, req, err)
	}

	return resp, primary
}

func (d *Dispatcher) requestPhase(ctx context.Context, req *reqctx.Request, b *routes.Binding) (resp *response.Response, err error) {
	err = safely(func() error {
		for _, fn := range d.before {
			r, herr := fn(ctx, req)
			if herr != nil {
				return herr
			}
			if r != nil {
				resp = withHeader(r)
				return nil
			}
		}

		r, cerr := d.chain.ProcessRequest(ctx, req)
		if cerr != nil {
			return cerr
		}
		if r != nil {
			resp = withHeader(r)
			return nil
		}

		params, perr := b.Extract(req.Path(), req.Query())
		if perr != nil {
			return perr
		}

		result, herr := b.Handler()(ctx, req, params)
		if herr != nil {
			return herr
		}
		resp, herr = response.Normalize(result)
		return herr
	})
	return resp, err
}

func (d *Dispatcher) responsePhase(ctx context.Context, req *reqctx.Request, resp *response.Response) (final *response.Response, err error) {
	final = resp
	err = safely(func() error {
		r, cerr := d.chain.ProcessResponse(ctx, req, final)
		if cerr != nil {
			return cerr
		}
		if r != nil {
			final = withHeader(r)
		}

		for _, fn := range d.after {
			r, herr := fn(ctx, req, final)
			if herr != nil {
				return herr
			}
			if r != nil {
				final = withHeader(r)
			}
		}
		return nil
	})
	return final, err
}

// withHeader gives responses built by middleware and hooks a usable header map.
func withHeader(r *response.Response) *response.Response {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	return r
}

func (d *Dispatcher) invoke(ctx context.Context, req *reqctx.Request, b *routes.Binding, p routes.Params) (result any, err error) {
	err = safely(func() error {
		var herr error
		result, herr = b.Handler()(ctx, req, p)
		return herr
	})
	return result, err
}

// resolveError maps err through the error table, falling back to DefaultErrorResponse.
func (d *Dispatcher) resolveError(ctx context.Context, req *reqctx.Request, err error) *response.Response {
	d.logError(ctx, req, err)

	var (
		result  any
		matched bool
	)
	herr := safely(func() error {
		var e error
		result, matched, e = d.errors.lookup(ctx, req, err)
		return e
	})
	if herr == nil && matched {
		resp, nerr := response.Normalize(result)
		if nerr == nil {
			return resp
		}
		herr = nerr
	}
	if herr != nil {
		d.logger.ErrorContext(ctx, "error handler failed",
			logger.Component("dispatch"),
			logger.Errors(err, herr),
		)
	}

	return DefaultErrorResponse(err)
}

func (d *Dispatcher) logError(ctx context.Context, req *reqctx.Request, err error) {
	status := response.StatusOf(err)
	attrs := []any{
		logger.Component("dispatch"),
		logger.Method(req.Method()),
		logger.Path(req.Path()),
		logger.StatusCode(status),
		logger.Error(err),
	}

	var pe *scheduler.PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, logger.StackBytes(pe.Stack()))
	}

	if status >= http.StatusInternalServerError {
		d.logger.ErrorContext(ctx, "handler failed", attrs...)
		return
	}
	d.logger.DebugContext(ctx, "request rejected", attrs...)
}

func (d *Dispatcher) runTeardown(ctx context.Context, req *reqctx.Request, primary error) {
	for _, fn := range d.teardown {
		if err := safely(func() error { return fn(ctx, req, primary) }); err != nil {
			d.logger.ErrorContext(ctx, "teardown failed",
				logger.Component("dispatch"),
				logger.Error(err),
			)
		}
	}
}

func safely(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = scheduler.NewPanicError(p)
		}
	}()
	return fn()
}

// isBareValue reports whether result is a string, a byte slice or structured data.
func isBareValue(result any) bool {
	switch result.(type) {
	case nil:
		return false
	case string, []byte:
		return true
	case response.Result, *response.Result, response.Response, *response.Response:
		return false
	}

	v := reflect.ValueOf(result)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}
