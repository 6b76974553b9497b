package enginekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/dispatch"
	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/engine/httpengine"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/routes"
	"github.com/dmitrymomot/enginekit/core/scheduler"
	"github.com/dmitrymomot/enginekit/core/session"
	"github.com/dmitrymomot/enginekit/core/wsbridge"
)

type socketRoute struct {
	pattern string
	handler wsbridge.Handler
	cfg     engine.WebSocketConfig
}

// App collects routes, middleware and hooks during startup and registers them
// with an engine on Mount. Registration methods fail with ErrFrozen after Mount.
type App struct {
	cfg      Config
	logger   *slog.Logger
	manager  *reqctx.Manager
	shared   *scheduler.Shared
	sessions *session.CookieStore

	mu           sync.Mutex
	builder      *routes.Builder
	chain        *chain.Chain
	errors       *dispatch.ErrorTable
	before       []dispatch.BeforeFunc
	after        []dispatch.AfterFunc
	teardown     []dispatch.TeardownFunc
	sockets      []socketRoute
	onDisconnect []wsbridge.TeardownFunc

	mounted    bool
	dispatcher *dispatch.Dispatcher
	bridges    []*wsbridge.Bridge
}

// Option configures an App.
type Option func(*App)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(a *App) {
		a.cfg = cfg
	}
}

// WithLogger sets the logger. Without it the logger is built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithManager sets the request context manager, e.g. to customize request ids.
func WithManager(m *reqctx.Manager) Option {
	return func(a *App) {
		if m != nil {
			a.manager = m
		}
	}
}

// WithSharedLoop sets the background loop used by cooperative routes and
// WebSocket handlers.
func WithSharedLoop(s *scheduler.Shared) Option {
	return func(a *App) {
		if s != nil {
			a.shared = s
		}
	}
}

// New returns an App. Sessions are enabled when the configuration carries a
// signing secret.
func New(opts ...Option) (*App, error) {
	a := &App{
		cfg:     DefaultConfig(),
		builder: routes.NewBuilder(),
		chain:   chain.New(),
		errors:  dispatch.NewErrorTable(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = a.cfg.NewLogger()
	}
	if a.manager == nil {
		a.manager = reqctx.NewManager()
	}
	if a.shared == nil {
		a.shared = scheduler.NewShared(scheduler.WithLogger(a.logger), scheduler.WithName("background"))
	}
	if a.cfg.Session.Enabled() {
		store, err := session.NewCookieStore(a.cfg.Session, session.WithLogger(a.logger))
		if err != nil {
			return nil, fmt.Errorf("enginekit: session store: %w", err)
		}
		a.sessions = store
	}
	return a, nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Route adds a route. Methods defaults to GET.
func (a *App) Route(r routes.Route) error {
	_, err := a.builder.Add(r)
	return err
}

// Handle adds a route for the given methods.
func (a *App) Handle(methods []string, pattern string, h Handler, opts ...RouteOption) error {
	r := routes.Route{Pattern: pattern, Methods: methods, Handler: h}
	for _, opt := range opts {
		opt(&r)
	}
	return a.Route(r)
}

func (a *App) Get(pattern string, h Handler, opts ...RouteOption) error {
	return a.Handle([]string{http.MethodGet}, pattern, h, opts...)
}

func (a *App) Post(pattern string, h Handler, opts ...RouteOption) error {
	return a.Handle([]string{http.MethodPost}, pattern, h, opts...)
}

func (a *App) Put(pattern string, h Handler, opts ...RouteOption) error {
	return a.Handle([]string{http.MethodPut}, pattern, h, opts...)
}

func (a *App) Patch(pattern string, h Handler, opts ...RouteOption) error {
	return a.Handle([]string{http.MethodPatch}, pattern, h, opts...)
}

func (a *App) Delete(pattern string, h Handler, opts ...RouteOption) error {
	return a.Handle([]string{http.MethodDelete}, pattern, h, opts...)
}

// WebSocket adds a WebSocket route. cfg overrides the configured default limits.
func (a *App) WebSocket(pattern string, h SocketHandler, cfg ...engine.WebSocketConfig) error {
	if h == nil {
		return fmt.Errorf("%w: %s", ErrNilHandler, pattern)
	}
	if _, err := routes.ParsePattern(pattern); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mounted {
		return ErrFrozen
	}
	for _, s := range a.sockets {
		if s.pattern == pattern {
			return fmt.Errorf("%w: %s", ErrDuplicateSocket, pattern)
		}
	}

	wsCfg := a.cfg.WebSocket
	if len(cfg) > 0 {
		wsCfg = cfg[0]
	}
	a.sockets = append(a.sockets, socketRoute{pattern: pattern, handler: h, cfg: wsCfg})
	return nil
}

// Use appends middleware to the chain shared by all HTTP routes.
func (a *App) Use(mws ...Middleware) error {
	return a.register(func() { a.chain.Use(mws...) })
}

// Before adds hooks that run ahead of the middleware request phase. A non-nil
// response short-circuits the rest of the request phase.
func (a *App) Before(fns ...dispatch.BeforeFunc) error {
	return a.register(func() { a.before = append(a.before, fns...) })
}

// After adds hooks that run after the middleware response phase and may
// replace the response.
func (a *App) After(fns ...dispatch.AfterFunc) error {
	return a.register(func() { a.after = append(a.after, fns...) })
}

// Teardown adds hooks that run at the end of every dispatch, on every path.
func (a *App) Teardown(fns ...dispatch.TeardownFunc) error {
	return a.register(func() { a.teardown = append(a.teardown, fns...) })
}

// OnDisconnect adds callbacks run once a WebSocket connection is fully torn down.
func (a *App) OnDisconnect(fns ...wsbridge.TeardownFunc) error {
	return a.register(func() { a.onDisconnect = append(a.onDisconnect, fns...) })
}

// OnStatus registers an error handler for errors resolving to code.
func (a *App) OnStatus(code int, h dispatch.ErrorHandler) error {
	return a.register(func() { a.errors.OnStatus(code, h) })
}

// OnError registers a handler for errors matching E through errors.As.
// Handlers are tried in registration order before status handlers.
func OnError[E error](a *App, h func(ctx context.Context, req *Request, err E) (any, error)) error {
	return a.register(func() { dispatch.OnError(a.errors, h) })
}

func (a *App) register(fn func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mounted {
		return ErrFrozen
	}
	fn()
	return nil
}

// Group returns a registrar that prefixes every pattern with prefix.
func (a *App) Group(prefix string) *Group {
	return &Group{app: a, prefix: strings.TrimRight(prefix, "/")}
}

// Routes lists registered routes in registration order.
func (a *App) Routes() []RouteInfo {
	var out []RouteInfo
	for _, b := range a.builder.Bindings() {
		for _, m := range b.Methods() {
			out = append(out, RouteInfo{Method: m, Pattern: b.Pattern()})
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sockets {
		out = append(out, RouteInfo{Method: http.MethodGet, Pattern: s.pattern, WebSocket: true})
	}
	return out
}

// Mount freezes registration and registers every route with e.
// A failed Mount leaves the App frozen.
func (a *App) Mount(e engine.Engine) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mounted {
		return ErrMounted
	}
	a.mounted = true

	table := a.builder.Build()

	opts := []dispatch.Option{
		dispatch.WithManager(a.manager),
		dispatch.WithChain(a.chain.Clone()),
		dispatch.WithErrorTable(a.errors),
		dispatch.WithBefore(a.before...),
		dispatch.WithAfter(a.after...),
		dispatch.WithTeardown(a.teardown...),
		dispatch.WithSharedLoop(a.shared),
		dispatch.WithLogger(a.logger),
	}
	if a.sessions != nil {
		opts = append(opts, dispatch.WithSessions(a.sessions))
	}
	a.dispatcher = dispatch.New(opts...)

	for _, b := range table.Bindings() {
		for _, m := range b.Methods() {
			var err error
			if b.Mode() == routes.Cooperative {
				err = e.RegisterAsyncRoute(m, b.Pattern(), a.dispatcher.WrapAsync(b))
			} else {
				err = e.RegisterRoute(m, b.Pattern(), a.dispatcher.Wrap(b))
			}
			if err != nil {
				return fmt.Errorf("enginekit: register %s %s: %w", m, b.Pattern(), err)
			}
		}
	}

	for _, s := range a.sockets {
		bridge := wsbridge.New(s.handler,
			wsbridge.WithSharedLoop(a.shared),
			wsbridge.WithLogger(a.logger),
			wsbridge.WithTeardown(a.disconnected),
		)
		a.bridges = append(a.bridges, bridge)
		if err := e.RegisterWebSocketRoute(s.pattern, bridge, s.cfg); err != nil {
			return fmt.Errorf("enginekit: register websocket %s: %w", s.pattern, err)
		}
	}

	a.logger.Info("routes mounted",
		logger.Component("enginekit"),
		logger.Count("routes", table.Len()),
		logger.Count("websockets", len(a.sockets)),
	)
	return nil
}

func (a *App) disconnected(connID uint64, reason string) {
	for _, fn := range a.onDisconnect {
		fn(connID, reason)
	}
}

// Connections reports the number of live WebSocket connections across routes.
func (a *App) Connections() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, b := range a.bridges {
		n += b.Connections()
	}
	return n
}

// Close waits for WebSocket handler tasks and releases the background loop.
// The engine should be stopped first so no new callbacks arrive.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	mounted, bridges, d := a.mounted, a.bridges, a.dispatcher
	a.mu.Unlock()
	if !mounted || d == nil {
		return ErrNotMounted
	}

	var errs []error
	for _, b := range bridges {
		if err := b.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := b.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Run mounts the App on an httpengine built from the configuration and serves
// until ctx is done, then closes the App.
func (a *App) Run(ctx context.Context) error {
	eng := httpengine.New(a.cfg.HTTP, httpengine.WithLogger(a.logger))
	if err := a.Mount(eng); err != nil {
		return err
	}

	runErr := eng.Run(ctx)()

	timeout := a.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = httpengine.DefaultShutdownTimeout
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	return errors.Join(runErr, a.Close(closeCtx))
}
