package httpengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/pkg/ratelimiter"
)

// route is one registered endpoint. Exactly one of sync, async and ws is set.
type route struct {
	pattern string
	sync    engine.DispatchFunc
	async   engine.AsyncDispatchFunc
	ws      engine.ConnHandler
	wsCfg   engine.WebSocketConfig
	limiter *ratelimiter.Bucket
}

// Engine is a net/http implementation of engine.Engine. Each HTTP request runs on
// its own goroutine and each WebSocket connection gets a reader goroutine that
// delivers events to the registered engine.ConnHandler.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	limits   *ratelimiter.MemoryStore

	mu   sync.RWMutex
	tree *node

	connMu sync.Mutex
	conns  map[uint64]*wsConn
	connWG sync.WaitGroup
	nextID atomic.Uint64

	srvMu   sync.Mutex
	server  *http.Server
	running bool
}

var (
	_ engine.Engine = (*Engine)(nil)
	_ http.Handler  = (*Engine)(nil)
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCheckOrigin sets the WebSocket origin check. By default gorilla/websocket
// rejects cross-origin handshakes.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(e *Engine) {
		e.upgrader.CheckOrigin = fn
	}
}

// WithRateLimitStore sets the store backing per-connection message rate limits.
func WithRateLimitStore(s *ratelimiter.MemoryStore) Option {
	return func(e *Engine) {
		if s != nil {
			e.limits = s
		}
	}
}

// New returns an Engine with no routes.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		logger: logger.Discard(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		tree:  &node{},
		conns: make(map[uint64]*wsConn),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.limits == nil {
		e.limits = ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(e.logger))
	}
	return e
}

// RegisterRoute registers a handler answered on the request goroutine.
func (e *Engine) RegisterRoute(method, pattern string, fn engine.DispatchFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return e.register(method, pattern, &route{sync: fn})
}

// RegisterAsyncRoute registers a handler that completes through a callback. The
// request goroutine waits for the callback or for the client to go away.
func (e *Engine) RegisterAsyncRoute(method, pattern string, fn engine.AsyncDispatchFunc) error {
	if fn == nil {
		return ErrNilHandler
	}
	return e.register(method, pattern, &route{async: fn})
}

// RegisterWebSocketRoute registers a WebSocket endpoint served with GET.
func (e *Engine) RegisterWebSocketRoute(pattern string, h engine.ConnHandler, cfg engine.WebSocketConfig) error {
	if h == nil {
		return ErrNilHandler
	}
	r := &route{ws: h, wsCfg: cfg}
	if cfg.RateLimit > 0 {
		b, err := ratelimiter.NewBucket(e.limits, ratelimiter.PerSecond(cfg.RateLimit))
		if err != nil {
			return fmt.Errorf("websocket rate limit for %s: %w", pattern, err)
		}
		r.limiter = b
	}
	return e.register(http.MethodGet, pattern, r)
}

func (e *Engine) register(method, pattern string, r *route) error {
	tp, err := treePattern(pattern)
	if err != nil {
		return err
	}
	r.pattern = pattern

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tree.insert(strings.ToUpper(method), tp, r)
}

// ServeHTTP routes the request to its registered endpoint.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.RLock()
	leaf := e.tree.find(r.Method, r.URL.Path)
	e.mu.RUnlock()

	if leaf == nil {
		http.NotFound(w, r)
		return
	}
	rt, ok := leaf.endpoints[r.Method]
	if !ok {
		w.Header().Set("Allow", strings.Join(leaf.allowed(), ", "))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	if rt.ws != nil {
		e.serveWebSocket(w, r, rt)
		return
	}

	req, err := e.readRequest(w, r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		e.logger.DebugContext(r.Context(), "read request body failed", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if rt.sync != nil {
		writeReply(w, rt.sync(r.Context(), req))
		return
	}

	replies := make(chan engine.Reply, 1)
	rt.async(r.Context(), req, func(reply engine.Reply) {
		select {
		case replies <- reply:
		default:
		}
	})

	select {
	case reply := <-replies:
		writeReply(w, reply)
	case <-r.Context().Done():
	}
}

func (e *Engine) readRequest(w http.ResponseWriter, r *http.Request) (*engine.StaticRequest, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, e.cfg.MaxBodySize))
		if err != nil {
			return nil, err
		}
	}
	return &engine.StaticRequest{
		MethodValue:  r.Method,
		PathValue:    r.URL.Path,
		HeaderValue:  r.Header,
		QueryValue:   r.URL.Query(),
		BodyValue:    body,
		CookiesValue: r.Cookies(),
	}, nil
}

func writeReply(w http.ResponseWriter, reply engine.Reply) {
	h := w.Header()
	for k, vv := range reply.Header {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(reply.Body) > 0 {
		_, _ = w.Write(reply.Body)
	}
}

func (e *Engine) serveWebSocket(w http.ResponseWriter, r *http.Request, rt *route) {
	ws, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		e.logger.DebugContext(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := newWSConn(e.nextID.Add(1), ws, rt, e.cfg.WriteWait, e.logger)
	if !e.track(c) {
		_ = c.closeWith(engine.ReasonEngineShutdown, websocket.CloseGoingAway)
		return
	}
	defer e.untrack(c)

	rt.ws.OnConnect(context.WithoutCancel(r.Context()), c, r.Header.Clone(), r.Cookies())
	c.serve()
}

func (e *Engine) track(c *wsConn) bool {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conns == nil {
		return false
	}
	e.conns[c.id] = c
	e.connWG.Add(1)
	return true
}

func (e *Engine) untrack(c *wsConn) {
	e.connMu.Lock()
	delete(e.conns, c.id)
	e.connMu.Unlock()
	e.connWG.Done()
}

// Connections returns the number of open WebSocket connections.
func (e *Engine) Connections() int {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return len(e.conns)
}

// CloseConnections closes every WebSocket connection with ReasonEngineShutdown,
// refuses new ones, and waits for their disconnect events until ctx is done.
func (e *Engine) CloseConnections(ctx context.Context) error {
	e.connMu.Lock()
	conns := make([]*wsConn, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	e.conns = nil
	e.connMu.Unlock()

	for _, c := range conns {
		_ = c.closeWith(engine.ReasonEngineShutdown, websocket.CloseGoingAway)
	}

	done := make(chan struct{})
	go func() {
		e.connWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
