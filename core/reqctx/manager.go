package reqctx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/logger"
)

// DefaultRequestIDHeader is the inbound header honored as the request ID.
const DefaultRequestIDHeader = "X-Request-ID"

type slotKey struct{}

// slot is the frame-local cell bound into the dispatch context.
// Release empties it so stale contexts can no longer reach the request.
type slot struct {
	req atomic.Pointer[Request]
}

// Scope is the handle returned by Acquire. Release must be called on every exit path.
type Scope struct {
	m        *Manager
	slot     *slot
	req      *Request
	released atomic.Bool
}

// Request returns the request bound by this scope, even after release.
func (s *Scope) Request() *Request { return s.req }

// Release clears the slot. Calling it more than once is a no-op.
func (s *Scope) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	s.slot.req.Store(nil)
	s.m.released.Add(1)
}

// Released reports whether Release has run.
func (s *Scope) Released() bool { return s.released.Load() }

// Stats is a snapshot of Manager counters.
type Stats struct {
	Acquired uint64
	Released uint64
}

// Active is the number of scopes acquired but not yet released.
func (s Stats) Active() uint64 { return s.Acquired - s.Released }

// Manager builds request contexts for dispatch.
type Manager struct {
	idHeader  string
	generator func() string

	acquired atomic.Uint64
	released atomic.Uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIDHeader changes the inbound header used as request ID.
// An empty name disables reuse of inbound IDs.
func WithIDHeader(name string) ManagerOption {
	return func(m *Manager) {
		m.idHeader = name
	}
}

// WithIDGenerator replaces the UUID v4 generator.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *Manager) {
		if fn != nil {
			m.generator = fn
		}
	}
}

// NewManager returns a Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		idHeader:  DefaultRequestIDHeader,
		generator: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire builds the request view for native and binds it into a child of ctx.
func (m *Manager) Acquire(ctx context.Context, native engine.Request) (context.Context, *Scope) {
	req := newRequest(native)

	if m.idHeader != "" {
		req.id = req.header.Get(m.idHeader)
	}
	if req.id == "" {
		req.id = m.generator()
	}

	s := &slot{}
	s.req.Store(req)
	m.acquired.Add(1)

	return context.WithValue(ctx, slotKey{}, s), &Scope{m: m, slot: s, req: req}
}

// Stats returns acquisition counters.
func (m *Manager) Stats() Stats {
	// Released is loaded first so Active never underflows.
	released := m.released.Load()
	return Stats{Acquired: m.acquired.Load(), Released: released}
}

// FromContext returns the active request bound to ctx. It reports false when ctx
// carries no request or its scope has been released.
func FromContext(ctx context.Context) (*Request, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(slotKey{}).(*slot)
	if !ok {
		return nil, false
	}
	req := s.req.Load()
	return req, req != nil
}

// LogExtractor adds request_id to log records emitted with an active request context.
func LogExtractor(ctx context.Context) (slog.Attr, bool) {
	req, ok := FromContext(ctx)
	if !ok {
		return slog.Attr{}, false
	}
	return logger.RequestID(req.ID()), true
}

func newRequest(native engine.Request) *Request {
	header := native.Header()
	if header == nil {
		header = http.Header{}
	}
	query := native.Query()
	if query == nil {
		query = url.Values{}
	}
	return &Request{
		method:  native.Method(),
		path:    native.Path(),
		header:  header,
		query:   query,
		body:    native.Body(),
		cookies: native.Cookies(),
	}
}
