package reqctx

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/dmitrymomot/enginekit/core/session"
)

// Request is the user-facing view of one in-flight request.
// It is owned by a single dispatch and must not be retained after the handler returns.
type Request struct {
	id      string
	method  string
	path    string
	header  http.Header
	query   url.Values
	body    []byte
	cookies []*http.Cookie

	session *session.Session

	mu     sync.Mutex
	values map[any]any
}

// ID returns the request identifier: the inbound X-Request-ID header if present,
// otherwise a generated UUID v4.
func (r *Request) ID() string { return r.id }

func (r *Request) Method() string      { return r.method }
func (r *Request) Path() string        { return r.path }
func (r *Request) Header() http.Header { return r.header }
func (r *Request) Query() url.Values   { return r.query }
func (r *Request) Body() []byte        { return r.body }

// Cookies returns all inbound cookies.
func (r *Request) Cookies() []*http.Cookie { return r.cookies }

// Cookie returns the named cookie or http.ErrNoCookie.
func (r *Request) Cookie(name string) (*http.Cookie, error) {
	for _, c := range r.cookies {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, http.ErrNoCookie
}

// Session returns the request session, or nil when sessions are disabled.
func (r *Request) Session() *session.Session { return r.session }

// AttachSession binds the session opened for this request.
func (r *Request) AttachSession(s *session.Session) { r.session = s }

// Set stores a request-scoped value for later middleware or hooks.
func (r *Request) Set(key, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values == nil {
		r.values = make(map[any]any)
	}
	r.values[key] = value
}

// Get returns a value stored with Set.
func (r *Request) Get(key any) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}
