package response

import (
	"net/http"

	"github.com/dmitrymomot/enginekit/core/engine"
)

// Common content types.
const (
	ContentTypeText   = "text/plain; charset=utf-8"
	ContentTypeHTML   = "text/html; charset=utf-8"
	ContentTypeJSON   = "application/json"
	ContentTypeBinary = "application/octet-stream"
)

// Response is the normalized (body, status, headers) triple.
// Middleware may mutate it in the response phase.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// New returns a response with an empty header set.
func New(status int, body []byte) *Response {
	return &Response{Status: status, Header: http.Header{}, Body: body}
}

// SetCookie appends a Set-Cookie header. Invalid cookies are dropped, like http.SetCookie.
func (r *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		r.ensureHeader().Add("Set-Cookie", v)
	}
}

// DeleteCookie appends a Set-Cookie header that expires name at path "/".
func (r *Response) DeleteCookie(name string) {
	r.SetCookie(&http.Cookie{Name: name, Path: "/", MaxAge: -1})
}

// Reply converts the response into the engine triple.
func (r *Response) Reply() engine.Reply {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	return engine.Reply{Status: status, Header: r.ensureHeader(), Body: r.Body}
}

func (r *Response) ensureHeader() http.Header {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	return r.Header
}
