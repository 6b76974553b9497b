package cookie

import "net/http"

// Options holds the attributes shared by every cookie a component writes.
type Options struct {
	Path   string
	Domain string
	// MaxAge is in seconds. Zero makes a browser-session cookie.
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

// DefaultOptions returns path "/", HttpOnly and SameSite=Lax.
func DefaultOptions() Options {
	return Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
}
