package middleware

import (
	"context"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/core/routes"
	"github.com/dmitrymomot/enginekit/core/session"
)

// Session keys recognized as a logged-in user.
const (
	SessionUserIDKey   = "user_id"
	SessionUserKey     = "user"
	SessionLoggedInKey = "logged_in"
)

// ErrLoginRequired is returned for requests without a logged-in session user.
var ErrLoginRequired = response.ErrUnauthorized.WithMessage("login required")

// CurrentUser returns the user stored in the request session under user_id or user.
func CurrentUser(req *reqctx.Request) (any, bool) {
	return sessionUser(req.Session())
}

func sessionUser(s *session.Session) (any, bool) {
	if s == nil {
		return nil, false
	}
	for _, key := range []string{SessionUserIDKey, SessionUserKey} {
		if v, ok := s.Get(key); ok && !zero(v) {
			return v, true
		}
	}
	return nil, false
}

func loggedIn(s *session.Session) bool {
	if _, ok := sessionUser(s); ok {
		return true
	}
	if s == nil {
		return false
	}
	v, _ := s.Get(SessionLoggedInKey)
	b, _ := v.(bool)
	return b
}

func zero(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int64:
		return x == 0
	case bool:
		return !x
	}
	return false
}

// LoginConfig configures LoginRequired.
type LoginConfig struct {
	// Skip lets requests through without a session user, e.g. the login page.
	Skip func(req *reqctx.Request) bool
}

// LoginRequired fails requests with ErrLoginRequired (401) unless the session
// holds a user. Without sessions every request fails.
func LoginRequired(cfg LoginConfig) chain.Middleware {
	return chain.Funcs{
		Request: func(_ context.Context, req *reqctx.Request) (*response.Response, error) {
			if cfg.Skip != nil && cfg.Skip(req) {
				return nil, nil
			}
			if !loggedIn(req.Session()) {
				return nil, ErrLoginRequired
			}
			return nil, nil
		},
	}
}

// RequireLogin wraps a single route handler with the LoginRequired check.
func RequireLogin(h routes.Handler) routes.Handler {
	return func(ctx context.Context, req *reqctx.Request, p routes.Params) (any, error) {
		if !loggedIn(req.Session()) {
			return nil, ErrLoginRequired
		}
		return h(ctx, req, p)
	}
}
