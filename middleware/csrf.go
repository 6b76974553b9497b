package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"mime"
	"net/http"
	"net/url"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// CSRFSessionKey is the session key holding the CSRF token.
const CSRFSessionKey = "_csrf_token"

// ErrCSRFInvalid is returned when a state-changing request carries no token or a
// token that does not match the session.
var ErrCSRFInvalid = response.ErrForbidden.WithMessage("CSRF token missing or invalid")

// CSRFConfig configures CSRF.
type CSRFConfig struct {
	// Headers are checked after form fields. Defaults to X-CSRF-Token and X-CSRFToken.
	Headers []string
	// Fields are read from url-encoded form bodies. Defaults to csrf_token and _csrf_token.
	Fields []string
	// Exempt skips the check for matching requests.
	Exempt func(req *reqctx.Request) bool
}

// CSRFToken returns the session's CSRF token, creating one on first use.
// It returns "" when the request has no session.
func CSRFToken(req *reqctx.Request) string {
	s := req.Session()
	if s == nil {
		return ""
	}
	if token, ok := s.GetString(CSRFSessionKey); ok && token != "" {
		return token
	}
	token := rand.Text()
	s.Set(CSRFSessionKey, token)
	return token
}

// CSRF checks POST, PUT, PATCH and DELETE requests against the session token.
// Sessions that never issued a token through CSRFToken are not checked.
func CSRF(cfg CSRFConfig) chain.Middleware {
	if len(cfg.Headers) == 0 {
		cfg.Headers = []string{"X-CSRF-Token", "X-CSRFToken"}
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = []string{"csrf_token", "_csrf_token"}
	}

	return chain.Funcs{
		Request: func(_ context.Context, req *reqctx.Request) (*response.Response, error) {
			switch req.Method() {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return nil, nil
			}
			if cfg.Exempt != nil && cfg.Exempt(req) {
				return nil, nil
			}

			s := req.Session()
			if s == nil {
				return nil, nil
			}
			expected, _ := s.GetString(CSRFSessionKey)
			if expected == "" {
				return nil, nil
			}

			submitted := submittedToken(req, cfg)
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) != 1 {
				return nil, ErrCSRFInvalid
			}
			return nil, nil
		},
	}
}

func submittedToken(req *reqctx.Request, cfg CSRFConfig) string {
	if mt, _, err := mime.ParseMediaType(req.Header().Get("Content-Type")); err == nil && mt == "application/x-www-form-urlencoded" {
		if form, err := url.ParseQuery(string(req.Body())); err == nil {
			for _, f := range cfg.Fields {
				if v := form.Get(f); v != "" {
					return v
				}
			}
		}
	}
	for _, h := range cfg.Headers {
		if v := req.Header().Get(h); v != "" {
			return v
		}
	}
	return ""
}
