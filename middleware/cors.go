package middleware

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to GET, HEAD, PUT, PATCH, POST, DELETE.
	AllowMethods []string
	// AllowHeaders defaults to common request headers.
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials is never sent together with a wildcard origin.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
	// AllowOriginFunc takes precedence over AllowOrigins.
	AllowOriginFunc func(origin string) (string, bool)
}

// CORS answers preflight requests in the request phase and adds CORS headers to
// every other response of an allowed origin.
func CORS(cfg CORSConfig) chain.Middleware {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"Accept",
			"Accept-Language",
			"Content-Language",
			"Content-Type",
			"Origin",
			"Authorization",
			reqctx.DefaultRequestIDHeader,
		}
	}

	allowMethods := strings.Join(cfg.AllowMethods, ",")
	allowHeaders := strings.Join(cfg.AllowHeaders, ",")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ",")
	wildcard := len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*")

	resolve := func(origin string) (string, bool) {
		switch {
		case cfg.AllowOriginFunc != nil:
			return cfg.AllowOriginFunc(origin)
		case wildcard:
			return "*", true
		case slices.Contains(cfg.AllowOrigins, origin):
			return origin, true
		}
		return "", false
	}

	credentials := func(h http.Header, origin string) {
		if cfg.AllowCredentials && origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}

	return chain.Funcs{
		Request: func(_ context.Context, req *reqctx.Request) (*response.Response, error) {
			method := req.Header().Get("Access-Control-Request-Method")
			if req.Method() != http.MethodOptions || method == "" {
				return nil, nil
			}

			origin, ok := resolve(req.Header().Get("Origin"))
			if !ok || !slices.Contains(cfg.AllowMethods, method) {
				return response.New(http.StatusForbidden, nil), nil
			}

			resp := response.New(http.StatusNoContent, nil)
			h := resp.Header
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", allowMethods)
			if req.Header().Get("Access-Control-Request-Headers") != "" {
				h.Set("Access-Control-Allow-Headers", allowHeaders)
			}
			credentials(h, origin)
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")
			return resp, nil
		},
		Response: func(_ context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error) {
			if resp.Header.Get("Access-Control-Allow-Origin") != "" {
				return resp, nil
			}
			origin, ok := resolve(req.Header().Get("Origin"))
			if !ok {
				return resp, nil
			}
			h := resp.Header
			h.Set("Access-Control-Allow-Origin", origin)
			credentials(h, origin)
			if exposeHeaders != "" {
				h.Set("Access-Control-Expose-Headers", exposeHeaders)
			}
			h.Add("Vary", "Origin")
			return resp, nil
		},
	}
}

// AllowOriginSubdomain allows domain and any of its subdomains, echoing the origin.
func AllowOriginSubdomain(domain string) func(origin string) (string, bool) {
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(domain, "*."), "."))
	suffix := "." + domain

	return func(origin string) (string, bool) {
		u, err := url.Parse(origin)
		if origin == "" || err != nil || u.Host == "" {
			return "", false
		}
		host := strings.ToLower(u.Hostname())
		if host == domain || strings.HasSuffix(host, suffix) {
			return origin, true
		}
		return "", false
	}
}
