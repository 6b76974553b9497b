package middleware_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/engine"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/middleware"
	"github.com/dmitrymomot/enginekit/pkg/ratelimiter"
)

// run drives one request through c the way the dispatcher does and returns the
// final response.
func run(t *testing.T, c *chain.Chain, native *engine.StaticRequest) *response.Response {
	t.Helper()

	ctx, scope := reqctx.NewManager().Acquire(context.Background(), native)
	defer scope.Release()
	req := scope.Request()

	resp, err := c.ProcessRequest(ctx, req)
	require.NoError(t, err)
	if resp == nil {
		resp = response.New(http.StatusOK, []byte("handler"))
	}
	resp, err = c.ProcessResponse(ctx, req, resp)
	require.NoError(t, err)
	return resp
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	native := engine.NewRequest(http.MethodGet, "/", nil)
	native.HeaderValue.Set("X-Request-ID", "abc")

	resp := run(t, chain.New(middleware.RequestID()), native)
	assert.Equal(t, "abc", resp.Header.Get("X-Request-ID"))

	resp = run(t, chain.New(middleware.RequestIDWithHeader("X-Trace")), engine.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, resp.Header.Get("X-Trace"))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cfg    middleware.BodyLimitConfig
		method string
		body   string
		want   int
	}{
		{name: "under_limit", cfg: middleware.BodyLimitConfig{MaxSize: 10}, method: http.MethodPost, body: "small", want: http.StatusOK},
		{name: "over_limit", cfg: middleware.BodyLimitConfig{MaxSize: 4}, method: http.MethodPost, body: "too large", want: http.StatusRequestEntityTooLarge},
		{name: "skipped_method", cfg: middleware.BodyLimitConfig{MaxSize: 4, SkipMethods: []string{http.MethodPut}}, method: http.MethodPut, body: "too large", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := run(t, chain.New(middleware.BodyLimitWithConfig(tt.cfg)), engine.NewRequest(tt.method, "/", []byte(tt.body)))
			assert.Equal(t, tt.want, resp.Status)
			if tt.want == http.StatusRequestEntityTooLarge {
				assert.Contains(t, string(resp.Body), "request body too large")
				assert.Equal(t, response.ContentTypeText, resp.Header.Get("Content-Type"))
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	cfg := middleware.DevelopmentSecurity
	cfg.CustomHeaders = map[string]string{"X-Custom": "1"}

	c := chain.New(
		middleware.SecurityHeaders(cfg),
		chain.Funcs{Response: func(_ context.Context, _ *reqctx.Request, resp *response.Response) (*response.Response, error) {
			resp.Header.Set("X-Content-Type-Options", "handler")
			return resp, nil
		}},
	)
	resp := run(t, c, engine.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), "outer middleware runs last and wins")
	assert.Equal(t, "1", resp.Header.Get("X-Custom"))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))

	resp = run(t, chain.New(middleware.SecurityHeaders(middleware.StrictSecurity)), engine.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestCORS(t *testing.T) {
	t.Parallel()

	mw := middleware.CORS(middleware.CORSConfig{
		AllowOrigins:     []string{"https://app.example.com"},
		AllowCredentials: true,
		MaxAge:           600,
		ExposeHeaders:    []string{"X-Request-ID"},
	})

	preflight := func(origin, method string) *engine.StaticRequest {
		r := engine.NewRequest(http.MethodOptions, "/api", nil)
		r.HeaderValue.Set("Origin", origin)
		r.HeaderValue.Set("Access-Control-Request-Method", method)
		r.HeaderValue.Set("Access-Control-Request-Headers", "Content-Type")
		return r
	}

	t.Run("preflight_allowed", func(t *testing.T) {
		t.Parallel()
		resp := run(t, chain.New(mw), preflight("https://app.example.com", http.MethodPost))
		assert.Equal(t, http.StatusNoContent, resp.Status)
		assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "600", resp.Header.Get("Access-Control-Max-Age"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type")
	})

	t.Run("preflight_denied_origin", func(t *testing.T) {
		t.Parallel()
		resp := run(t, chain.New(mw), preflight("https://evil.example.org", http.MethodPost))
		assert.Equal(t, http.StatusForbidden, resp.Status)
	})

	t.Run("preflight_denied_method", func(t *testing.T) {
		t.Parallel()
		resp := run(t, chain.New(mw), preflight("https://app.example.com", "TRACE"))
		assert.Equal(t, http.StatusForbidden, resp.Status)
	})

	t.Run("simple_request", func(t *testing.T) {
		t.Parallel()
		r := engine.NewRequest(http.MethodGet, "/api", nil)
		r.HeaderValue.Set("Origin", "https://app.example.com")
		resp := run(t, chain.New(mw), r)
		assert.Equal(t, http.StatusOK, resp.Status)
		assert.Equal(t, "https://app.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Request-ID", resp.Header.Get("Access-Control-Expose-Headers"))
	})

	t.Run("wildcard_never_sends_credentials", func(t *testing.T) {
		t.Parallel()
		r := engine.NewRequest(http.MethodGet, "/api", nil)
		r.HeaderValue.Set("Origin", "https://any.example.com")
		resp := run(t, chain.New(middleware.CORS(middleware.CORSConfig{AllowCredentials: true})), r)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))
	})
}

func TestAllowOriginSubdomain(t *testing.T) {
	t.Parallel()

	allow := middleware.AllowOriginSubdomain("*.example.com")
	tests := []struct {
		origin string
		ok     bool
	}{
		{"https://example.com", true},
		{"https://api.example.com:8443", true},
		{"https://notexample.com", false},
		{"", false},
	}
	for _, tt := range tests {
		got, ok := allow(tt.origin)
		assert.Equal(t, tt.ok, ok, tt.origin)
		if ok {
			assert.Equal(t, tt.origin, got)
		}
	}
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithJSONFormatter(),
		logger.WithOutput(&buf),
		logger.WithLevel(slog.LevelDebug),
		logger.WithContextExtractors(reqctx.LogExtractor),
	)

	c := chain.New(
		middleware.Logging(middleware.LoggingConfig{
			Logger: log,
			Skip:   func(req *reqctx.Request) bool { return req.Path() == "/health" },
		}),
		chain.Funcs{Request: func(_ context.Context, req *reqctx.Request) (*response.Response, error) {
			if req.Path() == "/fail" {
				return response.New(http.StatusInternalServerError, []byte("x")), nil
			}
			return nil, nil
		}},
	)

	run(t, c, engine.NewRequest(http.MethodGet, "/ok", nil))
	run(t, c, engine.NewRequest(http.MethodGet, "/fail", nil))
	run(t, c, engine.NewRequest(http.MethodGet, "/health", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"level":"INFO"`)
	assert.Contains(t, lines[0], `"path":"/ok"`)
	assert.Contains(t, lines[0], `"status_code":200`)
	assert.Contains(t, lines[1], `"level":"ERROR"`)
	assert.Contains(t, lines[1], `"path":"/fail"`)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"request_id"`), line)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       2,
		RefillRate:     1,
		RefillInterval: time.Minute,
	})
	require.NoError(t, err)

	c := chain.New(middleware.RateLimit(middleware.RateLimitConfig{
		Limiter: limiter,
		Key:     func(req *reqctx.Request) string { return req.Header().Get("X-Client") },
	}))

	req := func(client string) *engine.StaticRequest {
		r := engine.NewRequest(http.MethodGet, "/", nil)
		r.HeaderValue.Set("X-Client", client)
		return r
	}

	resp := run(t, c, req("a"))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	run(t, c, req("a"))
	resp = run(t, c, req("a"))
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp = run(t, c, req("b"))
	assert.Equal(t, http.StatusOK, resp.Status)
}
