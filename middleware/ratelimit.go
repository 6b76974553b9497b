package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/pkg/clientip"
	"github.com/dmitrymomot/enginekit/pkg/ratelimiter"
)

type rateResultKey struct{}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Limiter ratelimiter.RateLimiter
	// Key selects the bucket. It defaults to the client IP from proxy headers,
	// falling back to a single shared bucket.
	Key func(req *reqctx.Request) string
	// Logger receives limiter failures, which let the request through.
	Logger *slog.Logger
}

// RateLimit short-circuits with 429 when the key's bucket is empty and adds
// X-RateLimit-* headers to every limited response.
func RateLimit(cfg RateLimitConfig) chain.Middleware {
	if cfg.Key == nil {
		cfg.Key = func(req *reqctx.Request) string {
			if ip := clientip.GetIP(req.Header(), ""); ip != "" {
				return ip
			}
			return "global"
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}

	return chain.Funcs{
		Request: func(ctx context.Context, req *reqctx.Request) (*response.Response, error) {
			if cfg.Limiter == nil {
				return nil, nil
			}
			res, err := cfg.Limiter.Allow(ctx, cfg.Key(req))
			if err != nil {
				cfg.Logger.WarnContext(ctx, "rate limiter failed", logger.Component("ratelimit"), logger.Error(err))
				return nil, nil
			}
			req.Set(rateResultKey{}, res)
			if res.Allowed() {
				return nil, nil
			}
			resp := plain(http.StatusTooManyRequests)
			if after := res.RetryAfter(); after > 0 {
				resp.Header.Set("Retry-After", strconv.Itoa(int(math.Ceil(after.Seconds()))))
			}
			return resp, nil
		},
		Response: func(_ context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error) {
			v, ok := req.Get(rateResultKey{})
			if !ok {
				return resp, nil
			}
			res := v.(*ratelimiter.Result)
			resp.Header.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			resp.Header.Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			resp.Header.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			return resp, nil
		},
	}
}
