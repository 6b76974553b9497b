package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/pkg/clientip"
)

type startKey struct{}

// LoggingConfig configures Logging.
type LoggingConfig struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Level is used for successful requests (default Info).
	Level slog.Level
	// SlowRequestThreshold logs slower requests at Warn (default 5s).
	SlowRequestThreshold time.Duration
	// Component names the log source (default "http").
	Component string
	// Skip excludes requests from logging.
	Skip func(req *reqctx.Request) bool
}

// Logging records the start time in the request phase and logs the outcome in the
// response phase. 5xx responses log at Error, 4xx and slow requests at Warn.
// The request ID comes from the logger's context extractors (reqctx.LogExtractor).
func Logging(cfg LoggingConfig) chain.Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return chain.Funcs{
		Request: func(_ context.Context, req *reqctx.Request) (*response.Response, error) {
			if cfg.Skip == nil || !cfg.Skip(req) {
				req.Set(startKey{}, time.Now())
			}
			return nil, nil
		},
		Response: func(ctx context.Context, req *reqctx.Request, resp *response.Response) (*response.Response, error) {
			v, ok := req.Get(startKey{})
			if !ok {
				return resp, nil
			}
			start, _ := v.(time.Time)
			elapsed := time.Since(start)

			status := resp.Status
			if status == 0 {
				status = 200
			}

			attrs := []slog.Attr{
				logger.Component(cfg.Component),
				logger.Event("response"),
				logger.Method(req.Method()),
				logger.Path(req.Path()),
				logger.StatusCode(status),
				logger.BytesOut(int64(len(resp.Body))),
				logger.Duration(elapsed),
			}
			if ip := clientip.GetIP(req.Header(), ""); ip != "" {
				attrs = append(attrs, slog.String("client_ip", ip))
			}

			level := cfg.Level
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			case elapsed > cfg.SlowRequestThreshold:
				level = slog.LevelWarn
				attrs = append(attrs, slog.Bool("slow_request", true))
			}

			cfg.Logger.LogAttrs(ctx, level, "request completed", attrs...)
			return resp, nil
		},
	}
}
