package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/dmitrymomot/enginekit/core/chain"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
)

// DefaultBodyLimit is used when BodyLimit is given a non-positive size.
const DefaultBodyLimit int64 = 4 << 20

// BodyLimitConfig configures BodyLimit.
type BodyLimitConfig struct {
	// MaxSize is the largest accepted body in bytes.
	MaxSize int64
	// SkipMethods lists methods whose bodies are not checked.
	SkipMethods []string
}

// BodyLimit short-circuits with 413 when the request body exceeds maxSize bytes.
func BodyLimit(maxSize int64) chain.Middleware {
	return BodyLimitWithConfig(BodyLimitConfig{MaxSize: maxSize})
}

// BodyLimitWithConfig is BodyLimit with full configuration.
func BodyLimitWithConfig(cfg BodyLimitConfig) chain.Middleware {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultBodyLimit
	}
	return chain.Funcs{
		Request: func(_ context.Context, req *reqctx.Request) (*response.Response, error) {
			if slices.Contains(cfg.SkipMethods, req.Method()) {
				return nil, nil
			}
			if size := int64(len(req.Body())); size > cfg.MaxSize {
				resp := plain(http.StatusRequestEntityTooLarge)
				resp.Body = fmt.Appendf(nil, "request body too large: %s exceeds %s", formatBytes(size), formatBytes(cfg.MaxSize))
				return resp, nil
			}
			return nil, nil
		},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
