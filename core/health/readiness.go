package health

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/reqctx"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/core/routes"
)

// Readiness returns a handler answering "READY" when every check passes and
// 503 Service Unavailable otherwise.
func Readiness(log *slog.Logger, checks ...func(context.Context) error) routes.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(ctx context.Context, _ *reqctx.Request, _ routes.Params) (any, error) {
		g, gctx := errgroup.WithContext(ctx)
		for _, check := range checks {
			g.Go(func() error { return check(gctx) })
		}
		if err := g.Wait(); err != nil {
			log.ErrorContext(ctx, "readiness check failed", logger.Component("health"), logger.Error(err))
			return nil, response.ErrServiceUnavailable
		}
		return "READY", nil
	}
}
