package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/enginekit"
	"github.com/dmitrymomot/enginekit/core/config"
	"github.com/dmitrymomot/enginekit/core/engine/httpengine"
	"github.com/dmitrymomot/enginekit/core/health"
	"github.com/dmitrymomot/enginekit/core/logger"
	"github.com/dmitrymomot/enginekit/core/response"
	"github.com/dmitrymomot/enginekit/core/routes"
	"github.com/dmitrymomot/enginekit/core/wsbridge"
	"github.com/dmitrymomot/enginekit/middleware"
	"github.com/dmitrymomot/enginekit/pkg/password"
	"github.com/dmitrymomot/enginekit/pkg/ratelimiter"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg enginekit.Config
	config.MustLoad(&cfg)

	app, err := enginekit.New(enginekit.WithConfig(cfg))
	if err != nil {
		fatal(cfg, "failed to create app", err)
	}
	log := app.Logger()

	limits := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreLogger(log))
	limiter, err := ratelimiter.NewBucket(limits, ratelimiter.PerSecond(20))
	if err != nil {
		fatal(cfg, "failed to create rate limiter", err)
	}

	must(app.Use(
		middleware.RequestID(),
		middleware.Logging(middleware.LoggingConfig{Logger: log}),
		middleware.SecurityHeaders(middleware.BalancedSecurity),
		middleware.CORS(middleware.CORSConfig{}),
		middleware.BodyLimit(1<<20),
		middleware.RateLimit(middleware.RateLimitConfig{Limiter: limiter, Logger: log}),
		middleware.CSRF(middleware.CSRFConfig{}),
	))

	must(app.Get("/health/live", health.Liveness))
	must(app.Get("/health/ready", health.Readiness(log)))

	must(app.Get("/hello/<name>", func(_ context.Context, req *enginekit.Request, p enginekit.Params) (any, error) {
		if s := req.Session(); s != nil {
			s.Set("last_name", p.String("name"))
		}
		return "hello " + p.String("name"), nil
	}, enginekit.Rule("name", routes.MaxLength(64))))

	demoHash, err := password.Hash("enginekit-demo")
	if err != nil {
		fatal(cfg, "failed to hash demo password", err)
	}
	must(app.Post("/login", func(_ context.Context, req *enginekit.Request, _ enginekit.Params) (any, error) {
		form, err := url.ParseQuery(string(req.Body()))
		if err != nil {
			return nil, response.ErrBadRequest.WithMessage("invalid form")
		}
		ok, err := password.Verify(form.Get("password"), demoHash)
		if err != nil {
			return nil, err
		}
		if !ok || req.Session() == nil {
			return nil, response.ErrUnauthorized.WithMessage("invalid credentials")
		}
		req.Session().Set(middleware.SessionUserKey, form.Get("user"))
		return map[string]any{"csrf_token": middleware.CSRFToken(req)}, nil
	}))
	must(app.Get("/me", middleware.RequireLogin(func(_ context.Context, req *enginekit.Request, _ enginekit.Params) (any, error) {
		user, _ := middleware.CurrentUser(req)
		return map[string]any{"user": user}, nil
	})))

	api := app.Group("/api")
	must(api.Get("/items/<int:id>", func(_ context.Context, _ *enginekit.Request, p enginekit.Params) (any, error) {
		return map[string]any{"id": p.Int("id"), "page": p.Int("page")}, nil
	}, enginekit.Query(routes.QueryParam{Name: "page", Type: routes.TypeInt, Default: 1})))
	must(api.Post("/jobs", func(ctx context.Context, req *enginekit.Request, _ enginekit.Params) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
		return response.With(map[string]any{"accepted": len(req.Body())}, http.StatusAccepted, nil), nil
	}, enginekit.Cooperative()))

	must(app.WebSocket("/ws/echo", func(ctx context.Context, ws *enginekit.WebSocket) error {
		for msg := range ws.Messages(ctx) {
			var err error
			if msg.Type == wsbridge.BinaryMessage {
				err = ws.SendBinary(msg.Data)
			} else {
				err = ws.Send(msg.Text())
			}
			if err != nil {
				return err
			}
		}
		return nil
	}))
	must(app.OnDisconnect(func(connID uint64, reason string) {
		log.Debug("websocket closed", logger.ConnID(connID), logger.Reason(reason))
	}))

	eng := httpengine.New(cfg.HTTP, httpengine.WithLogger(log))
	if err := app.Mount(eng); err != nil {
		fatal(cfg, "failed to mount routes", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(limits.Run(gctx))
	g.Go(eng.Run(gctx))

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", logger.Error(err))
	}

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = httpengine.DefaultShutdownTimeout
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := app.Close(closeCtx); err != nil {
		log.Error("failed to close app", logger.Error(err))
		os.Exit(1)
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func fatal(cfg enginekit.Config, msg string, err error) {
	cfg.NewLogger().Error(msg, logger.Error(err))
	os.Exit(1)
}
