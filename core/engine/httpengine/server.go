package httpengine

import (
	"context"
	"errors"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/enginekit/core/logger"
)

// Start serves on the configured address until ctx is done or the listener fails.
// On cancellation it shuts the server down gracefully and returns ctx.Err().
func (e *Engine) Start(ctx context.Context) error {
	if e.cfg.Addr == "" {
		return ErrMissingAddress
	}
	ln, err := net.Listen("tcp", e.cfg.Addr)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve is Start on an existing listener. The listener is closed on return.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	if err := ctx.Err(); err != nil {
		_ = ln.Close()
		return err
	}

	e.srvMu.Lock()
	if e.running {
		e.srvMu.Unlock()
		_ = ln.Close()
		return ErrAlreadyRunning
	}
	e.running = true
	e.server = &http.Server{
		Handler:        e,
		ReadTimeout:    e.cfg.ReadTimeout,
		WriteTimeout:   e.cfg.WriteTimeout,
		IdleTimeout:    e.cfg.IdleTimeout,
		MaxHeaderBytes: e.cfg.MaxHeaderBytes,
	}
	srv := e.server
	e.srvMu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		e.logger.InfoContext(ctx, "starting server", logger.Component("httpengine"), "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		e.srvMu.Lock()
		e.running = false
		e.srvMu.Unlock()
		return err
	case <-ctx.Done():
		// Stop may already have run before the server was registered.
		_ = e.Stop()
		return ctx.Err()
	}
}

// Stop shuts the HTTP server down, then closes WebSocket connections, both bounded
// by the shutdown timeout. It is a no-op when the server is not running.
func (e *Engine) Stop() error {
	e.srvMu.Lock()
	defer e.srvMu.Unlock()

	if !e.running || e.server == nil {
		return nil
	}

	e.logger.Info("shutting down server gracefully", logger.Component("httpengine"), "timeout", e.cfg.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
	defer cancel()

	err := errors.Join(e.server.Shutdown(ctx), e.CloseConnections(ctx))
	e.running = false

	if err != nil {
		e.logger.Error("server shutdown error", logger.Component("httpengine"), logger.Error(err))
		return err
	}
	e.logger.Info("server shutdown complete", logger.Component("httpengine"))
	return nil
}

// Run returns an errgroup-compatible function that serves until ctx is done and
// then shuts down gracefully. The rate limit cleanup loop runs alongside.
func (e *Engine) Run(ctx context.Context) func() error {
	return func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(e.limits.Run(gctx))
		g.Go(func() error {
			errCh := make(chan error, 1)
			go func() { errCh <- e.Start(gctx) }()

			select {
			case <-gctx.Done():
				if err := e.Stop(); err != nil {
					e.logger.Error("failed to stop server during context cancellation", logger.Error(err))
				}
				<-errCh
				return nil
			case err := <-errCh:
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
		})
		return g.Wait()
	}
}
