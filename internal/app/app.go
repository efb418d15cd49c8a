// Package app provides the top-level lifecycle for the tick engine: it
// wires the dependencies, starts the ingestion engine and API server, and
// tears everything down in order on shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/quantfeed/tickd/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the engine, HTTP server, and gateway
// hub, and blocks until the context is cancelled. Cleanup functions run on
// return.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting tick engine",
		slog.String("redis_addr", a.cfg.Redis.Addr),
		slog.String("feed_source", a.cfg.Feed.Source),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if err := deps.Engine.Start(ctx); err != nil {
		return fmt.Errorf("app: start engine: %w", err)
	}
	// Stop before the cleanup closers so no publish races a closing
	// transport, and so stop() returning means no mutation is in flight.
	a.closers = append(a.closers, deps.Engine.Stop)

	g, gctx := errgroup.WithContext(ctx)

	if deps.Server != nil {
		g.Go(func() error { return deps.Server.Run(gctx) })
	}
	if deps.Hub != nil {
		g.Go(func() error { return deps.Hub.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return gctx.Err()
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
