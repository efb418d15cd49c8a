package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantfeed/tickd/internal/book"
	"github.com/quantfeed/tickd/internal/config"
	distredis "github.com/quantfeed/tickd/internal/dist/redis"
	"github.com/quantfeed/tickd/internal/engine"
	"github.com/quantfeed/tickd/internal/feed"
	"github.com/quantfeed/tickd/internal/server"
	"github.com/quantfeed/tickd/internal/server/handler"
	"github.com/quantfeed/tickd/internal/server/ws"
)

// Dependencies bundles everything the application run loop needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Registry *book.Registry
	Dist     *distredis.Client
	Engine   *engine.Engine
	Server   *server.Server
	Hub      *ws.Hub
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function to call on shutdown. A failure to
// reach the distribution transport here is fatal: without it the engine
// cannot serve its purpose.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	dist, err := distredis.New(ctx, distredis.Config{
		Addr:              cfg.Redis.Addr,
		Password:          cfg.Redis.Password,
		DB:                cfg.Redis.DB,
		PoolSize:          cfg.Redis.PoolSize,
		TLSEnabled:        cfg.Redis.TLSEnabled,
		OpTimeout:         cfg.Redis.OpTimeout(),
		HeartbeatInterval: cfg.Redis.HeartbeatInterval(),
		ReconnectMin:      cfg.Redis.ReconnectMin(),
		ReconnectMax:      cfg.Redis.ReconnectMax(),
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	dist.Start()
	closers = append(closers, func() { _ = dist.Close() })

	registry := book.NewRegistry(cfg.Engine.TradeCapacity)

	source := feed.NewSynthetic(feed.SyntheticConfig{
		Symbols:     cfg.Feed.Symbols,
		Interval:    cfg.Feed.Interval(),
		BasePrice:   cfg.Feed.BasePrice,
		PriceBand:   cfg.Feed.PriceBand,
		TradeChance: cfg.Feed.TradeChance,
	}, logger)

	eng := engine.New(registry, dist, source, engine.Config{
		Depth:        cfg.Engine.Depth,
		LastPriceTTL: cfg.Engine.LastPriceTTL(),
	}, logger)

	deps := &Dependencies{
		Registry: registry,
		Dist:     dist,
		Engine:   eng,
	}

	if cfg.Server.Enabled {
		deps.Hub = ws.NewHub(dist, logger)
		deps.Server = server.NewServer(
			server.Config{Port: cfg.Server.Port},
			server.Handlers{
				Health: handler.NewHealthHandler(dist, logger),
				Status: handler.NewStatusHandler(eng, registry, dist, uuid.NewString(), time.Now().UTC(), logger),
				Book:   handler.NewBookHandler(registry, cfg.Engine.Depth, logger),
			},
			deps.Hub,
			logger,
		)
	}

	return deps, cleanup, nil
}
