// Package engine drives the ingestion loop: it turns feed ticks into book
// mutations and fans the resulting state out on the distribution channels.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quantfeed/tickd/internal/book"
	"github.com/quantfeed/tickd/internal/domain"
	"github.com/quantfeed/tickd/internal/feed"
)

// State is the engine lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Config tunes the engine.
type Config struct {
	// Depth bounds the number of levels per side in published snapshots.
	Depth int

	// LastPriceTTL is the expiry on the last-price key-value entries;
	// <= 0 disables the cache.
	LastPriceTTL time.Duration
}

// DefaultDepth is the published snapshot depth when none is configured.
const DefaultDepth = 10

// Engine owns the book registry and the distributor for its lifetime. One
// goroutine consumes the feed in order, so updates for a symbol are applied
// exactly in arrival order. The book is the source of truth: a failed
// publish is logged and skipped, never allowed to hold back state.
type Engine struct {
	registry *book.Registry
	dist     domain.Distributor
	source   feed.Source
	cfg      Config
	logger   *slog.Logger

	// lifecycle serializes Start and Stop so cancel is always assigned
	// before the state reads as Running. State reads stay lock-free.
	lifecycle sync.Mutex
	state     atomic.Int32
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an engine in the Idle state.
func New(registry *book.Registry, dist domain.Distributor, source feed.Source, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	return &Engine{
		registry: registry,
		dist:     dist,
		source:   source,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Start launches the ingestion loop. It is an error to start an engine that
// is already running or stopping.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if s := e.State(); s != StateIdle && s != StateStopped {
		return domain.ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ticks, err := e.source.Run(loopCtx)
	if err != nil {
		cancel()
		e.state.Store(int32(StateStopped))
		return err
	}
	e.cancel = cancel

	e.wg.Add(1)
	go e.loop(loopCtx, ticks)
	e.state.Store(int32(StateRunning))

	e.logger.Info("engine started", slog.Int("depth", e.cfg.Depth))
	return nil
}

// Stop signals the loop to exit between events and blocks until it has
// fully drained, so no in-flight mutation survives past the return.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.transition(StateRunning, StateStopping) {
		return
	}
	e.cancel()
	e.wg.Wait()
	e.state.Store(int32(StateStopped))
	e.logger.Info("engine stopped")
}

// IsRunning reports whether the ingestion loop is active.
func (e *Engine) IsRunning() bool {
	return e.State() == StateRunning
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) transition(from, to State) bool {
	return e.state.CompareAndSwap(int32(from), int32(to))
}

// loop consumes ticks until the context is cancelled or the source closes
// its channel. Cancellation is observed between events, never mid-event.
func (e *Engine) loop(ctx context.Context, ticks <-chan domain.Tick) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				e.logger.Info("feed source closed")
				return
			}
			switch {
			case tick.Update != nil:
				e.processUpdate(ctx, *tick.Update)
			case tick.Trade != nil:
				e.processTrade(ctx, *tick.Trade)
			}
		}
	}
}

// processUpdate applies one update to the registry and publishes the
// symbol's fresh snapshot. Malformed events are rejected before they can
// touch a book.
func (e *Engine) processUpdate(ctx context.Context, ev domain.UpdateEvent) {
	if err := ev.Validate(); err != nil {
		e.logger.Warn("rejected update event",
			slog.String("symbol", ev.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	e.registry.Apply(ev)

	b, ok := e.registry.Get(ev.Symbol)
	if !ok {
		return
	}
	snap := b.Snapshot(e.cfg.Depth)

	payload, err := json.Marshal(newBookMessage(snap))
	if err != nil {
		e.logger.Error("marshal book snapshot", slog.String("error", err.Error()))
		return
	}
	if err := e.dist.Publish(ctx, BookChannel(ev.Symbol), payload); err != nil {
		e.logger.Warn("publish orderbook failed",
			slog.String("symbol", ev.Symbol),
			slog.String("error", err.Error()),
		)
	}
}

// processTrade records one trade and publishes it, then refreshes the
// last-price cache entry.
func (e *Engine) processTrade(ctx context.Context, t domain.Trade) {
	if err := t.Validate(); err != nil {
		e.logger.Warn("rejected trade",
			slog.String("symbol", t.Symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	e.registry.AppendTrade(t)

	payload, err := json.Marshal(newTradeMessage(t))
	if err != nil {
		e.logger.Error("marshal trade", slog.String("error", err.Error()))
		return
	}
	if err := e.dist.Publish(ctx, TradeChannel(t.Symbol), payload); err != nil {
		e.logger.Warn("publish trade failed",
			slog.String("symbol", t.Symbol),
			slog.String("error", err.Error()),
		)
	}

	if e.cfg.LastPriceTTL > 0 {
		price := strconv.FormatFloat(t.Price, 'f', -1, 64)
		if err := e.dist.SetValue(ctx, LastPriceKey(t.Symbol), price, e.cfg.LastPriceTTL); err != nil {
			e.logger.Debug("last price cache update failed",
				slog.String("symbol", t.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}
