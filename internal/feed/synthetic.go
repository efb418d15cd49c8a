package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/quantfeed/tickd/internal/domain"
)

// SyntheticConfig tunes the synthetic tick generator.
type SyntheticConfig struct {
	// Symbols to generate ticks for; each tick picks one at random.
	Symbols []string

	// Interval between ticks.
	Interval time.Duration

	// BasePrice is the mid price updates oscillate around; PriceBand is the
	// half-width of the oscillation.
	BasePrice float64
	PriceBand float64

	// TradeChance is the probability (0..1) that a tick also emits a trade.
	TradeChance float64

	// Seed fixes the random stream when non-zero, for reproducible runs.
	Seed int64
}

func (c SyntheticConfig) withDefaults() SyntheticConfig {
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"NIFTY"}
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Millisecond
	}
	if c.BasePrice <= 0 {
		c.BasePrice = 100.0
	}
	if c.PriceBand <= 0 {
		c.PriceBand = 1.0
	}
	if c.TradeChance <= 0 {
		c.TradeChance = 0.1
	}
	return c
}

// Synthetic generates randomized book updates with occasional trades,
// standing in for a real feed during tests and demos.
type Synthetic struct {
	cfg    SyntheticConfig
	logger *slog.Logger
	rng    *rand.Rand
}

// NewSynthetic creates a synthetic source.
func NewSynthetic(cfg SyntheticConfig, logger *slog.Logger) *Synthetic {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthetic{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "synthetic_feed")),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Run starts the generator goroutine. The returned channel closes when ctx
// is cancelled.
func (s *Synthetic) Run(ctx context.Context) (<-chan domain.Tick, error) {
	out := make(chan domain.Tick)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		s.logger.Info("synthetic feed started",
			slog.Int("symbols", len(s.cfg.Symbols)),
			slog.Duration("interval", s.cfg.Interval),
		)
		defer s.logger.Info("synthetic feed stopped")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			now := time.Now().UnixMilli()
			symbol := s.cfg.Symbols[s.rng.Intn(len(s.cfg.Symbols))]

			update := domain.UpdateEvent{
				Symbol:    symbol,
				Price:     s.price(),
				Quantity:  int64(100 + s.rng.Intn(9901)),
				Side:      domain.SideBid,
				Action:    domain.ActionUpsert,
				Timestamp: now,
			}
			if s.rng.Intn(2) == 1 {
				update.Side = domain.SideAsk
			}
			if !s.send(ctx, out, domain.Tick{Update: &update}) {
				return
			}

			if s.rng.Float64() < s.cfg.TradeChance {
				trade := domain.Trade{
					Symbol:    symbol,
					Price:     s.price(),
					Quantity:  int64(10 + s.rng.Intn(991)),
					Side:      domain.TradeSideBuy,
					Timestamp: now,
				}
				if s.rng.Intn(2) == 1 {
					trade.Side = domain.TradeSideSell
				}
				if !s.send(ctx, out, domain.Tick{Trade: &trade}) {
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Synthetic) price() float64 {
	return s.cfg.BasePrice + (s.rng.Float64()*2-1)*s.cfg.PriceBand
}

func (s *Synthetic) send(ctx context.Context, out chan<- domain.Tick, t domain.Tick) bool {
	select {
	case out <- t:
		return true
	case <-ctx.Done():
		return false
	}
}

// Compile-time interface check.
var _ Source = (*Synthetic)(nil)
