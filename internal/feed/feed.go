// Package feed defines the ingestion source abstraction and ships a
// synthetic generator so the engine runs without a broker connection.
package feed

import (
	"context"

	"github.com/quantfeed/tickd/internal/domain"
)

// Source produces the stream of market ticks the engine consumes. Run
// returns a channel that delivers ticks in feed order for each symbol and
// is closed when ctx is cancelled. A real broker adapter and the synthetic
// generator both sit behind this interface, keeping the engine feed-agnostic.
type Source interface {
	Run(ctx context.Context) (<-chan domain.Tick, error)
}
