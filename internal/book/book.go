// Package book holds the in-memory market state: per-symbol price-level
// books, the symbol registry, and the per-symbol trade rings.
package book

import (
	"sync"
	"time"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"github.com/quantfeed/tickd/internal/domain"
)

// Book is a single symbol's order book: two price-ordered level trees under
// one lock. Bids are ordered descending so the tree's leftmost node is the
// best bid; asks ascending so the leftmost node is the best ask. A crossed
// book (best bid >= best ask) is representable and never corrected here.
type Book struct {
	symbol string

	mu          sync.RWMutex
	bids        *rbt.Tree[float64, int64]
	asks        *rbt.Tree[float64, int64]
	lastUpdated time.Time
}

func descending(a, b float64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func ascending(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// New creates an empty book for a symbol.
func New(symbol string) *Book {
	return &Book{
		symbol: symbol,
		bids:   rbt.NewWith[float64, int64](descending),
		asks:   rbt.NewWith[float64, int64](ascending),
	}
}

// Symbol returns the symbol this book tracks.
func (b *Book) Symbol() string { return b.symbol }

// Upsert sets or replaces the quantity at a price level. A quantity <= 0 is
// a remove, not a zero entry.
func (b *Book) Upsert(side domain.Side, price float64, quantity int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tree := b.side(side)
	if quantity > 0 {
		tree.Put(price, quantity)
	} else {
		tree.Remove(price)
	}
	b.lastUpdated = time.Now()
}

// Remove deletes the level at price if present; absent levels are a no-op.
func (b *Book) Remove(side domain.Side, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.side(side).Remove(price)
	b.lastUpdated = time.Now()
}

func (b *Book) side(side domain.Side) *rbt.Tree[float64, int64] {
	if side == domain.SideBid {
		return b.bids
	}
	return b.asks
}

// BestBid returns the highest bid price, or ok=false when no bids exist.
func (b *Book) BestBid() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestLocked(b.bids)
}

// BestAsk returns the lowest ask price, or ok=false when no asks exist.
func (b *Book) BestAsk() (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return bestLocked(b.asks)
}

// bestLocked reads the leftmost node, which is the best price under each
// side's comparator. Caller holds the book lock.
func bestLocked(tree *rbt.Tree[float64, int64]) (float64, bool) {
	node := tree.Left()
	if node == nil {
		return 0, false
	}
	return node.Key, true
}

// Spread returns bestAsk - bestBid when both sides are present, else 0.
// Callers that need to distinguish "no spread" from a genuine zero check
// side presence via BestBid/BestAsk.
func (b *Book) Spread() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return spreadLocked(b.bids, b.asks)
}

func spreadLocked(bids, asks *rbt.Tree[float64, int64]) float64 {
	bid, bidOK := bestLocked(bids)
	ask, askOK := bestLocked(asks)
	if !bidOK || !askOK {
		return 0
	}
	return ask - bid
}

// Depth returns up to n levels on a side, best-to-worst. Fewer than n are
// returned when the side is shallower; an empty side returns an empty slice.
func (b *Book) Depth(side domain.Side, n int) []domain.PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return depthLocked(b.side(side), n)
}

func depthLocked(tree *rbt.Tree[float64, int64], n int) []domain.PriceLevel {
	if n <= 0 {
		return []domain.PriceLevel{}
	}
	levels := make([]domain.PriceLevel, 0, min(n, tree.Size()))
	it := tree.Iterator()
	for it.Next() && len(levels) < n {
		levels = append(levels, domain.PriceLevel{Price: it.Key(), Quantity: it.Value()})
	}
	return levels
}

// Snapshot produces a depth-bounded view of the book under a single lock
// acquisition, so bids, asks, spread, and crossed state are mutually
// consistent.
func (b *Book) Snapshot(depth int) domain.BookSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, bidOK := bestLocked(b.bids)
	ask, askOK := bestLocked(b.asks)

	return domain.BookSnapshot{
		Symbol:    b.symbol,
		Bids:      depthLocked(b.bids, depth),
		Asks:      depthLocked(b.asks, depth),
		Spread:    spreadLocked(b.bids, b.asks),
		Crossed:   bidOK && askOK && bid >= ask,
		Timestamp: b.lastUpdated.UnixMilli(),
	}
}
