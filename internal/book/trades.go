package book

import (
	"sync"

	"github.com/quantfeed/tickd/internal/domain"
)

// DefaultTradeCapacity bounds the per-symbol trade history.
const DefaultTradeCapacity = 1000

// TradeRing is a fixed-capacity, insertion-ordered trade buffer. When full,
// appending evicts the oldest trade.
type TradeRing struct {
	mu   sync.Mutex
	buf  []domain.Trade
	head int // index of the oldest trade
	size int
}

// NewTradeRing creates a ring with the given capacity; capacity <= 0 falls
// back to DefaultTradeCapacity.
func NewTradeRing(capacity int) *TradeRing {
	if capacity <= 0 {
		capacity = DefaultTradeCapacity
	}
	return &TradeRing{buf: make([]domain.Trade, capacity)}
}

// Append records a trade, evicting the oldest when the ring is full.
func (r *TradeRing) Append(t domain.Trade) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = t
		r.size++
		return
	}
	r.buf[r.head] = t
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of retained trades.
func (r *TradeRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Recent returns up to n of the most recent trades in insertion order
// (oldest first). n <= 0 returns everything retained.
func (r *TradeRing) Recent(n int) []domain.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]domain.Trade, n)
	start := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
	return out
}
