package book

import (
	"sync"

	"github.com/quantfeed/tickd/internal/domain"
)

// Registry owns one Book and one TradeRing per traded symbol. Entries are
// created lazily on first use and live for the process lifetime. The
// registry lock guards only the maps; each book carries its own lock, so
// updates to distinct symbols never contend.
type Registry struct {
	mu       sync.RWMutex
	books    map[string]*Book
	trades   map[string]*TradeRing
	tradeCap int
}

// NewRegistry creates an empty registry whose trade rings hold up to
// tradeCapacity entries each (<= 0 uses DefaultTradeCapacity).
func NewRegistry(tradeCapacity int) *Registry {
	return &Registry{
		books:    make(map[string]*Book),
		trades:   make(map[string]*TradeRing),
		tradeCap: tradeCapacity,
	}
}

// Apply routes an update event to the symbol's book, creating the book on
// first use. A delete action or an upsert with quantity <= 0 removes the
// level; any other upsert sets it. The event must already be validated.
func (r *Registry) Apply(ev domain.UpdateEvent) {
	b := r.book(ev.Symbol)
	if ev.Action == domain.ActionDelete || ev.Quantity <= 0 {
		b.Remove(ev.Side, ev.Price)
		return
	}
	b.Upsert(ev.Side, ev.Price, ev.Quantity)
}

// book returns the symbol's book, creating it if needed. The double-checked
// create guarantees concurrent first updates for a new symbol resolve to a
// single Book instance.
func (r *Registry) book(symbol string) *Book {
	r.mu.RLock()
	b, ok := r.books[symbol]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.books[symbol]; ok {
		return b
	}
	b = New(symbol)
	r.books[symbol] = b
	return b
}

// Get returns the book for a symbol, or ok=false when no update for it has
// ever been seen. Absence is a normal outcome, not an error.
func (r *Registry) Get(symbol string) (*Book, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[symbol]
	return b, ok
}

// AppendTrade records a trade in the symbol's ring, creating it on first use
// with the same race-safe pattern as books.
func (r *Registry) AppendTrade(t domain.Trade) {
	r.ring(t.Symbol).Append(t)
}

func (r *Registry) ring(symbol string) *TradeRing {
	r.mu.RLock()
	ring, ok := r.trades[symbol]
	r.mu.RUnlock()
	if ok {
		return ring
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ring, ok = r.trades[symbol]; ok {
		return ring
	}
	ring = NewTradeRing(r.tradeCap)
	r.trades[symbol] = ring
	return ring
}

// RecentTrades returns up to n recent trades for a symbol in insertion
// order. An unseen symbol yields an empty slice.
func (r *Registry) RecentTrades(symbol string, n int) []domain.Trade {
	r.mu.RLock()
	ring, ok := r.trades[symbol]
	r.mu.RUnlock()
	if !ok {
		return []domain.Trade{}
	}
	return ring.Recent(n)
}

// Symbols lists every symbol with a book, in no particular order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.books))
	for s := range r.books {
		out = append(out, s)
	}
	return out
}

// Len returns the number of tracked symbols.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.books)
}
