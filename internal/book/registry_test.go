package book

import (
	"fmt"
	"sync"
	"testing"

	"github.com/quantfeed/tickd/internal/domain"
)

func upsertEvent(symbol string, side domain.Side, price float64, qty int64) domain.UpdateEvent {
	return domain.UpdateEvent{
		Symbol:   symbol,
		Price:    price,
		Quantity: qty,
		Side:     side,
		Action:   domain.ActionUpsert,
	}
}

func TestRegistry_LazyCreate(t *testing.T) {
	r := NewRegistry(0)

	t.Run("Unknown Symbol Is Absent", func(t *testing.T) {
		if _, ok := r.Get("FOO"); ok {
			t.Error("Get before any update should report ok=false")
		}
	})

	t.Run("First Update Creates Book", func(t *testing.T) {
		r.Apply(upsertEvent("FOO", domain.SideBid, 10.0, 5))
		b, ok := r.Get("FOO")
		if !ok {
			t.Fatal("book missing after first update")
		}
		if bid, ok := b.BestBid(); !ok || bid != 10.0 {
			t.Errorf("BestBid() = %v, %v; want 10.0, true", bid, ok)
		}
	})

	t.Run("Symbols Are Case Sensitive", func(t *testing.T) {
		if _, ok := r.Get("foo"); ok {
			t.Error(`"foo" should not resolve to the "FOO" book`)
		}
	})
}

func TestRegistry_DeleteMapping(t *testing.T) {
	r := NewRegistry(0)
	r.Apply(upsertEvent("BAR", domain.SideAsk, 50.0, 10))

	r.Apply(domain.UpdateEvent{
		Symbol: "BAR",
		Price:  50.0,
		Side:   domain.SideAsk,
		Action: domain.ActionDelete,
	})

	b, _ := r.Get("BAR")
	if _, ok := b.BestAsk(); ok {
		t.Error("delete action should remove the level")
	}
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	r := NewRegistry(0)

	const workers = 32
	books := make([]*Book, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			r.Apply(upsertEvent("NEW", domain.SideBid, float64(100+i), 1))
			b, _ := r.Get("NEW")
			books[i] = b
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < workers; i++ {
		if books[i] != books[0] {
			t.Fatal("concurrent first updates produced more than one Book instance")
		}
	}
	if got := len(books[0].Depth(domain.SideBid, workers)); got != workers {
		t.Errorf("lost updates during concurrent create: %d levels, want %d", got, workers)
	}
}

func TestRegistry_IndependentSymbols(t *testing.T) {
	r := NewRegistry(0)

	const symbols = 8
	const updates = 500

	var wg sync.WaitGroup
	for i := 0; i < symbols; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			symbol := fmt.Sprintf("SYM%d", i)
			for j := 0; j < updates; j++ {
				r.Apply(upsertEvent(symbol, domain.SideBid, float64(j%50), int64(j+1)))
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != symbols {
		t.Fatalf("Len() = %d, want %d", r.Len(), symbols)
	}
	for i := 0; i < symbols; i++ {
		b, ok := r.Get(fmt.Sprintf("SYM%d", i))
		if !ok {
			t.Fatalf("missing book for SYM%d", i)
		}
		if bid, ok := b.BestBid(); !ok || bid != 49 {
			t.Errorf("SYM%d BestBid() = %v, want 49", i, bid)
		}
	}
}

func TestRegistry_Trades(t *testing.T) {
	r := NewRegistry(3)

	for i := 1; i <= 5; i++ {
		r.AppendTrade(domain.Trade{
			Symbol:   "T",
			Price:    float64(i),
			Quantity: 1,
			Side:     domain.TradeSideBuy,
		})
	}

	got := r.RecentTrades("T", 0)
	if len(got) != 3 {
		t.Fatalf("ring retained %d trades, want 3", len(got))
	}
	for i, want := range []float64{3, 4, 5} {
		if got[i].Price != want {
			t.Errorf("trade[%d].Price = %v, want %v (oldest must be evicted first)", i, got[i].Price, want)
		}
	}

	t.Run("Unseen Symbol Yields Empty", func(t *testing.T) {
		if got := r.RecentTrades("NONE", 10); len(got) != 0 {
			t.Errorf("RecentTrades for unseen symbol returned %d entries", len(got))
		}
	})
}
