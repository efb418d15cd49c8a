package book

import (
	"sync"
	"testing"

	"github.com/quantfeed/tickd/internal/domain"
)

func TestBook_BestAndDepth(t *testing.T) {
	b := New("TEST")
	b.Upsert(domain.SideBid, 100.0, 1000)
	b.Upsert(domain.SideBid, 99.5, 500)
	b.Upsert(domain.SideBid, 101.0, 200)

	t.Run("Best Bid Is Highest", func(t *testing.T) {
		bid, ok := b.BestBid()
		if !ok || bid != 101.0 {
			t.Errorf("BestBid() = %v, %v; want 101.0, true", bid, ok)
		}
	})

	t.Run("Depth Is Best To Worst", func(t *testing.T) {
		levels := b.Depth(domain.SideBid, 3)
		want := []float64{101.0, 100.0, 99.5}
		if len(levels) != len(want) {
			t.Fatalf("Depth() returned %d levels, want %d", len(levels), len(want))
		}
		for i, lvl := range levels {
			if lvl.Price != want[i] {
				t.Errorf("Depth()[%d].Price = %v, want %v", i, lvl.Price, want[i])
			}
		}
	})

	t.Run("Depth Never Exceeds N", func(t *testing.T) {
		if got := b.Depth(domain.SideBid, 2); len(got) != 2 {
			t.Errorf("Depth(bid, 2) returned %d levels", len(got))
		}
		if got := b.Depth(domain.SideBid, 10); len(got) != 3 {
			t.Errorf("Depth(bid, 10) returned %d levels, want 3", len(got))
		}
	})

	t.Run("Spread After Ask Arrives", func(t *testing.T) {
		b.Upsert(domain.SideAsk, 102.0, 800)
		if got := b.Spread(); got != 1.0 {
			t.Errorf("Spread() = %v, want 1.0", got)
		}
	})
}

func TestBook_EmptySides(t *testing.T) {
	b := New("TEST")

	if _, ok := b.BestBid(); ok {
		t.Error("BestBid() on empty book should report ok=false")
	}
	if _, ok := b.BestAsk(); ok {
		t.Error("BestAsk() on empty book should report ok=false")
	}
	if got := b.Spread(); got != 0 {
		t.Errorf("Spread() on empty book = %v, want 0", got)
	}
	if got := b.Depth(domain.SideAsk, 5); len(got) != 0 {
		t.Errorf("Depth() on empty side returned %d levels", len(got))
	}

	t.Run("One Sided Book Has Zero Spread", func(t *testing.T) {
		b.Upsert(domain.SideBid, 100.0, 10)
		if got := b.Spread(); got != 0 {
			t.Errorf("Spread() with no asks = %v, want 0", got)
		}
	})
}

func TestBook_UpsertZeroRemoves(t *testing.T) {
	b := New("TEST")
	b.Upsert(domain.SideBid, 100.0, 1000)
	b.Upsert(domain.SideBid, 100.0, 0)

	if _, ok := b.BestBid(); ok {
		t.Error("BestBid() should be absent after upserting quantity 0")
	}

	t.Run("Negative Quantity Also Removes", func(t *testing.T) {
		b.Upsert(domain.SideAsk, 101.0, 50)
		b.Upsert(domain.SideAsk, 101.0, -1)
		if _, ok := b.BestAsk(); ok {
			t.Error("BestAsk() should be absent after upserting negative quantity")
		}
	})
}

func TestBook_LastWriteWins(t *testing.T) {
	b := New("TEST")
	b.Upsert(domain.SideBid, 100.0, 100)
	b.Upsert(domain.SideBid, 100.0, 200)
	b.Remove(domain.SideBid, 100.0)
	b.Upsert(domain.SideBid, 100.0, 300)

	levels := b.Depth(domain.SideBid, 1)
	if len(levels) != 1 || levels[0].Quantity != 300 {
		t.Errorf("final quantity = %v, want single level with 300", levels)
	}

	t.Run("Remove Absent Is NoOp", func(t *testing.T) {
		b.Remove(domain.SideBid, 999.0)
		if got := b.Depth(domain.SideBid, 10); len(got) != 1 {
			t.Errorf("Depth() after no-op remove = %d levels, want 1", len(got))
		}
	})

	t.Run("Idempotent Reapply Leaves State Unchanged", func(t *testing.T) {
		before := b.Snapshot(10)
		b.Upsert(domain.SideBid, 100.0, 300)
		after := b.Snapshot(10)
		if len(after.Bids) != len(before.Bids) || after.Bids[0] != before.Bids[0] {
			t.Errorf("reapplying identical upsert changed state: %v -> %v", before.Bids, after.Bids)
		}
	})
}

func TestBook_CrossedRepresentable(t *testing.T) {
	b := New("TEST")
	b.Upsert(domain.SideBid, 105.0, 10)
	b.Upsert(domain.SideAsk, 100.0, 10)

	snap := b.Snapshot(10)
	if !snap.Crossed {
		t.Error("snapshot should flag a crossed book")
	}
	if snap.Spread != -5.0 {
		t.Errorf("Spread = %v, want -5.0 (crossed book kept, not corrected)", snap.Spread)
	}
}

func TestBook_SnapshotConsistency(t *testing.T) {
	b := New("TEST")
	b.Upsert(domain.SideBid, 100.0, 1)
	b.Upsert(domain.SideAsk, 101.0, 1)

	// Writers flip both sides together; a torn snapshot would observe a
	// mixed generation where the recomputed spread disagrees with the
	// captured levels.
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for gen := int64(2); ; gen++ {
			select {
			case <-stop:
				return
			default:
			}
			b.Upsert(domain.SideBid, 100.0, gen)
			b.Upsert(domain.SideAsk, 101.0, gen)
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := b.Snapshot(10)
		if len(snap.Bids) != 1 || len(snap.Asks) != 1 {
			t.Fatalf("unexpected snapshot shape: %+v", snap)
		}
		if snap.Spread != snap.Asks[0].Price-snap.Bids[0].Price {
			t.Fatalf("torn snapshot: spread %v does not match levels %+v", snap.Spread, snap)
		}
	}

	close(stop)
	wg.Wait()
}
