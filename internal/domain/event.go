package domain

import (
	"fmt"
	"math"
)

// Side is the book side an update applies to.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Action says whether an update sets a level or removes it.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// TradeSide is the aggressor direction of an executed trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// UpdateEvent is one incremental order book change from the feed.
// Timestamp is Unix milliseconds.
type UpdateEvent struct {
	Symbol    string
	Price     float64
	Quantity  int64
	Side      Side
	Action    Action
	Timestamp int64
}

// Validate rejects events that must not reach a book: empty symbol, unknown
// side or action, and non-finite prices. A delete for an absent level and an
// upsert with quantity <= 0 are both valid (they map to a remove).
func (e UpdateEvent) Validate() error {
	if e.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidEvent)
	}
	if e.Side != SideBid && e.Side != SideAsk {
		return fmt.Errorf("%w: unknown side %q", ErrInvalidEvent, e.Side)
	}
	if e.Action != ActionUpsert && e.Action != ActionDelete {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, e.Action)
	}
	if math.IsNaN(e.Price) || math.IsInf(e.Price, 0) {
		return fmt.Errorf("%w: non-finite price", ErrInvalidEvent)
	}
	return nil
}

// Trade is one executed trade from the feed. Timestamp is Unix milliseconds.
type Trade struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
	Side      TradeSide `json:"side"`
	Timestamp int64     `json:"timestamp"`
}

// Validate rejects trades with an empty symbol, unknown side, non-finite
// price, or non-positive quantity.
func (t Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidEvent)
	}
	if t.Side != TradeSideBuy && t.Side != TradeSideSell {
		return fmt.Errorf("%w: unknown trade side %q", ErrInvalidEvent, t.Side)
	}
	if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) {
		return fmt.Errorf("%w: non-finite price", ErrInvalidEvent)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: non-positive quantity", ErrInvalidEvent)
	}
	return nil
}

// Tick is one unit of incoming market data: exactly one of Update or Trade
// is set.
type Tick struct {
	Update *UpdateEvent
	Trade  *Trade
}
