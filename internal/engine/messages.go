package engine

import (
	"encoding/json"

	"github.com/quantfeed/tickd/internal/domain"
)

// BookChannel names the pub/sub channel carrying a symbol's book snapshots.
func BookChannel(symbol string) string { return "orderbook:" + symbol }

// TradeChannel names the pub/sub channel carrying a symbol's trades.
func TradeChannel(symbol string) string { return "trades:" + symbol }

// LastPriceKey names the key-value entry holding a symbol's last trade price.
func LastPriceKey(symbol string) string { return "last_price:" + symbol }

// levelPair marshals a price level as the wire pair [price, quantity].
type levelPair domain.PriceLevel

func (l levelPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{l.Price, l.Quantity})
}

// BookMessage is the payload published on "orderbook:{symbol}".
type BookMessage struct {
	Type      string      `json:"type"`
	Symbol    string      `json:"symbol"`
	Bids      []levelPair `json:"bids"`
	Asks      []levelPair `json:"asks"`
	Spread    float64     `json:"spread"`
	Timestamp int64       `json:"timestamp"`
}

func newBookMessage(snap domain.BookSnapshot) BookMessage {
	msg := BookMessage{
		Type:      "orderbook",
		Symbol:    snap.Symbol,
		Bids:      make([]levelPair, len(snap.Bids)),
		Asks:      make([]levelPair, len(snap.Asks)),
		Spread:    snap.Spread,
		Timestamp: snap.Timestamp,
	}
	for i, lvl := range snap.Bids {
		msg.Bids[i] = levelPair(lvl)
	}
	for i, lvl := range snap.Asks {
		msg.Asks[i] = levelPair(lvl)
	}
	return msg
}

// TradeMessage is the payload published on "trades:{symbol}".
type TradeMessage struct {
	Type      string  `json:"type"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Side      string  `json:"side"`
	Timestamp int64   `json:"timestamp"`
}

func newTradeMessage(t domain.Trade) TradeMessage {
	return TradeMessage{
		Type:      "trade",
		Symbol:    t.Symbol,
		Price:     t.Price,
		Quantity:  t.Quantity,
		Side:      string(t.Side),
		Timestamp: t.Timestamp,
	}
}
