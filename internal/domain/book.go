package domain

// PriceLevel is a single price+quantity entry in an order book. A level with
// zero quantity is never stored; removing a level and setting its quantity to
// zero are the same operation.
type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// BookSnapshot is an immutable, depth-bounded point-in-time view of one
// symbol's order book. Bids are ordered best-to-worst (descending price),
// asks best-to-worst (ascending price). Spread is 0 when either side is
// empty; consumers distinguish "no spread" from "zero spread" by checking
// side presence, not the value. Timestamp is Unix milliseconds of the last
// book mutation.
type BookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Spread    float64      `json:"spread"`
	Crossed   bool         `json:"crossed"`
	Timestamp int64        `json:"timestamp"`
}
