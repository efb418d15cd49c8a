package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantfeed/tickd/internal/book"
	"github.com/quantfeed/tickd/internal/engine"
)

// BookHandler serves read access to the in-memory market state.
type BookHandler struct {
	registry *book.Registry
	depth    int
	logger   *slog.Logger
}

// NewBookHandler creates a BookHandler. depth is the default snapshot depth
// when the request does not specify one.
func NewBookHandler(registry *book.Registry, depth int, logger *slog.Logger) *BookHandler {
	if depth <= 0 {
		depth = engine.DefaultDepth
	}
	return &BookHandler{registry: registry, depth: depth, logger: logger}
}

// GetOrderbook responds with a depth-bounded snapshot for one symbol.
// An unseen symbol is a 404, not a server error.
// GET /api/orderbook/{symbol}?depth=N
func (h *BookHandler) GetOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	b, ok := h.registry.Get(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown symbol")
		return
	}
	writeJSON(w, http.StatusOK, b.Snapshot(queryInt(r, "depth", h.depth)))
}

// GetTrades responds with the most recent trades for one symbol in
// insertion order.
// GET /api/trades/{symbol}?limit=N
func (h *BookHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	limit := queryInt(r, "limit", 100)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": symbol,
		"trades": h.registry.RecentTrades(symbol, limit),
	})
}
