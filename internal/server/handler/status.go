package handler

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/quantfeed/tickd/internal/book"
	"github.com/quantfeed/tickd/internal/domain"
	"github.com/quantfeed/tickd/internal/engine"
)

// StatusHandler reports the engine's operational state.
type StatusHandler struct {
	engine     *engine.Engine
	registry   *book.Registry
	dist       domain.Distributor
	instanceID string
	startedAt  time.Time
	logger     *slog.Logger
}

// NewStatusHandler creates a StatusHandler. instanceID identifies this
// process in a multi-instance deployment.
func NewStatusHandler(eng *engine.Engine, registry *book.Registry, dist domain.Distributor, instanceID string, startedAt time.Time, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		engine:     eng,
		registry:   registry,
		dist:       dist,
		instanceID: instanceID,
		startedAt:  startedAt,
		logger:     logger,
	}
}

// GetStatus responds with the engine state, tracked symbol count, and
// distributor connectivity.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	symbols := h.registry.Symbols()
	sort.Strings(symbols)
	writeJSON(w, http.StatusOK, map[string]any{
		"instance_id":    h.instanceID,
		"engine_state":   h.engine.State().String(),
		"running":        h.engine.IsRunning(),
		"dist_state":     h.dist.State().String(),
		"symbol_count":   h.registry.Len(),
		"symbols":        symbols,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}
