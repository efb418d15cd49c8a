package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/quantfeed/tickd/internal/domain"
)

// HealthHandler serves the liveness probe. It reports degraded (but still
// 200, the process is alive) while the distribution transport is down.
type HealthHandler struct {
	dist   domain.Distributor
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(dist domain.Distributor, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{dist: dist, logger: logger}
}

// HealthCheck responds with process liveness and distributor connectivity.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	state := h.dist.State()
	status := "ok"
	if state != domain.StateConnected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"dist_state": state.String(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
