package handlers

import (
	"log/slog"
	"net/http"

	"tenant-auth-control-plane/pkg/api"
)

// HealthHandler serves liveness checks.
type HealthHandler struct {
	logger *slog.Logger
}

func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(h.logger, w, api.HealthResponse{Status: "ok"}, http.StatusOK)
}
