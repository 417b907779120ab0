package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	auditrepo "tenant-auth-control-plane/internal/audit/repository"
	"tenant-auth-control-plane/pkg/api"
)

// auditDefaultLimit bounds unpaginated audit listings.
const (
	auditDefaultLimit = 50
	auditMaxLimit     = 500
)

// AuditHandler serves the tenant-scoped audit trail. Sits behind the auth
// middleware.
type AuditHandler struct {
	logger *slog.Logger
	logs   auditrepo.Repository
}

func NewAuditHandler(logger *slog.Logger, logs auditrepo.Repository) *AuditHandler {
	return &AuditHandler{logger: logger, logs: logs}
}

// List handles GET /api/v1/tenants/{tenant}/audit.
// Query parameters: limit (default 50, max 500) and offset.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")

	limit := auditDefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 || parsed > auditMaxLimit {
			sendError(h.logger, w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			sendError(h.logger, w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = parsed
	}

	entries, err := h.logs.ListByTenant(ctx, tenantID, int32(limit), int32(offset))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit logs", "error", err)
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.AuditLogsResponse{Logs: make([]api.AuditLogResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Logs = append(resp.Logs, api.AuditLogResponse{
			ID:        entry.ID,
			TenantID:  entry.TenantID,
			Username:  entry.Username,
			Action:    entry.Action,
			IP:        entry.IP,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		})
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}
