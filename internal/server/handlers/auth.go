package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"tenant-auth-control-plane/internal/identity/service"
	"tenant-auth-control-plane/internal/server/middleware"
	"tenant-auth-control-plane/pkg/api"
)

// AuthHandler serves register, login, token login, and logout.
type AuthHandler struct {
	logger *slog.Logger
	users  *service.UserService
}

func NewAuthHandler(logger *slog.Logger, users *service.UserService) *AuthHandler {
	return &AuthHandler{logger: logger, users: users}
}

// Register handles POST /api/v1/tenants/{tenant}/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")
	if tenantID == "" {
		sendError(h.logger, w, "tenant is required", http.StatusBadRequest)
		return
	}

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := h.users.Register(ctx, tenantID, service.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Admin:       req.Admin,
		Permissions: req.Permissions,
		RegisterIP:  middleware.ClientIPFrom(ctx),
	})
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"tenant_id", tenantID, "username", identity.Username)

	user, err := toUserResponse(identity)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	sendJSON(h.logger, w, api.AuthResponse{Token: identity.Token, User: user}, http.StatusCreated)
}

// Login handles POST /api/v1/tenants/{tenant}/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := h.users.Login(ctx, tenantID, service.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       middleware.ClientIPFrom(ctx),
	})
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		"tenant_id", identity.TenantID, "username", identity.Username)

	user, err := toUserResponse(identity)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	sendJSON(h.logger, w, api.AuthResponse{Token: identity.Token, User: user}, http.StatusOK)
}

// Session handles GET /api/v1/auth/session: resolves the bearer token the
// auth middleware already validated and reports who it belongs to.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	if identity == nil {
		sendError(h.logger, w, "not authenticated", http.StatusUnauthorized)
		return
	}
	sendJSON(h.logger, w, api.SessionResponse{
		TenantID: identity.TenantID,
		Username: identity.Username,
	}, http.StatusOK)
}

// Logout handles POST /api/v1/auth/logout: revokes the bearer token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := middleware.IdentityFrom(ctx)
	if identity == nil {
		sendError(h.logger, w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if err := h.users.Logout(ctx, identity); err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	h.logger.InfoContext(ctx, "user logged out",
		"tenant_id", identity.TenantID, "username", identity.Username)
	w.WriteHeader(http.StatusNoContent)
}
