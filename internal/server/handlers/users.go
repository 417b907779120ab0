package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"tenant-auth-control-plane/internal/identity/service"
	userdomain "tenant-auth-control-plane/internal/user/domain"
	"tenant-auth-control-plane/pkg/api"
)

// UserHandler serves tenant-scoped user lookups, updates, and deletion. All
// routes sit behind the auth middleware.
type UserHandler struct {
	logger *slog.Logger
	users  *service.UserService
}

func NewUserHandler(logger *slog.Logger, users *service.UserService) *UserHandler {
	return &UserHandler{logger: logger, users: users}
}

// Get handles GET /api/v1/tenants/{tenant}/users/{username}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")
	username := r.PathValue("username")

	identity, err := h.users.Get(ctx, tenantID, username)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	user, err := toUserResponse(identity)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	sendJSON(h.logger, w, user, http.StatusOK)
}

// List handles GET /api/v1/tenants/{tenant}/users.
// Query parameters: admin (bool), prefix, skip, take, paginate (default true).
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")

	q := userdomain.Query{}
	params := r.URL.Query()
	if v := params.Get("admin"); v != "" {
		admin, err := strconv.ParseBool(v)
		if err != nil {
			sendError(h.logger, w, "admin must be a boolean", http.StatusBadRequest)
			return
		}
		q.Filter.Admin = &admin
	}
	q.Filter.UsernamePrefix = params.Get("prefix")
	if v := params.Get("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			sendError(h.logger, w, "skip must be a non-negative integer", http.StatusBadRequest)
			return
		}
		q.Skip = &skip
	}
	if v := params.Get("take"); v != "" {
		take, err := strconv.Atoi(v)
		if err != nil || take < 0 {
			sendError(h.logger, w, "take must be a non-negative integer", http.StatusBadRequest)
			return
		}
		q.Take = &take
	}
	paginate := true
	if v := params.Get("paginate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			sendError(h.logger, w, "paginate must be a boolean", http.StatusBadRequest)
			return
		}
		paginate = parsed
	}

	identities, err := h.users.GetMany(ctx, tenantID, q, paginate)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	resp := api.UsersResponse{Users: make([]api.UserResponse, 0, len(identities))}
	for _, identity := range identities {
		user, err := toUserResponse(identity)
		if err != nil {
			sendServiceError(h.logger, w, err)
			return
		}
		resp.Users = append(resp.Users, user)
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Update handles PATCH /api/v1/tenants/{tenant}/users/{username}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")
	username := r.PathValue("username")

	var req api.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	identity, err := h.users.Get(ctx, tenantID, username)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	if err := h.users.Update(ctx, identity, service.UpdateInput{
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Admin:       req.Admin,
		Permissions: req.Permissions,
	}); err != nil {
		sendServiceError(h.logger, w, err)
		return
	}

	h.logger.InfoContext(ctx, "user updated", "tenant_id", tenantID, "username", identity.Username)

	user, err := toUserResponse(identity)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	sendJSON(h.logger, w, user, http.StatusOK)
}

// Delete handles DELETE /api/v1/tenants/{tenant}/users/{username}. The
// stored record is removed and any live session for the user is revoked.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")
	username := r.PathValue("username")

	identity, err := h.users.Get(ctx, tenantID, username)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	if err := h.users.Remove(ctx, identity); err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	h.logger.InfoContext(ctx, "user deleted", "tenant_id", tenantID, "username", identity.Username)
	w.WriteHeader(http.StatusNoContent)
}

// Count handles GET /api/v1/tenants/{tenant}/users/count.
func (h *UserHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := r.PathValue("tenant")

	filter := userdomain.Filter{}
	if v := r.URL.Query().Get("admin"); v != "" {
		admin, err := strconv.ParseBool(v)
		if err != nil {
			sendError(h.logger, w, "admin must be a boolean", http.StatusBadRequest)
			return
		}
		filter.Admin = &admin
	}
	filter.UsernamePrefix = r.URL.Query().Get("prefix")

	n, err := h.users.Count(ctx, tenantID, filter)
	if err != nil {
		sendServiceError(h.logger, w, err)
		return
	}
	sendJSON(h.logger, w, api.CountResponse{Count: n}, http.StatusOK)
}
