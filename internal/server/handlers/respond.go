// Package handlers implements the HTTP endpoints of the auth server.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	identitydomain "tenant-auth-control-plane/internal/identity/domain"
	"tenant-auth-control-plane/internal/identity/service"
	"tenant-auth-control-plane/internal/session"
	"tenant-auth-control-plane/pkg/api"
)

func sendJSON(logger *slog.Logger, w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	sendJSON(logger, w, api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}, statusCode)
}

// sendServiceError maps service and session error kinds to HTTP statuses.
func sendServiceError(logger *slog.Logger, w http.ResponseWriter, err error) {
	var rejected *service.RejectedInputError
	switch {
	case errors.As(err, &rejected):
		sendError(logger, w, rejected.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrAlreadyExists):
		sendError(logger, w, "username already taken", http.StatusConflict)
	case errors.Is(err, service.ErrNotFound):
		sendError(logger, w, "user not found", http.StatusNotFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		sendError(logger, w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, service.ErrNotLoggedIn):
		sendError(logger, w, "not logged in", http.StatusUnauthorized)
	case errors.Is(err, session.ErrTokenExpired):
		sendError(logger, w, "session token expired", http.StatusUnauthorized)
	case errors.Is(err, session.ErrNotAuthenticated):
		sendError(logger, w, "invalid session token", http.StatusUnauthorized)
	default:
		logger.Error("internal error", "error", err)
		sendError(logger, w, "internal server error", http.StatusInternalServerError)
	}
}

func toUserResponse(identity *identitydomain.Identity) (api.UserResponse, error) {
	profile, err := identity.Profile()
	if err != nil {
		return api.UserResponse{}, err
	}
	return api.UserResponse{
		TenantID:      profile.TenantID,
		Username:      profile.Username,
		DisplayName:   profile.DisplayName,
		Admin:         profile.Admin,
		Permissions:   profile.Permissions,
		RegisterIP:    profile.RegisterIP,
		LastLoginIP:   profile.LastLoginIP,
		RegisterDate:  profile.RegisterDate,
		LastLoginDate: profile.LastLoginDate,
	}, nil
}
