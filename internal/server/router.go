// Package server wires the HTTP routes and middleware chain.
package server

import (
	"log/slog"
	"net/http"

	auditrepo "tenant-auth-control-plane/internal/audit/repository"
	"tenant-auth-control-plane/internal/identity/service"
	"tenant-auth-control-plane/internal/server/handlers"
	"tenant-auth-control-plane/internal/server/middleware"
)

// Deps holds everything the router needs.
type Deps struct {
	Logger    *slog.Logger
	Users     *service.UserService
	AuditLogs auditrepo.Repository
}

// NewRouter builds the full handler chain: recovery, client IP capture, and
// request logging around the route mux. Register, login, and health are
// public; everything else requires a bearer session token.
func NewRouter(deps Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(deps.Logger, deps.Users)
	userHandler := handlers.NewUserHandler(deps.Logger, deps.Users)
	auditHandler := handlers.NewAuditHandler(deps.Logger, deps.AuditLogs)
	healthHandler := handlers.NewHealthHandler(deps.Logger)

	requireAuth := middleware.Auth(deps.Logger, deps.Users)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler.Health)

	mux.HandleFunc("POST /api/v1/tenants/{tenant}/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/tenants/{tenant}/auth/login", authHandler.Login)
	mux.Handle("GET /api/v1/auth/session", requireAuth(http.HandlerFunc(authHandler.Session)))
	mux.Handle("POST /api/v1/auth/logout", requireAuth(http.HandlerFunc(authHandler.Logout)))

	mux.Handle("GET /api/v1/tenants/{tenant}/users", requireAuth(http.HandlerFunc(userHandler.List)))
	mux.Handle("GET /api/v1/tenants/{tenant}/users/count", requireAuth(http.HandlerFunc(userHandler.Count)))
	mux.Handle("GET /api/v1/tenants/{tenant}/users/{username}", requireAuth(http.HandlerFunc(userHandler.Get)))
	mux.Handle("PATCH /api/v1/tenants/{tenant}/users/{username}", requireAuth(http.HandlerFunc(userHandler.Update)))
	mux.Handle("DELETE /api/v1/tenants/{tenant}/users/{username}", requireAuth(http.HandlerFunc(userHandler.Delete)))

	mux.Handle("GET /api/v1/tenants/{tenant}/audit", requireAuth(http.HandlerFunc(auditHandler.List)))

	var handler http.Handler = mux
	handler = middleware.Logging(deps.Logger)(handler)
	handler = middleware.ClientIP(handler)
	handler = middleware.Recovery(deps.Logger)(handler)
	return handler
}
