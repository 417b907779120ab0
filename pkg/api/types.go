// Package api defines the request and response types of the HTTP surface.
package api

import "time"

// RegisterRequest creates an account under the tenant in the URL.
type RegisterRequest struct {
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	DisplayName string          `json:"display_name,omitempty"`
	Admin       bool            `json:"admin,omitempty"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// LoginRequest authenticates with username and password.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login: the session token plus the
// authenticated user's profile.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// SessionResponse is returned by the token-login endpoint. It carries only
// what the session table knows; fetch the profile separately if needed.
type SessionResponse struct {
	TenantID string `json:"tenant_id"`
	Username string `json:"username"`
}

// UserResponse is the public view of a stored user. Password hashes are
// never exposed.
type UserResponse struct {
	TenantID      string          `json:"tenant_id"`
	Username      string          `json:"username"`
	DisplayName   string          `json:"display_name"`
	Admin         bool            `json:"admin"`
	Permissions   map[string]bool `json:"permissions,omitempty"`
	RegisterIP    string          `json:"register_ip,omitempty"`
	LastLoginIP   string          `json:"last_login_ip,omitempty"`
	RegisterDate  time.Time       `json:"register_date"`
	LastLoginDate time.Time       `json:"last_login_date"`
}

// UsersResponse is a page of users.
type UsersResponse struct {
	Users []UserResponse `json:"users"`
}

// UpdateUserRequest applies a partial update. Absent fields are untouched.
type UpdateUserRequest struct {
	DisplayName *string         `json:"display_name,omitempty"`
	Password    *string         `json:"password,omitempty"`
	Admin       *bool           `json:"admin,omitempty"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// AuditLogResponse is one recorded auth event.
type AuditLogResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	IP        string    `json:"ip,omitempty"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLogsResponse is a page of audit logs, newest first.
type AuditLogsResponse struct {
	Logs []AuditLogResponse `json:"logs"`
}

// CountResponse is the result of a tenant-scoped user count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse reports process health.
type HealthResponse struct {
	Status string `json:"status"`
}
