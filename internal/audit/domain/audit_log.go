package domain

import "time"

// AuditLog represents one recorded auth event.
type AuditLog struct {
	ID        string
	TenantID  string
	Username  string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the identity service.
const (
	ActionRegister     = "user.register"
	ActionLogin        = "auth.login"
	ActionLoginFailure = "auth.login_failure"
	ActionLogout       = "auth.logout"
	ActionUpdate       = "user.update"
	ActionDelete       = "user.delete"
)
