package domain

import (
	"errors"
	"time"
)

// User is the durable credential-store record for one account. Usernames are
// canonical lowercase and unique within a tenant; the same username may exist
// under different tenants. PasswordHash is a bcrypt digest; the record never
// holds a plaintext password.
type User struct {
	TenantID    string
	Username    string
	DisplayName string
	// PasswordHash is the current bcrypt digest. OldPasswordHash archives the
	// previous digest when the password changes, for "has the password
	// changed" auditing.
	PasswordHash    string
	OldPasswordHash string
	Admin           bool
	Permissions     map[string]bool
	RegisterIP      string
	LastLoginIP     string
	RegisterDate    time.Time
	LastLoginDate   time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate validates the user for persistence. Returns an error describing the
// first validation failure.
func (u *User) Validate() error {
	if u.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password_hash is required")
	}
	return nil
}

// Patch is a partial update applied to a stored user. Nil fields are left
// untouched; a nil Permissions map keeps the stored value.
type Patch struct {
	DisplayName     *string
	PasswordHash    *string
	OldPasswordHash *string
	Admin           *bool
	Permissions     map[string]bool
	LastLoginIP     *string
	LastLoginDate   *time.Time
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.DisplayName == nil && p.PasswordHash == nil && p.OldPasswordHash == nil &&
		p.Admin == nil && p.Permissions == nil && p.LastLoginIP == nil && p.LastLoginDate == nil
}

// Filter narrows list and count queries. TenantID is always forced by the
// identity service regardless of what the caller supplies; tenant isolation
// cannot be bypassed through this type.
type Filter struct {
	TenantID       string
	Admin          *bool
	UsernamePrefix string
}

// Query is a tenant-scoped list/count query with optional pagination bounds.
// Nil Skip/Take mean "use the caller's pagination policy" (the identity
// service fills defaults unless pagination is disabled).
type Query struct {
	Filter Filter
	Skip   *int
	Take   *int
}
