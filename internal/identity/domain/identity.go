// Package domain holds the in-memory identity entity: the authenticated (or
// not-yet-authenticated) view of a stored user.
package domain

import (
	"errors"
	"strings"

	userdomain "tenant-auth-control-plane/internal/user/domain"
)

// ErrNotHydrated is returned when profile details are read before they have
// been loaded from the credential store.
var ErrNotHydrated = errors.New("identity details not hydrated")

// Identity is the in-memory representation of one user. It may be bare
// (tenant and username only, details pending) or hydrated with a profile
// snapshot. The snapshot is a copy of credential-store state at hydration
// time, not a live alias into the session table.
type Identity struct {
	TenantID string
	Username string
	// Token is the session token this identity holds after a successful
	// register, login, or token login. Empty when not logged in.
	Token string

	profile *userdomain.User
}

// New constructs a bare identity with details pending. The username is
// canonicalized to lowercase.
func New(tenantID, username string) *Identity {
	return &Identity{
		TenantID: tenantID,
		Username: strings.ToLower(username),
	}
}

// NewHydrated constructs an identity around an already-loaded profile record.
func NewHydrated(tenantID string, profile *userdomain.User) *Identity {
	id := New(tenantID, profile.Username)
	id.profile = profile
	return id
}

// Hydrated reports whether profile details have been loaded.
func (i *Identity) Hydrated() bool {
	return i.profile != nil
}

// Profile returns the hydrated profile snapshot, or ErrNotHydrated when the
// identity was constructed bare and has not been hydrated yet.
func (i *Identity) Profile() (*userdomain.User, error) {
	if i.profile == nil {
		return nil, ErrNotHydrated
	}
	return i.profile, nil
}

// SetProfile replaces the profile snapshot, e.g. after an update refreshed
// the stored record.
func (i *Identity) SetProfile(profile *userdomain.User) {
	i.profile = profile
}
