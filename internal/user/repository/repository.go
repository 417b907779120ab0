// Package repository defines persistence for users (the credential store) and
// its Postgres and SQLite implementations.
package repository

import (
	"context"

	"tenant-auth-control-plane/internal/user/domain"
)

// Repository defines tenant-scoped persistence for user records. Missing rows
// are reported as (nil, nil); errors are returned only for storage failures,
// which callers surface unmodified.
type Repository interface {
	// FindOne returns the user for (tenantID, username), or nil if absent.
	FindOne(ctx context.Context, tenantID, username string) (*domain.User, error)
	// FindByUsername returns the first user with the given username across
	// all tenants (ordered by tenant for determinism), or nil if absent.
	// Login resolves the tenant from the stored record, so it looks the
	// username up without a tenant key.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindMany returns the users matching q, honoring q.Skip/q.Take when set.
	FindMany(ctx context.Context, q domain.Query) ([]*domain.User, error)
	// Create persists a new user. Returns ErrDuplicate if (tenant, username)
	// already exists.
	Create(ctx context.Context, u *domain.User) error
	// Update applies the patch and returns the refreshed record, or nil if the
	// user does not exist.
	Update(ctx context.Context, tenantID, username string, p domain.Patch) (*domain.User, error)
	// Delete removes the user and returns the deleted record, or nil if the
	// user does not exist.
	Delete(ctx context.Context, tenantID, username string) (*domain.User, error)
	// Count returns the number of users matching q.Filter. Skip/Take are
	// ignored for counting.
	Count(ctx context.Context, q domain.Query) (int64, error)
}
