package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-auth-control-plane/internal/db"
	"tenant-auth-control-plane/internal/db/migrate"
	"tenant-auth-control-plane/internal/user/domain"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrate.Run(conn, "sqlite", "up"))
	return NewSQLiteRepository(conn)
}

func testUser(tenantID, username string) *domain.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.User{
		TenantID:      tenantID,
		Username:      username,
		DisplayName:   username,
		PasswordHash:  "$2a$10$fakefakefakefakefakefake",
		Admin:         false,
		Permissions:   map[string]bool{"read": true},
		RegisterIP:    "10.0.0.1",
		LastLoginIP:   "10.0.0.1",
		RegisterDate:  now,
		LastLoginDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSQLiteCreateAndFindOne(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))

	got, err := repo.FindOne(ctx, "t1", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.TenantID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, map[string]bool{"read": true}, got.Permissions)
	assert.Equal(t, "10.0.0.1", got.RegisterIP)

	missing, err := repo.FindOne(ctx, "t1", "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteCreateDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))
	err := repo.Create(ctx, testUser("t1", "alice"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// Same username under another tenant is a distinct record.
	require.NoError(t, repo.Create(ctx, testUser("t2", "alice")))
}

func TestSQLiteFindByUsernameOrdersByTenant(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("t2", "alice")))
	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))

	got, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.TenantID)

	missing, err := repo.FindByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteFindMany(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	admin := testUser("t1", "admin1")
	admin.Admin = true
	require.NoError(t, repo.Create(ctx, admin))
	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))
	require.NoError(t, repo.Create(ctx, testUser("t1", "bob")))
	require.NoError(t, repo.Create(ctx, testUser("t2", "carol")))

	users, err := repo.FindMany(ctx, domain.Query{Filter: domain.Filter{TenantID: "t1"}})
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "admin1", users[0].Username)
	assert.Equal(t, "alice", users[1].Username)

	isAdmin := true
	users, err = repo.FindMany(ctx, domain.Query{Filter: domain.Filter{TenantID: "t1", Admin: &isAdmin}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin1", users[0].Username)

	users, err = repo.FindMany(ctx, domain.Query{Filter: domain.Filter{TenantID: "t1", UsernamePrefix: "a"}})
	require.NoError(t, err)
	require.Len(t, users, 2)

	skip, take := 1, 1
	users, err = repo.FindMany(ctx, domain.Query{Filter: domain.Filter{TenantID: "t1"}, Skip: &skip, Take: &take})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestSQLiteUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))

	name := "Alice A."
	hash := "$2a$10$newhashnewhashnewhash"
	old := "$2a$10$fakefakefakefakefakefake"
	perms := map[string]bool{"read": true, "write": true}
	got, err := repo.Update(ctx, "t1", "alice", domain.Patch{
		DisplayName:     &name,
		PasswordHash:    &hash,
		OldPasswordHash: &old,
		Permissions:     perms,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice A.", got.DisplayName)
	assert.Equal(t, hash, got.PasswordHash)
	assert.Equal(t, old, got.OldPasswordHash)
	assert.Equal(t, perms, got.Permissions)

	// Empty patch still returns the current record.
	got, err = repo.Update(ctx, "t1", "alice", domain.Patch{})
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = repo.Update(ctx, "t1", "nobody", domain.Patch{DisplayName: &name})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))

	got, err := repo.Delete(ctx, "t1", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)

	gone, err := repo.FindOne(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.Nil(t, gone)

	got, err = repo.Delete(ctx, "t1", "alice")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteCount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("t1", "alice")))
	require.NoError(t, repo.Create(ctx, testUser("t1", "bob")))
	require.NoError(t, repo.Create(ctx, testUser("t2", "carol")))

	n, err := repo.Count(ctx, domain.Query{Filter: domain.Filter{TenantID: "t1"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.Count(ctx, domain.Query{Filter: domain.Filter{TenantID: "t3"}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
