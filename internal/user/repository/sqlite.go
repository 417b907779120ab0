package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"tenant-auth-control-plane/internal/user/domain"
)

// SQLiteRepository is the SQLite-backed credential store, used for embedded
// deployments and tests.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a user repository that uses the given db for persistence.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// FindOne returns the user for (tenantID, username), or nil if not found.
func (r *SQLiteRepository) FindOne(ctx context.Context, tenantID, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = ? AND username = ?`,
		tenantID, username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FindByUsername returns the first user with the given username across all
// tenants, or nil if not found.
func (r *SQLiteRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY tenant_id LIMIT 1`,
		username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// FindMany returns users matching q ordered by username.
func (r *SQLiteRepository) FindMany(ctx context.Context, q domain.Query) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	where, args := sqWhere(q.Filter)
	query += where + ` ORDER BY username`
	// SQLite requires LIMIT before OFFSET; -1 means no limit.
	if q.Take != nil || q.Skip != nil {
		take := -1
		if q.Take != nil {
			take = *q.Take
		}
		args = append(args, take)
		query += " LIMIT ?"
		if q.Skip != nil {
			args = append(args, *q.Skip)
			query += " OFFSET ?"
		}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create persists the user, reporting duplicates as ErrDuplicate.
func (r *SQLiteRepository) Create(ctx context.Context, u *domain.User) error {
	perms, err := marshalPermissions(u.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.TenantID, u.Username, u.DisplayName, u.PasswordHash, u.OldPasswordHash,
		u.Admin, perms, u.RegisterIP, u.LastLoginIP, u.RegisterDate, u.LastLoginDate,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update applies the patch and returns the refreshed record, or nil if the
// user does not exist.
func (r *SQLiteRepository) Update(ctx context.Context, tenantID, username string, p domain.Patch) (*domain.User, error) {
	set, args, err := sqSet(p)
	if err != nil {
		return nil, err
	}
	if len(set) > 0 {
		args = append(args, tenantID, username)
		query := `UPDATE users SET ` + strings.Join(set, ", ") + ` WHERE tenant_id = ? AND username = ?`
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}
	return r.FindOne(ctx, tenantID, username)
}

// Delete removes the user and returns the deleted record, or nil if the user
// does not exist.
func (r *SQLiteRepository) Delete(ctx context.Context, tenantID, username string) (*domain.User, error) {
	u, err := r.FindOne(ctx, tenantID, username)
	if err != nil || u == nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM users WHERE tenant_id = ? AND username = ?`, tenantID, username)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Count returns the number of users matching q.Filter.
func (r *SQLiteRepository) Count(ctx context.Context, q domain.Query) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	where, args := sqWhere(q.Filter)
	query += where

	var n sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	if !n.Valid {
		return 0, nil
	}
	return n.Int64, nil
}

func sqWhere(f domain.Filter) (string, []any) {
	conds := []string{"tenant_id = ?"}
	args := []any{f.TenantID}
	if f.Admin != nil {
		conds = append(conds, "admin = ?")
		args = append(args, *f.Admin)
	}
	if f.UsernamePrefix != "" {
		conds = append(conds, "username LIKE ?")
		args = append(args, f.UsernamePrefix+"%")
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func sqSet(p domain.Patch) ([]string, []any, error) {
	var set []string
	var args []any
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if p.DisplayName != nil {
		add("display_name", *p.DisplayName)
	}
	if p.PasswordHash != nil {
		add("password_hash", *p.PasswordHash)
	}
	if p.OldPasswordHash != nil {
		add("old_password_hash", *p.OldPasswordHash)
	}
	if p.Admin != nil {
		add("admin", *p.Admin)
	}
	if p.Permissions != nil {
		perms, err := marshalPermissions(p.Permissions)
		if err != nil {
			return nil, nil, err
		}
		add("permissions", perms)
	}
	if p.LastLoginIP != nil {
		add("last_login_ip", *p.LastLoginIP)
	}
	if p.LastLoginDate != nil {
		add("last_login_date", *p.LastLoginDate)
	}
	if len(set) > 0 {
		add("updated_at", time.Now().UTC())
	}
	return set, args, nil
}
