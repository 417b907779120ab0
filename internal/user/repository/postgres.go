package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"tenant-auth-control-plane/internal/user/domain"
)

const pgUniqueViolation = "23505"

// PostgresRepository is the Postgres-backed credential store.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `tenant_id, username, display_name, password_hash, old_password_hash,
	admin, permissions, register_ip, last_login_ip, register_date, last_login_date,
	created_at, updated_at`

// FindOne returns the user for (tenantID, username), or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) FindOne(ctx context.Context, tenantID, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE tenant_id = $1 AND username = $2`,
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
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 ORDER BY tenant_id LIMIT 1`,
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

// FindMany returns users matching q ordered by username. Skip/Take map to
// OFFSET/LIMIT when set.
func (r *PostgresRepository) FindMany(ctx context.Context, q domain.Query) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	where, args := pgWhere(q.Filter)
	query += where + ` ORDER BY username`
	if q.Take != nil {
		args = append(args, *q.Take)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if q.Skip != nil {
		args = append(args, *q.Skip)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
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

// Create persists the user. A unique-constraint violation on
// (tenant_id, username) is reported as ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	perms, err := marshalPermissions(u.Permissions)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		u.TenantID, u.Username, u.DisplayName, u.PasswordHash, u.OldPasswordHash,
		u.Admin, perms, u.RegisterIP, u.LastLoginIP, u.RegisterDate, u.LastLoginDate,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Update applies the patch and returns the refreshed record, or nil if the
// user does not exist.
func (r *PostgresRepository) Update(ctx context.Context, tenantID, username string, p domain.Patch) (*domain.User, error) {
	set, args, err := pgSet(p)
	if err != nil {
		return nil, err
	}
	if len(set) > 0 {
		args = append(args, tenantID, username)
		query := fmt.Sprintf(`UPDATE users SET %s WHERE tenant_id = $%d AND username = $%d`,
			strings.Join(set, ", "), len(args)-1, len(args))
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}
	return r.FindOne(ctx, tenantID, username)
}

// Delete removes the user and returns the deleted record, or nil if the user
// does not exist.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, username string) (*domain.User, error) {
	u, err := r.FindOne(ctx, tenantID, username)
	if err != nil || u == nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM users WHERE tenant_id = $1 AND username = $2`, tenantID, username)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Count returns the number of users matching q.Filter.
func (r *PostgresRepository) Count(ctx context.Context, q domain.Query) (int64, error) {
	query := `SELECT COUNT(*) FROM users`
	where, args := pgWhere(q.Filter)
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

func pgWhere(f domain.Filter) (string, []any) {
	conds := []string{"tenant_id = $1"}
	args := []any{f.TenantID}
	if f.Admin != nil {
		args = append(args, *f.Admin)
		conds = append(conds, fmt.Sprintf("admin = $%d", len(args)))
	}
	if f.UsernamePrefix != "" {
		args = append(args, f.UsernamePrefix+"%")
		conds = append(conds, fmt.Sprintf("username LIKE $%d", len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pgSet(p domain.Patch) ([]string, []any, error) {
	var set []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
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

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var perms []byte
	err := row.Scan(
		&u.TenantID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.OldPasswordHash,
		&u.Admin, &perms, &u.RegisterIP, &u.LastLoginIP, &u.RegisterDate, &u.LastLoginDate,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &u.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	return &u, nil
}

func marshalPermissions(m map[string]bool) ([]byte, error) {
	if m == nil {
		m = map[string]bool{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode permissions: %w", err)
	}
	return b, nil
}
