package repository

import (
	"context"
	"database/sql"
	"strconv"

	"tenant-auth-control-plane/internal/audit/domain"
)

// SQLRepository persists audit logs through database/sql. The audit schema
// uses no dialect-specific SQL beyond placeholders, so one implementation
// serves both backends.
type SQLRepository struct {
	db          *sql.DB
	placeholder func(n int) string
}

// NewPostgresRepository returns an audit log repository for a Postgres handle.
func NewPostgresRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, placeholder: pgPlaceholder}
}

// NewSQLiteRepository returns an audit log repository for a SQLite handle.
func NewSQLiteRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db, placeholder: sqlitePlaceholder}
}

// Create persists the audit log. The entry must have ID set.
func (r *SQLRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, tenant_id, username, action, ip, metadata, created_at)
		 VALUES (` + r.placeholders(7) + `)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.Username, a.Action, a.IP, a.Metadata, a.CreatedAt)
	return err
}

// ListByTenant returns audit logs for the tenant, newest first.
func (r *SQLRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error) {
	query := `SELECT id, tenant_id, username, action, ip, metadata, created_at
		 FROM audit_logs WHERE tenant_id = ` + r.placeholder(1) + `
		 ORDER BY created_at DESC LIMIT ` + r.placeholder(2) + ` OFFSET ` + r.placeholder(3)
	rows, err := r.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Username, &a.Action, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *SQLRepository) placeholders(n int) string {
	s := r.placeholder(1)
	for i := 2; i <= n; i++ {
		s += ", " + r.placeholder(i)
	}
	return s
}

func pgPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func sqlitePlaceholder(int) string {
	return "?"
}
