// Package audit records account lifecycle and authentication events.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"tenant-auth-control-plane/internal/audit/domain"
	auditrepo "tenant-auth-control-plane/internal/audit/repository"
	"tenant-auth-control-plane/internal/telemetry"
)

// SentinelTenantID is the tenant_id used for audit events that have no tenant
// (e.g. login_failure for an unknown username).
const SentinelTenantID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Recorder writes a single audit event. Record is best-effort: failures are
// logged and do not affect the caller.
type Recorder interface {
	Record(ctx context.Context, tenantID, username, action, metadata string)
}

// Logger implements Recorder by persisting to the audit repository and
// forwarding a copy of each event to a telemetry emitter.
type Logger struct {
	repo        auditrepo.Repository
	emitter     telemetry.EventEmitter
	ipExtractor IPExtractor
}

// NewLogger returns a Recorder that persists to repo and forwards events to
// emitter. Any of repo, emitter, and ipExtractor may be nil; a nil ipExtractor
// records the IP as "unknown".
func NewLogger(repo auditrepo.Repository, emitter telemetry.EventEmitter, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, emitter: emitter, ipExtractor: ipExtractor}
}

// Record writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) Record(ctx context.Context, tenantID, username, action, metadata string) {
	ip := "unknown"
	if l.ipExtractor != nil {
		if extracted := l.ipExtractor(ctx); extracted != "" {
			ip = extracted
		}
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	now := time.Now().UTC()

	if l.repo != nil {
		entry := &domain.AuditLog{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			Username:  username,
			Action:    action,
			IP:        ip,
			Metadata:  metadata,
			CreatedAt: now,
		}
		if err := l.repo.Create(ctx, entry); err != nil {
			log.Printf("audit: failed to log event %s for %s/%s: %v", action, tenantID, username, err)
		}
	}

	if l.emitter != nil {
		telemetry.EmitAsync(l.emitter, &telemetry.Event{
			TenantID:  tenantID,
			Username:  username,
			Action:    action,
			IP:        ip,
			Metadata:  metadata,
			Source:    "auth-server",
			CreatedAt: now,
		})
	}
}
