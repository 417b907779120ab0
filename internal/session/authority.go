// Package session holds the process-wide session token authority: the sole
// owner of the token table that issues, resolves, and revokes opaque bearer
// tokens and enforces one live session per username.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"tenant-auth-control-plane/internal/security"
)

// noCtx feeds metric recording; table operations themselves carry no
// cancellation or timeout concept.
var noCtx = context.Background()

// TokenPrefix marks issued strings as session tokens. The remainder of the
// token is random and carries no structure callers may parse.
const TokenPrefix = "ST-"

var (
	// ErrNotAuthenticated is returned when a token is not in the table
	// (never issued, revoked, superseded, or already reaped).
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTokenExpired is returned when a token is present but past its
	// expiration. Distinct from ErrNotAuthenticated so callers can prompt
	// re-login instead of treating it as a caller error.
	ErrTokenExpired = errors.New("token expired")
)

// Ref identifies the authenticated owner of a live token. It is a lookup key
// into the credential store, not a live alias of identity state.
type Ref struct {
	TenantID string
	Username string
}

type record struct {
	owner     Ref
	expiresAt time.Time
}

// Authority owns the token table. Construct one per process with New and hand
// the same instance to every consumer; all table operations are serialized by
// a single mutex. Expired entries are reaped lazily when looked up or
// superseded; there is no background sweep.
type Authority struct {
	gen     security.TokenGenerator
	bodyLen int
	ttl     time.Duration
	nowF    func() time.Time

	mu    sync.Mutex
	table map[string]record

	issued   metric.Int64Counter
	resolved metric.Int64Counter
	expired  metric.Int64Counter
	active   metric.Int64UpDownCounter
}

// New returns an Authority issuing tokens with the given random body length
// and lifetime.
func New(gen security.TokenGenerator, bodyLen int, ttl time.Duration) *Authority {
	meter := otel.Meter("tenant-auth-control-plane/session")
	issued, _ := meter.Int64Counter("session.tokens.issued")
	resolved, _ := meter.Int64Counter("session.tokens.resolved")
	expired, _ := meter.Int64Counter("session.tokens.expired")
	active, _ := meter.Int64UpDownCounter("session.tokens.active")
	return &Authority{
		gen:      gen,
		bodyLen:  bodyLen,
		ttl:      ttl,
		nowF:     func() time.Time { return time.Now().UTC() },
		table:    make(map[string]record),
		issued:   issued,
		resolved: resolved,
		expired:  expired,
		active:   active,
	}
}

// Issue creates a token for owner, superseding any live token held by the
// same username: after Issue returns, exactly one live record exists for that
// username. Token generation happens outside the critical section; the
// find-delete-insert sequence on the table is atomic under the mutex.
func (a *Authority) Issue(owner Ref) (string, error) {
	for {
		body, err := a.gen.Generate(a.bodyLen)
		if err != nil {
			return "", err
		}
		token := TokenPrefix + body

		a.mu.Lock()
		if _, taken := a.table[token]; taken {
			// Collision with a live token. Never overwrite another owner's
			// record; draw again.
			a.mu.Unlock()
			continue
		}
		a.dropUserLocked(owner.Username)
		a.table[token] = record{owner: owner, expiresAt: a.nowF().Add(a.ttl)}
		a.mu.Unlock()

		a.issued.Add(noCtx, 1)
		a.active.Add(noCtx, 1)
		return token, nil
	}
}

// Resolve returns the owner reference for a live token. Absent tokens yield
// ErrNotAuthenticated. Expired tokens are deleted on discovery and yield
// ErrTokenExpired; a second Resolve on the same token reports
// ErrNotAuthenticated.
func (a *Authority) Resolve(token string) (Ref, error) {
	a.mu.Lock()
	rec, ok := a.table[token]
	if !ok {
		a.mu.Unlock()
		return Ref{}, ErrNotAuthenticated
	}
	if !rec.expiresAt.After(a.nowF()) {
		delete(a.table, token)
		a.mu.Unlock()
		a.expired.Add(noCtx, 1)
		a.active.Add(noCtx, -1)
		return Ref{}, ErrTokenExpired
	}
	a.mu.Unlock()

	a.resolved.Add(noCtx, 1)
	return rec.owner, nil
}

// Revoke deletes the record for token. Revoking a token that is not in the
// table is a caller error and yields ErrNotAuthenticated.
func (a *Authority) Revoke(token string) error {
	a.mu.Lock()
	_, ok := a.table[token]
	if !ok {
		a.mu.Unlock()
		return ErrNotAuthenticated
	}
	delete(a.table, token)
	a.mu.Unlock()

	a.active.Add(noCtx, -1)
	return nil
}

// RevokeUser deletes the (at most one) record owned by username. No-op when
// the user holds no live token. Used on account deletion.
func (a *Authority) RevokeUser(username string) {
	a.mu.Lock()
	a.dropUserLocked(username)
	a.mu.Unlock()
}

// dropUserLocked deletes username's record if present. Caller holds a.mu.
// At most one record per username can exist, so the scan stops at the first.
func (a *Authority) dropUserLocked(username string) {
	for token, rec := range a.table {
		if rec.owner.Username == username {
			delete(a.table, token)
			a.active.Add(noCtx, -1)
			return
		}
	}
}
