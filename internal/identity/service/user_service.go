// Package service implements the user-facing auth workflows: registration,
// credential and token login, logout, profile lookup, update, and removal.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tenant-auth-control-plane/internal/audit"
	auditdomain "tenant-auth-control-plane/internal/audit/domain"
	identitydomain "tenant-auth-control-plane/internal/identity/domain"
	"tenant-auth-control-plane/internal/security"
	"tenant-auth-control-plane/internal/session"
	userdomain "tenant-auth-control-plane/internal/user/domain"
	userrepo "tenant-auth-control-plane/internal/user/repository"
)

// UserService orchestrates the credential store, password hasher, and session
// authority. It owns no session state itself; session lifecycle is delegated
// to the authority.
type UserService struct {
	repo     userrepo.Repository
	hasher   *security.Hasher
	sessions *session.Authority
	audit    audit.Recorder
	pageSize int
	nowF     func() time.Time
}

// NewUserService returns a wired user service. recorder may be nil; audit
// trail is then skipped. pageSize is the default take for paginated listings.
func NewUserService(
	repo userrepo.Repository,
	hasher *security.Hasher,
	sessions *session.Authority,
	recorder audit.Recorder,
	pageSize int,
) *UserService {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		audit:    recorder,
		pageSize: pageSize,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *UserService) record(ctx context.Context, tenantID, username, action, metadata string) {
	if s.audit != nil {
		s.audit.Record(ctx, tenantID, username, action, metadata)
	}
}

// Register creates a new account under tenantID and logs it in, returning a
// hydrated identity carrying its session token.
func (s *UserService) Register(ctx context.Context, tenantID string, in RegisterInput) (*identitydomain.Identity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	submitted := strings.TrimSpace(in.Username)
	username := strings.ToLower(submitted)

	existing, err := s.repo.FindOne(ctx, tenantID, username)
	if err != nil {
		return nil, storageErr(err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		// Default display name keeps the casing the caller submitted.
		displayName = submitted
	}
	now := s.nowF()
	lastLoginIP := in.RegisterIP
	user := &userdomain.User{
		TenantID:      tenantID,
		Username:      username,
		DisplayName:   displayName,
		PasswordHash:  hash,
		Admin:         in.Admin,
		Permissions:   in.Permissions,
		RegisterIP:    in.RegisterIP,
		LastLoginIP:   lastLoginIP,
		RegisterDate:  now,
		LastLoginDate: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, storageErr(err)
	}

	identity := identitydomain.NewHydrated(tenantID, user)
	token, err := s.sessions.Issue(session.Ref{TenantID: tenantID, Username: username})
	if err != nil {
		return nil, err
	}
	identity.Token = token
	s.record(ctx, tenantID, username, auditdomain.ActionRegister, "")
	return identity, nil
}

// Login authenticates username/password and issues a fresh session token,
// superseding any prior session for the username.
//
// The username is looked up without a tenant key and the tenant is taken from
// the stored record, so a username registered under a different tenant logs
// in under that tenant regardless of what the caller claimed. tenantID is
// accepted for API symmetry but not cross-checked.
func (s *UserService) Login(ctx context.Context, tenantID string, in LoginInput) (*identitydomain.Identity, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	username := strings.ToLower(strings.TrimSpace(in.Username))

	stored, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, storageErr(err)
	}
	if stored == nil {
		s.record(ctx, "", username, auditdomain.ActionLoginFailure, "unknown username")
		return nil, ErrNotFound
	}
	if !s.hasher.Verify(in.Password, stored.PasswordHash) {
		s.record(ctx, stored.TenantID, username, auditdomain.ActionLoginFailure, "wrong password")
		return nil, ErrInvalidCredentials
	}

	ip := in.IP
	if ip == "" {
		ip = stored.LastLoginIP
	}
	now := s.nowF()
	refreshed, err := s.repo.Update(ctx, stored.TenantID, username, userdomain.Patch{
		LastLoginIP:   &ip,
		LastLoginDate: &now,
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if refreshed == nil {
		return nil, ErrNotFound
	}

	identity := identitydomain.NewHydrated(refreshed.TenantID, refreshed)
	token, err := s.sessions.Issue(session.Ref{TenantID: refreshed.TenantID, Username: username})
	if err != nil {
		return nil, err
	}
	identity.Token = token
	s.record(ctx, refreshed.TenantID, username, auditdomain.ActionLogin, "")
	return identity, nil
}

// TokenLogin resolves a bearer token to a bare identity without touching
// storage. Authority failures propagate unchanged.
func (s *UserService) TokenLogin(token string) (*identitydomain.Identity, error) {
	ref, err := s.sessions.Resolve(token)
	if err != nil {
		return nil, err
	}
	identity := identitydomain.New(ref.TenantID, ref.Username)
	identity.Token = token
	return identity, nil
}

// Logout revokes the identity's held token. An identity with no token is a
// caller error, reported as ErrNotLoggedIn.
func (s *UserService) Logout(ctx context.Context, identity *identitydomain.Identity) error {
	if identity == nil || identity.Token == "" {
		return ErrNotLoggedIn
	}
	if err := s.sessions.Revoke(identity.Token); err != nil {
		return err
	}
	identity.Token = ""
	s.record(ctx, identity.TenantID, identity.Username, auditdomain.ActionLogout, "")
	return nil
}

// Get returns the hydrated identity for (tenantID, username).
func (s *UserService) Get(ctx context.Context, tenantID, username string) (*identitydomain.Identity, error) {
	if err := validateUsernameShape(username); err != nil {
		return nil, err
	}
	username = strings.ToLower(strings.TrimSpace(username))
	stored, err := s.repo.FindOne(ctx, tenantID, username)
	if err != nil {
		return nil, storageErr(err)
	}
	if stored == nil {
		return nil, ErrNotFound
	}
	return identitydomain.NewHydrated(tenantID, stored), nil
}

// GetMany lists identities under tenantID. The tenant filter is always forced
// onto the query; caller-supplied tenant values are ignored. When paginate is
// true, missing bounds default to skip 0 and the configured page size.
// Disabling pagination only skips the defaulting; explicit bounds are still
// honored.
func (s *UserService) GetMany(ctx context.Context, tenantID string, q userdomain.Query, paginate bool) ([]*identitydomain.Identity, error) {
	q.Filter.TenantID = tenantID
	if paginate {
		if q.Skip == nil {
			skip := 0
			q.Skip = &skip
		}
		if q.Take == nil {
			take := s.pageSize
			q.Take = &take
		}
	}
	stored, err := s.repo.FindMany(ctx, q)
	if err != nil {
		return nil, storageErr(err)
	}
	identities := make([]*identitydomain.Identity, 0, len(stored))
	for _, u := range stored {
		identities = append(identities, identitydomain.NewHydrated(u.TenantID, u))
	}
	return identities, nil
}

// Update applies changes to the identity's stored record and refreshes the
// in-memory profile from the result. A password change archives the previous
// hash before overwriting it.
func (s *UserService) Update(ctx context.Context, identity *identitydomain.Identity, in UpdateInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if in.IsZero() {
		return nil
	}
	if err := s.hydrate(ctx, identity); err != nil {
		return err
	}
	profile, err := identity.Profile()
	if err != nil {
		return err
	}

	patch := userdomain.Patch{
		DisplayName: in.DisplayName,
		Admin:       in.Admin,
		Permissions: in.Permissions,
	}
	if in.Password != nil {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return err
		}
		previous := profile.PasswordHash
		patch.PasswordHash = &hash
		patch.OldPasswordHash = &previous
	}

	refreshed, err := s.repo.Update(ctx, identity.TenantID, identity.Username, patch)
	if err != nil {
		return storageErr(err)
	}
	if refreshed == nil {
		return ErrNotFound
	}
	identity.SetProfile(refreshed)
	s.record(ctx, identity.TenantID, identity.Username, auditdomain.ActionUpdate, "")
	return nil
}

// Remove revokes any live session for the identity and deletes its durable
// record.
func (s *UserService) Remove(ctx context.Context, identity *identitydomain.Identity) error {
	if err := s.hydrate(ctx, identity); err != nil {
		return err
	}
	s.sessions.RevokeUser(identity.Username)
	deleted, err := s.repo.Delete(ctx, identity.TenantID, identity.Username)
	if err != nil {
		return storageErr(err)
	}
	if deleted == nil {
		return ErrNotFound
	}
	identity.Token = ""
	s.record(ctx, identity.TenantID, identity.Username, auditdomain.ActionDelete, "")
	return nil
}

// Count returns the number of users matching filter under tenantID. The
// tenant scope is forced; a null aggregate from the store counts as zero.
func (s *UserService) Count(ctx context.Context, tenantID string, filter userdomain.Filter) (int64, error) {
	filter.TenantID = tenantID
	n, err := s.repo.Count(ctx, userdomain.Query{Filter: filter})
	if err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (s *UserService) hydrate(ctx context.Context, identity *identitydomain.Identity) error {
	if identity.Hydrated() {
		return nil
	}
	stored, err := s.repo.FindOne(ctx, identity.TenantID, identity.Username)
	if err != nil {
		return storageErr(err)
	}
	if stored == nil {
		return ErrNotFound
	}
	identity.SetProfile(stored)
	return nil
}
