package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"tenant-auth-control-plane/internal/security"
	"tenant-auth-control-plane/internal/session"
	userdomain "tenant-auth-control-plane/internal/user/domain"
	userrepo "tenant-auth-control-plane/internal/user/repository"
)

type memUserRepo struct {
	mu        sync.Mutex
	m         map[string]*userdomain.User // key: tenant + "/" + username
	lastQuery userdomain.Query
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{m: map[string]*userdomain.User{}}
}

func key(tenantID, username string) string {
	return tenantID + "/" + username
}

func (r *memUserRepo) FindOne(ctx context.Context, tenantID, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[key(tenantID, username)]; ok {
		u2 := *u
		return &u2, nil
	}
	return nil, nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var tenants []string
	for _, u := range r.m {
		if u.Username == username {
			tenants = append(tenants, u.TenantID)
		}
	}
	if len(tenants) == 0 {
		return nil, nil
	}
	sort.Strings(tenants)
	u2 := *r.m[key(tenants[0], username)]
	return &u2, nil
}

func (r *memUserRepo) FindMany(ctx context.Context, q userdomain.Query) ([]*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastQuery = q
	var out []*userdomain.User
	for _, u := range r.m {
		if u.TenantID != q.Filter.TenantID {
			continue
		}
		if q.Filter.Admin != nil && u.Admin != *q.Filter.Admin {
			continue
		}
		if q.Filter.UsernamePrefix != "" && !strings.HasPrefix(u.Username, q.Filter.UsernamePrefix) {
			continue
		}
		u2 := *u
		out = append(out, &u2)
	}
	return out, nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(u.TenantID, u.Username)
	if _, ok := r.m[k]; ok {
		return userrepo.ErrDuplicate
	}
	u2 := *u
	r.m[k] = &u2
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, tenantID, username string, p userdomain.Patch) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[key(tenantID, username)]
	if !ok {
		return nil, nil
	}
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.OldPasswordHash != nil {
		u.OldPasswordHash = *p.OldPasswordHash
	}
	if p.Admin != nil {
		u.Admin = *p.Admin
	}
	if p.Permissions != nil {
		u.Permissions = p.Permissions
	}
	if p.LastLoginIP != nil {
		u.LastLoginIP = *p.LastLoginIP
	}
	if p.LastLoginDate != nil {
		u.LastLoginDate = *p.LastLoginDate
	}
	u.UpdatedAt = time.Now().UTC()
	u2 := *u
	return &u2, nil
}

func (r *memUserRepo) Delete(ctx context.Context, tenantID, username string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(tenantID, username)
	u, ok := r.m[k]
	if !ok {
		return nil, nil
	}
	delete(r.m, k)
	return u, nil
}

func (r *memUserRepo) Count(ctx context.Context, q userdomain.Query) (int64, error) {
	users, _ := r.FindMany(ctx, q)
	return int64(len(users)), nil
}

func newTestService() (*UserService, *memUserRepo) {
	repo := newMemUserRepo()
	hasher := security.NewHasher(4)
	sessions := session.New(security.NewRandomGenerator(), 16, time.Minute)
	return NewUserService(repo, hasher, sessions, nil, 10), repo
}

func TestRegisterAndTokenLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Register(ctx, "t1", RegisterInput{Username: "Alice", Password: "pw123456", RegisterIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id.Username != "alice" {
		t.Fatalf("expected lowercase username, got %q", id.Username)
	}
	if id.Token == "" {
		t.Fatal("expected a session token")
	}
	profile, err := id.Profile()
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.DisplayName != "Alice" {
		t.Fatalf("expected display name to default to submitted username, got %q", profile.DisplayName)
	}
	if profile.LastLoginIP != "10.0.0.1" {
		t.Fatalf("expected last login IP to default to register IP, got %q", profile.LastLoginIP)
	}
	if profile.PasswordHash == "pw123456" || profile.PasswordHash == "" {
		t.Fatal("expected a hashed password")
	}

	resolved, err := svc.TokenLogin(id.Token)
	if err != nil {
		t.Fatalf("TokenLogin: %v", err)
	}
	if resolved.Username != "alice" || resolved.TenantID != "t1" {
		t.Fatalf("unexpected resolved identity: %+v", resolved)
	}
}

func TestRegisterDuplicateCaseInsensitive(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := svc.Register(ctx, "t1", RegisterInput{Username: "Alice", Password: "pw123456"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	// Same username under another tenant is allowed.
	if _, err := svc.Register(ctx, "t2", RegisterInput{Username: "alice", Password: "pw123456"}); err != nil {
		t.Fatalf("Register under second tenant: %v", err)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short username", RegisterInput{Username: "ab", Password: "pw123456"}, "username"},
		{"short password", RegisterInput{Username: "alice", Password: "pw"}, "password"},
		{"bad register ip", RegisterInput{Username: "alice", Password: "pw123456", RegisterIP: "not-an-ip"}, "register_ip"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, "t1", tc.in)
			rejected, ok := IsRejectedInput(err)
			if !ok {
				t.Fatalf("expected RejectedInputError, got %v", err)
			}
			if _, present := rejected.Fields[tc.field]; !present {
				t.Fatalf("expected field %q in %v", tc.field, rejected.Fields)
			}
		})
	}
}

func TestLoginWrongPasswordKeepsExistingSession(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err = svc.Login(ctx, "t1", LoginInput{Username: "alice", Password: "wrongpass"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	// The failed login must not have issued or revoked anything.
	if _, err := svc.TokenLogin(id.Token); err != nil {
		t.Fatalf("original token should still resolve: %v", err)
	}
}

func TestLoginSupersedesPriorToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.TokenLogin(first.Token); err != nil {
		t.Fatalf("TokenLogin: %v", err)
	}

	second, err := svc.Login(ctx, "t1", LoginInput{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if second.Token == first.Token {
		t.Fatal("expected a fresh token")
	}
	if _, err := svc.TokenLogin(second.Token); err != nil {
		t.Fatalf("new token should resolve: %v", err)
	}
	if _, err := svc.TokenLogin(first.Token); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for superseded token, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Login(context.Background(), "t1", LoginInput{Username: "nobody", Password: "pw123456"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTenantResolvedFromStoredRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "t1", RegisterInput{Username: "bob12", Password: "pw123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// The caller claims t2 but bob12 only exists under t1; login succeeds
	// with the stored tenant.
	id, err := svc.Login(ctx, "t2", LoginInput{Username: "bob12", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if id.TenantID != "t1" {
		t.Fatalf("expected tenant from stored record (t1), got %q", id.TenantID)
	}
}

func TestPasswordChangeArchivesOldHash(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	id, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	original, _ := repo.FindOne(ctx, "t1", "alice")

	newPass := "newpass123"
	if err := svc.Update(ctx, id, UpdateInput{Password: &newPass}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	stored, _ := repo.FindOne(ctx, "t1", "alice")
	if stored.OldPasswordHash != original.PasswordHash {
		t.Fatal("expected previous hash archived as OldPasswordHash")
	}
	if stored.PasswordHash == original.PasswordHash {
		t.Fatal("expected password hash to change")
	}

	if _, err := svc.Login(ctx, "t1", LoginInput{Username: "alice", Password: "newpass123"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(ctx, "t1", LoginInput{Username: "alice", Password: "pw123456"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for old password, got %v", err)
	}
}

func TestUpdateHydratesBareIdentity(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	bare, err := svc.Get(ctx, "t1", "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	name := "Alice A."
	if err := svc.Update(ctx, bare, UpdateInput{DisplayName: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	stored, _ := repo.FindOne(ctx, "t1", "alice")
	if stored.DisplayName != "Alice A." {
		t.Fatalf("expected display name persisted, got %q", stored.DisplayName)
	}
	profile, err := bare.Profile()
	if err != nil || profile.DisplayName != "Alice A." {
		t.Fatalf("expected refreshed in-memory profile, got %+v (%v)", profile, err)
	}
}

func TestLogout(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token := id.Token
	if err := svc.Logout(ctx, id); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.TokenLogin(token); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated after logout, got %v", err)
	}
	// Token is cleared, so a second logout is a caller error.
	if err := svc.Logout(ctx, id); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if err := svc.Logout(ctx, nil); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn for nil identity, got %v", err)
	}
}

func TestRemoveRevokesSessionAndDeletesRecord(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	token := id.Token
	if err := svc.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := svc.TokenLogin(token); !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated after removal, got %v", err)
	}
	if _, err := svc.Get(ctx, "t1", "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}

func TestGetManyForcesTenantAndPagination(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	for _, username := range []string{"alice", "bobby", "carol"} {
		if _, err := svc.Register(ctx, "t1", RegisterInput{Username: username, Password: "pw123456"}); err != nil {
			t.Fatalf("Register %s: %v", username, err)
		}
	}
	if _, err := svc.Register(ctx, "t2", RegisterInput{Username: "david", Password: "pw123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Caller-supplied tenant filter is overridden.
	ids, err := svc.GetMany(ctx, "t1", userdomain.Query{Filter: userdomain.Filter{TenantID: "t2"}}, true)
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 identities under t1, got %d", len(ids))
	}
	if repo.lastQuery.Filter.TenantID != "t1" {
		t.Fatalf("expected forced tenant t1, got %q", repo.lastQuery.Filter.TenantID)
	}
	if repo.lastQuery.Skip == nil || *repo.lastQuery.Skip != 0 {
		t.Fatalf("expected default skip 0, got %v", repo.lastQuery.Skip)
	}
	if repo.lastQuery.Take == nil || *repo.lastQuery.Take != 10 {
		t.Fatalf("expected default take 10, got %v", repo.lastQuery.Take)
	}

	// Disabling pagination skips the defaulting but keeps explicit bounds.
	take := 1
	if _, err := svc.GetMany(ctx, "t1", userdomain.Query{Take: &take}, false); err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if repo.lastQuery.Skip != nil {
		t.Fatalf("expected no default skip when pagination disabled, got %v", repo.lastQuery.Skip)
	}
	if repo.lastQuery.Take == nil || *repo.lastQuery.Take != 1 {
		t.Fatalf("expected explicit take 1 to pass through, got %v", repo.lastQuery.Take)
	}

	// No bounds and no pagination means an unbounded query.
	if _, err := svc.GetMany(ctx, "t1", userdomain.Query{}, false); err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if repo.lastQuery.Skip != nil || repo.lastQuery.Take != nil {
		t.Fatal("expected nil bounds when pagination disabled and none supplied")
	}
}

func TestCountForcesTenant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, username := range []string{"alice", "bobby"} {
		if _, err := svc.Register(ctx, "t1", RegisterInput{Username: username, Password: "pw123456"}); err != nil {
			t.Fatalf("Register %s: %v", username, err)
		}
	}
	n, err := svc.Count(ctx, "t1", userdomain.Filter{TenantID: "t2"})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
	n, err = svc.Count(ctx, "t2", userdomain.Filter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestConcurrentLoginsLeaveOneLiveToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "t1", RegisterInput{Username: "alice", Password: "pw123456"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	const n = 16
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.Login(ctx, "t1", LoginInput{Username: "alice", Password: "pw123456"})
			if err != nil {
				t.Errorf("Login: %v", err)
				return
			}
			tokens[i] = id.Token
		}(i)
	}
	wg.Wait()

	live := 0
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if _, err := svc.TokenLogin(token); err == nil {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly 1 live token, got %d", live)
	}
}
