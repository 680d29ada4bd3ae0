package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"kurylys.org/internal/identity"
)

// stubStore is an in-memory Store honoring the UserStore contract,
// including Save leaving the password hash untouched.
type stubStore struct {
	users    map[string]*identity.User
	projects map[string]*identity.Project
}

func newStubStore() *stubStore {
	return &stubStore{
		users:    make(map[string]*identity.User),
		projects: make(map[string]*identity.Project),
	}
}

func (s *stubStore) Users() UserStore       { return (*stubUserStore)(s) }
func (s *stubStore) Projects() ProjectStore { return (*stubProjectStore)(s) }

type stubUserStore stubStore

func (s *stubUserStore) Create(ctx context.Context, u *identity.User) error {
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *stubUserStore) Find(ctx context.Context, id string) (*identity.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubUserStore) List(ctx context.Context, filter UserFilter) ([]*identity.User, int, error) {
	var out []*identity.User
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (s *stubUserStore) Save(ctx context.Context, u *identity.User) error {
	stored, ok := s.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	hash := stored.PasswordHash
	cp := *u
	cp.PasswordHash = hash
	s.users[u.ID] = &cp
	return nil
}

func (s *stubUserStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (s *stubUserStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	return nil
}

func (s *stubUserStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *stubUserStore) Stats(ctx context.Context, recentWindow time.Duration) (UserStats, error) {
	return UserStats{TotalUsers: len(s.users)}, nil
}

type stubProjectStore stubStore

func (s *stubProjectStore) Find(ctx context.Context, id string) (*identity.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func newTestService(t *testing.T, store Store, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(store, "test-secret", opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, store *stubStore, password string, mutate func(*identity.User)) *identity.User {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &identity.User{
		ID:           "u-1",
		Name:         "Aida Bekova",
		Email:        "aida@kurylys.org",
		PasswordHash: hash,
		Role:         identity.RoleWorker,
		Active:       true,
		Status:       identity.StatusActive,
		Permissions:  identity.DefaultPermissions(identity.RoleWorker),
	}
	if mutate != nil {
		mutate(u)
	}
	store.users[u.ID] = u
	return u
}

func TestLoginSuccess(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	res, err := svc.Login(context.Background(), "aida@kurylys.org", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("no token issued")
	}
	if res.User.ID != "u-1" || res.User.Role != identity.RoleWorker {
		t.Fatalf("summary mismatch: %+v", res.User)
	}
	if store.users["u-1"].LastLogin == nil {
		t.Fatalf("last login not bumped")
	}
	if got, want := res.ExpiresAt.Sub(time.Now().UTC()), 30*24*time.Hour; got > want || got < want-time.Minute {
		t.Fatalf("token lifetime = %v, want about %v", got, want)
	}
}

func TestLoginLadder(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*identity.User)
		email    string
		password string
		want     error
	}{
		{"unknown user", nil, "nobody@kurylys.org", "secret123", ErrUserNotFound},
		{"pending", func(u *identity.User) { u.Status = identity.StatusPending }, "aida@kurylys.org", "secret123", ErrPendingApproval},
		{"rejected", func(u *identity.User) { u.Status = identity.StatusRejected }, "aida@kurylys.org", "secret123", ErrRejected},
		{"suspended", func(u *identity.User) { u.Status = identity.StatusSuspended }, "aida@kurylys.org", "secret123", ErrDeactivated},
		{"inactive", func(u *identity.User) { u.Active = false }, "aida@kurylys.org", "secret123", ErrDeactivated},
		{"wrong password", nil, "aida@kurylys.org", "wrong", ErrWrongPassword},
		// Lookup is case-sensitive: a different casing is a different user.
		{"case mismatch", nil, "AIDA@kurylys.org", "secret123", ErrUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStubStore()
			seedUser(t, store, "secret123", tc.mutate)
			svc := newTestService(t, store)

			_, err := svc.Login(context.Background(), tc.email, tc.password)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestLoginStatusCheckedBeforePassword(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", func(u *identity.User) { u.Status = identity.StatusPending })
	svc := newTestService(t, store)

	// Wrong password against a pending account still reports pending.
	_, err := svc.Login(context.Background(), "aida@kurylys.org", "wrong")
	if !errors.Is(err, ErrPendingApproval) {
		t.Fatalf("err = %v, want ErrPendingApproval", err)
	}
}

func TestRegisterAlwaysDisabled(t *testing.T) {
	svc := newTestService(t, newStubStore())
	if err := svc.Register(); !errors.Is(err, ErrRegistrationDisabled) {
		t.Fatalf("err = %v, want ErrRegistrationDisabled", err)
	}
}

func TestAuthenticateRoundTrip(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	res, err := svc.Login(context.Background(), "aida@kurylys.org", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := svc.Authenticate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != "u-1" {
		t.Fatalf("resolved user %q", user.ID)
	}
	if user.LastLogin == nil {
		t.Fatalf("authenticate did not bump last login")
	}
}

func TestAuthenticateRevokedByDeactivation(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	res, err := svc.Login(context.Background(), "aida@kurylys.org", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Deactivation after issuance invalidates the outstanding token.
	store.users["u-1"].Active = false
	if _, err := svc.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrDeactivated) {
		t.Fatalf("err = %v, want ErrDeactivated", err)
	}

	// So does deleting the account.
	store.users["u-1"].Active = true
	delete(store.users, "u-1")
	if _, err := svc.Authenticate(context.Background(), res.Token); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestAuthenticateRejectsGarbage(t *testing.T) {
	svc := newTestService(t, newStubStore())
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestCreateUserSnapshotsDefaults(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store)

	user, err := svc.CreateUser(context.Background(), NewUser{
		Name:     "Nurlan Serik",
		Email:    "nurlan@kurylys.org",
		Password: "secret123",
		Role:     identity.RoleSiteSupervisor,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	want := identity.DefaultPermissions(identity.RoleSiteSupervisor)
	if len(user.Permissions) != len(want) {
		t.Fatalf("snapshot has %d permissions, want %d", len(user.Permissions), len(want))
	}
	if user.Status != identity.StatusActive || !user.Active {
		t.Fatalf("new user not active: %+v", user)
	}
	if user.PasswordHash == "secret123" || user.PasswordHash == "" {
		t.Fatalf("password not hashed")
	}
	if user.Preferences.Theme != "light" {
		t.Fatalf("defaults not applied: %+v", user.Preferences)
	}
}

func TestCreateUserExplicitPermissionsWin(t *testing.T) {
	store := newStubStore()
	svc := newTestService(t, store)

	user, err := svc.CreateUser(context.Background(), NewUser{
		Name:        "Nurlan Serik",
		Email:       "nurlan@kurylys.org",
		Password:    "secret123",
		Role:        identity.RoleWorker,
		Permissions: []string{"projects.read"},
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if len(user.Permissions) != 1 || user.Permissions[0] != "projects.read" {
		t.Fatalf("explicit list overridden: %v", user.Permissions)
	}
}

func TestCreateUserValidation(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	cases := []struct {
		name string
		req  NewUser
		want error
	}{
		{"missing name", NewUser{Email: "x@y.zz", Password: "secret123", Role: identity.RoleWorker}, ErrInvalidInput},
		{"bad email", NewUser{Name: "X", Email: "not-an-email", Password: "secret123", Role: identity.RoleWorker}, ErrInvalidInput},
		{"bad role", NewUser{Name: "X", Email: "x@y.zz", Password: "secret123", Role: identity.Role("czar")}, ErrInvalidInput},
		{"short password", NewUser{Name: "X", Email: "x@y.zz", Password: "abc", Role: identity.RoleWorker}, ErrInvalidInput},
		{"duplicate email", NewUser{Name: "X", Email: "aida@kurylys.org", Password: "secret123", Role: identity.RoleWorker}, ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateUser(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUpdateUserNeverTouchesPassword(t *testing.T) {
	store := newStubStore()
	seeded := seedUser(t, store, "secret123", nil)
	originalHash := seeded.PasswordHash
	svc := newTestService(t, store)

	name := "Renamed"
	for i := 0; i < 2; i++ {
		target, err := svc.FindUser(context.Background(), "u-1")
		if err != nil {
			t.Fatalf("FindUser: %v", err)
		}
		if _, err := svc.UpdateUser(context.Background(), target, UserUpdate{Name: &name}); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
	}

	if store.users["u-1"].PasswordHash != originalHash {
		t.Fatalf("save rewrote the password hash")
	}
	if _, err := svc.Login(context.Background(), "aida@kurylys.org", "secret123"); err != nil {
		t.Fatalf("login after repeated saves: %v", err)
	}
}

func TestChangeRoleKeepsSnapshot(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	target, err := svc.FindUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	workerSnapshot := append([]string(nil), target.Permissions...)

	if err := svc.ChangeRole(context.Background(), target, identity.RoleAccountant); err != nil {
		t.Fatalf("ChangeRole: %v", err)
	}

	saved := store.users["u-1"]
	if saved.Role != identity.RoleAccountant {
		t.Fatalf("role = %q", saved.Role)
	}
	if len(saved.Permissions) != len(workerSnapshot) {
		t.Fatalf("stored snapshot rewritten: %v", saved.Permissions)
	}

	// Effective set is the union: old grants survive, new defaults appear.
	effective := saved.EffectivePermissions()
	has := func(p string) bool {
		for _, e := range effective {
			if e == p {
				return true
			}
		}
		return false
	}
	for _, p := range workerSnapshot {
		if !has(p) {
			t.Fatalf("old grant %q lost after role change", p)
		}
	}
	for _, p := range identity.DefaultPermissions(identity.RoleAccountant) {
		if !has(p) {
			t.Fatalf("new default %q missing after role change", p)
		}
	}
}

func TestResetPasswordReplacesHash(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	target, err := svc.FindUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), target, "newsecret"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := svc.Login(context.Background(), "aida@kurylys.org", "secret123"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("old password still works: %v", err)
	}
	if _, err := svc.Login(context.Background(), "aida@kurylys.org", "newsecret"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
}

func TestUpdateProfileScopedFields(t *testing.T) {
	store := newStubStore()
	seedUser(t, store, "secret123", nil)
	svc := newTestService(t, store)

	user, err := svc.FindUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	dept := "Site B"
	prefs := identity.DefaultPreferences()
	prefs.Theme = "dark"
	if _, err := svc.UpdateProfile(context.Background(), user, ProfileUpdate{
		Department:  &dept,
		Preferences: &prefs,
	}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	saved := store.users["u-1"]
	if saved.Department != "Site B" || saved.Preferences.Theme != "dark" {
		t.Fatalf("profile edit not saved: %+v", saved)
	}
	if saved.Role != identity.RoleWorker || saved.Status != identity.StatusActive {
		t.Fatalf("profile edit reached privileged fields: %+v", saved)
	}
}
