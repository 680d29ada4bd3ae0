package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"kurylys.org/internal/identity"
	"kurylys.org/internal/ids"
	"kurylys.org/internal/obs"
)

const (
	defaultIssuer   = "kurylys"
	defaultTokenTTL = 30 * 24 * time.Hour
)

var emailPattern = regexp.MustCompile(`.+@.+\..+`)

// Service verifies credentials, issues bearer tokens and performs the
// administrative user operations behind the guard chain.
type Service struct {
	store    Store
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service) error

// WithTokenTTL overrides the default 30-day token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) error {
		if ttl <= 0 {
			return errors.New("token ttl must be greater than zero")
		}
		s.tokenTTL = ttl
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) Option {
	return func(s *Service) error {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			s.issuer = issuer
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service. The signing secret is required.
func NewService(store Store, secret string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	s := &Service{
		store:    store,
		secret:   []byte(secret),
		issuer:   defaultIssuer,
		tokenTTL: defaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// LoginResult is the successful login payload.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      identity.Summary
}

// Login runs the credential ladder, each step short-circuiting with its
// own sentinel: lookup, lifecycle status (pending, rejected, suspended or
// inactive), then the password. The lookup is case-sensitive on the
// stored email.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			obs.CountLogin("not_found")
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, err
	}

	switch {
	case user.Status == identity.StatusPending:
		obs.CountLogin("pending")
		return LoginResult{}, ErrPendingApproval
	case user.Status == identity.StatusRejected:
		obs.CountLogin("rejected")
		return LoginResult{}, ErrRejected
	case user.Status == identity.StatusSuspended, !user.Active:
		obs.CountLogin("deactivated")
		return LoginResult{}, ErrDeactivated
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		obs.CountLogin("wrong_password")
		return LoginResult{}, ErrWrongPassword
	}

	now := s.now().UTC()
	token, expiresAt, err := s.signToken(user.ID, now)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, err
	}
	user.LastLogin = &now

	obs.CountLogin("success")
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Summarize()}, nil
}

// Register always rejects: this is a closed system, accounts are created
// by administrators.
func (s *Service) Register() error {
	return ErrRegistrationDisabled
}

// Authenticate resolves a bearer token back into a live user. The user
// record is re-fetched on every call, so flipping Active off revokes all
// outstanding tokens without a blacklist. The last-login bump completes
// before the user is returned; downstream guards see fresh state.
func (s *Service) Authenticate(ctx context.Context, token string) (*identity.User, error) {
	userID, err := s.verifyToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.store.Users().Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrDeactivated
	}
	now := s.now().UTC()
	if err := s.store.Users().UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLogin = &now
	return user, nil
}

// NewUser is the administrative account-creation request.
type NewUser struct {
	Name        string
	Email       string
	Password    string
	Role        identity.Role
	Department  string
	Phone       string
	Active      *bool
	Permissions []string
}

// CreateUser validates the request, hashes the password and snapshots the
// role's default permission bundle when no explicit list was supplied.
// The snapshot is sticky: later role changes never rewrite it.
func (s *Service) CreateUser(ctx context.Context, req NewUser) (*identity.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if !identity.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}

	if _, err := s.store.Users().FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = identity.DefaultPermissions(req.Role)
	}

	user := &identity.User{
		ID:           ids.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Department:   strings.TrimSpace(req.Department),
		Phone:        strings.TrimSpace(req.Phone),
		Active:       active,
		Status:       identity.StatusActive,
		Permissions:  permissions,
		Preferences:  identity.DefaultPreferences(),
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies an administrative edit to target and saves. The
// password hash is untouched by design; Save never writes it.
func (s *Service) UpdateUser(ctx context.Context, target *identity.User, upd UserUpdate) (*identity.User, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		target.Name = name
	}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if !emailPattern.MatchString(email) {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		target.Email = email
	}
	if upd.Role != nil {
		if !identity.ValidRole(*upd.Role) {
			return nil, fmt.Errorf("%w: invalid role", ErrInvalidInput)
		}
		target.Role = *upd.Role
	}
	if upd.Department != nil {
		target.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.Phone != nil {
		target.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Active != nil {
		target.Active = *upd.Active
	}
	if upd.Status != nil {
		status := strings.TrimSpace(*upd.Status)
		switch status {
		case identity.StatusActive, identity.StatusPending, identity.StatusRejected, identity.StatusSuspended:
			target.Status = status
		default:
			return nil, fmt.Errorf("%w: unsupported status %s", ErrInvalidInput, status)
		}
	}
	if upd.Permissions != nil {
		target.Permissions = dedupeStrings(*upd.Permissions)
	}
	if err := s.store.Users().Save(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// UpdateProfile applies a self-service edit: name, department, phone,
// avatar and preferences only. Role, status and permissions are not
// reachable from here.
func (s *Service) UpdateProfile(ctx context.Context, user *identity.User, upd ProfileUpdate) (*identity.User, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		user.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Department != nil {
		user.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.Phone != nil {
		user.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Avatar != nil {
		user.Avatar = strings.TrimSpace(*upd.Avatar)
	}
	if upd.Preferences != nil {
		user.Preferences = *upd.Preferences
	}
	if err := s.store.Users().Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeRole switches target's role. The stored permission snapshot is
// kept as-is, so the effective set grows with the new role's defaults and
// never shrinks.
func (s *Service) ChangeRole(ctx context.Context, target *identity.User, role identity.Role) error {
	if !identity.ValidRole(role) {
		return fmt.Errorf("%w: invalid role", ErrInvalidInput)
	}
	target.Role = role
	return s.store.Users().Save(ctx, target)
}

// SetActive flips the soft-delete flag and aligns the lifecycle status.
func (s *Service) SetActive(ctx context.Context, target *identity.User, active bool, status string) error {
	target.Active = active
	if status != "" {
		target.Status = status
	}
	return s.store.Users().Save(ctx, target)
}

// ResetPassword hashes and stores a new password for target.
func (s *Service) ResetPassword(ctx context.Context, target *identity.User, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}
	return s.store.Users().UpdatePassword(ctx, target.ID, hash)
}

// DeleteUser removes target permanently. Irreversible; callers gate this
// behind the admin tier.
func (s *Service) DeleteUser(ctx context.Context, target *identity.User) error {
	return s.store.Users().Delete(ctx, target.ID)
}

// FindUser loads a user by id.
func (s *Service) FindUser(ctx context.Context, id string) (*identity.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Users().Find(ctx, id)
}

// ListUsers returns a filtered page of users plus the unpaged total.
func (s *Service) ListUsers(ctx context.Context, filter UserFilter) ([]*identity.User, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	return s.store.Users().List(ctx, filter)
}

// UserStats aggregates dashboard counts; recent logins cover 7 days.
func (s *Service) UserStats(ctx context.Context) (UserStats, error) {
	return s.store.Users().Stats(ctx, 7*24*time.Hour)
}

// Project loads the project referenced by the resource-access guard.
func (s *Service) Project(ctx context.Context, id string) (*identity.Project, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: project id is required", ErrInvalidInput)
	}
	return s.store.Projects().Find(ctx, id)
}

func dedupeStrings(values []string) []string {
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
