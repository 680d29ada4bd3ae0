package auth

import (
	"context"
	"time"

	"kurylys.org/internal/identity"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users() UserStore
	Projects() ProjectStore
}

// UserFilter narrows admin user listings.
type UserFilter struct {
	Search     string
	Role       identity.Role
	Department string
	Status     string
	Active     *bool
	Page       int
	Limit      int
}

// UserUpdate carries optional field changes for an administrative edit.
// Nil fields are left untouched. The password is deliberately absent:
// password changes go through UpdatePassword so an ordinary save can
// never re-hash or clobber the stored hash.
type UserUpdate struct {
	Name        *string
	Email       *string
	Role        *identity.Role
	Department  *string
	Phone       *string
	Active      *bool
	Status      *string
	Permissions *[]string
}

// ProfileUpdate carries the self-service subset of mutable fields.
type ProfileUpdate struct {
	Name        *string
	Department  *string
	Phone       *string
	Avatar      *string
	Preferences *identity.Preferences
}

// UserStats aggregates counts for the admin dashboard.
type UserStats struct {
	TotalUsers      int `json:"total_users"`
	ActiveUsers     int `json:"active_users"`
	InactiveUsers   int `json:"inactive_users"`
	SuperAdminUsers int `json:"super_admin_users"`
	AdminUsers      int `json:"admin_users"`
	ProjectManagers int `json:"project_managers"`
	Workers         int `json:"workers"`
	Clients         int `json:"clients"`
	RecentLogins    int `json:"recent_logins"`
}

// UserStore manages principals. Email lookups are case-sensitive against
// the stored value; no normalization is performed anywhere.
type UserStore interface {
	Create(ctx context.Context, u *identity.User) error
	Find(ctx context.Context, id string) (*identity.User, error)
	FindByEmail(ctx context.Context, email string) (*identity.User, error)
	List(ctx context.Context, filter UserFilter) ([]*identity.User, int, error)
	// Save persists every mutable field except the password hash.
	Save(ctx context.Context, u *identity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, recentWindow time.Duration) (UserStats, error)
}

// ProjectStore exposes the single lookup the resource-access guard needs.
type ProjectStore interface {
	Find(ctx context.Context, id string) (*identity.Project, error)
}
