package identity

import "time"

// Account lifecycle statuses. A user authenticates only when the status is
// active and the Active flag is set; the combinations map to distinct login
// failures so the client can show the right guidance.
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusRejected  = "rejected"
	StatusSuspended = "suspended"
)

// NotificationPreferences controls delivery channels for the notification
// subsystem (handled elsewhere; persisted here with the user).
type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

// Preferences holds per-user UI and delivery settings.
type Preferences struct {
	Notifications NotificationPreferences `json:"notifications"`
	Theme         string                  `json:"theme"`
	Language      string                  `json:"language"`
}

// DefaultPreferences mirrors the defaults applied at account creation.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: NotificationPreferences{Email: true, Push: true},
		Theme:         "light",
		Language:      "en",
	}
}

// User is a principal. PasswordHash never leaves the auth layer; every
// outward projection goes through Summary.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	Role             Role
	Department       string
	Phone            string
	Avatar           string
	Active           bool
	Status           string
	LastLogin        *time.Time
	Permissions      []string
	AssignedProjects []string
	Preferences      Preferences
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RoleLevel is the user's hierarchy level.
func (u *User) RoleLevel() int {
	return RoleLevel(u.Role)
}

// EffectivePermissions is the union of the current role's default bundle
// and the stored explicit grants. The stored list is a snapshot taken at
// creation, so a later role change grows the effective set with the new
// role's defaults without ever revoking previously granted permissions.
func (u *User) EffectivePermissions() []string {
	defaults := rolePermissions[u.Role]
	seen := make(map[string]struct{}, len(defaults)+len(u.Permissions))
	out := make([]string, 0, len(defaults)+len(u.Permissions))
	for _, lists := range [][]string{defaults, u.Permissions} {
		for _, p := range lists {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// HasPermission reports whether the permission is in the effective set.
func (u *User) HasPermission(permission string) bool {
	for _, p := range u.EffectivePermissions() {
		if p == permission {
			return true
		}
	}
	return false
}

// HasRoleLevel reports whether the user's level meets the threshold.
func (u *User) HasRoleLevel(requiredLevel int) bool {
	return u.RoleLevel() >= requiredLevel
}

// CanManage reports whether the user may administer target. Top-tier roles
// manage anyone; admins manage anyone below the top tier; every user
// manages themself. The relation is deliberately non-transitive: two
// project managers cannot manage each other.
func (u *User) CanManage(target *User) bool {
	switch u.Role {
	case RoleDeveloper, RoleSuperAdmin:
		return true
	case RoleAdmin:
		if target.Role != RoleDeveloper && target.Role != RoleSuperAdmin {
			return true
		}
	}
	return u.ID == target.ID
}

// AssignedTo reports whether the user is explicitly scoped to the project.
func (u *User) AssignedTo(projectID string) bool {
	for _, id := range u.AssignedProjects {
		if id == projectID {
			return true
		}
	}
	return false
}

// Summary is the non-sensitive projection of a user returned by the API.
type Summary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Department  string     `json:"department,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Active      bool       `json:"active"`
	Status      string     `json:"status"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	Permissions []string   `json:"permissions"`
	RoleLevel   int        `json:"role_level"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Summarize builds the outward projection, including the computed
// effective permission set and hierarchy level.
func (u *User) Summarize() Summary {
	return Summary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Department:  u.Department,
		Phone:       u.Phone,
		Active:      u.Active,
		Status:      u.Status,
		LastLogin:   u.LastLogin,
		Permissions: u.EffectivePermissions(),
		RoleLevel:   u.RoleLevel(),
		CreatedAt:   u.CreatedAt,
	}
}
