// Package identity holds the role hierarchy and permission model. It is
// pure computation: no storage, no HTTP, so every rule here can be tested
// without a database.
package identity

// Role is one of the fixed set of account roles.
type Role string

const (
	RoleDeveloper      Role = "developer"
	RoleSuperAdmin     Role = "super_admin"
	RoleAdmin          Role = "admin"
	RoleProjectManager Role = "project_manager"
	RoleSiteSupervisor Role = "site_supervisor"
	RoleAccountant     Role = "accountant"
	RoleWorker         Role = "worker"
	RoleClient         Role = "client"
)

// Hierarchy levels. Developer and super admin share the top tier.
const (
	LevelTop        = 7
	LevelAdmin      = 6
	LevelManager    = 5
	LevelSupervisor = 4
	LevelAccountant = 3
	LevelWorker     = 2
	LevelClient     = 1
)

var roleLevels = map[Role]int{
	RoleDeveloper:      LevelTop,
	RoleSuperAdmin:     LevelTop,
	RoleAdmin:          LevelAdmin,
	RoleProjectManager: LevelManager,
	RoleSiteSupervisor: LevelSupervisor,
	RoleAccountant:     LevelAccountant,
	RoleWorker:         LevelWorker,
	RoleClient:         LevelClient,
}

// RoleLevel returns the hierarchy level for a role. Unknown roles map to
// zero so a corrupt or unrecognized value never passes a level check.
func RoleLevel(role Role) int {
	return roleLevels[role]
}

// ValidRole reports whether role is a member of the closed role set.
func ValidRole(role Role) bool {
	_, ok := roleLevels[role]
	return ok
}

// Roles returns every known role ordered from most to least privileged.
func Roles() []Role {
	return []Role{
		RoleDeveloper,
		RoleSuperAdmin,
		RoleAdmin,
		RoleProjectManager,
		RoleSiteSupervisor,
		RoleAccountant,
		RoleWorker,
		RoleClient,
	}
}

// RoleName returns a human readable label for the role.
func RoleName(role Role) string {
	switch role {
	case RoleDeveloper:
		return "Developer"
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleProjectManager:
		return "Project Manager"
	case RoleSiteSupervisor:
		return "Site Supervisor"
	case RoleAccountant:
		return "Accountant"
	case RoleWorker:
		return "Worker"
	case RoleClient:
		return "Client"
	default:
		return string(role)
	}
}
