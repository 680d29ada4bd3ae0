package identity

// Permission group bundles. Each group names the operations allowed on one
// resource category; role defaults are composed from whole groups.
var (
	PermissionsProjects  = []string{"create", "read", "update", "delete", "assign"}
	PermissionsUsers     = []string{"create", "read", "update", "delete", "manage_roles"}
	PermissionsFinancial = []string{"view", "edit", "approve", "report"}
	PermissionsTasks     = []string{"create", "assign", "update_status", "complete"}
	PermissionsMaterials = []string{"create", "read", "update", "delete", "manage_inventory"}
	PermissionsWorkers   = []string{"create", "read", "update", "delete", "assign"}
	PermissionsReports   = []string{"view", "generate", "export"}
	PermissionsSystem    = []string{"configure", "audit", "backup"}
)

// PermissionGroups maps group names to their operation lists, for the
// admin roles catalog endpoint.
func PermissionGroups() map[string][]string {
	return map[string][]string{
		"projects":  PermissionsProjects,
		"users":     PermissionsUsers,
		"financial": PermissionsFinancial,
		"tasks":     PermissionsTasks,
		"materials": PermissionsMaterials,
		"workers":   PermissionsWorkers,
		"reports":   PermissionsReports,
		"system":    PermissionsSystem,
	}
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var rolePermissions = map[Role][]string{
	RoleDeveloper: concat(
		PermissionsProjects, PermissionsUsers, PermissionsFinancial,
		PermissionsTasks, PermissionsMaterials, PermissionsWorkers,
		PermissionsReports, PermissionsSystem,
	),
	RoleSuperAdmin: concat(
		PermissionsProjects, PermissionsUsers, PermissionsFinancial,
		PermissionsTasks, PermissionsMaterials, PermissionsWorkers,
		PermissionsReports, PermissionsSystem,
	),
	RoleAdmin: concat(
		PermissionsProjects, PermissionsUsers, PermissionsFinancial,
		PermissionsTasks, PermissionsMaterials, PermissionsWorkers,
		PermissionsReports,
	),
	RoleProjectManager: concat(
		PermissionsProjects, PermissionsTasks, PermissionsWorkers,
		PermissionsReports,
	),
	RoleSiteSupervisor: concat(
		PermissionsTasks, PermissionsMaterials, PermissionsReports,
	),
	RoleAccountant: concat(
		PermissionsFinancial, PermissionsReports,
	),
	RoleWorker: concat(PermissionsTasks),
	RoleClient: {"read"},
}

// DefaultPermissions returns a copy of the default permission bundle for a
// role. Unknown roles get an empty bundle.
func DefaultPermissions(role Role) []string {
	defaults := rolePermissions[role]
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}
