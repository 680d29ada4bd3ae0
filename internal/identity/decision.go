package identity

// Decision is the result of one authorization check. Denials carry a
// human-readable message plus machine-readable context (required versus
// actual) that the HTTP layer includes verbatim in the 403 payload. Role
// names and permission lists are not secret, so exposing them is a
// debuggability choice, not a leak.
type Decision struct {
	Allowed bool
	Message string
	Context map[string]any
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(message string, context map[string]any) Decision {
	return Decision{Message: message, Context: context}
}

// DecideRole passes when the user's role is in the allow-list.
func DecideRole(u *User, allowed ...Role) Decision {
	for _, role := range allowed {
		if u.Role == role {
			return allow()
		}
	}
	return deny("access denied - insufficient role privileges", map[string]any{
		"requiredRoles": allowed,
		"userRole":      u.Role,
	})
}

// DecidePermission passes when the permission is in the user's effective
// set. The denial payload lists the full effective set.
func DecidePermission(u *User, permission string) Decision {
	if u.HasPermission(permission) {
		return allow()
	}
	return deny("access denied - insufficient permissions", map[string]any{
		"requiredPermission": permission,
		"userPermissions":    u.EffectivePermissions(),
	})
}

// DecideRoleLevel passes when the user's hierarchy level meets the
// threshold.
func DecideRoleLevel(u *User, requiredLevel int) Decision {
	if u.HasRoleLevel(requiredLevel) {
		return allow()
	}
	return deny("access denied - insufficient role hierarchy level", map[string]any{
		"requiredLevel": requiredLevel,
		"userRoleLevel": u.RoleLevel(),
		"userRole":      u.Role,
	})
}

// DecideManagement passes when actor may administer target.
func DecideManagement(actor, target *User) Decision {
	if actor.CanManage(target) {
		return allow()
	}
	return deny("access denied - you cannot manage this user", map[string]any{
		"userRole":       actor.Role,
		"targetUserRole": target.Role,
	})
}

// DecideProjectAccess passes when the user is assigned to the project or
// is its designated manager. Callers bypass this check for admin-tier
// roles; existence of the project is their responsibility too.
func DecideProjectAccess(u *User, project *Project) Decision {
	if u.AssignedTo(project.ID) || (project.ManagerID != "" && project.ManagerID == u.ID) {
		return allow()
	}
	return deny("access denied - you are not assigned to this project", nil)
}
