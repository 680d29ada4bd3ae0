package identity

import "testing"

func TestRoleLevelsAreOrdered(t *testing.T) {
	want := map[Role]int{
		RoleDeveloper:      7,
		RoleSuperAdmin:     7,
		RoleAdmin:          6,
		RoleProjectManager: 5,
		RoleSiteSupervisor: 4,
		RoleAccountant:     3,
		RoleWorker:         2,
		RoleClient:         1,
	}
	for role, level := range want {
		if got := RoleLevel(role); got != level {
			t.Fatalf("RoleLevel(%s) = %d, want %d", role, got, level)
		}
	}
}

func TestRoleLevelUnknownRoleIsZero(t *testing.T) {
	for _, role := range []Role{"", "intern", "ADMIN", "root"} {
		if got := RoleLevel(role); got != 0 {
			t.Fatalf("RoleLevel(%q) = %d, want 0", role, got)
		}
		if ValidRole(role) {
			t.Fatalf("ValidRole(%q) = true", role)
		}
	}
}

func TestDefaultPermissionsPerRole(t *testing.T) {
	full := 0
	for _, g := range PermissionGroups() {
		full += len(g)
	}

	cases := []struct {
		role Role
		want int
	}{
		{RoleDeveloper, full},
		{RoleSuperAdmin, full},
		{RoleAdmin, full - len(PermissionsSystem)},
		{RoleProjectManager, len(PermissionsProjects) + len(PermissionsTasks) + len(PermissionsWorkers) + len(PermissionsReports)},
		{RoleSiteSupervisor, len(PermissionsTasks) + len(PermissionsMaterials) + len(PermissionsReports)},
		{RoleAccountant, len(PermissionsFinancial) + len(PermissionsReports)},
		{RoleWorker, len(PermissionsTasks)},
		{RoleClient, 1},
	}
	for _, tc := range cases {
		if got := DefaultPermissions(tc.role); len(got) != tc.want {
			t.Fatalf("DefaultPermissions(%s): %d permissions, want %d", tc.role, len(got), tc.want)
		}
	}

	if got := DefaultPermissions("unknown"); len(got) != 0 {
		t.Fatalf("expected empty bundle for unknown role, got %v", got)
	}
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	first := DefaultPermissions(RoleWorker)
	first[0] = "tampered"
	second := DefaultPermissions(RoleWorker)
	if second[0] == "tampered" {
		t.Fatal("DefaultPermissions must not share backing storage")
	}
}
