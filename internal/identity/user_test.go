package identity

import (
	"slices"
	"testing"
)

func TestEffectivePermissionsUnion(t *testing.T) {
	u := &User{ID: "u1", Role: RoleWorker, Permissions: []string{"view", "create"}}

	perms := u.EffectivePermissions()
	for _, p := range PermissionsTasks {
		if !slices.Contains(perms, p) {
			t.Fatalf("expected role default %q in effective set %v", p, perms)
		}
	}
	if !slices.Contains(perms, "view") {
		t.Fatalf("explicit grant missing from %v", perms)
	}
	// "create" is both a task default and an explicit grant; the union
	// must not duplicate it.
	count := 0
	for _, p := range perms {
		if p == "create" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one occurrence of create, got %d", count)
	}
}

func TestEffectivePermissionsIdempotent(t *testing.T) {
	u := &User{ID: "u1", Role: RoleAccountant, Permissions: []string{"export"}}
	first := u.EffectivePermissions()
	second := u.EffectivePermissions()
	if !slices.Equal(first, second) {
		t.Fatalf("repeated computation differs: %v vs %v", first, second)
	}
	if len(u.Permissions) != 1 {
		t.Fatalf("computation mutated stored grants: %v", u.Permissions)
	}
}

func TestRoleChangeGrowsEffectiveSet(t *testing.T) {
	u := &User{ID: "u1", Role: RoleWorker, Permissions: DefaultPermissions(RoleWorker)}
	u.Role = RoleAccountant

	perms := u.EffectivePermissions()
	// New role defaults appear, old snapshot is kept.
	if !slices.Contains(perms, "approve") {
		t.Fatalf("new role defaults missing: %v", perms)
	}
	if !slices.Contains(perms, "update_status") {
		t.Fatalf("snapshot permissions were revoked: %v", perms)
	}
}

func TestHasPermission(t *testing.T) {
	u := &User{Role: RoleClient}
	if !u.HasPermission("read") {
		t.Fatal("client should hold bare read")
	}
	if u.HasPermission("delete") {
		t.Fatal("client must not hold delete")
	}
}

func TestCanManageReflexive(t *testing.T) {
	for _, role := range Roles() {
		u := &User{ID: "self", Role: role}
		if !u.CanManage(u) {
			t.Fatalf("%s cannot manage itself", role)
		}
	}
}

func TestCanManageHierarchy(t *testing.T) {
	dev := &User{ID: "d", Role: RoleDeveloper}
	super := &User{ID: "s", Role: RoleSuperAdmin}
	admin := &User{ID: "a", Role: RoleAdmin}
	manager := &User{ID: "m1", Role: RoleProjectManager}
	otherManager := &User{ID: "m2", Role: RoleProjectManager}
	worker := &User{ID: "w", Role: RoleWorker}

	if !dev.CanManage(super) || !dev.CanManage(admin) || !dev.CanManage(worker) {
		t.Fatal("developer must manage anyone")
	}
	if !super.CanManage(dev) || !super.CanManage(admin) {
		t.Fatal("super admin must manage anyone")
	}
	if !admin.CanManage(manager) || !admin.CanManage(worker) {
		t.Fatal("admin must manage lower roles")
	}
	if admin.CanManage(super) || admin.CanManage(dev) {
		t.Fatal("admin must not manage the top tier")
	}
	if manager.CanManage(otherManager) {
		t.Fatal("managers must not manage peers")
	}
	if manager.CanManage(worker) {
		t.Fatal("management is not granted below the admin tier")
	}
}

func TestSummarizeOmitsSecret(t *testing.T) {
	u := &User{
		ID:           "u1",
		Name:         "Aigerim",
		Email:        "aigerim@example.com",
		PasswordHash: "$2a$10$secret",
		Role:         RoleWorker,
		Active:       true,
		Status:       StatusActive,
	}
	s := u.Summarize()
	if s.ID != "u1" || s.Role != RoleWorker {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if len(s.Permissions) != len(PermissionsTasks) {
		t.Fatalf("expected worker defaults, got %v", s.Permissions)
	}
	if s.RoleLevel != LevelWorker {
		t.Fatalf("unexpected role level %d", s.RoleLevel)
	}
}
