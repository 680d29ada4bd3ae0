package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"kurylys.org/internal/identity"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role", "department", "phone", "avatar",
		"active", "status", "last_login", "permissions", "assigned_projects", "preferences",
		"created_at", "updated_at",
	})
}

func addUserRow(rows *sqlmock.Rows, id, email, role string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "Aida Bekova", email, "$2a$10$hash", role, "HQ", "", "",
		true, identity.StatusActive, nil,
		[]byte(`["projects.read"]`), []byte(`["p-1"]`),
		[]byte(`{"notifications":{"email":true,"push":true},"theme":"light","language":"en"}`),
		now, now,
	)
}

func TestPGFindScansUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select .+ from users where id=\$1`).
		WithArgs("u-1").
		WillReturnRows(addUserRow(userRows(), "u-1", "aida@kurylys.org", "project_manager"))

	u, err := NewPGStore(db).Users().Find(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if u.Role != identity.RoleProjectManager {
		t.Fatalf("role = %q", u.Role)
	}
	if len(u.Permissions) != 1 || u.Permissions[0] != "projects.read" {
		t.Fatalf("permissions = %v", u.Permissions)
	}
	if len(u.AssignedProjects) != 1 || u.AssignedProjects[0] != "p-1" {
		t.Fatalf("assigned projects = %v", u.AssignedProjects)
	}
	if u.Preferences.Theme != "light" || !u.Preferences.Notifications.Email {
		t.Fatalf("preferences = %+v", u.Preferences)
	}
	if u.LastLogin != nil {
		t.Fatalf("null last_login scanned as %v", u.LastLogin)
	}
}

func TestPGFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select .+ from users where id=\$1`).
		WithArgs("missing").
		WillReturnRows(userRows())

	_, err = NewPGStore(db).Users().Find(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGSaveExcludesPasswordHash(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// The update statement must not mention password_hash at all.
	mock.ExpectExec(`^update users set name=\$2, email=\$3, role=\$4, department=\$5, phone=\$6, avatar=\$7,\s+active=\$8, status=\$9, permissions=\$10, assigned_projects=\$11, preferences=\$12,\s+updated_at=now\(\) where id=\$1$`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &identity.User{
		ID:           "u-1",
		Name:         "Aida Bekova",
		Email:        "aida@kurylys.org",
		PasswordHash: "should-never-be-written",
		Role:         identity.RoleAdmin,
		Active:       true,
		Status:       identity.StatusActive,
	}
	if err := NewPGStore(db).Users().Save(context.Background(), u); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGSaveMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`update users set`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPGStore(db).Users().Save(context.Background(), &identity.User{ID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGListBuildsFilter(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select count\(\*\) from users where \(name ilike \$1 or email ilike \$1\) and role = \$2`).
		WithArgs("%aida%", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`select .+ from users where \(name ilike \$1 or email ilike \$1\) and role = \$2 order by created_at desc limit \$3 offset \$4`).
		WithArgs("%aida%", "admin", 10, 0).
		WillReturnRows(addUserRow(userRows(), "u-1", "aida@kurylys.org", "admin"))

	users, total, err := NewPGStore(db).Users().List(context.Background(), UserFilter{
		Search: "aida",
		Role:   identity.RoleAdmin,
		Page:   1,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(users) != 1 {
		t.Fatalf("total=%d len=%d", total, len(users))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGProjectFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`from projects where id=\$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "manager_id", "created_at"}))

	_, err = NewPGStore(db).Projects().Find(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
