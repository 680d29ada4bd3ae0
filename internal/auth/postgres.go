package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kurylys.org/internal/identity"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users() UserStore       { return &userStore{db: s.db} }
func (s *PGStore) Projects() ProjectStore { return &projectStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

const userColumns = `id, name, email, password_hash, role, department, phone, avatar,
	active, status, last_login, permissions, assigned_projects, preferences,
	created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *identity.User) error {
	permissions, _ := json.Marshal(u.Permissions)
	assigned, _ := json.Marshal(u.AssignedProjects)
	preferences, _ := json.Marshal(u.Preferences)
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, role, department, phone, avatar,
		 active, status, permissions, assigned_projects, preferences)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Department, u.Phone,
		u.Avatar, u.Active, u.Status, permissions, assigned, preferences,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	// Case-sensitive by design: the stored value is matched exactly.
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email)
	return scanUser(row)
}

func (s *userStore) List(ctx context.Context, filter UserFilter) ([]*identity.User, int, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(name ilike %s or email ilike %s)", p, p))
	}
	if filter.Role != "" {
		clauses = append(clauses, "role = "+arg(string(filter.Role)))
	}
	if filter.Department != "" {
		clauses = append(clauses, "department = "+arg(filter.Department))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(filter.Status))
	} else if filter.Active != nil {
		clauses = append(clauses, "active = "+arg(*filter.Active))
	}
	where := ""
	if len(clauses) > 0 {
		where = " where " + strings.Join(clauses, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := arg(filter.Limit)
	offset := arg((filter.Page - 1) * filter.Limit)
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users`+where+
			` order by created_at desc limit `+limit+` offset `+offset, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// Save writes every mutable column except password_hash; the hash only
// moves through UpdatePassword so it can never be double-hashed or
// clobbered by a stale struct.
func (s *userStore) Save(ctx context.Context, u *identity.User) error {
	permissions, _ := json.Marshal(u.Permissions)
	assigned, _ := json.Marshal(u.AssignedProjects)
	preferences, _ := json.Marshal(u.Preferences)
	res, err := s.db.ExecContext(ctx,
		`update users set name=$2, email=$3, role=$4, department=$5, phone=$6, avatar=$7,
		 active=$8, status=$9, permissions=$10, assigned_projects=$11, preferences=$12,
		 updated_at=now() where id=$1`,
		u.ID, u.Name, u.Email, string(u.Role), u.Department, u.Phone, u.Avatar,
		u.Active, u.Status, permissions, assigned, preferences,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login=$2 where id=$1`, id, at)
	return err
}

func (s *userStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) Stats(ctx context.Context, recentWindow time.Duration) (UserStats, error) {
	var st UserStats
	since := time.Now().UTC().Add(-recentWindow)
	err := s.db.QueryRowContext(ctx,
		`select count(*),
		        count(*) filter (where active),
		        count(*) filter (where not active),
		        count(*) filter (where role = 'super_admin'),
		        count(*) filter (where role = 'admin'),
		        count(*) filter (where role = 'project_manager'),
		        count(*) filter (where role = 'worker'),
		        count(*) filter (where role = 'client'),
		        count(*) filter (where last_login >= $1)
		 from users`, since,
	).Scan(
		&st.TotalUsers, &st.ActiveUsers, &st.InactiveUsers,
		&st.SuperAdminUsers, &st.AdminUsers, &st.ProjectManagers,
		&st.Workers, &st.Clients, &st.RecentLogins,
	)
	return st, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*identity.User, error) {
	var (
		u           identity.User
		role        string
		lastLogin   sql.NullTime
		permissions []byte
		assigned    []byte
		preferences []byte
	)
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Department, &u.Phone,
		&u.Avatar, &u.Active, &u.Status, &lastLogin, &permissions, &assigned,
		&preferences, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = identity.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	_ = json.Unmarshal(permissions, &u.Permissions)
	_ = json.Unmarshal(assigned, &u.AssignedProjects)
	_ = json.Unmarshal(preferences, &u.Preferences)
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Project store ------------------------------------------------------------
type projectStore struct{ db *sql.DB }

func (s *projectStore) Find(ctx context.Context, id string) (*identity.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, status, coalesce(manager_id, ''), created_at from projects where id=$1`, id)
	var p identity.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Status, &p.ManagerID, &p.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
