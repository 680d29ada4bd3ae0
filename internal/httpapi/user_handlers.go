package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"kurylys.org/internal/audit"
	"kurylys.org/internal/auth"
	"kurylys.org/internal/identity"
)

type createUserRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Department  string   `json:"department"`
	Phone       string   `json:"phone"`
	Active      *bool    `json:"active"`
	Permissions []string `json:"permissions"`
}

type updateUserRequest struct {
	Name        *string   `json:"name"`
	Email       *string   `json:"email"`
	Role        *string   `json:"role"`
	Department  *string   `json:"department"`
	Phone       *string   `json:"phone"`
	Active      *bool     `json:"active"`
	Status      *string   `json:"status"`
	Permissions *[]string `json:"permissions"`
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1_000_000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parsePositiveInt(q.Get("limit"), 10, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}
	filter := auth.UserFilter{
		Search:     strings.TrimSpace(q.Get("search")),
		Role:       identity.Role(strings.TrimSpace(q.Get("role"))),
		Department: strings.TrimSpace(q.Get("department")),
		Status:     strings.TrimSpace(q.Get("status")),
		Page:       page,
		Limit:      limit,
	}
	if raw := strings.TrimSpace(q.Get("active")); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}
	users, total, err := a.auth.ListUsers(r.Context(), filter)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	summaries := make([]identity.Summary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summarize())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": summaries,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// The actor must be able to manage the role it hands out.
	if d := identity.DecideManagement(principal, &identity.User{Role: identity.Role(req.Role)}); !d.Allowed {
		a.deny(w, r, principal, d)
		return
	}
	user, err := a.auth.CreateUser(r.Context(), auth.NewUser{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Role:        identity.Role(req.Role),
		Department:  req.Department,
		Phone:       req.Phone,
		Active:      req.Active,
		Permissions: req.Permissions,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/admin/users/%s", user.ID))
	writeJSON(w, http.StatusCreated, user.Summarize())
	a.audit(r, audit.ActionCreateUser, audit.ResourceUser, user.ID, map[string]any{
		"email": user.Email,
		"role":  user.Role,
	})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	target, ok := a.resolveTarget(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, target.Summarize())
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	principal, _ := a.principal(w, r)
	target, _ := auth.TargetUserFromContext(r.Context())

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	upd := auth.UserUpdate{
		Name:        req.Name,
		Email:       req.Email,
		Department:  req.Department,
		Phone:       req.Phone,
		Active:      req.Active,
		Status:      req.Status,
		Permissions: req.Permissions,
	}
	if req.Role != nil {
		role := identity.Role(*req.Role)
		if d := identity.DecideManagement(principal, &identity.User{Role: role}); !d.Allowed {
			a.deny(w, r, principal, d)
			return
		}
		upd.Role = &role
	}
	before := target.Summarize()
	updated, err := a.auth.UpdateUser(r.Context(), target, upd)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Summarize())

	rec := a.recorder.UserAction(principal, audit.ActionUpdateUser, audit.ResourceUser)
	a.stamp(rec, r)
	rec.ResourceID = updated.ID
	rec.OldValue = before
	rec.NewValue = updated.Summarize()
	a.recorder.Dispatch(rec)
}

// handleDeactivateUser is the soft delete: the account stays, access stops.
func (a *API) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	target, _ := auth.TargetUserFromContext(r.Context())
	if err := a.auth.SetActive(r.Context(), target, false, identity.StatusSuspended); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "user deactivated",
		"user":    target.Summarize(),
	})
	a.audit(r, audit.ActionDeleteUser, audit.ResourceUser, target.ID, nil)
}

// handlePermanentDeleteUser removes the row. Top tier only.
func (a *API) handlePermanentDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRole(w, r, identity.RoleSuperAdmin, identity.RoleDeveloper) {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	target, _ := auth.TargetUserFromContext(r.Context())
	if err := a.auth.DeleteUser(r.Context(), target); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "user permanently deleted",
	})
	a.audit(r, audit.ActionPermanentDeleteUser, audit.ResourceUser, target.ID, map[string]any{
		"email": target.Email,
	})
}

func (a *API) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, "manage_roles") {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	principal, _ := a.principal(w, r)
	target, _ := auth.TargetUserFromContext(r.Context())

	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := identity.Role(req.Role)
	if d := identity.DecideManagement(principal, &identity.User{Role: role}); !d.Allowed {
		a.deny(w, r, principal, d)
		return
	}
	oldRole := target.Role
	if err := a.auth.ChangeRole(r.Context(), target, role); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, target.Summarize())
	a.audit(r, audit.ActionChangeUserRole, audit.ResourceUser, target.ID, map[string]any{
		"old_role": oldRole,
		"new_role": role,
	})
}

func (a *API) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	target, _ := auth.TargetUserFromContext(r.Context())
	if err := a.auth.SetActive(r.Context(), target, true, identity.StatusActive); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, target.Summarize())
	a.audit(r, audit.ActionActivateUser, audit.ResourceUser, target.ID, nil)
}

func (a *API) handleRejectUser(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	target, _ := auth.TargetUserFromContext(r.Context())
	if err := a.auth.SetActive(r.Context(), target, false, identity.StatusRejected); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, target.Summarize())
	a.audit(r, audit.ActionRejectUser, audit.ResourceUser, target.ID, nil)
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	r, ok := a.ensureManagement(w, r)
	if !ok {
		return
	}
	target, _ := auth.TargetUserFromContext(r.Context())

	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.auth.ResetPassword(r.Context(), target, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "password reset",
	})
	a.audit(r, audit.ActionResetUserPassword, audit.ResourceUser, target.ID, nil)
}
