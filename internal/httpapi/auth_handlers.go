package httpapi

import (
	"fmt"
	"net/http"

	"kurylys.org/internal/audit"
	"kurylys.org/internal/auth"
	"kurylys.org/internal/identity"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Name        *string               `json:"name"`
	Department  *string               `json:"department"`
	Phone       *string               `json:"phone"`
	Avatar      *string               `json:"avatar"`
	Preferences *identity.Preferences `json:"preferences"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		rec := a.recorder.SecurityEvent(nil, audit.ActionFailedLoginAttempt,
			fmt.Sprintf("Failed login attempt for %s", req.Email), audit.SeverityMedium)
		a.stamp(rec, r)
		a.recorder.Dispatch(rec)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":       res.User,
		"token":      res.Token,
		"expires_at": res.ExpiresAt,
	})

	actor := &identity.User{
		ID:    res.User.ID,
		Name:  res.User.Name,
		Email: res.User.Email,
		Role:  res.User.Role,
	}
	rec := a.recorder.UserAction(actor, audit.ActionUserLogin, audit.ResourceAuth)
	a.stamp(rec, r)
	a.recorder.Dispatch(rec)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	// Closed system: the endpoint exists so clients get a clear answer,
	// but it never creates anything.
	handleAuthError(w, r, a.auth.Register())
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, principal.Summarize())
}

func (a *API) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.auth.UpdateProfile(r.Context(), principal, auth.ProfileUpdate{
		Name:        req.Name,
		Department:  req.Department,
		Phone:       req.Phone,
		Avatar:      req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Summarize())
	a.audit(r, audit.ActionUpdateProfile, audit.ResourceUser, updated.ID, nil)
}
