package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"kurylys.org/internal/audit"
	"kurylys.org/internal/auth"
	"kurylys.org/internal/identity"
)

// Guards run after requireAuth. Each evaluates a pure decision from the
// identity package and, on denial, answers 403 with the decision context
// and files a security event.

func (a *API) principal(w http.ResponseWriter, r *http.Request) (*identity.User, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no token provided")
		return nil, false
	}
	return principal, true
}

func (a *API) deny(w http.ResponseWriter, r *http.Request, principal *identity.User, d identity.Decision) {
	writeDenied(w, r, d.Message, d.Context)
	rec := a.recorder.SecurityEvent(principal, audit.ActionUnauthorizedAccess, d.Message, audit.SeverityHigh)
	a.stamp(rec, r)
	a.recorder.Dispatch(rec)
}

func (a *API) ensureRole(w http.ResponseWriter, r *http.Request, roles ...identity.Role) bool {
	principal, ok := a.principal(w, r)
	if !ok {
		return false
	}
	if d := identity.DecideRole(principal, roles...); !d.Allowed {
		a.deny(w, r, principal, d)
		return false
	}
	return true
}

func (a *API) ensurePermission(w http.ResponseWriter, r *http.Request, permission string) bool {
	principal, ok := a.principal(w, r)
	if !ok {
		return false
	}
	if d := identity.DecidePermission(principal, permission); !d.Allowed {
		a.deny(w, r, principal, d)
		return false
	}
	return true
}

func (a *API) ensureRoleLevel(w http.ResponseWriter, r *http.Request, level int) bool {
	principal, ok := a.principal(w, r)
	if !ok {
		return false
	}
	if d := identity.DecideRoleLevel(principal, level); !d.Allowed {
		a.deny(w, r, principal, d)
		return false
	}
	return true
}

// resolveTarget loads the user a management operation acts on. The id is
// taken from the path, then a peeked JSON body, then the query string; the
// body is restored for the handler's own decode.
func (a *API) resolveTarget(w http.ResponseWriter, r *http.Request) (*identity.User, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		id = idFromBody(r, "user_id")
	}
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "target user id is required")
		return nil, false
	}
	target, err := a.auth.FindUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "user not found")
		} else {
			handleAuthError(w, r, err)
		}
		return nil, false
	}
	return target, true
}

// idFromBody peeks a single id field out of a JSON body, restoring the
// body for the handler's own decode.
func idFromBody(r *http.Request, key string) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	var id string
	if err := json.Unmarshal(fields[key], &id); err != nil {
		return ""
	}
	return strings.TrimSpace(id)
}

// ensureManagement resolves the target and checks the actor may act on it.
// The resolved target rides the context so the handler skips the second
// lookup.
func (a *API) ensureManagement(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	principal, ok := a.principal(w, r)
	if !ok {
		return r, false
	}
	target, ok := a.resolveTarget(w, r)
	if !ok {
		return r, false
	}
	if d := identity.DecideManagement(principal, target); !d.Allowed {
		a.deny(w, r, principal, d)
		return r, false
	}
	return r.WithContext(auth.ContextWithTargetUser(r.Context(), target)), true
}

// ensureProjectAccess answers 404 for a missing project regardless of the
// caller's tier; the admin bypass only skips the assignment check. The
// project id comes from the path, with a JSON body fallback for routes
// that carry it there.
func (a *API) ensureProjectAccess(w http.ResponseWriter, r *http.Request) (*identity.Project, bool) {
	principal, ok := a.principal(w, r)
	if !ok {
		return nil, false
	}
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		id = idFromBody(r, "project_id")
	}
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "project id is required")
		return nil, false
	}
	project, err := a.auth.Project(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "project not found")
		} else {
			handleAuthError(w, r, err)
		}
		return nil, false
	}
	if principal.RoleLevel() >= identity.LevelAdmin {
		return project, true
	}
	if d := identity.DecideProjectAccess(principal, project); !d.Allowed {
		a.deny(w, r, principal, d)
		return nil, false
	}
	return project, true
}
