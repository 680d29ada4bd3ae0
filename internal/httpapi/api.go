package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"kurylys.org/internal/audit"
	"kurylys.org/internal/auth"
	"kurylys.org/internal/identity"
	"kurylys.org/internal/obs"
)

// ReadyProbe — простая проверка готовности (ping БД).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API — HTTP слой.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	recorder   *audit.Recorder
	audits     audit.Store
	readyProbe ReadyProbe
	version    string
}

func New(svc *auth.Service, recorder *audit.Recorder, audits audit.Store, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       svc,
		recorder:   recorder,
		audits:     audits,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("GET /healthz", a.Healthz)
	a.mux.HandleFunc("GET /readyz", a.Ready)
	a.mux.HandleFunc("GET /v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("GET /metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("POST /v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("GET /v1/auth/me", a.requireAuth(a.handleMe))
	a.mux.HandleFunc("PUT /v1/auth/profile", a.requireAuth(a.handleUpdateProfile))

	// admin user management
	a.mux.HandleFunc("GET /v1/admin/users", a.requireAuth(a.handleListUsers))
	a.mux.HandleFunc("POST /v1/admin/users", a.requireAuth(a.handleCreateUser))
	a.mux.HandleFunc("GET /v1/admin/users/{id}", a.requireAuth(a.handleGetUser))
	a.mux.HandleFunc("PUT /v1/admin/users/{id}", a.requireAuth(a.handleUpdateUser))
	a.mux.HandleFunc("DELETE /v1/admin/users/{id}", a.requireAuth(a.handleDeactivateUser))
	a.mux.HandleFunc("DELETE /v1/admin/users/{id}/permanent", a.requireAuth(a.handlePermanentDeleteUser))
	a.mux.HandleFunc("PUT /v1/admin/users/{id}/role", a.requireAuth(a.handleChangeRole))
	a.mux.HandleFunc("PUT /v1/admin/users/{id}/activate", a.requireAuth(a.handleActivateUser))
	a.mux.HandleFunc("PUT /v1/admin/users/{id}/reject", a.requireAuth(a.handleRejectUser))
	a.mux.HandleFunc("POST /v1/admin/users/{id}/reset-password", a.requireAuth(a.handleResetPassword))

	// role catalog + dashboard stats
	a.mux.HandleFunc("GET /v1/admin/roles", a.requireAuth(a.handleRoles))
	a.mux.HandleFunc("GET /v1/admin/stats", a.requireAuth(a.handleUserStats))

	// project access (assignment-gated)
	a.mux.HandleFunc("GET /v1/projects/{id}", a.requireAuth(a.handleGetProject))

	// audit trail
	a.mux.HandleFunc("GET /v1/audit/logs", a.requireAuth(a.handleAuditLogs))
	a.mux.HandleFunc("GET /v1/audit/export", a.requireAuth(a.handleAuditExport))
	a.mux.HandleFunc("GET /v1/audit/security", a.requireAuth(a.handleAuditSecurity))
	a.mux.HandleFunc("GET /v1/audit/stats", a.requireAuth(a.handleAuditStats))
	a.mux.HandleFunc("DELETE /v1/audit/logs", a.requireAuth(a.handleAuditClear))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wraps the mux in the shared middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = CaptureStatus(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 50, 25)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// stamp copies the request and response metadata onto an audit record.
// Call it after the response is written so the captured status is final.
func (a *API) stamp(rec *audit.Record, r *http.Request) {
	rec.Method = r.Method
	rec.Path = r.URL.Path
	rec.IPAddress = clientIP(r)
	rec.UserAgent = r.UserAgent()
	if code := responseStatus(r); code != 0 {
		rec.StatusCode = code
		rec.IsError = code >= 400
	}
}

// audit files a best-effort record for a completed action. Requests with
// no principal produce nothing.
func (a *API) audit(r *http.Request, action, resource, resourceID string, newValue any) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return
	}
	rec := a.recorder.UserAction(principal, action, resource)
	a.stamp(rec, r)
	rec.ResourceID = resourceID
	rec.NewValue = newValue
	a.recorder.Dispatch(rec)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "kurylys-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "kurylys-api",
		"version": a.version,
	})
}

func (a *API) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := a.ensureProjectAccess(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	type roleInfo struct {
		Role        identity.Role `json:"role"`
		Name        string        `json:"name"`
		Level       int           `json:"level"`
		Permissions []string      `json:"permissions"`
	}
	var out []roleInfo
	for _, role := range identity.Roles() {
		out = append(out, roleInfo{
			Role:        role,
			Name:        identity.RoleName(role),
			Level:       identity.RoleLevel(role),
			Permissions: identity.DefaultPermissions(role),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"roles":             out,
		"permission_groups": identity.PermissionGroups(),
	})
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRoleLevel(w, r, identity.LevelAdmin) {
		return
	}
	stats, err := a.auth.UserStats(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
