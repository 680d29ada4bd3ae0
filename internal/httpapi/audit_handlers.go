package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"kurylys.org/internal/audit"
	"kurylys.org/internal/identity"
)

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, "audit") {
		return
	}
	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}
	records, total, err := a.audits.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  records,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

func (a *API) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, "audit") {
		return
	}
	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}
	// Exports ignore pagination: the whole filtered range goes out.
	filter.Page = 1
	filter.Limit = 100_000
	records, _, err := a.audits.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="audit-%s.csv"`, time.Now().UTC().Format("2006-01-02")))
	_ = audit.WriteCSV(w, records)

	a.audit(r, audit.ActionExportData, audit.ResourceReport, "", map[string]any{
		"records": len(records),
	})
}

func (a *API) handleAuditSecurity(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, "audit") {
		return
	}
	filter, ok := parseAuditFilter(w, r)
	if !ok {
		return
	}
	filter.Category = audit.CategorySecurity
	records, total, err := a.audits.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": records,
		"total":  total,
	})
}

func (a *API) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, "audit") {
		return
	}
	days, err := parsePositiveInt(r.URL.Query().Get("days"), 7, 1, 730)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "days must be between 1 and 730")
		return
	}
	stats, err := a.audits.Stats(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"stats": stats,
	})
}

// handleAuditClear wipes the trail, then writes the record of the wipe
// synchronously so the fresh trail starts with who did it.
func (a *API) handleAuditClear(w http.ResponseWriter, r *http.Request) {
	if !a.ensureRole(w, r, identity.RoleSuperAdmin, identity.RoleDeveloper) {
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	removed, err := a.audits.Clear(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	rec := a.recorder.UserAction(principal, audit.ActionBulkOperation, audit.ResourceSystem)
	rec.Description = fmt.Sprintf("Cleared audit trail (%d records)", removed)
	rec.Severity = audit.SeverityCritical
	rec.Category = audit.CategorySystemOperation
	a.stamp(rec, r)
	if err := a.recorder.WriteSync(r.Context(), rec); err != nil {
		writeError(w, r, http.StatusInternalServerError, "trail cleared but the clear record failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "audit trail cleared",
		"removed": removed,
	})
}

func parseAuditFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	page, err := parsePositiveInt(q.Get("page"), 1, 1, 1_000_000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return audit.Filter{}, false
	}
	limit, err := parsePositiveInt(q.Get("limit"), 50, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 1000")
		return audit.Filter{}, false
	}
	f := audit.Filter{
		ActorID:  strings.TrimSpace(q.Get("user_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Resource: strings.TrimSpace(q.Get("resource")),
		Category: strings.TrimSpace(q.Get("category")),
		Page:     page,
		Limit:    limit,
	}
	if raw := strings.TrimSpace(q.Get("errors")); raw != "" {
		isErr := raw == "true"
		f.IsError = &isErr
	}
	for name, dst := range map[string]*time.Time{"since": &f.Since, "until": &f.Until} {
		if raw := strings.TrimSpace(q.Get(name)); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, r, http.StatusBadRequest, name+" must be RFC 3339")
				return audit.Filter{}, false
			}
			*dst = t
		}
	}
	return f, true
}
