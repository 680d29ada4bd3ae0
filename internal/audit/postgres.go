package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PGStore persists the audit trail in PostgreSQL.
type PGStore struct {
	db *sql.DB
}

// NewPGStore wraps an open database handle.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const auditColumns = `id, ts, actor_id, actor_email, actor_name, actor_role, action, resource,
	resource_id, description, old_value, new_value, method, path, status_code,
	ip_address, user_agent, severity, category, is_error, error_message`

func (s *PGStore) Append(ctx context.Context, rec *Record) error {
	oldVal, err := marshalValue(rec.OldValue)
	if err != nil {
		return fmt.Errorf("audit append: encode old value: %w", err)
	}
	newVal, err := marshalValue(rec.NewValue)
	if err != nil {
		return fmt.Errorf("audit append: encode new value: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (`+auditColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		rec.ID, rec.Timestamp, nullString(rec.ActorID), rec.ActorEmail, rec.ActorName,
		rec.ActorRole, rec.Action, rec.Resource, nullString(rec.ResourceID),
		rec.Description, oldVal, newVal, nullString(rec.Method), nullString(rec.Path),
		rec.StatusCode, nullString(rec.IPAddress), nullString(rec.UserAgent),
		int(rec.Severity), rec.Category, rec.IsError, nullString(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

func (s *PGStore) SetError(ctx context.Context, id, message string, severity Severity) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE audit_log
		SET is_error = true, error_message = $2, severity = $3
		WHERE id = $1`,
		id, message, int(severity))
	if err != nil {
		return fmt.Errorf("audit set error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("audit set error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Record, int, error) {
	where, args := buildAuditFilter(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM audit_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit count: %w", err)
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 50
	}
	args = append(args, limit, (page-1)*limit)
	query := `SELECT ` + auditColumns + ` FROM audit_log` + where +
		fmt.Sprintf(` ORDER BY ts DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("audit list: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("audit list: %w", err)
	}
	return out, total, nil
}

func (s *PGStore) Stats(ctx context.Context, window time.Duration) (Stats, error) {
	since := time.Now().Add(-window)
	st := Stats{Window: window}
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE is_error),
			count(*) FILTER (WHERE category = $2),
			count(*) FILTER (WHERE severity >= $3),
			count(*) FILTER (WHERE action = $4),
			count(*) FILTER (WHERE action = $5)
		FROM audit_log WHERE ts >= $1`,
		since, CategorySecurity, int(SeverityCritical), ActionUserLogin, ActionFailedLoginAttempt,
	).Scan(&st.TotalActions, &st.Errors, &st.SecurityEvents, &st.CriticalEvents,
		&st.SuccessfulLogins, &st.FailedLogins)
	if err != nil {
		return Stats{}, fmt.Errorf("audit stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT action, count(*) AS n FROM audit_log
		WHERE ts >= $1
		GROUP BY action ORDER BY n DESC LIMIT 10`, since)
	if err != nil {
		return Stats{}, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return Stats{}, fmt.Errorf("audit stats: %w", err)
		}
		st.TopActions = append(st.TopActions, ac)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("audit stats: %w", err)
	}
	return st, nil
}

func (s *PGStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log WHERE ts < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("audit purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *PGStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_log`)
	if err != nil {
		return 0, fmt.Errorf("audit clear: %w", err)
	}
	return res.RowsAffected()
}

func buildAuditFilter(f Filter) (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ActorID != "" {
		conds = append(conds, "actor_id = "+arg(f.ActorID))
	}
	if f.Action != "" {
		conds = append(conds, "action = "+arg(f.Action))
	}
	if f.Resource != "" {
		conds = append(conds, "resource = "+arg(f.Resource))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+arg(f.Category))
	}
	if f.Severity != 0 {
		conds = append(conds, "severity = "+arg(int(f.Severity)))
	}
	if f.IsError != nil {
		conds = append(conds, "is_error = "+arg(*f.IsError))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "ts >= "+arg(f.Since))
	}
	if !f.Until.IsZero() {
		conds = append(conds, "ts <= "+arg(f.Until))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var actorID, resourceID, method, path, ip, ua, errMsg sql.NullString
	var oldVal, newVal []byte
	var severity int
	err := row.Scan(
		&rec.ID, &rec.Timestamp, &actorID, &rec.ActorEmail, &rec.ActorName,
		&rec.ActorRole, &rec.Action, &rec.Resource, &resourceID, &rec.Description,
		&oldVal, &newVal, &method, &path, &rec.StatusCode, &ip, &ua,
		&severity, &rec.Category, &rec.IsError, &errMsg,
	)
	if err != nil {
		return nil, err
	}
	rec.ActorID = actorID.String
	rec.ResourceID = resourceID.String
	rec.Method = method.String
	rec.Path = path.String
	rec.IPAddress = ip.String
	rec.UserAgent = ua.String
	rec.ErrorMessage = errMsg.String
	rec.Severity = Severity(severity)
	if len(oldVal) > 0 {
		var v any
		if err := json.Unmarshal(oldVal, &v); err != nil {
			return nil, fmt.Errorf("decode old value: %w", err)
		}
		rec.OldValue = v
	}
	if len(newVal) > 0 {
		var v any
		if err := json.Unmarshal(newVal, &v); err != nil {
			return nil, fmt.Errorf("decode new value: %w", err)
		}
		rec.NewValue = v
	}
	return &rec, nil
}

func marshalValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
