package audit

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("audit record not found")

// Filter narrows a List call. Zero values mean "no constraint".
type Filter struct {
	ActorID  string
	Action   string
	Resource string
	Category string
	Severity Severity
	IsError  *bool
	Since    time.Time
	Until    time.Time
	Page     int
	Limit    int
}

// ActionCount is one row of the top-actions aggregate.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// Stats aggregates the trail over a time window.
type Stats struct {
	Window           time.Duration `json:"-"`
	TotalActions     int           `json:"total_actions"`
	Errors           int           `json:"errors"`
	SecurityEvents   int           `json:"security_events"`
	CriticalEvents   int           `json:"critical_events"`
	SuccessfulLogins int           `json:"successful_logins"`
	FailedLogins     int           `json:"failed_logins"`
	TopActions       []ActionCount `json:"top_actions"`
}

// Store is the persistence contract for the audit trail.
type Store interface {
	// Append writes one record. The caller fills every field including ID
	// and Timestamp.
	Append(ctx context.Context, rec *Record) error
	// SetError flips an existing record to the error state.
	SetError(ctx context.Context, id, message string, severity Severity) error
	List(ctx context.Context, f Filter) ([]Record, int, error)
	Stats(ctx context.Context, window time.Duration) (Stats, error)
	// Purge deletes records older than the cutoff and reports how many.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
	// Clear wipes the whole trail. The caller is responsible for writing
	// a record of the wipe afterwards.
	Clear(ctx context.Context) (int64, error)
}
