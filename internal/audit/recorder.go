package audit

import (
	"context"
	"time"

	"kurylys.org/internal/identity"
	"kurylys.org/internal/ids"
	"kurylys.org/internal/obs"
)

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second

	// DefaultRetention is how long records are kept before the retention
	// loop purges them.
	DefaultRetention = 2 * 365 * 24 * time.Hour
)

// Recorder dispatches records to the store from a background worker so the
// request path never blocks on, or fails because of, the audit write.
type Recorder struct {
	store   Store
	queue   chan *Record
	done    chan struct{}
	timeout time.Duration
	now     func() time.Time
}

// RecorderOption tweaks a Recorder.
type RecorderOption func(*Recorder)

// WithQueueSize sets the dispatch buffer length.
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan *Record, n)
		}
	}
}

// WithWriteTimeout bounds each store write.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRecorderClock overrides the clock, for tests.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder starts the background worker.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		queue:   make(chan *Record, defaultQueueSize),
		done:    make(chan struct{}),
		timeout: defaultWriteTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.worker()
	return r
}

func (r *Recorder) worker() {
	defer close(r.done)
	for rec := range r.queue {
		r.write(rec)
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.Append(ctx, rec); err != nil {
		obs.CountAuditRecord("failed")
		obs.LogEntry(map[string]any{
			"level":  "error",
			"msg":    "audit write failed",
			"action": rec.Action,
			"error":  err.Error(),
		})
		return
	}
	obs.CountAuditRecord("written")
}

// Dispatch queues a record for asynchronous persistence. When the queue is
// full the record is dropped rather than blocking the caller.
func (r *Recorder) Dispatch(rec *Record) {
	select {
	case r.queue <- rec:
	default:
		obs.CountAuditRecord("dropped")
		obs.LogEntry(map[string]any{
			"level":  "warn",
			"msg":    "audit queue full, record dropped",
			"action": rec.Action,
		})
	}
}

// WriteSync persists a record on the caller's goroutine. Used where the
// record must exist before the call returns, like the trail-clear record.
func (r *Recorder) WriteSync(ctx context.Context, rec *Record) error {
	err := r.store.Append(ctx, rec)
	if err != nil {
		obs.CountAuditRecord("failed")
		return err
	}
	obs.CountAuditRecord("written")
	return nil
}

// MarkAsError flips an already written record to the error state. Severity
// is bumped one notch so errors never sit at the lowest grade.
func (r *Recorder) MarkAsError(ctx context.Context, rec *Record, message string) error {
	sev := rec.Severity
	if sev == SeverityLow {
		sev = SeverityMedium
	}
	if err := r.store.SetError(ctx, rec.ID, message, sev); err != nil {
		return err
	}
	rec.IsError = true
	rec.ErrorMessage = message
	rec.Severity = sev
	return nil
}

// Close stops accepting records and drains the queue.
func (r *Recorder) Close() {
	close(r.queue)
	<-r.done
}

// StartRetention purges records older than retain every interval until ctx
// is cancelled.
func (r *Recorder) StartRetention(ctx context.Context, interval, retain time.Duration) {
	if retain <= 0 {
		retain = DefaultRetention
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				cutoff := r.now().Add(-retain)
				n, err := r.store.Purge(ctx, cutoff)
				if err != nil {
					obs.LogEntry(map[string]any{
						"level": "error",
						"msg":   "audit retention purge failed",
						"error": err.Error(),
					})
					continue
				}
				if n > 0 {
					obs.LogEntry(map[string]any{
						"level":  "info",
						"msg":    "audit retention purge",
						"purged": n,
					})
				}
			}
		}
	}()
}

// UserAction builds a record for an authenticated actor.
func (r *Recorder) UserAction(actor *identity.User, action, resource string) *Record {
	rec := &Record{
		ID:          ids.New(),
		Timestamp:   r.now(),
		Action:      action,
		Resource:    resource,
		Description: Describe(action, resource),
		Severity:    SeverityLow,
		Category:    categoryFor(action),
	}
	if actor != nil {
		rec.ActorID = actor.ID
		rec.ActorEmail = actor.Email
		rec.ActorName = actor.Name
		rec.ActorRole = string(actor.Role)
	}
	return rec
}

// SecurityEvent builds a high-visibility record. Actor may be nil for
// anonymous events such as failed logins.
func (r *Recorder) SecurityEvent(actor *identity.User, action, description string, severity Severity) *Record {
	rec := r.UserAction(actor, action, ResourceSecurity)
	rec.Category = CategorySecurity
	rec.Severity = severity
	if description != "" {
		rec.Description = description
	}
	return rec
}

// SystemEvent builds a record for an action with no human actor.
func (r *Recorder) SystemEvent(action, description string, severity Severity) *Record {
	rec := &Record{
		ID:          ids.New(),
		Timestamp:   r.now(),
		ActorEmail:  "system",
		ActorName:   "System",
		Action:      action,
		Resource:    ResourceSystem,
		Description: description,
		Severity:    severity,
		Category:    CategorySystemOperation,
	}
	if rec.Description == "" {
		rec.Description = Describe(action, ResourceSystem)
	}
	return rec
}

func categoryFor(action string) string {
	switch action {
	case ActionUserLogin, ActionUserLogout, ActionFailedLoginAttempt, ActionPasswordChange:
		return CategoryAuthentication
	case ActionSecurityViolation, ActionUnauthorizedAccess:
		return CategorySecurity
	case ActionSystemBackup, ActionSystemMaintenance:
		return CategorySystemOperation
	case ActionExportData:
		return CategoryDataAccess
	default:
		return CategoryDataModification
	}
}
