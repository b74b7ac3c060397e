// Package observability records capture and retention outcomes in a small
// SQLite event log, separate from the artifact directory so the listing
// stays authoritative.
//
// All writes are fire-and-forget: a failing event store is slog-logged and
// never blocks or fails the operation it describes.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/snapkeep/idgen"
)

// CaptureEvent describes one finished capture attempt.
type CaptureEvent struct {
	URL          string
	Selector     string
	Mode         string // "element" or "fullpage"
	Success      bool
	ArtifactName string
	Bytes        int64
	Duration     time.Duration
	ErrorKind    string
}

// RetentionEvent describes one eviction pass.
type RetentionEvent struct {
	Job          string
	DeletedCount int
	DeletedBytes int64
}

// EventLogger writes snapkeep events to the shared event database.
type EventLogger struct {
	db    *sql.DB
	newID func() string
}

// NewEventLogger creates a logger backed by the given event database.
func NewEventLogger(db *sql.DB) *EventLogger {
	return &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.UUIDv7()),
	}
}

// DB exposes the underlying handle for callers that share the event
// database (cleanup jobs, tests).
func (l *EventLogger) DB() *sql.DB {
	return l.db
}

// Init applies the event schema. Idempotent.
func (l *EventLogger) Init() error {
	if _, err := l.db.Exec(Schema); err != nil {
		return fmt.Errorf("observability: init schema: %w", err)
	}
	return nil
}

// LogCapture records a capture outcome. Non-blocking: errors are logged via
// slog but do not propagate.
func (l *EventLogger) LogCapture(ctx context.Context, ev CaptureEvent) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO capture_events (
			event_id, url, selector, mode, success, artifact_name,
			bytes, duration_ms, error_kind, created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		l.newID(), ev.URL, ev.Selector, ev.Mode, ev.Success, ev.ArtifactName,
		ev.Bytes, ev.Duration.Milliseconds(), ev.ErrorKind, time.Now().Unix())
	if err != nil {
		slog.Error("observability: capture event log failed", "error", err, "url", ev.URL)
	}
}

// LogRetention records an eviction pass outcome.
func (l *EventLogger) LogRetention(ctx context.Context, ev RetentionEvent) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO retention_events (
			event_id, job, deleted_count, deleted_bytes, created_at
		) VALUES (?,?,?,?,?)`,
		l.newID(), ev.Job, ev.DeletedCount, ev.DeletedBytes, time.Now().Unix())
	if err != nil {
		slog.Warn("observability: retention event log failed", "error", err, "job", ev.Job)
	}
}

// Cleanup deletes events older than the given retention window. Zero means
// keep everything.
func (l *EventLogger) Cleanup(ctx context.Context, keep time.Duration) error {
	if keep <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-keep).Unix()
	for _, table := range []string{"capture_events", "retention_events"} {
		q := fmt.Sprintf("DELETE FROM %s WHERE created_at < ?", table)
		if _, err := l.db.ExecContext(ctx, q, cutoff); err != nil {
			return fmt.Errorf("observability: cleanup %s: %w", table, err)
		}
	}
	return nil
}
