// Package observability provides an SQLite-native record of highlight
// refresh activity. The daemon writes one row per refresh pass so that
// flapping selectors, persistent box-query failures, and refresh latency
// can be inspected after the fact with plain SQL.
//
// All writes are non-blocking: a failing event store is logged via slog and
// never propagates back into the refresh path.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domhighlight/idgen"
)

// Schema contains the DDL for the refresh event table. Apply it via
// dbopen.WithSchema or embed it in your own schema management.
const Schema = `
CREATE TABLE IF NOT EXISTS refresh_events (
    event_id    TEXT PRIMARY KEY,
    session_id  TEXT NOT NULL,
    page_url    TEXT NOT NULL,
    targets     INTEGER NOT NULL,
    failures    INTEGER NOT NULL,
    hidden      INTEGER NOT NULL,
    thickness   REAL NOT NULL,
    duration_us INTEGER NOT NULL,
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_refresh_events_session_time
    ON refresh_events(session_id, created_at DESC);
`

// RefreshEvent is one refresh pass outcome.
type RefreshEvent struct {
	SessionID string
	PageURL   string
	Targets   int
	Failures  int
	Hidden    int
	Thickness float64
	Duration  time.Duration
}

// RefreshLog writes refresh events and manages retention cleanup.
type RefreshLog struct {
	db    *sql.DB
	newID idgen.Generator
}

// Option configures a RefreshLog.
type Option func(*RefreshLog)

// WithIDGenerator sets a custom ID generator for event IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *RefreshLog) { l.newID = gen }
}

// NewRefreshLog creates a log backed by the given database. The Schema must
// already be applied.
func NewRefreshLog(db *sql.DB, opts ...Option) *RefreshLog {
	l := &RefreshLog{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Record persists a refresh event. Errors are logged via slog but do not
// propagate, so a failing event store never blocks highlighting.
func (l *RefreshLog) Record(ctx context.Context, ev RefreshEvent) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO refresh_events (
			event_id, session_id, page_url, targets, failures,
			hidden, thickness, duration_us, created_at
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		l.newID(), ev.SessionID, ev.PageURL, ev.Targets, ev.Failures,
		ev.Hidden, ev.Thickness, ev.Duration.Microseconds(), time.Now().Unix())
	if err != nil {
		slog.Error("observability: refresh event log failed",
			"error", err, "session", ev.SessionID)
	}
}

// Recent returns the most recent events for a session, newest first.
func (l *RefreshLog) Recent(ctx context.Context, sessionID string, limit int) ([]RefreshEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, page_url, targets, failures, hidden, thickness, duration_us
		FROM refresh_events
		WHERE session_id = ?
		ORDER BY created_at DESC, event_id DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("observability: recent events: %w", err)
	}
	defer rows.Close()

	var out []RefreshEvent
	for rows.Next() {
		var ev RefreshEvent
		var durUs int64
		if err := rows.Scan(&ev.SessionID, &ev.PageURL, &ev.Targets,
			&ev.Failures, &ev.Hidden, &ev.Thickness, &durUs); err != nil {
			return nil, fmt.Errorf("observability: scan event: %w", err)
		}
		ev.Duration = time.Duration(durUs) * time.Microsecond
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Cleanup deletes events older than the retention threshold in days.
// Zero or negative days means no cleanup.
func Cleanup(ctx context.Context, db *sql.DB, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	if _, err := db.ExecContext(ctx,
		`DELETE FROM refresh_events WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("observability: cleanup: %w", err)
	}
	return nil
}
