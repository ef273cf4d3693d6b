// Package observability provides SQLite-native monitoring for the
// extraction pipeline: domain events (schema conflicts, reference-data
// reloads), a batched metrics timeseries, and worker heartbeats.
//
// Everything writes to a dedicated observability database, separate from
// the record store to avoid write contention. Event logging is
// non-blocking: a failing observability store never blocks a pipeline run.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/1genadam/tileshop-rag-sub001/idgen"
)

// Event types emitted by the pipeline.
const (
	EventSchemaConflict = "schema_conflict" // registry diverged, needs refdata correction
	EventRefDataReload  = "refdata_reload"
	EventBatchComplete  = "batch_complete"
)

// Event is a domain-level occurrence worth keeping beyond the log stream.
type Event struct {
	Type    string
	URL     string
	Family  string
	Detail  string // free-form, or JSON for structured payloads
	Success bool
}

// EventLogger writes pipeline events.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewEventLogger creates a logger backed by the observability database.
func NewEventLogger(db *sql.DB) *EventLogger {
	return &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
}

// Log records an event. Errors are logged, never propagated.
func (l *EventLogger) Log(ctx context.Context, e Event) {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO pipeline_events (event_id, event_type, url, family, detail, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.newID(), e.Type, e.URL, e.Family, e.Detail, e.Success, time.Now().Unix())
	if err != nil {
		slog.Error("observability: event log failed", "type", e.Type, "error", err)
	}
}

// Events returns recent events, newest first, optionally filtered by type.
func (l *EventLogger) Events(ctx context.Context, eventType string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT event_type, url, family, detail, success FROM pipeline_events`
	args := []any{}
	if eventType != "" {
		q += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Type, &e.URL, &e.Family, &e.Detail, &e.Success); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// RetentionConfig specifies per-table retention in days. Zero disables
// cleanup for that table.
type RetentionConfig struct {
	EventsDays     int
	MetricsDays    int
	HeartbeatsDays int
	RunVacuumAfter bool
}

// Cleanup deletes rows past the retention thresholds.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	now := time.Now().Unix()
	targets := []struct {
		table  string
		column string
		days   int
	}{
		{"pipeline_events", "created_at", cfg.EventsDays},
		{"metrics_timeseries", "timestamp", cfg.MetricsDays},
		{"worker_heartbeats", "timestamp", cfg.HeartbeatsDays},
	}
	for _, t := range targets {
		if t.days <= 0 {
			continue
		}
		cutoff := now - int64(t.days*86400)
		q := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", t.table, t.column)
		if _, err := db.ExecContext(ctx, q, cutoff); err != nil {
			return fmt.Errorf("observability: cleanup %s: %w", t.table, err)
		}
	}
	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("observability: vacuum: %w", err)
		}
	}
	return nil
}
