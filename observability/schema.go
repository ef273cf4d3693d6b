package observability

import "database/sql"

// Schema is the DDL for the observability tables. Apply with Init, or
// embed in your own schema management.
const Schema = `
-- Domain events worth keeping beyond the log stream
CREATE TABLE IF NOT EXISTS pipeline_events (
    event_id   TEXT PRIMARY KEY,
    event_type TEXT NOT NULL,
    url        TEXT NOT NULL DEFAULT '',
    family     TEXT NOT NULL DEFAULT '',
    detail     TEXT NOT NULL DEFAULT '',
    success    INTEGER NOT NULL DEFAULT 1,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_type_time
    ON pipeline_events(event_type, created_at DESC);

-- Metrics timeseries
CREATE TABLE IF NOT EXISTS metrics_timeseries (
    metric_id   TEXT PRIMARY KEY DEFAULT ('met_' || hex(randomblob(16))),
    metric_name TEXT NOT NULL,
    timestamp   INTEGER NOT NULL,
    value       REAL NOT NULL,
    labels      TEXT,
    unit        TEXT,
    created_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_metrics_name_time
    ON metrics_timeseries(metric_name, timestamp DESC);

-- Worker heartbeats
CREATE TABLE IF NOT EXISTS worker_heartbeats (
    heartbeat_id     TEXT PRIMARY KEY,
    worker_name      TEXT NOT NULL,
    hostname         TEXT NOT NULL DEFAULT '',
    worker_pid       INTEGER NOT NULL DEFAULT 0,
    timestamp        INTEGER NOT NULL,
    goroutines_count INTEGER,
    memory_alloc_mb  REAL,
    gc_count         INTEGER
);
CREATE INDEX IF NOT EXISTS idx_heartbeats_worker_time
    ON worker_heartbeats(worker_name, timestamp DESC);
`

// Init applies the observability schema.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
