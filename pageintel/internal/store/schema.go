package store

// Schema is the complete pipeline schema, applied on open (idempotent).
const Schema = `
-- Product records: one row per canonical URL, replaced wholesale on
-- re-extraction. Fixed attributes get columns; everything else lives in
-- open_json keyed by canonical name.
CREATE TABLE IF NOT EXISTS product_records (
    url            TEXT PRIMARY KEY,
    sku            TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    family         TEXT NOT NULL DEFAULT 'unknown',
    price_per_sqft REAL,
    price_per_box  REAL,
    price_per_unit REAL,
    coverage       REAL,
    dimensions     TEXT NOT NULL DEFAULT '',
    material       TEXT NOT NULL DEFAULT '',
    finish         TEXT NOT NULL DEFAULT '',
    markdown       TEXT NOT NULL DEFAULT '',
    open_json      TEXT NOT NULL DEFAULT '{}',
    resources_json TEXT NOT NULL DEFAULT '[]',
    incomplete     INTEGER NOT NULL DEFAULT 0,
    ref_version    TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_sku ON product_records(sku);
CREATE INDEX IF NOT EXISTS idx_records_family ON product_records(family);

-- Run log: one row per pipeline run, with the provenance report.
CREATE TABLE IF NOT EXISTS extraction_runs (
    id          TEXT PRIMARY KEY,
    url         TEXT NOT NULL,
    family      TEXT NOT NULL DEFAULT 'unknown',
    confidence  REAL NOT NULL DEFAULT 0,
    incomplete  INTEGER NOT NULL DEFAULT 0,
    report_json TEXT NOT NULL DEFAULT '{}',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    ran_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_url ON extraction_runs(url, ran_at DESC);

-- Canonical field names recognized by the schema registry. Append-only:
-- rows are inserted, never updated or deleted.
CREATE TABLE IF NOT EXISTS canonical_names (
    name       TEXT PRIMARY KEY,
    first_pass TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);
`
