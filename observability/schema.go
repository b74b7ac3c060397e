package observability

// Schema contains the complete DDL for the snapkeep event tables.
// Call Init(db) to apply it, or embed the constant in your own schema
// management.
const Schema = `
-- Capture Events
CREATE TABLE IF NOT EXISTS capture_events (
    event_id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    selector TEXT,
    mode TEXT NOT NULL,              -- element | fullpage
    success INTEGER NOT NULL,
    artifact_name TEXT,
    bytes INTEGER,
    duration_ms INTEGER,
    error_kind TEXT,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_capture_events_time
    ON capture_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_capture_events_url
    ON capture_events(url, created_at DESC);

-- Retention Events
CREATE TABLE IF NOT EXISTS retention_events (
    event_id TEXT PRIMARY KEY,
    job TEXT NOT NULL,
    deleted_count INTEGER NOT NULL,
    deleted_bytes INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_retention_events_time
    ON retention_events(created_at DESC);
`
