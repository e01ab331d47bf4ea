package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the audit database schema.
const Schema = `
-- Audit records table
CREATE TABLE IF NOT EXISTS audit_records (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,

    -- Relay target
    supplier TEXT NOT NULL,
    operation TEXT NOT NULL,
    model TEXT,
    target_url TEXT NOT NULL,

    -- Outcome
    upstream_status INTEGER,
    error_kind TEXT,
    duration_ms INTEGER NOT NULL,

    -- Payload fingerprints (sizes and hashes, never content)
    request_bytes INTEGER,
    response_bytes INTEGER,
    request_hash TEXT,
    response_hash TEXT,

    stream BOOLEAN NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_supplier ON audit_records(supplier);
CREATE INDEX IF NOT EXISTS idx_audit_operation ON audit_records(operation);
CREATE INDEX IF NOT EXISTS idx_audit_error_kind ON audit_records(error_kind);
CREATE INDEX IF NOT EXISTS idx_audit_request_id ON audit_records(request_id);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
