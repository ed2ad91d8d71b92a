package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS task_arrays (
    task TEXT NOT NULL,
    kind TEXT NOT NULL,             -- observation, true_parameters, reference_posterior_samples
    num_observation INTEGER NOT NULL,
    num_rows INTEGER NOT NULL,
    num_cols INTEGER NOT NULL,
    data TEXT NOT NULL,             -- JSON array, row-major
    updated_at TEXT NOT NULL,
    PRIMARY KEY (task, kind, num_observation)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InitSchema creates the tables if they do not exist and records the version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}
