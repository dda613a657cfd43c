package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 creates the batch tables. Each statement runs separately and
// sticks to types both SQLite and MySQL accept.
var schemaV1 = []string{
	`CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at VARCHAR(40) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS batches (
    id VARCHAR(64) PRIMARY KEY,
    seed BIGINT NOT NULL,
    started_at VARCHAR(40) NOT NULL,
    finished_at VARCHAR(40) NOT NULL,
    max_steps INTEGER NOT NULL,
    memory_capacity INTEGER NOT NULL,
    scenario TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS runs (
    batch_id VARCHAR(64) NOT NULL,
    label VARCHAR(8) NOT NULL,
    input VARCHAR(32) NOT NULL,
    w_input REAL NOT NULL,
    w_state REAL NOT NULL,
    w_self_eval REAL NOT NULL,
    PRIMARY KEY (batch_id, label)
)`,
	`CREATE TABLE IF NOT EXISTS steps (
    batch_id VARCHAR(64) NOT NULL,
    label VARCHAR(8) NOT NULL,
    step INTEGER NOT NULL,
    input_signal REAL NOT NULL,
    decision INTEGER NOT NULL,
    stability REAL NOT NULL,
    self_eval REAL NOT NULL,
    PRIMARY KEY (batch_id, label, step)
)`,
}

// tables lists every table in drop order.
var tables = []string{"steps", "runs", "batches", "schema_version"}

// InitSchema creates the schema on a fresh database and applies
// migrations on an existing one.
func InitSchema(ctx context.Context, db *sql.DB) error {
	currentVersion, err := getSchemaVersion(ctx, db)
	if err != nil {
		// schema_version doesn't exist yet
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
		return nil
	}

	if currentVersion > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", currentVersion, SchemaVersion)
	}
	if currentVersion < SchemaVersion {
		if err := migrateSchema(ctx, db, currentVersion); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// getSchemaVersion returns the recorded schema version. It returns an
// error if the schema_version table doesn't exist.
func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return int(version.Int64), nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range schemaV1 {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		SchemaVersion, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// migrateSchema applies migrations from currentVersion to SchemaVersion.
// An empty schema_version table is treated as version 0 and gets v1.
func migrateSchema(ctx context.Context, db *sql.DB, currentVersion int) error {
	if currentVersion == 0 {
		return createSchema(ctx, db)
	}
	return nil
}

// ResetSchema drops all tables and recreates the schema.
func ResetSchema(ctx context.Context, db *sql.DB) error {
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return InitSchema(ctx, db)
}
