package storage

import (
	"database/sql"
	"fmt"
)

// MigrationVersion tracks the current database schema version.
const MigrationVersion = 1

// InitializeDatabase creates the SQLite schema for node-run history,
// including migration version tracking to support future schema updates.
func InitializeDatabase(db *sql.DB) error {
	migrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check migration version: %w", err)
	}

	if currentVersion < 1 {
		if err := applyMigration1(db); err != nil {
			return fmt.Errorf("failed to apply migration 1: %w", err)
		}
	}

	return nil
}

// applyMigration1 creates the initial schema.
func applyMigration1(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	nodeRunsTable := `
	CREATE TABLE node_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		graph_id TEXT NOT NULL,
		node_key TEXT NOT NULL,
		node_name TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := tx.Exec(nodeRunsTable); err != nil {
		return fmt.Errorf("failed to create node_runs table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX idx_node_runs_graph ON node_runs(graph_id);`,
		`CREATE INDEX idx_node_runs_key ON node_runs(node_key);`,
		`CREATE INDEX idx_node_runs_started ON node_runs(started_at);`,
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", 1); err != nil {
		return fmt.Errorf("failed to record migration version: %w", err)
	}

	return tx.Commit()
}
