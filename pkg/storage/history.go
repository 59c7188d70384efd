package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// NodeRun is one appended record of a node execution: which node ran, under
// which instantiation context, how long it took, and what it raised.
type NodeRun struct {
	ID         int64
	GraphID    string
	NodeKey    string
	NodeName   string
	DurationMS int64
	Error      string
	StartedAt  time.Time
}

// HistoryRepository stores an append-only log of node runs in SQLite. It is
// diagnostic history only; nothing in it is read back to resume evaluation
// state.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a repository at the default location,
// ~/.nodetick/nodetick.db.
func NewHistoryRepository() (*HistoryRepository, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewHistoryRepositoryWithPath(filepath.Join(homeDir, ".nodetick", "nodetick.db"))
}

// NewHistoryRepositoryWithPath creates a repository with a custom database
// path. Useful for testing.
func NewHistoryRepositoryWithPath(dbPath string) (*HistoryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &HistoryRepository{db: db}, nil
}

// Close closes the database connection.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

// Record appends one node run to the history.
func (r *HistoryRepository) Record(run NodeRun) error {
	query := `
	INSERT INTO node_runs (graph_id, node_key, node_name, duration_ms, error, started_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		run.GraphID,
		run.NodeKey,
		run.NodeName,
		run.DurationMS,
		nullIfEmpty(run.Error),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record node run: %w", err)
	}
	return nil
}

// ListByGraph returns the most recent runs for a graph, newest first.
func (r *HistoryRepository) ListByGraph(graphID string, limit int) ([]NodeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, graph_id, node_key, node_name, duration_ms, COALESCE(error, ''), started_at
	FROM node_runs
	WHERE graph_id = ?
	ORDER BY id DESC
	LIMIT ?`

	rows, err := r.db.Query(query, graphID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query node runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []NodeRun
	for rows.Next() {
		var run NodeRun
		var started string
		if err := rows.Scan(&run.ID, &run.GraphID, &run.NodeKey, &run.NodeName, &run.DurationMS, &run.Error, &started); err != nil {
			return nil, fmt.Errorf("failed to scan node run: %w", err)
		}
		if ts, perr := time.Parse(time.RFC3339Nano, started); perr == nil {
			run.StartedAt = ts
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate node runs: %w", err)
	}
	return runs, nil
}

// Prune deletes all runs older than the cutoff, returning how many rows were
// removed.
func (r *HistoryRepository) Prune(before time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM node_runs WHERE started_at < ?`,
		before.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to prune node runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
