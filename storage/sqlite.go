// Package storage persists alerts in SQLite. WAL mode with split read/write
// pools gives concurrent reads plus a single serialized writer, which is what
// the lifecycle engine relies on for transition serialization.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite holds the split connection pools for alert storage.
type SQLite struct {
	WriteDB *sql.DB // single-writer pool (MaxOpenConns=1 for WAL safety)
	ReadDB  *sql.DB // concurrent reader pool
	Path    string
	Logger  *zap.SugaredLogger
}

// configureConnection sets up WAL mode, foreign keys and busy timeout on a pool.
func configureConnection(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	// Prevent immediate SQLITE_BUSY errors under writer contention.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to query journal mode: %w", err)
	}
	// In-memory databases report "memory" journal mode, which is fine.
	if dbPath != ":memory:" && journalMode != "wal" {
		return fmt.Errorf("WAL mode not enabled (got: %s)", journalMode)
	}
	return nil
}

// NewSQLite opens the alert database, creating the file and directory if
// needed, and applies the schema.
func NewSQLite(dbPath string, logger *zap.SugaredLogger) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// In-memory databases need shared cache so both pools see the same data.
	actualPath := dbPath
	if dbPath == ":memory:" {
		actualPath = "file::memory:?cache=shared"
	}

	writeDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite write pool: %w", err)
	}
	if err := configureConnection(writeDB, dbPath); err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to configure write pool: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", actualPath)
	if err != nil {
		_ = writeDB.Close()
		return nil, fmt.Errorf("failed to open SQLite read pool: %w", err)
	}
	if err := configureConnection(readDB, dbPath); err != nil {
		_ = writeDB.Close()
		_ = readDB.Close()
		return nil, fmt.Errorf("failed to configure read pool: %w", err)
	}
	readDB.SetMaxOpenConns(10)

	s := &SQLite{
		WriteDB: writeDB,
		ReadDB:  readDB,
		Path:    dbPath,
		Logger:  logger,
	}

	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Infow("SQLite alert store ready", "path", dbPath)
	return s, nil
}

// Close closes both connection pools.
func (s *SQLite) Close() error {
	var firstErr error
	if err := s.WriteDB.Close(); err != nil {
		firstErr = err
	}
	if err := s.ReadDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// migrate applies the alert schema. Idempotent.
func (s *SQLite) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	alert_id TEXT NOT NULL,
	source TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	severity TEXT NOT NULL,
	category TEXT NOT NULL,
	tags TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	lifecycle_stage TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	triggered_at TIMESTAMP NOT NULL,
	acknowledged_at TIMESTAMP,
	resolved_at TIMESTAMP,
	acknowledged_by TEXT NOT NULL DEFAULT '',
	resolved_by TEXT NOT NULL DEFAULT '',
	resolution_comment TEXT NOT NULL DEFAULT '',
	context_data TEXT NOT NULL DEFAULT '{}',
	labels TEXT NOT NULL DEFAULT '{}',
	annotations TEXT NOT NULL DEFAULT '{}',
	updated_seq INTEGER NOT NULL DEFAULT 0,
	UNIQUE(alert_id, source)
);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_alerts_source_created ON alerts(source, created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
`
	_, err := s.WriteDB.Exec(schema)
	return err
}
