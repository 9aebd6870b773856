// ABOUTME: SQLite implementation of the kioskgate store interfaces using modernc.org/sqlite
// ABOUTME: Provides device/user/assignment/event persistence with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the store interfaces using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single connection so the pragmas below apply to every statement and
	// concurrent writers queue instead of surfacing SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			employee_id   INTEGER PRIMARY KEY,
			username      TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL,

			CHECK (role IN ('admin', 'operator'))
		);

		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

		CREATE TABLE IF NOT EXISTS devices (
			device_id         INTEGER PRIMARY KEY AUTOINCREMENT,
			device_uuid       TEXT NOT NULL UNIQUE,
			credential_hash   TEXT,
			device_name       TEXT,
			assigned_site     TEXT,
			registered_by     INTEGER REFERENCES users(employee_id),
			status            TEXT NOT NULL DEFAULT 'pending',
			app_version       TEXT,
			os_version        TEXT,
			last_update_check TEXT NOT NULL,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL,

			CHECK (status IN ('pending', 'active', 'rejected', 'revoked'))
		);

		CREATE INDEX IF NOT EXISTS idx_devices_status ON devices(status);
		CREATE INDEX IF NOT EXISTS idx_devices_uuid ON devices(device_uuid);

		CREATE TABLE IF NOT EXISTS device_assignments (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id   INTEGER NOT NULL REFERENCES devices(device_id) ON DELETE CASCADE,
			employee_id INTEGER NOT NULL REFERENCES users(employee_id) ON DELETE CASCADE,
			assigned_by INTEGER REFERENCES users(employee_id),
			assigned_at TEXT NOT NULL,

			UNIQUE(device_id, employee_id)
		);

		CREATE INDEX IF NOT EXISTS idx_device_assignments_device ON device_assignments(device_id);
		CREATE INDEX IF NOT EXISTS idx_device_assignments_employee ON device_assignments(employee_id);

		CREATE TABLE IF NOT EXISTS device_events (
			event_id    TEXT PRIMARY KEY,
			device_id   INTEGER,
			device_uuid TEXT NOT NULL,
			actor_id    INTEGER,
			event_type  TEXT NOT NULL,
			ts          TEXT NOT NULL,
			detail_json TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_device_events_device ON device_events(device_id);
		CREATE INDEX IF NOT EXISTS idx_device_events_ts ON device_events(ts DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Interface conformance checks.
var (
	_ DeviceStore     = (*SQLiteStore)(nil)
	_ UserStore       = (*SQLiteStore)(nil)
	_ AssignmentStore = (*SQLiteStore)(nil)
	_ AuditStore      = (*SQLiteStore)(nil)
)
