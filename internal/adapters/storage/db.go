package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SchemaVersion is recorded in PRAGMA user_version after InitDB.
const SchemaVersion = 1

// DSN builds the connection string with WAL, busy timeout and foreign keys enabled.
func DSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
}

// Open connects to the database file at path, checks it is reachable and ensures
// the schema exists.
// PRE: path is a writable file path (":memory:" only with a single connection)
// POST: Returns a pool ready for NewTimedDB; the caller closes it
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// WAL allows concurrent readers; writers serialise on busy_timeout.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables and uniqueness constraints exist; user_version = SchemaVersion
func InitDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The two UNIQUE indexes below are the concurrency-correctness mechanism:
	// slot_active_range for the no-duplicate-time-range rule and checkin_user_slot
	// for one check-in per member per class.
	schema := `
	CREATE TABLE IF NOT EXISTS day (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		date TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (tenant_id, date)
	);

	CREATE TABLE IF NOT EXISTS slot (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		modality_id TEXT NOT NULL,
		instructor_id TEXT NOT NULL DEFAULT '',
		day_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		tolerance_before INTEGER NOT NULL DEFAULT 0,
		tolerance_after INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		FOREIGN KEY (day_id) REFERENCES day(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS slot_active_range
		ON slot (tenant_id, day_id, start_time, end_time) WHERE active = 1;

	CREATE TABLE IF NOT EXISTS checkin (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		created_by_admin INTEGER NOT NULL DEFAULT 0,
		admin_id TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (slot_id) REFERENCES slot(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS checkin_user_slot ON checkin (user_id, slot_id);
	CREATE INDEX IF NOT EXISTS checkin_slot ON checkin (slot_id);

	CREATE TABLE IF NOT EXISTS plan (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		modality_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		value REAL NOT NULL,
		duration_days INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS enrollment (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		status TEXT NOT NULL,
		enrollment_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		has_payment INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (plan_id) REFERENCES plan(id)
	);

	CREATE INDEX IF NOT EXISTS enrollment_open ON enrollment (tenant_id, status);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY constraint failure.
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}

// InTx runs fn inside a transaction, committing on nil and rolling back otherwise.
// PRE: fn does not use db outside tx
// POST: either every statement in fn is applied or none is
func InTx(ctx context.Context, db SQLDB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// BoolToInt maps a Go bool onto SQLite's integer booleans.
func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
