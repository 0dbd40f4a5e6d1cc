package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrEmployeeNotActive is returned when an expense targets a missing or inactive employee.
	ErrEmployeeNotActive = errors.New("storage: employee not found or inactive")
)

// timestampLayout is fixed width so that text order equals time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB owns the single connection to the ledger database.
type DB struct {
	conn *sql.DB
	path string
}

// NewDB opens (or creates) the database at path and brings its schema up to date.
func NewDB(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("open storage: empty path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("open storage: create parent dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	// One connection for the process: pragmas and in-memory databases live on it.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.configure(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := db.ensureSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := db.ensureColumns(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := db.importLegacy(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) configure() error {
	pragmas := []string{
		`PRAGMA foreign_keys=ON`,
		`PRAGMA busy_timeout=5000`,
	}
	for _, stmt := range pragmas {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("configure sqlite %q: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Path returns the file the handle was opened on.
func (db *DB) Path() string {
	return db.path
}

// Backup writes a transactionally consistent copy of the database to dst.
// dst must not exist yet.
func (db *DB) Backup(ctx context.Context, dst string) error {
	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup to %s: %w", dst, err)
	}
	return nil
}

// Compact rebuilds the database file, reclaiming free pages.
func (db *DB) Compact(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	return nil
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
// fn must use tx exclusively; the pool has a single connection.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, raw)
	if err == nil {
		return t, nil
	}
	// Older rows carry RFC 3339 with millisecond precision.
	t, err = time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}

func parseNullableTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
