package storage

import (
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		national_id INTEGER,
		given_name TEXT NOT NULL,
		family_name TEXT,
		address TEXT,
		phone INTEGER,
		age INTEGER,
		registered_at TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		deactivated_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id INTEGER NOT NULL,
		amount REAL NOT NULL,
		description TEXT NOT NULL,
		date TEXT NOT NULL,
		category TEXT,
		route TEXT,
		FOREIGN KEY (employee_id) REFERENCES employees(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_employee_id ON expenses(employee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		nickname TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		security_question TEXT,
		answer_hash TEXT
	)`,
}

type column struct {
	name string
	decl string
}

// additiveColumns lists, per table, the columns added after the first release.
// Each is added with ALTER TABLE when an older file lacks it.
var additiveColumns = []struct {
	table   string
	columns []column
}{
	{"employees", []column{
		{"national_id", "INTEGER"},
		{"family_name", "TEXT"},
		{"address", "TEXT"},
		{"phone", "INTEGER"},
		{"age", "INTEGER"},
		{"deactivated_at", "TEXT"},
	}},
	{"expenses", []column{
		{"category", "TEXT"},
		{"route", "TEXT"},
	}},
	{"credentials", []column{
		{"security_question", "TEXT"},
		{"answer_hash", "TEXT"},
	}},
}

func (db *DB) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (db *DB) ensureColumns() error {
	for _, t := range additiveColumns {
		existing, err := db.tableColumns(t.table)
		if err != nil {
			return err
		}
		for _, c := range t.columns {
			if _, ok := existing[c.name]; ok {
				continue
			}
			stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, t.table, c.name, c.decl)
			if _, err := db.conn.Exec(stmt); err != nil {
				return fmt.Errorf("ensure column %s.%s: %w", t.table, c.name, err)
			}
		}
	}
	return nil
}

func (db *DB) tableColumns(table string) (map[string]struct{}, error) {
	rows, err := db.conn.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("table info %s: %w", table, err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}
