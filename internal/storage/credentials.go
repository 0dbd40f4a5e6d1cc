package storage

import (
	"context"
	"database/sql"
	"fmt"

	"staff-ledger/internal/models"
)

// Credentials holds the queries behind the administrator credential store.
// Hashing is done by the caller.
type Credentials struct {
	db *DB
}

// NewCredentials returns the credential queries over db.
func NewCredentials(db *DB) *Credentials {
	return &Credentials{db: db}
}

// Count returns the number of credential rows.
func (r *Credentials) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return count, nil
}

// Create inserts a credential row.
func (r *Credentials) Create(ctx context.Context, c models.Credential) (*models.Credential, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO credentials (nickname, password_hash, security_question, answer_hash) VALUES (?, ?, ?, ?)`,
		c.Nickname, c.PasswordHash, c.SecurityQuestion, c.AnswerHash,
	)
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}
	return &c, nil
}

// ByNickname returns every credential row with the given nickname.
func (r *Credentials) ByNickname(ctx context.Context, nickname string) ([]models.Credential, error) {
	return r.query(ctx, `WHERE nickname = ?`, nickname)
}

// All returns every credential row.
func (r *Credentials) All(ctx context.Context) ([]models.Credential, error) {
	return r.query(ctx, ``)
}

// First returns the lowest-id credential row, or ErrNotFound.
func (r *Credentials) First(ctx context.Context) (*models.Credential, error) {
	all, err := r.query(ctx, `ORDER BY id ASC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNotFound
	}
	return &all[0], nil
}

// UpdatePasswordHash replaces the password hash of one row.
func (r *Credentials) UpdatePasswordHash(ctx context.Context, id int64, hash string) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx, `UPDATE credentials SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return false, fmt.Errorf("update password hash: %w", err)
	}
	return rowsChanged(res)
}

// DeleteAll removes every credential row and returns how many were removed.
func (r *Credentials) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM credentials`)
	if err != nil {
		return 0, fmt.Errorf("delete credentials: %w", err)
	}
	return res.RowsAffected()
}

func (r *Credentials) query(ctx context.Context, tail string, args ...any) ([]models.Credential, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT id, nickname, password_hash, security_question, answer_hash FROM credentials `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	defer rows.Close()

	var out []models.Credential
	for rows.Next() {
		var (
			c        models.Credential
			question sql.NullString
			answer   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Nickname, &c.PasswordHash, &question, &answer); err != nil {
			return nil, fmt.Errorf("query credentials: %w", err)
		}
		c.SecurityQuestion = question.String
		c.AnswerHash = answer.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query credentials: %w", err)
	}
	return out, nil
}
