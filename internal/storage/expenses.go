package storage

import (
	"context"
	"database/sql"
	"fmt"

	"staff-ledger/internal/models"
)

const expenseColumns = `id, employee_id, amount, description, date, category, route`

// Expenses is the expense repository.
type Expenses struct {
	db *DB
}

// NewExpenses returns an expense repository over db.
func NewExpenses(db *DB) *Expenses {
	return &Expenses{db: db}
}

// Create inserts one expense for an active employee.
// It returns ErrEmployeeNotActive without inserting when the employee is
// missing or soft-deleted.
func (r *Expenses) Create(ctx context.Context, in models.ExpenseInput) (*models.Expense, error) {
	ok, err := r.db.employeeActive(ctx, in.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	if !ok {
		return nil, ErrEmployeeNotActive
	}

	res, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO expenses (employee_id, amount, description, date, category, route) VALUES (?, ?, ?, ?, ?, ?)`,
		in.EmployeeID, in.Amount, in.Description, in.Date, nullString(in.Category), in.Route,
	)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}

	return &models.Expense{
		ID:          id,
		EmployeeID:  in.EmployeeID,
		Amount:      in.Amount,
		Description: in.Description,
		Date:        in.Date,
		Category:    in.Category,
		Route:       in.Route,
	}, nil
}

// CreateBatch inserts every item in one transaction. Either all rows are
// stored or none are. Employee existence is not checked per row.
func (r *Expenses) CreateBatch(ctx context.Context, items []models.ExpenseInput) (int, error) {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO expenses (employee_id, amount, description, date, category, route) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, it := range items {
			if _, err := stmt.ExecContext(ctx, it.EmployeeID, it.Amount, it.Description, it.Date, nullString(it.Category), it.Route); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create expense batch: %w", err)
	}
	return len(items), nil
}

// Update overwrites amount, description, date and route.
func (r *Expenses) Update(ctx context.Context, id int64, amount float64, description, date, route string) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, description = ?, date = ?, route = ? WHERE id = ?`,
		amount, description, date, route, id,
	)
	if err != nil {
		return false, fmt.Errorf("update expense %d: %w", id, err)
	}
	return rowsChanged(res)
}

// List returns expenses ordered by date descending, restricted to one
// employee when employeeID is non-nil.
func (r *Expenses) List(ctx context.Context, employeeID *int64) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses`
	var args []any
	if employeeID != nil {
		query += ` WHERE employee_id = ?`
		args = append(args, *employeeID)
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var (
			e        models.Expense
			category sql.NullString
			route    sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Amount, &e.Description, &e.Date, &category, &route); err != nil {
			return nil, fmt.Errorf("list expenses: %w", err)
		}
		e.Category = category.String
		e.Route = route.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Delete removes an expense permanently.
func (r *Expenses) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete expense %d: %w", id, err)
	}
	return rowsChanged(res)
}

// TotalForEmployee sums the employee's expense amounts; zero when there are none.
func (r *Expenses) TotalForEmployee(ctx context.Context, employeeID int64) (float64, error) {
	var total float64
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0.0) FROM expenses WHERE employee_id = ?`, employeeID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total expenses for employee %d: %w", employeeID, err)
	}
	return total, nil
}

// nullString stores an empty category as NULL, the way untagged rows have it.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// PruneBefore deletes expenses dated strictly before date (YYYY-MM-DD).
func (r *Expenses) PruneBefore(ctx context.Context, date string) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM expenses WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("prune expenses: %w", err)
	}
	return res.RowsAffected()
}
