package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staff-ledger/internal/models"
)

const employeeColumns = `id, national_id, given_name, family_name, address, phone, age, registered_at, active, deactivated_at`

// Employees is the employee repository.
type Employees struct {
	db *DB
	// Now stamps registration and deactivation times.
	Now func() time.Time
}

// NewEmployees returns an employee repository over db.
func NewEmployees(db *DB) *Employees {
	return &Employees{db: db, Now: time.Now}
}

// Create inserts a new active employee registered now.
func (r *Employees) Create(ctx context.Context, in models.EmployeeInput) (*models.Employee, error) {
	registeredAt := r.Now().UTC()
	res, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO employees (national_id, given_name, family_name, address, phone, age, registered_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		in.NationalID, in.GivenName, in.FamilyName, in.Address, in.Phone, in.Age, fmtTime(registeredAt),
	)
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	return &models.Employee{
		ID:           id,
		NationalID:   in.NationalID,
		GivenName:    in.GivenName,
		FamilyName:   in.FamilyName,
		Address:      in.Address,
		Phone:        in.Phone,
		Age:          in.Age,
		RegisteredAt: registeredAt,
		Active:       true,
	}, nil
}

// ListActive returns active employees ordered by given name.
func (r *Employees) ListActive(ctx context.Context) ([]models.Employee, error) {
	return r.list(ctx, true)
}

// ListInactive returns soft-deleted employees ordered by given name.
func (r *Employees) ListInactive(ctx context.Context) ([]models.Employee, error) {
	return r.list(ctx, false)
}

func (r *Employees) list(ctx context.Context, active bool) ([]models.Employee, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE active = ? ORDER BY given_name ASC, id ASC`,
		boolToInt(active),
	)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	employees := []models.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// Get returns the active employee with id, or ErrNotFound.
func (r *Employees) Get(ctx context.Context, id int64) (*models.Employee, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ? AND active = 1`, id)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee %d: %w", id, err)
	}
	return e, nil
}

// Update overwrites every mutable field. It reports whether a row matched.
func (r *Employees) Update(ctx context.Context, id int64, in models.EmployeeInput) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE employees
		SET given_name = ?, family_name = ?, address = ?, phone = ?, age = ?, national_id = ?
		WHERE id = ?`,
		in.GivenName, in.FamilyName, in.Address, in.Phone, in.Age, in.NationalID, id,
	)
	if err != nil {
		return false, fmt.Errorf("update employee %d: %w", id, err)
	}
	return rowsChanged(res)
}

// SoftDelete marks the employee inactive and stamps the deactivation time.
// Expenses are left in place.
func (r *Employees) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE employees SET active = 0, deactivated_at = ? WHERE id = ?`,
		fmtTime(r.Now()), id,
	)
	if err != nil {
		return false, fmt.Errorf("soft delete employee %d: %w", id, err)
	}
	return rowsChanged(res)
}

// Reactivate reverses SoftDelete.
func (r *Employees) Reactivate(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE employees SET active = 1, deactivated_at = NULL WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("reactivate employee %d: %w", id, err)
	}
	return rowsChanged(res)
}

// HardDelete removes the employee row; the foreign key cascade removes its expenses.
func (r *Employees) HardDelete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM employees WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete employee %d: %w", id, err)
	}
	return rowsChanged(res)
}

// NationalIDExists reports whether any employee, active or not, holds nationalID.
// When excludeID is non-nil that employee is not counted.
func (r *Employees) NationalIDExists(ctx context.Context, nationalID int64, excludeID *int64) (bool, error) {
	query := `SELECT COUNT(*) FROM employees WHERE national_id = ?`
	args := []any{nationalID}
	if excludeID != nil {
		query += ` AND id != ?`
		args = append(args, *excludeID)
	}

	var count int
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("check national id: %w", err)
	}
	return count > 0, nil
}

// PruneInactive deletes inactive employees deactivated before cutoff and
// returns how many were removed.
func (r *Employees) PruneInactive(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM employees WHERE active = 0 AND deactivated_at IS NOT NULL AND deactivated_at < ?`,
		fmtTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune inactive employees: %w", err)
	}
	return res.RowsAffected()
}

// employeeActive is a point lookup on the primary key.
func (db *DB) employeeActive(ctx context.Context, id int64) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx,
		`SELECT 1 FROM employees WHERE id = ? AND active = 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(s rowScanner) (*models.Employee, error) {
	var (
		e             models.Employee
		nationalID    sql.NullInt64
		familyName    sql.NullString
		address       sql.NullString
		phone         sql.NullInt64
		age           sql.NullInt64
		registeredAt  string
		active        int
		deactivatedAt sql.NullString
	)
	if err := s.Scan(&e.ID, &nationalID, &e.GivenName, &familyName, &address, &phone, &age,
		&registeredAt, &active, &deactivatedAt); err != nil {
		return nil, err
	}

	var err error
	if e.RegisteredAt, err = parseTime(registeredAt); err != nil {
		return nil, err
	}
	if e.DeactivatedAt, err = parseNullableTime(deactivatedAt); err != nil {
		return nil, err
	}
	e.NationalID = nationalID.Int64
	e.FamilyName = familyName.String
	e.Address = address.String
	e.Phone = phone.Int64
	e.Age = int(age.Int64)
	e.Active = active != 0
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
