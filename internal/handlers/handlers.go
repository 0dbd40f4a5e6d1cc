package handlers

import (
	"context"
	"errors"
	"log/slog"

	"staff-ledger/internal/auth"
	"staff-ledger/internal/maintenance"
	"staff-ledger/internal/metrics"
	"staff-ledger/internal/models"
	"staff-ledger/internal/storage"
)

// InvalidCredentialsMessage is reported when maintenance is requested with bad credentials.
const InvalidCredentialsMessage = "Invalid credentials."

// Error is the only error type that crosses the boundary. Message is safe to
// show to a user; Err keeps the cause for logging and errors.Is.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Options wires optional collaborators into Handlers.
type Options struct {
	Logger          *slog.Logger
	Collector       *metrics.Collector
	MetricsTextfile string
}

// Handlers is the call surface the UI layer talks to. Business conditions
// (duplicates, missing rows, wrong passwords) come back as values; only
// validation and storage failures are returned as *Error.
type Handlers struct {
	store  *storage.Store
	creds  *auth.CredentialStore
	job    *maintenance.Job
	logger *slog.Logger

	collector       *metrics.Collector
	metricsTextfile string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *storage.Store, creds *auth.CredentialStore, job *maintenance.Job, opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handlers{
		store:           store,
		creds:           creds,
		job:             job,
		logger:          opts.Logger,
		collector:       opts.Collector,
		metricsTextfile: opts.MetricsTextfile,
	}
}

// fail logs the cause and returns a generic message for op.
func (h *Handlers) fail(op string, err error) error {
	h.logger.Error(op+" failed", slog.Any("error", err))
	return &Error{Message: "Could not " + op + ". Please try again.", Err: err}
}

// Employees

// AddEmployee registers an employee. It returns nil without error when the
// national id is already taken.
func (h *Handlers) AddEmployee(ctx context.Context, in models.EmployeeInput) (*models.Employee, error) {
	if err := ValidateEmployee(in); err != nil {
		return nil, err
	}
	in = normalizeEmployee(in)
	taken, err := h.store.Employees.NationalIDExists(ctx, in.NationalID, nil)
	if err != nil {
		return nil, h.fail("add employee", err)
	}
	if taken {
		return nil, nil
	}
	e, err := h.store.Employees.Create(ctx, in)
	if err != nil {
		return nil, h.fail("add employee", err)
	}
	h.logger.Info("employee created", slog.Int64("employee_id", e.ID))
	return e, nil
}

func (h *Handlers) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	list, err := h.store.Employees.ListActive(ctx)
	if err != nil {
		return nil, h.fail("list employees", err)
	}
	return list, nil
}

func (h *Handlers) ListInactiveEmployees(ctx context.Context) ([]models.Employee, error) {
	list, err := h.store.Employees.ListInactive(ctx)
	if err != nil {
		return nil, h.fail("list inactive employees", err)
	}
	return list, nil
}

// GetEmployee returns nil when the employee is missing or inactive.
func (h *Handlers) GetEmployee(ctx context.Context, id int64) (*models.Employee, error) {
	e, err := h.store.Employees.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, h.fail("load employee", err)
	}
	return e, nil
}

// UpdateEmployee reports false when no row matched or the new national id
// belongs to another employee.
func (h *Handlers) UpdateEmployee(ctx context.Context, id int64, in models.EmployeeInput) (bool, error) {
	if err := ValidateEmployee(in); err != nil {
		return false, err
	}
	in = normalizeEmployee(in)
	taken, err := h.store.Employees.NationalIDExists(ctx, in.NationalID, &id)
	if err != nil {
		return false, h.fail("update employee", err)
	}
	if taken {
		return false, nil
	}
	ok, err := h.store.Employees.Update(ctx, id, in)
	if err != nil {
		return false, h.fail("update employee", err)
	}
	return ok, nil
}

// DeleteEmployee soft-deletes the employee.
func (h *Handlers) DeleteEmployee(ctx context.Context, id int64) (bool, error) {
	ok, err := h.store.Employees.SoftDelete(ctx, id)
	if err != nil {
		return false, h.fail("delete employee", err)
	}
	if ok {
		h.logger.Info("employee deactivated", slog.Int64("employee_id", id))
	}
	return ok, nil
}

func (h *Handlers) ReactivateEmployee(ctx context.Context, id int64) (bool, error) {
	ok, err := h.store.Employees.Reactivate(ctx, id)
	if err != nil {
		return false, h.fail("reactivate employee", err)
	}
	return ok, nil
}

// CheckNationalID reports whether nationalID is taken by an employee other
// than excludeID.
func (h *Handlers) CheckNationalID(ctx context.Context, nationalID int64, excludeID *int64) (bool, error) {
	exists, err := h.store.Employees.NationalIDExists(ctx, nationalID, excludeID)
	if err != nil {
		return false, h.fail("check national id", err)
	}
	return exists, nil
}

// Expenses

// AddExpense returns nil when the employee is missing or inactive.
func (h *Handlers) AddExpense(ctx context.Context, in models.ExpenseInput) (*models.Expense, error) {
	if err := ValidateExpense(in); err != nil {
		return nil, err
	}
	e, err := h.store.Expenses.Create(ctx, in)
	if errors.Is(err, storage.ErrEmployeeNotActive) {
		return nil, nil
	}
	if err != nil {
		return nil, h.fail("add expense", err)
	}
	return e, nil
}

// AddExpenseBatch stores every item or none of them.
func (h *Handlers) AddExpenseBatch(ctx context.Context, items []models.ExpenseInput) (bool, error) {
	for i := range items {
		if err := ValidateExpense(items[i]); err != nil {
			return false, err
		}
	}
	n, err := h.store.Expenses.CreateBatch(ctx, items)
	if err != nil {
		return false, h.fail("save expense batch", err)
	}
	h.logger.Info("expense batch stored", slog.Int("count", n))
	return true, nil
}

// AddExpenseText parses "Concept: amount" entries and stores them as one batch
// for employeeID on date with the given route. It returns how many were stored.
func (h *Handlers) AddExpenseText(ctx context.Context, employeeID int64, date, route, text string) (int, error) {
	items, err := ParseBatchText(employeeID, date, route, text)
	if err != nil {
		return 0, err
	}
	if _, err := h.AddExpenseBatch(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (h *Handlers) ListExpenses(ctx context.Context, employeeID *int64) ([]models.Expense, error) {
	list, err := h.store.Expenses.List(ctx, employeeID)
	if err != nil {
		return nil, h.fail("list expenses", err)
	}
	return list, nil
}

func (h *Handlers) UpdateExpense(ctx context.Context, id int64, amount float64, description, date, route string) (bool, error) {
	if err := ValidateExpense(models.ExpenseInput{Amount: amount, Description: description, Date: date, Route: route}); err != nil {
		return false, err
	}
	ok, err := h.store.Expenses.Update(ctx, id, amount, description, date, route)
	if err != nil {
		return false, h.fail("update expense", err)
	}
	return ok, nil
}

func (h *Handlers) DeleteExpense(ctx context.Context, id int64) (bool, error) {
	ok, err := h.store.Expenses.Delete(ctx, id)
	if err != nil {
		return false, h.fail("delete expense", err)
	}
	return ok, nil
}

func (h *Handlers) TotalExpenses(ctx context.Context, employeeID int64) (float64, error) {
	total, err := h.store.Expenses.TotalForEmployee(ctx, employeeID)
	if err != nil {
		return 0, h.fail("sum expenses", err)
	}
	return total, nil
}

// Credentials

func (h *Handlers) UserExists(ctx context.Context) (bool, error) {
	ok, err := h.creds.Exists(ctx)
	if err != nil {
		return false, h.fail("check user", err)
	}
	return ok, nil
}

func (h *Handlers) RegisterUser(ctx context.Context, nickname, password, question, answer string) (bool, error) {
	if err := ValidateRegistration(nickname, password, question, answer); err != nil {
		return false, err
	}
	ok, err := h.creds.Register(ctx, nickname, password, question, answer)
	if err != nil {
		return false, h.fail("register user", err)
	}
	return ok, nil
}

func (h *Handlers) Login(ctx context.Context, nickname, password string) (bool, error) {
	ok, err := h.creds.Login(ctx, nickname, password)
	if err != nil {
		return false, h.fail("log in", err)
	}
	if !ok {
		h.logger.Warn("login rejected", slog.String("nickname", nickname))
	}
	return ok, nil
}

// SecurityQuestion returns the recovery question; ok is false when no user exists.
func (h *Handlers) SecurityQuestion(ctx context.Context) (question string, ok bool, err error) {
	question, ok, err = h.creds.SecurityQuestion(ctx)
	if err != nil {
		return "", false, h.fail("load security question", err)
	}
	return question, ok, nil
}

func (h *Handlers) VerifyRecovery(ctx context.Context, answer string) (bool, error) {
	ok, err := h.creds.VerifyRecoveryAnswer(ctx, answer)
	if err != nil {
		return false, h.fail("verify answer", err)
	}
	return ok, nil
}

// ResetPassword reports false when the store does not hold exactly one user.
func (h *Handlers) ResetPassword(ctx context.Context, newPassword string) (bool, error) {
	if err := validatePassword(newPassword); err != nil {
		return false, err
	}
	ok, err := h.creds.ResetPassword(ctx, newPassword)
	if errors.Is(err, auth.ErrNotSingleCredential) {
		h.logger.Warn("password reset refused", slog.Any("error", err))
		return false, nil
	}
	if err != nil {
		return false, h.fail("reset password", err)
	}
	return ok, nil
}

// ResetUsers removes every credential so setup can run again.
func (h *Handlers) ResetUsers(ctx context.Context) (int64, error) {
	n, err := h.creds.ResetAll(ctx)
	if err != nil {
		return 0, h.fail("reset users", err)
	}
	return n, nil
}

// Maintenance

// RunMaintenance verifies the credentials and then runs the maintenance job.
func (h *Handlers) RunMaintenance(ctx context.Context, nickname, password string) maintenance.Result {
	ok, err := h.creds.Login(ctx, nickname, password)
	if err != nil {
		h.logger.Error("maintenance login failed", slog.Any("error", err))
		return maintenance.Result{Success: false, Message: maintenance.FailureMessage}
	}
	if !ok {
		h.logger.Warn("maintenance rejected", slog.String("nickname", nickname))
		return maintenance.Result{Success: false, Message: InvalidCredentialsMessage}
	}

	res := h.job.Run(ctx)
	if h.collector != nil && h.metricsTextfile != "" {
		if err := h.collector.WriteTextfile(h.metricsTextfile); err != nil {
			h.logger.Warn("metrics export failed", slog.Any("error", err))
		}
	}
	return res
}
