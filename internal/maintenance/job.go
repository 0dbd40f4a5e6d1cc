// Package maintenance runs the periodic backup, retention pruning and
// compaction of the ledger database as one sequence.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"staff-ledger/internal/metrics"
	"staff-ledger/internal/models"
	"staff-ledger/internal/storage"
)

// FailureMessage is the only text a failed run reports to its caller.
const FailureMessage = "Critical failure during maintenance."

const defaultRetentionYears = 1

// State is a step of a maintenance run.
type State int

const (
	Idle State = iota
	BackingUp
	PruningExpenses
	PruningEmployees
	Compacting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BackingUp:
		return "backing-up"
	case PruningExpenses:
		return "pruning-expenses"
	case PruningEmployees:
		return "pruning-employees"
	case Compacting:
		return "compacting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is what a run reports across the boundary.
type Result struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	BackupPath       string `json:"backup_path,omitempty"`
	ExpensesRemoved  int64  `json:"expenses_removed"`
	EmployeesRemoved int64  `json:"employees_removed"`
}

// Options configures a Job.
type Options struct {
	BackupDir      string
	RetentionYears int
	Logger         *slog.Logger
	Recorder       metrics.Recorder
}

// Job performs maintenance against one store. Callers authenticate before Run.
type Job struct {
	store          *storage.Store
	backupDir      string
	retentionYears int
	logger         *slog.Logger
	recorder       metrics.Recorder

	// Now is the clock retention cutoffs and backup names are computed from.
	Now func() time.Time

	mu    sync.Mutex
	state State
}

// NewJob returns an idle maintenance job.
func NewJob(store *storage.Store, opts Options) *Job {
	if opts.RetentionYears <= 0 {
		opts.RetentionYears = defaultRetentionYears
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.Nop{}
	}
	return &Job{
		store:          store,
		backupDir:      opts.BackupDir,
		retentionYears: opts.RetentionYears,
		logger:         opts.Logger,
		recorder:       opts.Recorder,
		Now:            time.Now,
		state:          Idle,
	}
}

// State returns the step the job is in, or the outcome of the last run.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Run executes backup, expense pruning, employee pruning and compaction in
// order. The first failing step aborts the rest; completed steps are not undone.
func (j *Job) Run(ctx context.Context) Result {
	runID := uuid.NewString()
	log := j.logger.With(slog.String("run_id", runID))
	start := time.Now()

	res, err := j.run(ctx, log)
	if err != nil {
		j.setState(Failed)
		j.recorder.RecordRun(false)
		log.Error("maintenance failed", slog.Any("error", err),
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())))
		return Result{Success: false, Message: FailureMessage}
	}

	j.setState(Succeeded)
	j.recorder.RecordRun(true)
	log.Info("maintenance completed",
		slog.String("backup", res.BackupPath),
		slog.Int64("expenses_removed", res.ExpensesRemoved),
		slog.Int64("employees_removed", res.EmployeesRemoved),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res
}

func (j *Job) run(ctx context.Context, log *slog.Logger) (Result, error) {
	j.setState(BackingUp)
	backupPath, err := j.Backup(ctx)
	if err != nil {
		return Result{}, err
	}
	log.Debug("backup written", slog.String("path", backupPath))

	j.setState(PruningExpenses)
	expenses, err := j.PruneExpenses(ctx)
	if err != nil {
		return Result{}, err
	}

	j.setState(PruningEmployees)
	employees, err := j.PruneInactiveEmployees(ctx)
	if err != nil {
		return Result{}, err
	}

	j.setState(Compacting)
	if err := j.Compact(ctx); err != nil {
		return Result{}, err
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf(
			"Maintenance completed. Backup created: %s. Removed %d old expense records and %d inactive employees; storage compacted.",
			filepath.Base(backupPath), expenses, employees),
		BackupPath:       backupPath,
		ExpensesRemoved:  expenses,
		EmployeesRemoved: employees,
	}, nil
}

// Backup writes a snapshot of the database into the backup directory and
// returns its path.
func (j *Job) Backup(ctx context.Context) (string, error) {
	if j.backupDir == "" {
		return "", errors.New("backup: no backup directory configured")
	}
	if err := os.MkdirAll(j.backupDir, 0o700); err != nil {
		return "", fmt.Errorf("backup: create directory: %w", err)
	}

	path, err := j.backupPath()
	if err != nil {
		return "", err
	}
	if err := j.store.Backup(ctx, path); err != nil {
		return "", err
	}

	if info, err := os.Stat(path); err == nil {
		j.recorder.RecordBackupBytes(info.Size())
	}
	return path, nil
}

// backupPath names the file after the current time, with a numeric suffix
// when a file of that name already exists.
func (j *Job) backupPath() (string, error) {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(j.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	base := "backup-" + stamp
	for i := 0; i < 100; i++ {
		name := base + ".db"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.db", base, i)
		}
		path := filepath.Join(j.backupDir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("backup: stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("backup: too many backups named %s", base)
}

// PruneExpenses deletes expenses dated before the retention cutoff. The
// cutoff is a UTC calendar date, matching SQLite's date('now').
func (j *Job) PruneExpenses(ctx context.Context) (int64, error) {
	cutoff := j.Now().UTC().AddDate(-j.retentionYears, 0, 0).Format(models.DateLayout)
	n, err := j.store.Expenses.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	j.recorder.RecordPruned("expenses", n)
	return n, nil
}

// PruneInactiveEmployees deletes employees deactivated before the retention
// cutoff; their expenses go with them through the foreign key cascade.
func (j *Job) PruneInactiveEmployees(ctx context.Context) (int64, error) {
	n, err := j.store.Employees.PruneInactive(ctx, j.Now().AddDate(-j.retentionYears, 0, 0))
	if err != nil {
		return 0, err
	}
	j.recorder.RecordPruned("employees", n)
	return n, nil
}

// Compact reclaims free space in the database file.
func (j *Job) Compact(ctx context.Context) error {
	return j.store.Compact(ctx)
}
