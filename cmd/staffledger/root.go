package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"staff-ledger/internal/auth"
	"staff-ledger/internal/config"
	"staff-ledger/internal/handlers"
	"staff-ledger/internal/logger"
	"staff-ledger/internal/maintenance"
	"staff-ledger/internal/metrics"
	"staff-ledger/internal/storage"

	"github.com/spf13/cobra"
)

type globals struct {
	DataDir    string
	ConfigPath string
	JSON       bool

	env    map[string]string
	prompt *prompter
	out    io.Writer
	errOut io.Writer
}

// app is everything a command needs once the data directory is resolved.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.Store
	handlers *handlers.Handlers

	logCloser io.Closer
}

// NewRootCommand builds the CLI. A nil env reads the process environment.
func NewRootCommand(in io.Reader, out, errOut io.Writer, env map[string]string) *cobra.Command {
	g := &globals{
		env:    env,
		prompt: newPrompter(in, errOut),
		out:    out,
		errOut: errOut,
	}

	cmd := &cobra.Command{
		Use:           "staffledger",
		Short:         "Employee and expense bookkeeping",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitCodeUsage, Err: err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.DataDir, "data-dir", "", "Directory holding the database, backups and config.toml")
	pf.StringVar(&g.ConfigPath, "config", "", "Path to config.toml (default <data-dir>/config.toml)")
	pf.BoolVar(&g.JSON, "json", false, "Print results as JSON")

	cmd.AddCommand(newEmployeeCommand(g))
	cmd.AddCommand(newExpenseCommand(g))
	cmd.AddCommand(newSummaryCommand(g))
	cmd.AddCommand(newUserCommand(g))
	cmd.AddCommand(newMaintenanceCommand(g))
	return cmd
}

func openApp(g *globals) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: g.ConfigPath,
		DataDir:    g.DataDir,
		Env:        g.env,
	})
	if err != nil {
		return nil, err
	}

	log, closer, err := logger.Setup(cfg.Logging, g.errOut)
	if err != nil {
		return nil, fmt.Errorf("set up logging: %w", err)
	}

	store, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	collector := metrics.NewCollector()
	job := maintenance.NewJob(store, maintenance.Options{
		BackupDir:      cfg.BackupDir(),
		RetentionYears: cfg.Maintenance.RetentionYears,
		Logger:         log,
		Recorder:       collector,
	})
	h := handlers.NewHandlers(store, auth.NewCredentialStore(store.Credentials, log), job, handlers.Options{
		Logger:          log,
		Collector:       collector,
		MetricsTextfile: cfg.Metrics.Textfile,
	})

	log.Debug("storage opened", slog.String("path", cfg.DatabasePath()))
	return &app{cfg: cfg, logger: log, store: store, handlers: h, logCloser: closer}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if cerr := a.logCloser.Close(); err == nil {
		err = cerr
	}
	return err
}

// withApp opens storage for the duration of fn.
func withApp(cmd *cobra.Command, g *globals, fn func(context.Context, *app) error) error {
	a, err := openApp(g)
	if err != nil {
		return mapCommandError(err)
	}
	defer a.Close()
	return mapCommandError(fn(cmd.Context(), a))
}

// emit prints v as JSON when --json is set and calls text otherwise.
func (g *globals) emit(v any, text func(io.Writer) error) error {
	if g.JSON {
		enc := json.NewEncoder(g.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(g.out)
}
