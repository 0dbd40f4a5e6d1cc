package main

import (
	"errors"
	"fmt"

	"staff-ledger/internal/config"
	"staff-ledger/internal/handlers"
)

const (
	ExitCodeSuccess    = 0
	ExitCodeGeneric    = 1
	ExitCodeUsage      = 2
	ExitCodeNotFound   = 3
	ExitCodeConflict   = 4
	ExitCodeAuthFailed = 5
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func exitErrorf(code int, format string, args ...any) error {
	return &ExitError{Code: code, Err: fmt.Errorf(format, args...)}
}

func usageErrorf(format string, args ...any) error {
	return exitErrorf(ExitCodeUsage, format, args...)
}

// mapCommandError assigns an exit code to errors that do not carry one.
func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	if errors.Is(err, handlers.ErrInvalidInput) || errors.Is(err, config.ErrInvalidConfig) {
		return &ExitError{Code: ExitCodeUsage, Err: err}
	}
	return &ExitError{Code: ExitCodeGeneric, Err: err}
}
