// Package logger builds the structured logger shared by every component.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"staff-ledger/internal/config"
)

// Setup returns a JSON slog.Logger writing to w, or to a rotating file when
// cfg.File is set. The returned closer releases the file; it is a no-op otherwise.
func Setup(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	switch {
	case cfg.File != "":
		f, err := openLedgerLog(cfg)
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	case w == nil:
		w = os.Stderr
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(newCredentialHandler(handler)), closer, nil
}

// openLedgerLog opens cfg.File for appending and rotates it once it reaches
// MaxSizeMB, keeping MaxFiles gzip-compressed generations.
func openLedgerLog(cfg config.LoggingConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("log file %s: %w", cfg.File, err)
	}
	defaults := config.DefaultConfig().Logging
	f := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   true,
	}
	if f.MaxSize <= 0 {
		f.MaxSize = defaults.MaxSizeMB
	}
	if f.MaxBackups <= 0 {
		f.MaxBackups = defaults.MaxFiles
	}
	return f, nil
}

// ParseLevel maps a config level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
