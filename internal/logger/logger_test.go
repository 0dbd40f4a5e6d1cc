package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"staff-ledger/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := Setup(config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Debug("hidden")
	log.Info("employee created", slog.Int64("employee_id", 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "employee created", entry["msg"])
	assert.EqualValues(t, 7, entry["employee_id"])
}

func TestRedactsCredentialAttributes(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := Setup(config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	log.With(slog.String("answer", "rex")).Info("login",
		slog.String("nickname", "carlos"),
		slog.String("password", "hunter2"),
		slog.Group("req", slog.String("new_password", "x")),
		slog.String("row", "scrypt$16384$8$1$00ff$abcd"),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "c***", entry["nickname"])
	assert.Equal(t, redacted, entry["password"])
	assert.Equal(t, redacted, entry["answer"])
	assert.Equal(t, redacted, entry["row"])
	assert.Equal(t, map[string]any{"new_password": redacted}, entry["req"])
	assert.NotContains(t, buf.String(), "carlos")
}

func TestRedactsGroupNamedAfterCredential(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := Setup(config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	log.Info("reset", slog.Group("password", slog.String("old", "hunter2"), slog.String("new", "s3cret")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, redacted, entry["password"])
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "s3cret")
}

func TestSetupRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "ledger.log")
	log, closer, err := Setup(config.LoggingConfig{Level: "info", File: file}, nil)
	require.NoError(t, err)

	log.Info("hello")
	require.NoError(t, closer.Close())
	assert.FileExists(t, file)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
