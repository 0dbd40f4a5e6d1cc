package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(LoadOptions{DataDir: dir, Env: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(dir, "ledger.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, "backups"), cfg.BackupDir())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Maintenance.RetentionYears)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
[storage]
db_file = "staff.db"

[logging]
level = "debug"
file = "/tmp/staff.log"
max_files = 2

[maintenance]
retention_years = 3

[metrics]
textfile = "/tmp/staff.prom"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	cfg, err := Load(LoadOptions{DataDir: dir, Env: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "staff.db"), cfg.DatabasePath())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/staff.log", cfg.Logging.File)
	assert.Equal(t, 2, cfg.Logging.MaxFiles)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB, "unset keys keep their defaults")
	assert.Equal(t, 3, cfg.Maintenance.RetentionYears)
	assert.Equal(t, "/tmp/staff.prom", cfg.Metrics.Textfile)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "elsewhere.db")

	cfg, err := Load(LoadOptions{Env: map[string]string{
		"STAFFLEDGER_DATA_DIR":  dir,
		"STAFFLEDGER_LOG_LEVEL": "warn",
		"DB_PATH":               dbPath,
	}})
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Storage.DataDir)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, dbPath, cfg.DatabasePath())
}

func TestLoadEnvDataDirWinsOverFile(t *testing.T) {
	envDir := t.TempDir()
	fileDir := t.TempDir()
	content := "[storage]\ndata_dir = \"" + filepath.ToSlash(fileDir) + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(envDir, "config.toml"), []byte(content), 0o600))

	cfg, err := Load(LoadOptions{Env: map[string]string{"STAFFLEDGER_DATA_DIR": envDir}})
	require.NoError(t, err)
	assert.Equal(t, envDir, cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join(envDir, "ledger.db"), cfg.DatabasePath())

	flagDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(flagDir, "config.toml"), []byte(content), 0o600))
	cfg, err = Load(LoadOptions{DataDir: flagDir, Env: map[string]string{"STAFFLEDGER_DATA_DIR": envDir}})
	require.NoError(t, err)
	assert.Equal(t, flagDir, cfg.Storage.DataDir, "--data-dir is the final override")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad toml":        "[storage\n",
		"bad level":       "[logging]\nlevel = \"loud\"\n",
		"retention zero":  "[maintenance]\nretention_years = 0\n",
		"negative rotate": "[logging]\nmax_files = -1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

			_, err := Load(LoadOptions{DataDir: dir, Env: map[string]string{}})
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
