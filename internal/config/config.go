package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	appDirName            = "staff-ledger"
	defaultDBFile         = "ledger.db"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 10
	defaultLogMaxFiles    = 5
	defaultRetentionYears = 1
	configFileName        = "config.toml"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Logging     LoggingConfig     `toml:"logging"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
	DBFile  string `toml:"db_file"`
	// DBPath, when set, overrides DataDir/DBFile for the database only.
	DBPath string `toml:"db_path"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

type MaintenanceConfig struct {
	RetentionYears int `toml:"retention_years"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

type LoadOptions struct {
	// ConfigPath overrides <data dir>/config.toml.
	ConfigPath string
	// DataDir overrides the data directory before the file is located.
	DataDir string
	Env     map[string]string
}

// DatabasePath returns the database file location.
func (c Config) DatabasePath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.DBFile)
}

// BackupDir returns the directory maintenance backups are written to.
func (c Config) BackupDir() string {
	return filepath.Join(c.Storage.DataDir, "backups")
}

func DefaultConfig() Config {
	dataDir := appDirName
	if base, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(base, appDirName)
	}
	return Config{
		Storage: StorageConfig{
			DataDir: dataDir,
			DBFile:  defaultDBFile,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
		Maintenance: MaintenanceConfig{
			RetentionYears: defaultRetentionYears,
		},
	}
}

// Load resolves defaults, then the TOML file, then environment overrides.
func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()
	env := opts.Env
	if env == nil {
		env = environMap()
	}

	if v := strings.TrimSpace(env["STAFFLEDGER_DATA_DIR"]); v != "" {
		cfg.Storage.DataDir = v
	}
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}

	path := opts.ConfigPath
	if path == "" {
		path = filepath.Join(cfg.Storage.DataDir, configFileName)
	}
	if err := loadAndApplyFile(path, &cfg); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg, env)
	// An explicit data dir wins over both the file and the environment.
	if opts.DataDir != "" {
		cfg.Storage.DataDir = opts.DataDir
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Storage     *rawStorage     `toml:"storage"`
	Logging     *rawLogging     `toml:"logging"`
	Maintenance *rawMaintenance `toml:"maintenance"`
	Metrics     *rawMetrics     `toml:"metrics"`
}

type rawStorage struct {
	DataDir *string `toml:"data_dir"`
	DBFile  *string `toml:"db_file"`
	DBPath  *string `toml:"db_path"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

type rawMaintenance struct {
	RetentionYears *int `toml:"retention_years"`
}

type rawMetrics struct {
	Textfile *string `toml:"textfile"`
}

func loadAndApplyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}

	if s := raw.Storage; s != nil {
		setString(&cfg.Storage.DataDir, s.DataDir)
		setString(&cfg.Storage.DBFile, s.DBFile)
		setString(&cfg.Storage.DBPath, s.DBPath)
	}
	if l := raw.Logging; l != nil {
		setString(&cfg.Logging.Level, l.Level)
		setString(&cfg.Logging.File, l.File)
		setInt(&cfg.Logging.MaxSizeMB, l.MaxSizeMB)
		setInt(&cfg.Logging.MaxFiles, l.MaxFiles)
	}
	if m := raw.Maintenance; m != nil {
		setInt(&cfg.Maintenance.RetentionYears, m.RetentionYears)
	}
	if m := raw.Metrics; m != nil {
		setString(&cfg.Metrics.Textfile, m.Textfile)
	}
	return nil
}

func applyEnvOverrides(cfg *Config, env map[string]string) {
	if v := strings.TrimSpace(env["STAFFLEDGER_DATA_DIR"]); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := strings.TrimSpace(env["STAFFLEDGER_LOG_LEVEL"]); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(env["DB_PATH"]); v != "" {
		cfg.Storage.DBPath = v
	}
}

func validate(cfg Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be one of debug, info, warn, error", ErrInvalidConfig)
	}
	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("%w: storage.data_dir must not be empty", ErrInvalidConfig)
	}
	if cfg.Storage.DBPath == "" && cfg.Storage.DBFile == "" {
		return fmt.Errorf("%w: storage.db_file must not be empty", ErrInvalidConfig)
	}
	if cfg.Maintenance.RetentionYears < 1 {
		return fmt.Errorf("%w: maintenance.retention_years must be >= 1", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB < 0 || cfg.Logging.MaxFiles < 0 {
		return fmt.Errorf("%w: logging rotation limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func environMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}
