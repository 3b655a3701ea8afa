package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Environment variables prefixed with SCHOOLPLANNER_ override
// file values after loading.

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "SCHOOLPLANNER"

// StorageKey is the fixed, versioned key the store blob is saved under.
const StorageKey = "school_planner_v5_days"

// StorageConfig selects where the activity store is persisted.
type StorageConfig struct {
	// Backend is "file" (JSON document) or "sqlite" (key-value table).
	Backend string `yaml:"backend" json:"backend"`
	// Path is the JSON file or SQLite database path.
	Path string `yaml:"path" json:"path"`
	// Key is the versioned key the whole store is saved under.
	Key string `yaml:"key" json:"key"`
}

// PrintConfig controls the paginated print view.
type PrintConfig struct {
	// PageSize is the number of weekdays per printed page.
	PageSize int `yaml:"page_size" json:"page_size"`
}

// BackupConfig controls periodic store snapshots.
type BackupConfig struct {
	// Cron is a cron-style schedule (e.g. "0 18 * * 1-5"). Empty disables backups.
	Cron string `yaml:"cron" json:"cron"`
	// Dir receives school-schedule-*.json snapshots.
	Dir string `yaml:"dir" json:"dir"`
	// Keep is how many snapshots to retain; older ones are removed.
	Keep int `yaml:"keep" json:"keep"`
}

// ICSConfig holds settings for iCalendar import.
type ICSConfig struct {
	// CacheDir stores fetched feeds with their ETag/Last-Modified metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// ChromiumConfig holds headless-browser rendering settings.
type ChromiumConfig struct {
	TimeoutSec int `yaml:"timeout_sec" json:"timeout_sec"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// HorizonDays is the forward window for recurring activities.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Print    PrintConfig    `yaml:"print" json:"print"`
	Backup   BackupConfig   `yaml:"backup" json:"backup"`
	ICS      ICSConfig      `yaml:"ics" json:"ics"`
	Chromium ChromiumConfig `yaml:"chromium" json:"chromium"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// envOverrides mirrors the settings that may come from the environment.
// Empty values leave the file configuration alone.
type envOverrides struct {
	Listen         string `envconfig:"LISTEN"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
	HorizonDays    int    `envconfig:"HORIZON_DAYS"`
	StorageBackend string `envconfig:"STORAGE_BACKEND"`
	StoragePath    string `envconfig:"STORAGE_PATH"`
	PageSize       int    `envconfig:"PAGE_SIZE"`
	BackupCron     string `envconfig:"BACKUP_CRON"`
	BackupDir      string `envconfig:"BACKUP_DIR"`
	AuthUsername   string `envconfig:"AUTH_USERNAME"`
	AuthPassword   string `envconfig:"AUTH_PASSWORD"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		LogLevel:    "info",
		HorizonDays: 90,
		Storage: StorageConfig{
			Backend: "file",
			Path:    "./data/planner.json",
			Key:     StorageKey,
		},
		Print:    PrintConfig{PageSize: 10},
		Backup:   BackupConfig{Cron: "", Dir: "./data/backups", Keep: 14},
		ICS:      ICSConfig{CacheDir: "./data/ics-cache"},
		Chromium: ChromiumConfig{TimeoutSec: 30},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	switch c.Storage.Backend {
	case "file", "sqlite":
	default:
		// Unknown value; fall back to the JSON file backend.
		c.Storage.Backend = def.Storage.Backend
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
		if c.Storage.Backend == "sqlite" {
			c.Storage.Path = "./data/planner.db"
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = StorageKey
	}
	if c.Print.PageSize <= 0 {
		c.Print.PageSize = def.Print.PageSize
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = def.Backup.Dir
	}
	if c.Backup.Keep <= 0 {
		c.Backup.Keep = def.Backup.Keep
	}
	if c.ICS.CacheDir == "" {
		c.ICS.CacheDir = def.ICS.CacheDir
	}
	if c.Chromium.TimeoutSec <= 0 {
		c.Chromium.TimeoutSec = def.Chromium.TimeoutSec
	}
}

// Warnings lists settings that move the planner off its documented
// behaviour. Load accepts them; callers should surface the messages.
func (c *Config) Warnings() []string {
	var out []string
	if def := DefaultConfig().HorizonDays; c.HorizonDays != def {
		out = append(out, fmt.Sprintf("horizon_days is %d; recurring activities normally cover %d days", c.HorizonDays, def))
	}
	return out
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - A .env file in the working directory, if present, is loaded first.
//   - If the config file does not exist it is created with defaults (0600).
//   - SCHOOLPLANNER_* environment variables override file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	// Missing .env is normal.
	_ = godotenv.Load()

	var cfg *Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: create default config file.
		cfg = DefaultConfig()
		if err := Save(path, cfg); err != nil {
			// Even if save fails, return cfg with error so caller can decide.
			return cfg, err
		}
	case err != nil:
		return nil, err
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// ApplyEnv overlays SCHOOLPLANNER_* environment variables onto c.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if env.Listen != "" {
		c.Listen = env.Listen
	}
	if env.LogLevel != "" {
		c.LogLevel = env.LogLevel
	}
	if env.HorizonDays > 0 {
		c.HorizonDays = env.HorizonDays
	}
	if env.StorageBackend != "" {
		c.Storage.Backend = env.StorageBackend
	}
	if env.StoragePath != "" {
		c.Storage.Path = env.StoragePath
	}
	if env.PageSize > 0 {
		c.Print.PageSize = env.PageSize
	}
	if env.BackupCron != "" {
		c.Backup.Cron = env.BackupCron
	}
	if env.BackupDir != "" {
		c.Backup.Dir = env.BackupDir
	}
	if env.AuthUsername != "" && env.AuthPassword != "" {
		c.BasicAuth = &BasicAuthConfig{Username: env.AuthUsername, Password: env.AuthPassword}
	}
	return nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path through a temp file in the same
// directory followed by a rename, leaving the file with 0600 permissions.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".schoolplanner-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
