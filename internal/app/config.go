package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
	yaml "go.yaml.in/yaml/v3"

	"github.com/klabast/wb-services/my-schedule/internal/logging"
)

// Constants
const (
	ScheduleFile    = "date_schedule.json"
	TimetableFile   = "timetable.json"
	SQLiteFile      = "schedule.db"
	BackupDir       = "backup"
	BackupSuffix    = ".backup"
	TmpSuffix       = ".tmp"
	FilePermissions = 0644

	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// Storage backends
	StorageJSON   = "json"
	StorageSQLite = "sqlite"

	// Error messages
	ErrInvalidDateFormat    = "Invalid date format"
	ErrInvalidTimeFormat    = "Invalid time format"
	ErrInvalidYear          = "Invalid year"
	ErrInvalidMonth         = "Invalid month"
	ErrInvalidFormat        = "Invalid format"
	ErrInvalidBody          = "Invalid request body"
	ErrInternalServer       = "Internal server error"
	ErrFailedToSave         = "Failed to save schedule"
	ErrFailedToGenerateJSON = "Failed to generate JSON"
	ErrNotFound             = "Schedule not found"
	ErrTooManyRequests      = "Too many requests"

	// ICS constants
	ICSProductID = "-//my-schedule//Schedule Board//JA"

	// Environment overrides
	EnvAddr    = "MY_SCHEDULE_ADDR"
	EnvDataDir = "MY_SCHEDULE_DATA_DIR"
	EnvStorage = "MY_SCHEDULE_STORAGE"
)

// Version is reported by the health endpoint
var Version = "0.1.0"

// Config holds the server configuration
type Config struct {
	Addr      string          `json:"addr" yaml:"addr" toml:"addr"`
	DataDir   string          `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	Storage   string          `json:"storage" yaml:"storage" toml:"storage"`
	Timezone  string          `json:"timezone" yaml:"timezone" toml:"timezone"`
	Watch     bool            `json:"watch" yaml:"watch" toml:"watch"`
	Log       logging.Config  `json:"log" yaml:"log" toml:"log"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" toml:"rate_limit"`
	Backup    BackupConfig    `json:"backup" yaml:"backup" toml:"backup"`
}

// RateLimitConfig configures the API token bucket. Zero RequestsPerSecond disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst" toml:"burst"`
}

// BackupConfig configures scheduled backups. An empty Schedule disables them.
type BackupConfig struct {
	Schedule string `json:"schedule" yaml:"schedule" toml:"schedule"`
	Dir      string `json:"dir" yaml:"dir" toml:"dir"`
	Keep     int    `json:"keep" yaml:"keep" toml:"keep"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	dataDir := "."
	if cwd, err := os.Getwd(); err == nil {
		dataDir = cwd
	}
	return Config{
		Addr:     ":8080",
		DataDir:  dataDir,
		Storage:  StorageJSON,
		Timezone: "Asia/Tokyo",
		Watch:    true,
		Log: logging.Config{
			Level:  "info",
			Format: logging.FormatAuto,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             20,
		},
		Backup: BackupConfig{
			Schedule: "@daily",
			Keep:     14,
		},
	}
}

// LoadConfig loads configuration from a YAML, TOML or JSON file on top of the defaults,
// then applies environment overrides. An empty path only applies the environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}

		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case ".toml":
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
			}
		case ".json":
			dec := json.NewDecoder(strings.NewReader(string(data)))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse JSON config: %w", err)
			}
		default:
			return cfg, fmt.Errorf("unsupported config format %q", ext)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		c.Storage = v
	}
}

// Validate checks the configuration for errors
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr cannot be empty"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir cannot be empty"))
	}
	switch c.Storage {
	case StorageJSON, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q (want %s or %s)", c.Storage, StorageJSON, StorageSQLite))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_second cannot be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1"))
	}
	if c.Backup.Schedule != "" {
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid backup.schedule %q: %w", c.Backup.Schedule, err))
		}
	}
	if c.Backup.Keep < 0 {
		errs = append(errs, errors.New("backup.keep cannot be negative"))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone, falling back to UTC
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BackupPath returns the backup directory, defaulting to <data_dir>/backup
func (c Config) BackupPath() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(c.DataDir, BackupDir)
}
