package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `addr: ":9090"
data_dir: /var/lib/my-schedule
storage: sqlite
timezone: Europe/Berlin
watch: false
log:
  level: debug
  format: json
rate_limit:
  requests_per_second: 5
  burst: 10
backup:
  schedule: "0 3 * * *"
  dir: /var/backups/my-schedule
  keep: 7
`

const tomlConfig = `addr = ":9090"
data_dir = "/var/lib/my-schedule"
storage = "sqlite"
timezone = "Europe/Berlin"
watch = false

[log]
level = "debug"
format = "json"

[rate_limit]
requests_per_second = 5.0
burst = 10

[backup]
schedule = "0 3 * * *"
dir = "/var/backups/my-schedule"
keep = 7
`

const jsonConfig = `{
  "addr": ":9090",
  "data_dir": "/var/lib/my-schedule",
  "storage": "sqlite",
  "timezone": "Europe/Berlin",
  "watch": false,
  "log": {"level": "debug", "format": "json"},
  "rate_limit": {"requests_per_second": 5, "burst": 10},
  "backup": {"schedule": "0 3 * * *", "dir": "/var/backups/my-schedule", "keep": 7}
}`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_FormatsAgree(t *testing.T) {
	fromYAML, err := LoadConfig(writeConfig(t, "config.yaml", yamlConfig))
	require.NoError(t, err)
	fromTOML, err := LoadConfig(writeConfig(t, "config.toml", tomlConfig))
	require.NoError(t, err)
	fromJSON, err := LoadConfig(writeConfig(t, "config.json", jsonConfig))
	require.NoError(t, err)

	assert.Equal(t, fromYAML, fromTOML)
	assert.Equal(t, fromYAML, fromJSON)

	assert.Equal(t, ":9090", fromYAML.Addr)
	assert.Equal(t, StorageSQLite, fromYAML.Storage)
	assert.False(t, fromYAML.Watch)
	assert.Equal(t, "debug", fromYAML.Log.Level)
	assert.InDelta(t, 5.0, fromYAML.RateLimit.RequestsPerSecond, 0.0001)
	assert.Equal(t, 7, fromYAML.Backup.Keep)
	assert.Equal(t, "/var/backups/my-schedule", fromYAML.BackupPath())
	assert.NoError(t, fromYAML.Validate())
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "config.yml", "addr: \":7000\"\n"))
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, def.Storage, cfg.Storage)
	assert.Equal(t, def.Timezone, cfg.Timezone)
	assert.Equal(t, def.Backup, cfg.Backup)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EnvAddr, ":1234")
	t.Setenv(EnvStorage, StorageSQLite)
	t.Setenv(EnvDataDir, "/tmp/schedules")

	cfg, err := LoadConfig(writeConfig(t, "config.yaml", yamlConfig))
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Addr)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "/tmp/schedules", cfg.DataDir)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Addr)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "config.ini", "addr=:1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = LoadConfig(writeConfig(t, "config.json", `{"adress": ":1"}`))
	assert.Error(t, err, "unknown JSON fields are rejected")

	_, err = LoadConfig(writeConfig(t, "config.toml", "addr = "))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"Unknown storage", func(c *Config) { c.Storage = "redis" }, "unknown storage"},
		{"Empty addr", func(c *Config) { c.Addr = "" }, "addr cannot be empty"},
		{"Bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"Bad cron", func(c *Config) { c.Backup.Schedule = "every day" }, "invalid backup.schedule"},
		{"Backups disabled", func(c *Config) { c.Backup.Schedule = "" }, ""},
		{"Negative rate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }, "cannot be negative"},
		{"Zero burst", func(c *Config) {
			c.RateLimit.RequestsPerSecond = 1
			c.RateLimit.Burst = 0
		}, "burst must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidate_ReportsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = ""
	cfg.Storage = "redis"

	err := cfg.Validate()
	assert.ErrorContains(t, err, "addr cannot be empty")
	assert.ErrorContains(t, err, "unknown storage")
}

func TestConfigLocation(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "Asia/Tokyo", cfg.Location().String())

	cfg.Timezone = "nowhere"
	assert.Equal(t, "UTC", cfg.Location().String())
}
