package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/config"
	"github.com/rshade/stork/internal/logging"
	"github.com/rshade/stork/internal/pagination"
)

// isolate points STORK_HOME at a temp dir so the user's real config is never read.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	return home
}

func TestNew_Defaults(t *testing.T) {
	home := isolate(t)
	cfg := config.New()

	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.MemoryTier)
	assert.Equal(t, filepath.Join(home, "cache"), cfg.Cache.Directory)
	assert.Empty(t, cfg.Cache.SweepSchedule)
	assert.Equal(t, 50, cfg.Session.PageSize)
	assert.Equal(t, 30*time.Minute, cfg.IdleTimeout())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "table", cfg.Output.DefaultFormat)
	require.NoError(t, cfg.Validate())

	policy, err := cfg.TTLPolicy()
	require.NoError(t, err)
	assert.Equal(t, cache.DefaultTTLPolicy(), policy)
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Session.PageSize)
	assert.Empty(t, cfg.Path())
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	isolate(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_FileThenEnv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  directory: /tmp/from-file
  ttl_overrides:
    realtime: 120
session:
  page_size: 20
logging:
  level: warn
`), 0o600))

	t.Setenv(config.EnvDefaultPageSize, "25")
	t.Setenv(config.EnvCacheEnabled, "false")
	t.Setenv("STORK_CACHE_TTL_HISTORY", "2h")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "/tmp/from-file", cfg.Cache.Directory)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.MemoryTier, "keys absent from the file keep their defaults")
	assert.Equal(t, 25, cfg.Session.PageSize)
	assert.Equal(t, 1800, cfg.Session.IdleTimeoutSeconds)
	assert.Equal(t, "warn", cfg.Logging.Level)

	policy, err := cfg.TTLPolicy()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, policy[cache.CategoryRealtime])
	assert.Equal(t, 2*time.Hour, policy[cache.CategoryHistory])
	assert.Equal(t, cache.TTLScreen, policy[cache.CategoryScreen])
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bool", key: config.EnvCacheEnabled, value: "sometimes"},
		{name: "int", key: config.EnvDefaultPageSize, value: "fifty"},
		{name: "ttl too short", key: "STORK_CACHE_TTL_REALTIME", value: "10"},
		{name: "page size out of range", key: config.EnvDefaultPageSize, value: "0"},
		{name: "schedule", key: config.EnvCacheSweepSchedule, value: "every tuesday"},
		{name: "log format", key: config.EnvLogFormat, value: "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, err := config.Load("")
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{
			name:    "unknown category override",
			mutate:  func(c *config.Config) { c.Cache.TTLOverrides = map[string]int{"intraday": 60} },
			wantErr: cache.ErrUnknownCategory,
		},
		{
			name:    "override above max",
			mutate:  func(c *config.Config) { c.Cache.TTLOverrides = map[string]int{"static": 8 * 24 * 3600} },
			wantErr: cache.ErrInvalidTTL,
		},
		{
			name:   "valid sweep schedule",
			mutate: func(c *config.Config) { c.Cache.SweepSchedule = "@every 1h" },
		},
		{
			name:    "bad sweep schedule",
			mutate:  func(c *config.Config) { c.Cache.SweepSchedule = "* * *" },
			wantErr: config.ErrInvalidSchedule,
		},
		{
			name:    "page size",
			mutate:  func(c *config.Config) { c.Session.PageSize = 5000 },
			wantErr: pagination.ErrInvalidPageSize,
		},
		{
			name:    "negative idle timeout",
			mutate:  func(c *config.Config) { c.Session.IdleTimeoutSeconds = -1 },
			wantErr: config.ErrInvalidIdleTimeout,
		},
		{
			name:    "log level",
			mutate:  func(c *config.Config) { c.Logging.Level = "loud" },
			wantErr: config.ErrInvalidLogLevel,
		},
		{
			name:    "output format",
			mutate:  func(c *config.Config) { c.Output.DefaultFormat = "csv" },
			wantErr: config.ErrInvalidOutput,
		},
		{
			name:    "precision",
			mutate:  func(c *config.Config) { c.Output.Precision = 12 },
			wantErr: config.ErrInvalidPrecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := config.New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	home := isolate(t)
	cfg := config.New()
	cfg.Session.PageSize = 10
	cfg.Cache.TTLOverrides = map[string]int{"screen": 600}

	path := filepath.Join(home, "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Session.PageSize)
	assert.Equal(t, map[string]int{"screen": 600}, loaded.Cache.TTLOverrides)
}

func TestLoggingConfig_ToLoggingConfig(t *testing.T) {
	stderr := config.LoggingConfig{Level: "debug", Format: "json"}.ToLoggingConfig()
	assert.Equal(t, logging.OutputStderr, stderr.Output)
	assert.Equal(t, "debug", stderr.Level)
	assert.Equal(t, "json", stderr.Format)

	file := config.LoggingConfig{Level: "info", File: "/tmp/stork.log"}.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, file.Output)
	assert.Equal(t, "/tmp/stork.log", file.File)
}

func TestLoggingConfig_EnsureLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "deep")
	lc := config.LoggingConfig{File: filepath.Join(dir, "stork.log")}
	require.NoError(t, lc.EnsureLogDir())
	assert.DirExists(t, dir)

	assert.NoError(t, config.LoggingConfig{}.EnsureLogDir())
}
