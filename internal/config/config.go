package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/logging"
	"github.com/rshade/stork/internal/pagination"
)

// Defaults.
const (
	DefaultPageSize           = pagination.DefaultPageSize
	DefaultIdleTimeoutSeconds = 1800
	DefaultLogLevel           = "info"
	DefaultLogFormat          = logging.FormatConsole
	DefaultOutputFormat       = "table"
	DefaultPrecision          = 2

	configDirName  = ".stork"
	configFileName = "config.yaml"
	cacheDirName   = "cache"
)

// Output formats accepted by the query commands.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Validation errors.
var (
	ErrInvalidIdleTimeout = errors.New("session idle timeout cannot be negative")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("log format must be 'console' or 'json'")
	ErrInvalidOutput      = errors.New("output format must be 'table', 'json' or 'yaml'")
	ErrInvalidPrecision   = errors.New("output precision must be between 0 and 8")
	ErrInvalidSchedule    = errors.New("invalid cache sweep schedule")
)

const maxPrecision = 8

// Config is the complete stork configuration.
type Config struct {
	Cache   CacheConfig   `yaml:"cache"   json:"cache"`
	Session SessionConfig `yaml:"session" json:"session"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Output  OutputConfig  `yaml:"output"  json:"output"`

	// path is the file the config was loaded from, if any.
	path string
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	// Enabled turns caching on or off. A disabled cache misses every read.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Directory is the cache root.
	Directory string `yaml:"directory" json:"directory"`
	// TTLOverrides maps a category name to a TTL in seconds.
	TTLOverrides map[string]int `yaml:"ttl_overrides,omitempty" json:"ttl_overrides,omitempty"`
	// MemoryTier keeps recently used entries in memory in front of the files.
	MemoryTier bool `yaml:"memory_tier" json:"memory_tier"`
	// SweepSchedule is a cron expression for the expired-entry sweep. Empty disables it.
	SweepSchedule string `yaml:"sweep_schedule,omitempty" json:"sweep_schedule,omitempty"`
}

// SessionConfig configures paged query sessions.
type SessionConfig struct {
	PageSize           int `yaml:"page_size"            json:"page_size"`
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds" json:"idle_timeout_seconds"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"          json:"level"`
	Format string `yaml:"format"         json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Precision     int    `yaml:"precision"      json:"precision"`
}

// New returns a Config populated with defaults.
func New() *Config {
	cacheDir := cacheDirName
	if dir, err := GetConfigDir(); err == nil {
		cacheDir = filepath.Join(dir, cacheDirName)
	}

	return &Config{
		Cache: CacheConfig{
			Enabled:    true,
			Directory:  cacheDir,
			MemoryTier: true,
		},
		Session: SessionConfig{
			PageSize:           DefaultPageSize,
			IdleTimeoutSeconds: DefaultIdleTimeoutSeconds,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Output: OutputConfig{
			DefaultFormat: DefaultOutputFormat,
			Precision:     DefaultPrecision,
		},
	}
}

// Load resolves the configuration from defaults, the YAML file at path, a
// ProjectConfigFile overlay in the working directory and the environment.
// An empty path means the default location; a missing file
// at the default location is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg := New()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, unmarshalErr)
		}
		cfg.path = path
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err = applyProjectOverlay(cfg); err != nil {
		return nil, err
	}
	if err = cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.TTLPolicy(); err != nil {
		return fmt.Errorf("cache.ttl_overrides: %w", err)
	}
	if c.Cache.SweepSchedule != "" {
		if _, err := cron.ParseStandard(c.Cache.SweepSchedule); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidSchedule, c.Cache.SweepSchedule, err)
		}
	}
	if err := pagination.ValidatePageSize(c.Session.PageSize); err != nil {
		return fmt.Errorf("session.page_size: %w", err)
	}
	if c.Session.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIdleTimeout, c.Session.IdleTimeoutSeconds)
	}
	if c.Logging.Level != "" && !validLogLevel(c.Logging.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogFormat, c.Logging.Format)
	}
	switch c.Output.DefaultFormat {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOutput, c.Output.DefaultFormat)
	}
	if c.Output.Precision < 0 || c.Output.Precision > maxPrecision {
		return fmt.Errorf("%w: got %d", ErrInvalidPrecision, c.Output.Precision)
	}
	return nil
}

// TTLPolicy returns the default per-category TTL table with the configured
// overrides applied.
func (c *Config) TTLPolicy() (cache.TTLPolicy, error) {
	if len(c.Cache.TTLOverrides) == 0 {
		return cache.DefaultTTLPolicy(), nil
	}

	overrides := make(map[cache.Category]time.Duration, len(c.Cache.TTLOverrides))
	for name, seconds := range c.Cache.TTLOverrides {
		category, err := cache.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		overrides[category] = time.Duration(seconds) * time.Second
	}
	return cache.DefaultTTLPolicy().WithOverrides(overrides)
}

// IdleTimeout returns the session idle timeout.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutSeconds) * time.Second
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// GetConfigDir returns the stork configuration directory: $STORK_HOME or ~/.stork.
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, configDirName), nil
}

// DefaultConfigPath returns the path of the global config file.
func DefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func validLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
		return true
	default:
		return false
	}
}
