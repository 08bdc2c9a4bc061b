package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rshade/stork/internal/cache"
)

// Environment variables recognised by ApplyEnv.
const (
	EnvHome               = "STORK_HOME"
	EnvCacheEnabled       = "STORK_CACHE_ENABLED"
	EnvCacheDir           = "STORK_CACHE_DIR"
	EnvCacheMemoryTier    = "STORK_CACHE_MEMORY_TIER"
	EnvCacheSweepSchedule = "STORK_CACHE_SWEEP_SCHEDULE"
	EnvCacheTTLPrefix     = "STORK_CACHE_TTL_"
	EnvDefaultPageSize    = "STORK_DEFAULT_PAGE_SIZE"
	EnvSessionTimeout     = "STORK_SESSION_TIMEOUT"
	EnvLogLevel           = "STORK_LOG_LEVEL"
	EnvLogFormat          = "STORK_LOG_FORMAT"
	EnvLogFile            = "STORK_LOG_FILE"
)

// ApplyEnv overlays STORK_* environment variables onto c. Unset variables
// leave the current value alone; malformed ones are reported.
func (c *Config) ApplyEnv() error {
	var err error

	if c.Cache.Enabled, err = envBool(EnvCacheEnabled, c.Cache.Enabled); err != nil {
		return err
	}
	c.Cache.Directory = envString(EnvCacheDir, c.Cache.Directory)
	if c.Cache.MemoryTier, err = envBool(EnvCacheMemoryTier, c.Cache.MemoryTier); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvCacheSweepSchedule); ok {
		c.Cache.SweepSchedule = strings.TrimSpace(v)
	}

	for _, category := range cache.Categories() {
		name := EnvCacheTTLPrefix + strings.ToUpper(string(category))
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		ttl, parseErr := cache.ParseTTL(raw)
		if parseErr != nil {
			return fmt.Errorf("%s: %w", name, parseErr)
		}
		if c.Cache.TTLOverrides == nil {
			c.Cache.TTLOverrides = make(map[string]int)
		}
		c.Cache.TTLOverrides[string(category)] = int(ttl.Seconds())
	}

	if c.Session.PageSize, err = envInt(EnvDefaultPageSize, c.Session.PageSize); err != nil {
		return err
	}
	if c.Session.IdleTimeoutSeconds, err = envInt(EnvSessionTimeout, c.Session.IdleTimeoutSeconds); err != nil {
		return err
	}

	c.Logging.Level = envString(EnvLogLevel, c.Logging.Level)
	c.Logging.Format = envString(EnvLogFormat, c.Logging.Format)
	c.Logging.File = envString(EnvLogFile, c.Logging.File)
	return nil
}

func envString(key, current string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return current
}

func envInt(key string, current int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return current, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return current, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func envBool(key string, current bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return current, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return current, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}
