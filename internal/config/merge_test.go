package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stork/internal/config"
)

// newDefaultTarget returns a Config with known non-zero values so tests can
// verify that absent overlay keys leave the original values intact.
func newDefaultTarget() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			Enabled:      true,
			Directory:    "/var/cache/stork",
			TTLOverrides: map[string]int{"realtime": 120},
			MemoryTier:   true,
		},
		Session: config.SessionConfig{PageSize: 50, IdleTimeoutSeconds: 1800},
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
		Output:  config.OutputConfig{DefaultFormat: "table", Precision: 2},
	}
}

// writeOverlay writes YAML content to a temp file and returns its path.
func writeOverlay(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestShallowMergeYAML_SingleKeyOverride(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
session:
  page_size: 20
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, 20, target.Session.PageSize)
	assert.Equal(t, 0, target.Session.IdleTimeoutSeconds, "section is replaced wholesale")
	assert.Equal(t, "/var/cache/stork", target.Cache.Directory)
	assert.Equal(t, "info", target.Logging.Level)
}

func TestShallowMergeYAML_ReplacesMaps(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
cache:
  enabled: true
  directory: /tmp/project-cache
  ttl_overrides:
    history: 7200
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))

	assert.Equal(t, map[string]int{"history": 7200}, target.Cache.TTLOverrides)
	assert.Equal(t, "/tmp/project-cache", target.Cache.Directory)
	assert.False(t, target.Cache.MemoryTier)
}

func TestShallowMergeYAML_UnknownKeysIgnored(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, `
plugins:
  anything: true
output:
  default_format: json
  precision: 4
`)

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, "json", target.Output.DefaultFormat)
	assert.Equal(t, 4, target.Output.Precision)
}

func TestShallowMergeYAML_EmptyFile(t *testing.T) {
	target := newDefaultTarget()
	overlay := writeOverlay(t, "# nothing here\n")

	require.NoError(t, config.ShallowMergeYAML(target, overlay))
	assert.Equal(t, newDefaultTarget(), target)
}

func TestShallowMergeYAML_Errors(t *testing.T) {
	t.Run("nil target", func(t *testing.T) {
		assert.Error(t, config.ShallowMergeYAML(nil, "whatever.yaml"))
	})

	t.Run("missing file", func(t *testing.T) {
		err := config.ShallowMergeYAML(newDefaultTarget(), filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		overlay := writeOverlay(t, "cache: [unclosed\n")
		assert.Error(t, config.ShallowMergeYAML(newDefaultTarget(), overlay))
	})

	t.Run("section type mismatch", func(t *testing.T) {
		overlay := writeOverlay(t, "session: just-a-string\n")
		err := config.ShallowMergeYAML(newDefaultTarget(), overlay)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session")
	})
}

func TestLoad_ProjectOverlay(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	project := t.TempDir()
	t.Chdir(project)
	require.NoError(t, os.WriteFile(filepath.Join(project, config.ProjectConfigFile), []byte(`
output:
  default_format: yaml
  precision: 3
`), 0o600))
	t.Setenv(config.EnvDefaultPageSize, "15")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Output.DefaultFormat)
	assert.Equal(t, 3, cfg.Output.Precision)
	assert.Equal(t, 15, cfg.Session.PageSize, "environment wins over the overlay")
	assert.True(t, cfg.Cache.Enabled)
}
