package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/cli"
)

const marketFixture = "../fixture/testdata/market.yaml"

// isolate points STORK_HOME at a temp dir so tests never touch the user's
// config or cache, and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("STORK_HOME", home)
	t.Setenv("STORK_LOG_LEVEL", "error")
	t.Setenv(cli.EnvFixture, "")
	return home
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// executeJSON runs a query command with JSON output and decodes the reply.
func executeJSON(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := execute(t, append(args, "--fixture", marketFixture, "-o", "json")...)
	require.NoError(t, err, out)

	var reply map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reply), out)
	return reply
}

func rowCodes(t *testing.T, reply map[string]any) []string {
	t.Helper()
	rows, ok := reply["rows"].([]any)
	require.True(t, ok, "reply has no rows: %v", reply)
	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.(map[string]any)["code"].(string))
	}
	return codes
}

func TestRootCmd_Help(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, want := range []string{"cache", "query", "browse", "config", "--debug", "--config", "--cache-dir", "--no-cache"} {
		assert.Contains(t, out, want)
	}
}

func TestRootCmd_Version(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test")
}

func TestRootCmd_MissingExplicitConfig(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "cache", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestQuoteCmd_Table(t *testing.T) {
	isolate(t)
	out, err := execute(t, "query", "quote", "sh600519", "--fixture", marketFixture)
	require.NoError(t, err)

	assert.Contains(t, out, "Kweichow Moutai")
	assert.Contains(t, out, "1688.00")
	assert.Contains(t, out, "2,861,300")
	assert.NotContains(t, out, "(cached)")
}

func TestQuoteCmd_CachedAcrossRuns(t *testing.T) {
	isolate(t)

	first := executeJSON(t, "query", "quote", "600519")
	assert.Equal(t, "quote", first["kind"])
	assert.Nil(t, first["cached"])

	second := executeJSON(t, "query", "quote", "600519.SH")
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, "600519", second["quote"].(map[string]any)["code"])

	refreshed := executeJSON(t, "query", "quote", "600519", "--refresh")
	assert.Nil(t, refreshed["cached"])
}

func TestQuoteCmd_NoCache(t *testing.T) {
	isolate(t)

	executeJSON(t, "query", "quote", "600519", "--no-cache")
	second := executeJSON(t, "query", "quote", "600519", "--no-cache")
	assert.Nil(t, second["cached"])
}

func TestQuoteCmd_Errors(t *testing.T) {
	isolate(t)

	t.Run("no fixture", func(t *testing.T) {
		_, err := execute(t, "query", "quote", "600519")
		assert.ErrorIs(t, err, cli.ErrNoFixture)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := execute(t, "query", "quote", "999999", "--fixture", marketFixture)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "999999")
	})

	t.Run("bad output format", func(t *testing.T) {
		_, err := execute(t, "query", "quote", "600519", "--fixture", marketFixture, "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "xml")
	})
}

func TestHistoryCmd(t *testing.T) {
	isolate(t)
	out, err := execute(t, "query", "history", "600519", "--days", "3", "--fixture", marketFixture)
	require.NoError(t, err)

	assert.Contains(t, out, "CLOSE")
	assert.Contains(t, out, "2024-05-30")
	assert.Contains(t, out, "2024-06-03")
	assert.NotContains(t, out, "2024-05-29")
	assert.Contains(t, out, "2,861,300")
}

func TestScreenCmd_FilterAndSort(t *testing.T) {
	isolate(t)
	reply := executeJSON(t, "query", "screen", "--filter", "industry=bank", "--sort", "pe:asc")

	assert.Equal(t, "page", reply["kind"])
	assert.Equal(t, []string{"000001", "601398", "600036"}, rowCodes(t, reply))

	page := reply["page"].(map[string]any)
	assert.InDelta(t, 3, page["total_items"], 0)
	assert.InDelta(t, 1, page["total_pages"], 0)
}

func TestScreenCmd_CachedTableMatches(t *testing.T) {
	isolate(t)
	args := []string{"query", "screen", "--filter", "industry=liquor", "--sort", "code", "--fixture", marketFixture}

	first, err := execute(t, args...)
	require.NoError(t, err)
	second, err := execute(t, args...)
	require.NoError(t, err)

	assert.Contains(t, first, "2,120,000,000,000")
	assert.NotContains(t, first, "(cached)")
	assert.Contains(t, second, "(cached)")
	assert.Equal(t, first, strings.Replace(second, " (cached)", "", 1))
}

func TestScreenCmd_Paging(t *testing.T) {
	isolate(t)
	reply := executeJSON(t, "query", "screen", "--min", "pct_chg=1", "--page-size", "2", "--page", "2")

	assert.Equal(t, []string{"002594"}, rowCodes(t, reply))
	page := reply["page"].(map[string]any)
	assert.InDelta(t, 2, page["current_page"], 0)
	assert.Equal(t, false, page["has_next"])
	assert.Equal(t, true, page["has_previous"])
}

func TestScreenCmd_PageOutOfRange(t *testing.T) {
	isolate(t)
	out, err := execute(t, "query", "screen", "--max", "pct_chg=0", "--page", "5", "--fixture", marketFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Page 5 does not exist")
}

func TestScreenCmd_InvalidCriteria(t *testing.T) {
	isolate(t)

	_, err := execute(t, "query", "screen", "--filter", "industry", "--fixture", marketFixture)
	assert.ErrorIs(t, err, cli.ErrInvalidAssignment)

	_, err = execute(t, "query", "screen", "--min", "pct_chg=lots", "--fixture", marketFixture)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a number")

	_, err = execute(t, "query", "screen", "--sort", "pe:sideways", "--fixture", marketFixture)
	assert.Error(t, err)
}

func TestSearchCmd_YAML(t *testing.T) {
	isolate(t)
	out, err := execute(t, "query", "search", "bank", "--fixture", marketFixture, "-o", "yaml")
	require.NoError(t, err)

	assert.Contains(t, out, "kind: page")
	assert.Contains(t, out, "Ping An Bank")
	assert.Contains(t, out, "China Merchants Bank")
	assert.NotContains(t, out, "ICBC")
}

func TestCompareCmd(t *testing.T) {
	isolate(t)
	reply := executeJSON(t, "query", "compare", "600519", "000001", "--days", "3")

	comparison := reply["comparison"].(map[string]any)
	assert.Len(t, comparison["stocks"], 2)
	assert.Equal(t, "600519", comparison["summary"].(map[string]any)["best_period"])
}

func TestCacheCmd_StatsAndInspect(t *testing.T) {
	home := isolate(t)
	executeJSON(t, "query", "quote", "600519")
	executeJSON(t, "query", "history", "600519")

	out, err := execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "cache"))
	assert.Contains(t, out, "2 (plain 1, structured 1)")
	assert.Contains(t, out, "realtime")
	assert.Contains(t, out, "5m")

	key := cache.NewKeyBuilder(cache.CategoryRealtime).Code("600519").Build()
	out, err = execute(t, "cache", "inspect", key, "--payload")
	require.NoError(t, err)
	assert.Contains(t, out, "realtime")
	assert.Contains(t, out, "plain")
	assert.Contains(t, out, "fresh")
	assert.Contains(t, out, "Kweichow Moutai")

	_, err = execute(t, "cache", "inspect", "realtime_000000000000000000000000")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCacheCmd_StatsDisabled(t *testing.T) {
	isolate(t)
	out, err := execute(t, "cache", "stats", "--no-cache")
	require.NoError(t, err)
	assert.Contains(t, out, "disabled")
}

func TestCacheCmd_CacheDirFlag(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "elsewhere")

	executeJSON(t, "query", "quote", "600519", "--cache-dir", dir)

	entries, err := os.ReadDir(filepath.Join(dir, "json"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCacheCmd_ClearAndSweep(t *testing.T) {
	isolate(t)
	executeJSON(t, "query", "quote", "600519")

	out, err := execute(t, "cache", "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 cache entries")

	out, err = execute(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	out, err = execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "0 (plain 0, structured 0)")
}

func TestCacheCmd_SweepWatchNeedsSchedule(t *testing.T) {
	isolate(t)

	_, err := execute(t, "cache", "sweep", "--watch")
	assert.ErrorIs(t, err, cli.ErrNoSchedule)

	_, err = execute(t, "cache", "sweep", "--watch", "--schedule", "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestCacheCmd_Key(t *testing.T) {
	isolate(t)

	a, err := execute(t, "cache", "key", "realtime", "sh600519")
	require.NoError(t, err)
	b, err := execute(t, "cache", "key", "REALTIME", "600519")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "realtime_"))

	_, err = execute(t, "cache", "key", "weekly")
	assert.ErrorIs(t, err, cache.ErrUnknownCategory)
}

func TestConfigCmd_InitAndShow(t *testing.T) {
	home := isolate(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(home, "config.yaml"))
	assert.FileExists(t, filepath.Join(home, "config.yaml"))

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	t.Setenv("STORK_DEFAULT_PAGE_SIZE", "7")
	out, err = execute(t, "config", "show", "-o", "json")
	require.NoError(t, err)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.InDelta(t, 7, cfg["session"].(map[string]any)["page_size"], 0)

	out, err = execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "page_size: 7")
	assert.Contains(t, out, "# "+filepath.Join(home, "config.yaml"))
}

func TestConfigCmd_InitExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "stork.yaml")

	_, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestBrowseCmd_NonInteractive(t *testing.T) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		t.Skip("stdout is a terminal; browse would start the interactive UI")
	}
	isolate(t)

	out, err := execute(t, "browse", "--filter", "industry=liquor", "--fixture", marketFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "Kweichow Moutai")
	assert.Contains(t, out, "Wuliangye")
	assert.Contains(t, out, "page 1/1")
}
