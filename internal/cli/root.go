package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger = zerolog.Nop() //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the stork CLI.
// It loads configuration, wires up logging and tracing, and registers the
// cache, query, browse and config command groups.
func NewRootCmd(ver string) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:     "stork",
		Short:   "Stock query assistant with a local result cache",
		Long:    "Stork: query quotes, history and screens with cached results and paged sessions",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			result := setupLogging(cmd, a)
			a.logResult = &result
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return cleanupLogging(a.logResult)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.stork/config.yaml)")
	cmd.PersistentFlags().StringVar(&a.cacheDir, "cache-dir", "", "cache directory (overrides config file and env var)")
	cmd.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "disable the result cache for this run")

	cmd.AddCommand(newCacheCmd(a), newQueryCmd(a), newBrowseCmd(a), newConfigCmd(a))

	return cmd
}

const rootCmdExample = `  # Show a quote from a market data fixture
  stork query quote 600519 --fixture market.yaml

  # Screen stocks with a daily change of at least 2%, best first
  stork query screen --min pct_chg=2 --sort pct_chg:desc --fixture market.yaml

  # Browse a screen interactively
  stork browse --min pct_chg=2 --fixture market.yaml

  # Inspect the cache
  stork cache stats

  # Remove expired cache entries
  stork cache sweep

  # Initialize configuration
  stork config init`

// newQueryCmd creates the query command group.
func newQueryCmd(a *app) *cobra.Command {
	var fixturePath string

	cmd := &cobra.Command{Use: "query", Short: "Market data queries"}
	cmd.PersistentFlags().StringVar(&fixturePath, "fixture", os.Getenv(EnvFixture),
		"market data fixture file (YAML)")
	cmd.PersistentFlags().StringP("output", "o", "", "output format: table, json or yaml (default from config)")

	cmd.AddCommand(
		newQuoteCmd(a, &fixturePath), newHistoryCmd(a, &fixturePath),
		newScreenCmd(a, &fixturePath), newSearchCmd(a, &fixturePath),
		newCompareCmd(a, &fixturePath),
	)
	return cmd
}

// newCacheCmd creates the cache command group.
func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Result cache maintenance"}
	cmd.AddCommand(
		newCacheStatsCmd(a), newCacheClearCmd(a), newCacheSweepCmd(a),
		newCacheInspectCmd(a), newCacheKeyCmd(),
	)
	return cmd
}

// newConfigCmd creates the config command group.
func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a))
	return cmd
}
