package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/query"
	"github.com/rshade/stork/internal/scheduler"
	"github.com/rshade/stork/internal/session"
	"github.com/rshade/stork/internal/tui"
)

func newBrowseCmd(a *app) *cobra.Command {
	var (
		flags       screenFlags
		keyword     string
		fixturePath string
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Page through a screen or search interactively",
		Long: `Runs a screen (or a search with --search) and opens the result set in an
interactive page browser. When stdout is not a terminal the first page is
printed instead.`,
		Example: `  stork browse --min pct_chg=2 --sort pct_chg:desc
  stork browse --search bank --page-size 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := flags.criteria()
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			registry := session.NewRegistry(
				session.WithIdleTimeout(a.settings().IdleTimeout()),
				session.WithLogger(logger),
			)
			sess := registry.GetOrCreate(session.DefaultHandle)

			svc, err := a.newService(fixturePath, store, sess)
			if err != nil {
				return err
			}

			var (
				reply query.Reply
				title string
			)
			if keyword != "" {
				reply, err = svc.Search(cmd.Context(), keyword, flags.pageSize)
				title = fmt.Sprintf("Search %q", keyword)
			} else {
				reply, err = svc.Screen(cmd.Context(), criteria, 1, flags.pageSize)
				title = "Screen"
			}
			if err != nil {
				return err
			}

			if !isTerminal(os.Stdout) {
				return renderReply(cmd.OutOrStdout(), reply, "", a.settings().Output.Precision)
			}

			if schedule := a.settings().Cache.SweepSchedule; schedule != "" {
				sched, schedErr := newMaintenanceScheduler(schedule, store, registry)
				if schedErr != nil {
					return schedErr
				}
				sched.Start()
				defer sched.Stop()
			}

			return runBrowser(svc.Session(), title, a.settings().Output.Precision)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&keyword, "search", "", "browse stocks matching a keyword instead of a screen")
	cmd.Flags().StringVar(&fixturePath, "fixture", os.Getenv(EnvFixture), "market data fixture file (YAML)")
	return cmd
}

// newMaintenanceScheduler schedules the cache and session sweeps for a
// long-running command.
func newMaintenanceScheduler(
	schedule string,
	store *cache.FileStore,
	registry *session.Registry,
) (*scheduler.Scheduler, error) {
	sched := scheduler.New(logger)
	if err := sched.AddJob(schedule, scheduler.NewCacheSweepJob(store, logger)); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	if err := sched.AddJob(schedule, scheduler.NewSessionSweepJob(registry, logger)); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return sched, nil
}

func runBrowser(pager tui.Pager, title string, precision int) error {
	model, err := tui.NewBrowserModel(pager, title)
	if err != nil {
		return err
	}
	model.SetDecimals(precision)

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err = p.Run(); err != nil {
		return fmt.Errorf("failed to run interactive TUI: %w", err)
	}
	return nil
}
