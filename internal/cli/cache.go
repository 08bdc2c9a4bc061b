package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/scheduler"
)

func newCacheStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache location, entry counts and TTL policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			return writeCacheStats(cmd.OutOrStdout(), store, a.settings().Cache.MemoryTier)
		},
	}
}

func writeCacheStats(w io.Writer, store *cache.FileStore, memoryTier bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)

	fmt.Fprintf(tw, "Directory:\t%s\n", store.GetDirectory())
	if !store.IsEnabled() {
		fmt.Fprintf(tw, "Status:\tdisabled\n")
		return tw.Flush()
	}
	fmt.Fprintf(tw, "Status:\tenabled\n")
	fmt.Fprintf(tw, "Memory tier:\t%t\n", memoryTier)

	st, err := store.Stats()
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}
	fmt.Fprintf(tw, "Entries:\t%d (plain %d, structured %d)\n", st.Entries(), st.PlainEntries, st.StructuredEntries)
	fmt.Fprintf(tw, "Size:\t%s\n", humanize.Bytes(uint64(max(st.TotalBytes, 0)))) //nolint:gosec // clamped above

	fmt.Fprintln(tw, "TTL policy:")
	policy := store.Policy()
	for _, c := range cache.Categories() {
		ttl, ttlErr := policy.TTL(c)
		if ttlErr != nil {
			return ttlErr
		}
		fmt.Fprintf(tw, "  %s\t%s\n", c, cache.FormatDuration(ttl))
	}
	return tw.Flush()
}

func newCacheClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if err = store.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", store.GetDirectory())
			return nil
		},
	}
}

func newCacheSweepCmd(a *app) *cobra.Command {
	var (
		olderThan time.Duration
		schedule  string
		watch     bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		Long: `Removes expired and unreadable cache entries to reclaim disk space.

Expired entries are never served, so sweeping is optional. With --watch the
sweep keeps running on a cron schedule until interrupted.`,
		Example: `  # Sweep once
  stork cache sweep

  # Drop every entry written more than two days ago
  stork cache sweep --older-than 48h

  # Sweep every 15 minutes until interrupted
  stork cache sweep --watch --schedule "*/15 * * * *"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}

			if watch {
				if schedule == "" {
					schedule = a.settings().Cache.SweepSchedule
				}
				return watchSweep(cmd, store, schedule)
			}

			var removed int
			if olderThan > 0 {
				removed, err = store.CleanupOlderThan(olderThan)
			} else {
				removed, err = store.CleanupExpired()
			}
			if err != nil {
				return fmt.Errorf("sweeping cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cache entries\n", removed)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "remove entries written longer ago than this, regardless of TTL")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule for --watch (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep sweeping on a schedule until interrupted")
	return cmd
}

// ErrNoSchedule is returned by sweep --watch without a schedule.
var ErrNoSchedule = errors.New("no sweep schedule: pass --schedule or set cache.sweep_schedule")

func watchSweep(cmd *cobra.Command, store *cache.FileStore, schedule string) error {
	if schedule == "" {
		return ErrNoSchedule
	}

	sched := scheduler.New(logger)
	job := scheduler.NewCacheSweepJob(store, logger)
	if err := sched.AddJob(schedule, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if err := sched.RunNow(job); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start()
	fmt.Fprintf(cmd.OutOrStdout(), "Sweeping %s on schedule %q, press Ctrl+C to stop\n", store.GetDirectory(), schedule)
	<-ctx.Done()
	sched.Stop()
	return nil
}

func newCacheInspectCmd(a *app) *cobra.Command {
	var payload bool

	cmd := &cobra.Command{
		Use:   "inspect <key>",
		Short: "Show the metadata of a cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			entry, err := store.Inspect(args[0])
			if err != nil {
				return fmt.Errorf("inspecting %s: %w", args[0], err)
			}
			return writeEntry(cmd.OutOrStdout(), entry, time.Now(), payload)
		},
	}

	cmd.Flags().BoolVar(&payload, "payload", false, "also print the decoded payload as JSON")
	return cmd
}

func writeEntry(w io.Writer, e *cache.Entry, now time.Time, payload bool) error {
	status := "fresh, expires " + humanize.RelTime(e.ExpiresAt, now, "ago", "from now")
	if e.IsExpiredAt(now) {
		status = "expired " + humanize.RelTime(e.ExpiresAt, now, "ago", "from now")
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintf(tw, "Key:\t%s\n", e.Key)
	fmt.Fprintf(tw, "Category:\t%s\n", e.Category)
	fmt.Fprintf(tw, "Mode:\t%s\n", e.Mode)
	fmt.Fprintf(tw, "Format version:\t%s\n", e.FormatVersion)
	fmt.Fprintf(tw, "Created:\t%s\n", e.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Expires:\t%s\n", e.ExpiresAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "TTL:\t%s\n", cache.FormatDuration(e.TTL()))
	fmt.Fprintf(tw, "Status:\t%s\n", status)
	fmt.Fprintf(tw, "Payload size:\t%s\n", humanize.Bytes(uint64(len(e.Data))))
	if err := tw.Flush(); err != nil {
		return err
	}

	if !payload {
		return nil
	}

	var v any
	if err := e.Decode(&v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering payload: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

func newCacheKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <category> [parts...]",
		Short: "Print the cache key for a request",
		Long: `Prints the fingerprint a request is cached under. Stock codes are
normalized and name=value parts are order-independent, so equivalent requests
map to the same key.`,
		Example: `  stork cache key realtime sh600519
  stork cache key screen industry=bank pct_chg_min=2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := cache.ParseCategory(args[0])
			if err != nil {
				return err
			}
			parts := make([]any, 0, len(args)-1)
			for _, p := range args[1:] {
				parts = append(parts, p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.MakeKey(category, parts...))
			return nil
		},
	}
}
