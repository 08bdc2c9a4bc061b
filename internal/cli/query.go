package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rshade/stork/internal/query"
)

// Defaults for query flags.
const (
	defaultHistoryDays = 30
	defaultSearchLimit = 20
	defaultCompareDays = 20
)

// ErrInvalidAssignment is returned for a criteria flag not in field=value form.
var ErrInvalidAssignment = errors.New("expected field=value")

// queryService builds a query service for a one-shot command.
func (a *app) queryService(fixturePath string) (*query.Service, error) {
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return a.newService(fixturePath, store, a.newSession())
}

// render writes reply in the format selected by --output or the configuration.
func (a *app) render(cmd *cobra.Command, reply query.Reply) error {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		format = a.settings().Output.DefaultFormat
	}
	return renderReply(cmd.OutOrStdout(), reply, format, a.settings().Output.Precision)
}

func newQuoteCmd(a *app, fixturePath *string) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "quote <code>",
		Short: "Show the realtime quote for a stock",
		Example: `  stork query quote 600519
  stork query quote sz000001 --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.queryService(*fixturePath)
			if err != nil {
				return err
			}
			reply, err := svc.Quote(cmd.Context(), args[0], refresh)
			if err != nil {
				return err
			}
			return a.render(cmd, reply)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cached quote")
	return cmd
}

func newHistoryCmd(a *app, fixturePath *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history <code>",
		Short: "Show daily bars for a stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.queryService(*fixturePath)
			if err != nil {
				return err
			}
			reply, err := svc.History(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			return a.render(cmd, reply)
		},
	}

	cmd.Flags().IntVar(&days, "days", defaultHistoryDays, "number of daily bars")
	return cmd
}

// screenFlags are the criteria flags shared by screen and browse.
type screenFlags struct {
	filters  []string
	mins     []string
	maxs     []string
	sort     string
	page     int
	pageSize int
}

func (f *screenFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "equality criterion field=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.mins, "min", nil, "lower bound field=number (repeatable)")
	cmd.Flags().StringArrayVar(&f.maxs, "max", nil, "upper bound field=number (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort expression field[:asc|desc]")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (default from config)")
}

// criteria converts the flags into screen criteria.
func (f *screenFlags) criteria() (query.Criteria, error) {
	criteria := make(query.Criteria)

	for _, raw := range f.filters {
		field, value, err := splitAssignment(raw)
		if err != nil {
			return nil, err
		}
		criteria[field] = parseValue(value)
	}

	bounds := []struct {
		values []string
		suffix string
	}{{f.mins, "_min"}, {f.maxs, "_max"}}
	for _, b := range bounds {
		for _, raw := range b.values {
			field, value, err := splitAssignment(raw)
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not a number", raw, value)
			}
			criteria[field+b.suffix] = n
		}
	}

	if f.sort != "" {
		criteria[query.SortKey] = f.sort
	}
	return criteria, nil
}

func newScreenCmd(a *app, fixturePath *string) *cobra.Command {
	var flags screenFlags

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen stocks by criteria and show one page of matches",
		Example: `  # Stocks up at least 2% today, best first
  stork query screen --min pct_chg=2 --sort pct_chg:desc

  # Second page of the banking sector, 10 rows per page
  stork query screen --filter industry=bank --page 2 --page-size 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := flags.criteria()
			if err != nil {
				return err
			}
			svc, err := a.queryService(*fixturePath)
			if err != nil {
				return err
			}
			reply, err := svc.Screen(cmd.Context(), criteria, flags.page, flags.pageSize)
			if err != nil {
				return err
			}
			return a.render(cmd, reply)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&flags.page, "page", 1, "page to show")
	return cmd
}

func newSearchCmd(a *app, fixturePath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Find stocks by code or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.queryService(*fixturePath)
			if err != nil {
				return err
			}
			reply, err := svc.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return a.render(cmd, reply)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultSearchLimit, "matches per page")
	return cmd
}

func newCompareCmd(a *app, fixturePath *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "compare <code> <code>...",
		Short: "Compare several stocks over a period",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd // a comparison needs at least two stocks
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.queryService(*fixturePath)
			if err != nil {
				return err
			}
			reply, err := svc.Compare(cmd.Context(), args, days)
			if err != nil {
				return err
			}
			return a.render(cmd, reply)
		},
	}

	cmd.Flags().IntVar(&days, "days", defaultCompareDays, "comparison window in trading days")
	return cmd
}

func splitAssignment(raw string) (string, string, error) {
	field, value, ok := strings.Cut(raw, "=")
	field = strings.TrimSpace(field)
	if !ok || field == "" {
		return "", "", fmt.Errorf("%w, got %q", ErrInvalidAssignment, raw)
	}
	return field, strings.TrimSpace(value), nil
}

// parseValue returns value as a float64 when it is numeric.
func parseValue(value string) any {
	if n, err := strconv.ParseFloat(value, 64); err == nil {
		return n
	}
	return value
}
