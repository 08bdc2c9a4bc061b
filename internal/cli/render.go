package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/rshade/stork/internal/config"
	"github.com/rshade/stork/internal/pagination"
	"github.com/rshade/stork/internal/query"
	"github.com/rshade/stork/internal/session"
)

// tabPadding is the minimum padding between table columns.
const tabPadding = 2

// replyDoc is the serialized form of a query.Reply.
type replyDoc struct {
	Kind       string                     `json:"kind"                 yaml:"kind"`
	Message    string                     `json:"message"              yaml:"message"`
	Cached     bool                       `json:"cached,omitempty"     yaml:"cached,omitempty"`
	Quote      *query.Quote               `json:"quote,omitempty"      yaml:"quote,omitempty"`
	Rows       []session.Row              `json:"rows,omitempty"       yaml:"rows,omitempty"`
	Page       *pagination.PaginationMeta `json:"page,omitempty"       yaml:"page,omitempty"`
	Comparison *query.Comparison          `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

func newReplyDoc(r query.Reply) replyDoc {
	doc := replyDoc{
		Kind:       string(r.Kind),
		Message:    r.Message,
		Cached:     r.Cached,
		Quote:      r.Quote,
		Rows:       r.Rows,
		Page:       r.Page,
		Comparison: r.Comparison,
	}
	if r.History != nil {
		doc.Rows = r.History.Records()
	}
	return doc
}

// renderReply writes r to w in format. An empty format selects table.
func renderReply(w io.Writer, r query.Reply, format string, precision int) error {
	switch strings.ToLower(format) {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newReplyDoc(r))
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(newReplyDoc(r))
	case config.OutputTable, "":
		return renderReplyTable(w, r, precision)
	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidOutput, format)
	}
}

func renderReplyTable(w io.Writer, r query.Reply, precision int) error {
	var err error
	switch {
	case r.IsNotice():
	case r.Quote != nil:
		err = renderQuote(w, *r.Quote, precision)
	case r.History != nil:
		err = renderRows(w, r.History.Names(), r.History.Records(), precision)
	case r.Comparison != nil:
		err = renderComparison(w, r.Comparison, precision)
	case r.Kind == query.ReplyPage:
		err = renderRows(w, rowColumns(r.Rows), r.Rows, precision)
	}
	if err != nil {
		return err
	}

	msg := r.Message
	if r.Cached {
		msg += " (cached)"
	}
	if msg != "" {
		_, err = fmt.Fprintln(w, msg)
	}
	return err
}

func renderQuote(w io.Writer, q query.Quote, precision int) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', precision, 64) }

	fmt.Fprintf(tw, "Code:\t%s\n", q.Code)
	fmt.Fprintf(tw, "Name:\t%s\n", q.Name)
	fmt.Fprintf(tw, "Price:\t%s\n", f(q.Price))
	fmt.Fprintf(tw, "Change:\t%s (%s%%)\n", f(q.Change), f(q.ChangePct))
	fmt.Fprintf(tw, "Open / High / Low:\t%s / %s / %s\n", f(q.Open), f(q.High), f(q.Low))
	fmt.Fprintf(tw, "Prev close:\t%s\n", f(q.PrevClose))
	fmt.Fprintf(tw, "Volume:\t%s\n", humanize.Comma(q.Volume))
	fmt.Fprintf(tw, "Turnover:\t%s\n", humanize.CommafWithDigits(q.Turnover, precision))
	fmt.Fprintf(tw, "P/E, P/B:\t%s, %s\n", f(q.PERatio), f(q.PBRatio))
	fmt.Fprintf(tw, "Market cap:\t%s\n", humanize.CommafWithDigits(q.MarketCap, 0))
	if !q.UpdatedAt.IsZero() {
		fmt.Fprintf(tw, "Updated:\t%s\n", q.UpdatedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func renderRows(w io.Writer, columns []string, rows []map[string]any, precision int) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)

	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, name := range columns {
			cells[i] = formatValue(row[name], precision)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func renderComparison(w io.Writer, c *query.Comparison, precision int) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)

	fmt.Fprintf(tw, "CODE\tNAME\tPRICE\tCHANGE %%\t%dD CHANGE %%\tP/E\tMARKET CAP\n", c.Days)
	for _, m := range c.Stocks {
		period := "-"
		if m.PeriodChangePct != nil {
			period = formatValue(*m.PeriodChangePct, precision)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.Code, m.Name,
			formatValue(m.Price, precision), formatValue(m.ChangePct, precision), period,
			formatValue(m.PERatio, precision), humanize.CommafWithDigits(m.MarketCap, 0))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if c.Summary.BestPeriod != "" {
		fmt.Fprintf(w, "Best performer over %d days: %s\n", c.Days, c.Summary.BestPeriod)
	}
	if len(c.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped: %s\n", strings.Join(c.Skipped, ", "))
	}
	return nil
}

// rowColumns orders code and name first, then the remaining fields alphabetically.
func rowColumns(rows []session.Row) []string {
	seen := make(map[string]bool)
	var rest []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				if k != "code" && k != "name" {
					rest = append(rest, k)
				}
			}
		}
	}
	slices.Sort(rest)

	var out []string
	for _, k := range []string{"code", "name"} {
		if seen[k] {
			out = append(out, k)
		}
	}
	return append(out, rest...)
}

func formatValue(v any, precision int) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', precision, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', precision, 32)
	case int:
		return humanize.Comma(int64(x))
	case int64:
		return humanize.Comma(x)
	case uint64:
		return humanize.Comma(int64(x)) //nolint:gosec // market volumes fit in int64
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprint(x)
	}
}
