package query

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/frame"
	"github.com/rshade/stork/internal/logging"
)

// compareConcurrency bounds the per-stock fetches Compare runs at once.
const compareConcurrency = 4

// historyPadding is the number of extra bars fetched so the period start is
// available even when the window spans non-trading days.
const historyPadding = 10

// ErrNoComparableStocks is returned when no requested stock could be fetched.
var ErrNoComparableStocks = errors.New("no stocks could be compared")

// StockMetrics is one row of a comparison.
type StockMetrics struct {
	Code      string  `json:"code" yaml:"code"`
	Name      string  `json:"name" yaml:"name"`
	Price     float64 `json:"price" yaml:"price"`
	ChangePct float64 `json:"change_pct" yaml:"change_pct"`
	// PeriodChangePct is the close-to-close change over the window; nil when
	// the history is too short.
	PeriodChangePct *float64 `json:"period_change_pct" yaml:"period_change_pct"`
	PERatio         float64  `json:"pe_ratio,omitempty" yaml:"pe_ratio,omitempty"`
	PBRatio         float64  `json:"pb_ratio,omitempty" yaml:"pb_ratio,omitempty"`
	MarketCap       float64  `json:"market_cap,omitempty" yaml:"market_cap,omitempty"`
}

// ComparisonSummary highlights the extremes across compared stocks.
type ComparisonSummary struct {
	Total        int     `json:"total" yaml:"total"`
	MaxMarketCap float64 `json:"max_market_cap,omitempty" yaml:"max_market_cap,omitempty"`
	MinPERatio   float64 `json:"min_pe_ratio,omitempty" yaml:"min_pe_ratio,omitempty"`
	BestPeriod   string  `json:"best_period,omitempty" yaml:"best_period,omitempty"`
}

// Comparison is the result of Compare.
type Comparison struct {
	Days    int               `json:"days" yaml:"days"`
	Stocks  []StockMetrics    `json:"stocks" yaml:"stocks"`
	Skipped []string          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Summary ComparisonSummary `json:"summary" yaml:"summary"`
}

// Compare fetches quote and history for every code concurrently and compares
// them over the last days bars. Stocks that fail to fetch are skipped.
func (s *Service) Compare(ctx context.Context, codes []string, days int) (Reply, error) {
	if len(codes) == 0 {
		return Reply{}, ErrEmptyCode
	}
	if days <= 0 {
		return Reply{}, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}
	ctx = s.traced(ctx)
	log := logging.FromContext(ctx)

	results := make([]*StockMetrics, len(codes))
	var (
		mu      sync.Mutex
		skipped []string
		allHit  = true
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(compareConcurrency)
	for i, raw := range codes {
		g.Go(func() error {
			code := cache.NormalizeCode(raw)
			m, hit, err := s.metrics(gctx, code, days)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warn().Ctx(gctx).Str("component", "query").Str("code", code).Err(err).Msg("skipping stock in comparison")
				mu.Lock()
				skipped = append(skipped, code)
				mu.Unlock()
				return nil
			}
			results[i] = m
			if !hit {
				mu.Lock()
				allHit = false
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Reply{}, err
	}

	cmp := Comparison{Days: days, Skipped: skipped}
	for _, m := range results {
		if m != nil {
			cmp.Stocks = append(cmp.Stocks, *m)
		}
	}
	if len(cmp.Stocks) == 0 {
		return Reply{}, fmt.Errorf("%w: %v", ErrNoComparableStocks, codes)
	}
	cmp.Summary = summarize(cmp.Stocks)

	return Reply{
		Kind:       ReplyCompare,
		Message:    s.printer.Sprintf("Compared %d stocks over %d days", len(cmp.Stocks), days),
		Cached:     allHit,
		Comparison: &cmp,
	}, nil
}

func (s *Service) metrics(ctx context.Context, code string, days int) (*StockMetrics, bool, error) {
	key := cache.NewKeyBuilder(cache.CategoryRealtime).Code(code).Build()
	q, quoteHit, err := cached(ctx, s, key, cache.CategoryRealtime, func(ctx context.Context) (Quote, error) {
		return s.provider.Quote(ctx, code)
	})
	if err != nil {
		return nil, false, fmt.Errorf("fetching quote for %s: %w", code, err)
	}

	hist, histHit, err := s.history(ctx, code, days+historyPadding)
	if err != nil {
		return nil, false, err
	}

	return &StockMetrics{
		Code:            code,
		Name:            q.Name,
		Price:           q.Price,
		ChangePct:       q.ChangePct,
		PeriodChangePct: periodChange(hist, days),
		PERatio:         q.PERatio,
		PBRatio:         q.PBRatio,
		MarketCap:       q.MarketCap,
	}, quoteHit && histHit, nil
}

// periodChange returns the percent change from the close days bars ago to
// the last close, or nil when the history holds no more than days bars.
func periodChange(hist *frame.Frame, days int) *float64 {
	closes, err := hist.Column("close")
	if err != nil || closes.Kind != frame.KindFloat {
		return nil
	}
	n := len(closes.Floats)
	if n <= days {
		return nil
	}
	start := closes.Floats[n-days]
	if start == 0 {
		return nil
	}
	pct := (closes.Floats[n-1] - start) / start * 100
	return &pct
}

func summarize(stocks []StockMetrics) ComparisonSummary {
	sum := ComparisonSummary{Total: len(stocks)}
	var best *float64
	for _, st := range stocks {
		if st.MarketCap > sum.MaxMarketCap {
			sum.MaxMarketCap = st.MarketCap
		}
		if st.PERatio > 0 && (sum.MinPERatio == 0 || st.PERatio < sum.MinPERatio) {
			sum.MinPERatio = st.PERatio
		}
		if st.PeriodChangePct != nil && (best == nil || *st.PeriodChangePct > *best) {
			best = st.PeriodChangePct
			sum.BestPeriod = st.Code
		}
	}
	return sum
}
