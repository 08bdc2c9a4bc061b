package query

import (
	"context"
	"time"

	"github.com/rshade/stork/internal/frame"
	"github.com/rshade/stork/internal/session"
)

// Criteria are screen filter parameters, e.g. {"pe_max": 20, "industry": "bank"}.
// The reserved key "sort" ("field" or "field:desc") orders the result set.
type Criteria = map[string]any

// SortKey is the criteria key holding the sort expression.
const SortKey = "sort"

// Quote is a realtime snapshot of one stock.
type Quote struct {
	Code      string    `json:"code"                 yaml:"code"`
	Name      string    `json:"name"                 yaml:"name"`
	Price     float64   `json:"price"                yaml:"price"`
	Change    float64   `json:"change"               yaml:"change"`
	ChangePct float64   `json:"change_pct"           yaml:"change_pct"`
	Open      float64   `json:"open,omitempty"       yaml:"open,omitempty"`
	High      float64   `json:"high,omitempty"       yaml:"high,omitempty"`
	Low       float64   `json:"low,omitempty"        yaml:"low,omitempty"`
	PrevClose float64   `json:"prev_close,omitempty" yaml:"prev_close,omitempty"`
	Volume    int64     `json:"volume,omitempty"     yaml:"volume,omitempty"`
	Turnover  float64   `json:"turnover,omitempty"   yaml:"turnover,omitempty"`
	PERatio   float64   `json:"pe_ratio,omitempty"   yaml:"pe_ratio,omitempty"`
	PBRatio   float64   `json:"pb_ratio,omitempty"   yaml:"pb_ratio,omitempty"`
	MarketCap float64   `json:"market_cap,omitempty" yaml:"market_cap,omitempty"`
	UpdatedAt time.Time `json:"updated_at"           yaml:"updated_at"`
}

// Provider is the upstream market-data source.
type Provider interface {
	// Quote returns the realtime quote for a normalized six-digit code.
	Quote(ctx context.Context, code string) (Quote, error)
	// History returns up to days daily bars, oldest first, with at least
	// "date" and "close" columns.
	History(ctx context.Context, code string, days int) (*frame.Frame, error)
	// Screen returns every stock matching criteria, in provider order.
	Screen(ctx context.Context, criteria Criteria) ([]session.Row, error)
	// Search returns stocks whose code or name matches keyword.
	Search(ctx context.Context, keyword string) ([]session.Row, error)
}

// Exporter writes a session snapshot in format (csv, excel, json) and returns
// the path it wrote.
type Exporter interface {
	Export(ctx context.Context, snapshot session.Snapshot, format string) (string, error)
}
