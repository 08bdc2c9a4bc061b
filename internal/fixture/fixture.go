// Package fixture provides a file-backed market-data provider. It reads
// quotes, daily bars and a screening universe from a YAML document so the
// query commands work without the upstream service.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/frame"
	"github.com/rshade/stork/internal/query"
	"github.com/rshade/stork/internal/session"
)

// Criteria key suffixes for numeric range filters.
const (
	suffixMin = "_min"
	suffixMax = "_max"
)

// ErrNotFound is returned for codes the fixture does not contain.
var ErrNotFound = errors.New("stock not found in fixture")

// Bar is one daily OHLCV bar.
type Bar struct {
	Date   time.Time `yaml:"date"`
	Open   float64   `yaml:"open"`
	High   float64   `yaml:"high"`
	Low    float64   `yaml:"low"`
	Close  float64   `yaml:"close"`
	Volume int64     `yaml:"volume"`
}

// Document is the fixture file layout.
type Document struct {
	Quotes   []query.Quote    `yaml:"quotes"`
	History  map[string][]Bar `yaml:"history"`
	Universe []session.Row    `yaml:"universe"`
}

// Provider serves a Document. It implements query.Provider.
type Provider struct {
	quotes   map[string]query.Quote
	history  map[string][]Bar
	universe []session.Row
}

var _ query.Provider = (*Provider)(nil)

// Load reads a fixture file.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a fixture document. Codes are normalized and bars sorted by date.
func Parse(data []byte) (*Provider, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return New(doc)
}

// New builds a Provider from an in-memory document.
func New(doc Document) (*Provider, error) {
	p := &Provider{
		quotes:   make(map[string]query.Quote, len(doc.Quotes)),
		history:  make(map[string][]Bar, len(doc.History)),
		universe: make([]session.Row, 0, len(doc.Universe)),
	}

	for _, q := range doc.Quotes {
		if strings.TrimSpace(q.Code) == "" {
			return nil, errors.New("quote without code")
		}
		q.Code = cache.NormalizeCode(q.Code)
		p.quotes[q.Code] = q
	}

	for code, bars := range doc.History {
		sorted := slices.Clone(bars)
		slices.SortFunc(sorted, func(a, b Bar) int { return a.Date.Compare(b.Date) })
		p.history[cache.NormalizeCode(code)] = sorted
	}

	for i, row := range doc.Universe {
		code, ok := row["code"].(string)
		if !ok || code == "" {
			return nil, fmt.Errorf("universe row %d: missing string code", i)
		}
		normalized := make(session.Row, len(row))
		for k, v := range row {
			normalized[k] = v
		}
		normalized["code"] = cache.NormalizeCode(code)
		p.universe = append(p.universe, normalized)
	}

	return p, nil
}

// Quote returns the quote for code.
func (p *Provider) Quote(_ context.Context, code string) (query.Quote, error) {
	q, ok := p.quotes[cache.NormalizeCode(code)]
	if !ok {
		return query.Quote{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return q, nil
}

// History returns the last days bars for code as a frame with date, open,
// high, low, close and volume columns.
func (p *Provider) History(_ context.Context, code string, days int) (*frame.Frame, error) {
	bars, ok := p.history[cache.NormalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if days > 0 && days < len(bars) {
		bars = bars[len(bars)-days:]
	}

	n := len(bars)
	dates := make([]time.Time, n)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]int64, n)
	for i, b := range bars {
		dates[i] = b.Date
		opens[i] = b.Open
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	return frame.New(
		frame.TimeColumn("date", dates...),
		frame.FloatColumn("open", opens...),
		frame.FloatColumn("high", highs...),
		frame.FloatColumn("low", lows...),
		frame.FloatColumn("close", closes...),
		frame.IntColumn("volume", volumes...),
	)
}

// Screen filters the universe. A criteria key "<field>_min" or "<field>_max"
// bounds a numeric field; any other key must equal the field value, compared
// case-insensitively for strings. Rows lacking a filtered field are excluded.
func (p *Provider) Screen(_ context.Context, criteria query.Criteria) ([]session.Row, error) {
	out := make([]session.Row, 0, len(p.universe))
	for _, row := range p.universe {
		match, err := matches(row, criteria)
		if err != nil {
			return nil, err
		}
		if match {
			out = append(out, row)
		}
	}
	return out, nil
}

// Search returns rows whose code or name contains keyword.
func (p *Provider) Search(_ context.Context, keyword string) ([]session.Row, error) {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	var out []session.Row
	for _, row := range p.universe {
		code, _ := row["code"].(string)
		name, _ := row["name"].(string)
		if strings.Contains(code, needle) || strings.Contains(strings.ToLower(name), needle) {
			out = append(out, row)
		}
	}
	return out, nil
}

func matches(row session.Row, criteria query.Criteria) (bool, error) {
	for key, want := range criteria {
		switch {
		case strings.HasSuffix(key, suffixMin), strings.HasSuffix(key, suffixMax):
			field := key[:len(key)-len(suffixMin)]
			bound, ok := toFloat(want)
			if !ok {
				return false, fmt.Errorf("criteria %s: expected a number, got %v", key, want)
			}
			got, ok := toFloat(row[field])
			if !ok {
				return false, nil
			}
			if strings.HasSuffix(key, suffixMin) && got < bound {
				return false, nil
			}
			if strings.HasSuffix(key, suffixMax) && got > bound {
				return false, nil
			}
		default:
			got, ok := row[key]
			if !ok || !equalValues(got, want) {
				return false, nil
			}
		}
	}
	return true, nil
}

func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.EqualFold(as, bs)
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
