package fixture

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stork/internal/frame"
	"github.com/rshade/stork/internal/query"
)

func loadSample(t *testing.T) *Provider {
	t.Helper()
	p, err := Load(filepath.Join("testdata", "market.yaml"))
	require.NoError(t, err)
	return p
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse([]byte("quotes: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("universe:\n  - {name: no code}\n"))
	assert.ErrorContains(t, err, "missing string code")

	_, err = Parse([]byte("quotes:\n  - {name: nameless}\n"))
	assert.Error(t, err)
}

func TestProvider_Quote(t *testing.T) {
	p := loadSample(t)
	ctx := context.Background()

	q, err := p.Quote(ctx, "sh600519")
	require.NoError(t, err)
	assert.Equal(t, "Kweichow Moutai", q.Name)
	assert.InDelta(t, 1688.0, q.Price, 1e-9)
	assert.Equal(t, int64(2861300), q.Volume)
	assert.False(t, q.UpdatedAt.IsZero())

	bank, err := p.Quote(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "000001", bank.Code, "fixture codes are normalized")

	_, err = p.Quote(ctx, "999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvider_History(t *testing.T) {
	p := loadSample(t)
	ctx := context.Background()

	f, err := p.History(ctx, "000001", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []string{"date", "open", "high", "low", "close", "volume"}, f.Names())

	closes, err := f.Column("close")
	require.NoError(t, err)
	assert.Equal(t, []float64{10.50, 10.50, 10.42}, closes.Floats, "bars are sorted by date")

	volume, err := f.Column("volume")
	require.NoError(t, err)
	assert.Equal(t, frame.KindInt, volume.Kind)

	all, err := p.History(ctx, "600519", 100)
	require.NoError(t, err)
	assert.Equal(t, 6, all.Len())

	_, err = p.History(ctx, "300750", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProvider_Screen(t *testing.T) {
	p := loadSample(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		criteria query.Criteria
		want     []string
	}{
		{name: "all", criteria: query.Criteria{}, want: []string{
			"600519", "000858", "000001", "600036", "601398", "300750", "002594",
		}},
		{name: "industry case-insensitive", criteria: query.Criteria{"industry": "bank"}, want: []string{
			"000001", "600036", "601398",
		}},
		{name: "range", criteria: query.Criteria{"pe_min": 15, "pe_max": 22.0}, want: []string{
			"000858", "300750", "002594",
		}},
		{name: "combined", criteria: query.Criteria{"industry": "Bank", "pct_chg_min": 0.2}, want: []string{
			"600036",
		}},
		{name: "unknown field excludes", criteria: query.Criteria{"roe_min": 10}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := p.Screen(ctx, tt.criteria)
			require.NoError(t, err)
			codes := make([]string, 0, len(rows))
			for _, r := range rows {
				codes = append(codes, r["code"].(string))
			}
			assert.Equal(t, tt.want, codes)
		})
	}

	_, err := p.Screen(ctx, query.Criteria{"pe_max": "cheap"})
	assert.Error(t, err)
}

func TestProvider_Search(t *testing.T) {
	p := loadSample(t)
	ctx := context.Background()

	rows, err := p.Search(ctx, "bank")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = p.Search(ctx, "6005")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Kweichow Moutai", rows[0]["name"])

	rows, err = p.Search(ctx, "nothing-matches")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
