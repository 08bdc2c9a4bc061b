package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTTLPolicy(t *testing.T) {
	p := DefaultTTLPolicy()

	want := map[Category]time.Duration{
		CategoryRealtime: 5 * time.Minute,
		CategoryHistory:  24 * time.Hour,
		CategoryScreen:   time.Hour,
		CategoryStatic:   7 * 24 * time.Hour,
	}
	for c, ttl := range want {
		got, err := p.TTL(c)
		require.NoError(t, err)
		assert.Equal(t, ttl, got, c)
	}

	_, err := p.TTL("weekly")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestTTLPolicy_WithOverrides(t *testing.T) {
	base := DefaultTTLPolicy()

	t.Run("valid override leaves base untouched", func(t *testing.T) {
		p, err := base.WithOverrides(map[Category]time.Duration{CategoryRealtime: 2 * time.Minute})
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, p[CategoryRealtime])
		assert.Equal(t, TTLRealtime, base[CategoryRealtime])
		assert.Equal(t, TTLHistory, p[CategoryHistory])
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := base.WithOverrides(map[Category]time.Duration{CategoryScreen: time.Second})
		require.ErrorIs(t, err, ErrInvalidTTL)

		_, err = base.WithOverrides(map[Category]time.Duration{CategoryStatic: 8 * 24 * time.Hour})
		require.ErrorIs(t, err, ErrInvalidTTL)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := base.WithOverrides(map[Category]time.Duration{"weekly": time.Hour})
		require.ErrorIs(t, err, ErrUnknownCategory)
	})
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" History ")
	require.NoError(t, err)
	assert.Equal(t, CategoryHistory, c)

	_, err = ParseCategory("intraday")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestCategoryForIntent(t *testing.T) {
	tests := map[string]Category{
		"quote":     CategoryRealtime,
		"PRICE":     CategoryRealtime,
		"kline":     CategoryHistory,
		"financial": CategoryHistory,
		"screener":  CategoryScreen,
		"filter":    CategoryScreen,
		"stocklist": CategoryStatic,
		"":          CategoryStatic,
	}
	for intent, want := range tests {
		assert.Equal(t, want, CategoryForIntent(intent), intent)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h30m"},
		{7 * 24 * time.Hour, "7d"},
		{26 * time.Hour, "1d2h"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d))
	}
}

func TestParseTTL(t *testing.T) {
	ttl, err := ParseTTL("300")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	ttl, err = ParseTTL("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, ttl)

	_, err = ParseTTL("10")
	require.ErrorIs(t, err, ErrInvalidTTL)

	_, err = ParseTTL("soon")
	require.Error(t, err)
}
