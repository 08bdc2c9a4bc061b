package cache

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category selects the TTL policy for an entry. It is always supplied by the
// caller; the store never infers it from payload content.
type Category string

// Data categories.
const (
	CategoryRealtime Category = "realtime"
	CategoryHistory  Category = "history"
	CategoryScreen   Category = "screen"
	CategoryStatic   Category = "static"
)

// Default TTLs per category.
const (
	TTLRealtime = 5 * time.Minute
	TTLHistory  = 24 * time.Hour
	TTLScreen   = time.Hour
	TTLStatic   = 7 * 24 * time.Hour
)

// TTL override bounds.
const (
	// MinTTL is the smallest accepted override (1 minute).
	MinTTL = time.Minute

	// MaxTTL is the largest accepted override (7 days).
	MaxTTL = 7 * 24 * time.Hour

	// minutesPerHour is used for duration formatting calculations.
	minutesPerHour = 60

	// hoursPerDay is used for duration formatting calculations.
	hoursPerDay = 24
)

// Category and TTL errors.
var (
	ErrUnknownCategory = errors.New("unknown cache category")
	ErrInvalidTTL      = fmt.Errorf("TTL must be between %s and %s", MinTTL, MaxTTL)
)

// Categories returns every known category in a stable order.
func Categories() []Category {
	return []Category{CategoryRealtime, CategoryHistory, CategoryScreen, CategoryStatic}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryRealtime, CategoryHistory, CategoryScreen, CategoryStatic:
		return true
	default:
		return false
	}
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// CategoryForIntent maps a query intent to its data category. Unknown intents
// are treated as static data.
func CategoryForIntent(intent string) Category {
	switch strings.ToLower(strings.TrimSpace(intent)) {
	case "realtime", "quote", "price":
		return CategoryRealtime
	case "history", "kline", "financial":
		return CategoryHistory
	case "screen", "screener", "filter":
		return CategoryScreen
	default:
		return CategoryStatic
	}
}

// TTLPolicy maps each category to its time-to-live.
type TTLPolicy map[Category]time.Duration

// DefaultTTLPolicy returns the fixed category→TTL table.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		CategoryRealtime: TTLRealtime,
		CategoryHistory:  TTLHistory,
		CategoryScreen:   TTLScreen,
		CategoryStatic:   TTLStatic,
	}
}

// TTL returns the time-to-live for c.
func (p TTLPolicy) TTL(c Category) (time.Duration, error) {
	ttl, ok := p[c]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}
	return ttl, nil
}

// WithOverrides returns a copy of p with the given categories replaced.
// Every override must name a known category and lie within [MinTTL, MaxTTL].
func (p TTLPolicy) WithOverrides(overrides map[Category]time.Duration) (TTLPolicy, error) {
	out := make(TTLPolicy, len(p))
	for c, ttl := range p {
		out[c] = ttl
	}
	for c, ttl := range overrides {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
		if err := ValidateTTL(ttl); err != nil {
			return nil, fmt.Errorf("category %s: %w", c, err)
		}
		out[c] = ttl
	}
	return out, nil
}

// ValidateTTL checks that ttl lies within the accepted override range.
func ValidateTTL(ttl time.Duration) error {
	if ttl < MinTTL || ttl > MaxTTL {
		return fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}
	return nil
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "5m", "1h", "1h30m", "7d".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

// ParseTTL parses a TTL string in various formats:
// - Integer seconds: "3600".
// - Duration string: "1h", "30m", "1h30m".
func ParseTTL(s string) (time.Duration, error) {
	var ttl time.Duration
	if seconds, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		ttl = time.Duration(seconds) * time.Second
	} else {
		parsed, parseErr := time.ParseDuration(strings.TrimSpace(s))
		if parseErr != nil {
			return 0, fmt.Errorf("invalid TTL format: %w", parseErr)
		}
		ttl = parsed
	}

	if err := ValidateTTL(ttl); err != nil {
		return 0, err
	}
	return ttl, nil
}
