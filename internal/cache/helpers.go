package cache

import (
	"context"
	"errors"

	"github.com/rshade/stork/internal/logging"
)

// Getter reads entries.
type Getter interface {
	Get(key string) (*Entry, error)
}

// Store is the read/write surface used by the data layer.
type Store interface {
	Getter
	Set(key string, payload any, category Category) error
	Invalidate(key string) error
}

// GetAs reads key and decodes it into a T. A miss or a payload that does not
// decode into T reports false.
func GetAs[T any](g Getter, key string) (T, bool) {
	var out T
	entry, err := g.Get(key)
	if err != nil {
		return out, false
	}
	if decodeErr := entry.Decode(&out); decodeErr != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// Remember returns the cached value for key or calls fetch and caches its
// result under category. Cache write failures are logged and otherwise
// ignored; fetch errors are returned. The boolean reports a cache hit.
func Remember[T any](
	ctx context.Context,
	s Store,
	key string,
	category Category,
	fetch func(context.Context) (T, error),
) (T, bool, error) {
	log := logging.FromContext(ctx)

	entry, err := s.Get(key)
	if err == nil {
		var cached T
		decodeErr := entry.Decode(&cached)
		if decodeErr == nil {
			log.Debug().Ctx(ctx).Str("component", "cache").Str("key", key).Msg("cache hit")
			return cached, true, nil
		}
		log.Warn().
			Ctx(ctx).
			Str("component", "cache").
			Str("key", key).
			Err(decodeErr).
			Msg("cached payload does not match requested type, refetching")
		_ = s.Invalidate(key)
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	if setErr := s.Set(key, value, category); setErr != nil && !errors.Is(setErr, ErrCacheDisabled) {
		log.Warn().
			Ctx(ctx).
			Str("component", "cache").
			Str("key", key).
			Str("category", string(category)).
			Err(setErr).
			Msg("cache write failed, continuing without cache")
	}

	return value, false, nil
}
