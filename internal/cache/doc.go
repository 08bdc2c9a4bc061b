// Package cache provides durable, file-based caching with per-category TTL
// expiration for market-data query results.
//
// Key features:
//   - Two parallel directories under the cache root: json/ holds plain entries
//     (human-inspectable JSON), msgpack/ holds structured entries (MessagePack,
//     type-preserving) such as *frame.Frame tables
//   - The serialization mode is decided once at Set time from the payload shape
//     and stored in the entry envelope, so Get never guesses
//   - TTL per data category (realtime 5m, history 1d, screen 1h, static 7d),
//     overridable through configuration
//   - Lazy eviction: an expired or unreadable entry is deleted when it is read;
//     CleanupExpired and the scheduler sweep only reclaim disk space
//   - Deterministic, order-insensitive keys with stock code normalization
//   - Optional in-memory hot tier in front of the files
//
// Get never fails: corruption, version skew and expiry all degrade to
// ErrCacheMiss. Set reports storage failures wrapped in ErrCacheUnavailable;
// callers log them and continue without caching.
package cache
