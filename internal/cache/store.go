package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/stork/internal/logging"
)

// Common cache errors.
var (
	// ErrCacheMiss is returned by Get when no fresh entry exists. It is normal
	// control flow, not a failure.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable wraps storage failures on write. Callers should log
	// it and proceed without caching.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrCacheCorrupted marks an unreadable entry. Get logs it and reports a miss.
	ErrCacheCorrupted = errors.New("cache entry corrupted")

	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// FileStore provides file-based caching with per-category TTL expiration.
// Plain entries live under <dir>/json, structured entries under <dir>/msgpack.
// Writes go through a temp file and rename, so readers never observe a
// partially written entry.
type FileStore struct {
	// directory is the cache root.
	directory string

	// enabled controls whether caching is active.
	enabled bool

	// policy maps categories to TTLs.
	policy TTLPolicy

	// now is the clock used for expiry decisions.
	now func() time.Time

	// log receives corruption warnings and eviction events.
	log zerolog.Logger

	// hot is the optional in-memory tier.
	hot *memoryTier

	// mu serializes writers; readers take the read lock.
	mu sync.RWMutex

	// afterRead, when set, runs between reading an entry file and promoting
	// it into the memory tier.
	afterRead func(key string)
}

// tempGracePeriod is how old an orphaned temp file must be before a sweep
// removes it.
const tempGracePeriod = time.Minute

//nolint:gochecknoglobals // fixed escape table
var keyEscaper = strings.NewReplacer("%", "%25", "/", "%2F", "\\", "%5C", ":", "%3A")

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *FileStore) {
		s.log = logging.ComponentLogger(l, "cache")
	}
}

// WithMemoryTier puts an in-memory tier in front of the files.
func WithMemoryTier() Option {
	return func(s *FileStore) {
		s.hot = newMemoryTier()
	}
}

// NewFileStore creates a file-based cache store rooted at directory.
// The json/ and msgpack/ subdirectories are created if missing. A disabled
// store misses on every Get and rejects every Set with ErrCacheDisabled.
func NewFileStore(directory string, enabled bool, policy TTLPolicy, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		directory: directory,
		enabled:   enabled,
		policy:    policy,
		now:       time.Now,
		log:       logging.ComponentLogger(logging.Default(), "cache"),
	}
	if policy == nil {
		s.policy = DefaultTTLPolicy()
	}
	for _, opt := range opts {
		opt(s)
	}

	if !enabled {
		return s, nil
	}

	if directory == "" {
		return nil, errors.New("cache directory cannot be empty")
	}

	for _, dir := range []string{s.modeDir(ModePlain), s.modeDir(ModeStructured)} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	return s, nil
}

// Get retrieves a fresh entry by key.
// Returns ErrCacheMiss when the entry is absent, expired or unreadable; it
// never returns any other error. Expired and unreadable files are deleted.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled || key == "" {
		return nil, ErrCacheMiss
	}

	now := s.now()

	if s.hot != nil {
		if e, ok := s.hot.get(key); ok {
			if !e.IsExpiredAt(now) {
				return e.clone(), nil
			}
			s.hot.delete(key)
		}
	}

	for _, mode := range []Mode{ModePlain, ModeStructured} {
		path := s.keyToFilePath(key, mode)

		s.mu.RLock()
		raw, info, err := readFile(path)
		s.mu.RUnlock()

		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.Warn().Err(err).Str("key", key).Str("path", path).Msg("cache read failed, treating as miss")
			}
			continue
		}

		entry, decodeErr := decodeEntry(mode, raw)
		if decodeErr != nil {
			s.log.Warn().
				Err(decodeErr).
				Str("key", key).
				Str("mode", string(mode)).
				Str("path", path).
				Msg("corrupted cache entry, evicting")
			s.evictIfUnchanged(path, info)
			return nil, ErrCacheMiss
		}

		if entry.Key != key {
			s.log.Warn().
				Str("key", key).
				Str("stored_key", entry.Key).
				Str("path", path).
				Msg("cache file holds a different key, treating as miss")
			return nil, ErrCacheMiss
		}

		if entry.IsExpiredAt(now) {
			s.log.Debug().
				Str("key", key).
				Str("category", string(entry.Category)).
				Time("expires_at", entry.ExpiresAt).
				Msg("cache entry expired, evicting")
			s.evictIfUnchanged(path, info)
			return nil, ErrCacheMiss
		}

		if s.afterRead != nil {
			s.afterRead(key)
		}
		if s.hot != nil {
			s.promote(path, info, entry, entry.TimeUntilExpiration(now))
		}
		return entry, nil
	}

	return nil, ErrCacheMiss
}

// Set stores payload under key with the TTL of category, overwriting any
// existing entry for the key in either mode. Storage failures are wrapped in
// ErrCacheUnavailable.
func (s *FileStore) Set(key string, payload any, category Category) error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	ttl, err := s.policy.TTL(category)
	if err != nil {
		return err
	}

	mode := ModeFor(payload)
	data, err := encodePayload(mode, payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", mode, err)
	}

	now := s.now()
	entry := &Entry{
		Key:           key,
		Category:      category,
		Mode:          mode,
		FormatVersion: FormatVersion,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
		Data:          data,
	}

	raw, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if writeErr := writeFileAtomic(s.keyToFilePath(key, mode), raw); writeErr != nil {
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, writeErr)
	}

	// A key lives in exactly one mode directory.
	other := ModePlain
	if mode == ModePlain {
		other = ModeStructured
	}
	if rmErr := os.Remove(s.keyToFilePath(key, other)); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		s.log.Warn().Err(rmErr).Str("key", key).Msg("failed to remove stale entry in other mode")
	}

	if s.hot != nil {
		s.hot.set(entry, ttl)
	}

	s.log.Debug().
		Str("key", key).
		Str("category", string(category)).
		Str("mode", string(mode)).
		Dur("ttl", ttl).
		Msg("cache entry written")

	return nil
}

// Invalidate removes the entry for key regardless of TTL. It is idempotent.
func (s *FileStore) Invalidate(key string) error {
	if !s.enabled {
		return nil
	}

	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hot != nil {
		s.hot.delete(key)
	}

	var errs []error
	for _, mode := range []Mode{ModePlain, ModeStructured} {
		err := os.Remove(s.keyToFilePath(key, mode))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to delete cache file: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Clear removes all cache entries from the store.
func (s *FileStore) Clear() error {
	if !s.enabled {
		return ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hot != nil {
		s.hot.flush()
	}

	err := s.walkEntriesLocked(func(path string, _ Mode, _ fs.DirEntry) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove cache file %s: %w", filepath.Base(path), err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.removeStaleTempLocked(s.now().Add(-tempGracePeriod))
	return nil
}

// CleanupExpired removes every expired or unreadable entry and returns how
// many were deleted. Temp files orphaned by interrupted writes are removed
// once older than a minute but are not counted. Correctness never depends on
// it; it only reclaims disk space.
func (s *FileStore) CleanupExpired() (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	err := s.walkEntriesLocked(func(path string, mode Mode, _ fs.DirEntry) error {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil //nolint:nilerr // skip files we can't read
		}

		entry, decodeErr := decodeEntry(mode, raw)
		if decodeErr == nil && !entry.IsExpiredAt(now) {
			return nil
		}

		if rmErr := os.Remove(path); rmErr == nil {
			removed++
			if s.hot != nil && entry != nil {
				s.hot.delete(entry.Key)
			}
		}
		return nil
	})
	if err != nil {
		return removed, err
	}

	s.removeStaleTempLocked(now.Add(-tempGracePeriod))
	return removed, nil
}

// CleanupOlderThan removes entries whose files were last written more than
// age ago, regardless of their TTL.
func (s *FileStore) CleanupOlderThan(age time.Duration) (int, error) {
	if !s.enabled {
		return 0, ErrCacheDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-age)
	removed := 0
	err := s.walkEntriesLocked(func(path string, _ Mode, d fs.DirEntry) error {
		info, infoErr := d.Info()
		if infoErr != nil || !info.ModTime().Before(cutoff) {
			return nil //nolint:nilerr // unreadable metadata is skipped
		}
		if rmErr := os.Remove(path); rmErr == nil {
			removed++
		}
		return nil
	})

	if s.hot != nil && removed > 0 {
		s.hot.flush()
	}

	return removed, err
}

// Stats summarizes the on-disk cache.
type Stats struct {
	PlainEntries      int
	StructuredEntries int
	TotalBytes        int64
}

// Entries returns the total number of entries (including expired ones).
func (st Stats) Entries() int {
	return st.PlainEntries + st.StructuredEntries
}

// Stats counts entries per mode and their total size.
func (s *FileStore) Stats() (Stats, error) {
	if !s.enabled {
		return Stats{}, ErrCacheDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	err := s.walkEntriesLocked(func(_ string, mode Mode, d fs.DirEntry) error {
		if mode == ModePlain {
			st.PlainEntries++
		} else {
			st.StructuredEntries++
		}
		if info, infoErr := d.Info(); infoErr == nil {
			st.TotalBytes += info.Size()
		}
		return nil
	})

	return st, err
}

// Inspect reads an entry without expiry checks or eviction. It is meant for
// diagnostics; use Get for normal reads.
func (s *FileStore) Inspect(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrCacheDisabled
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mode := range []Mode{ModePlain, ModeStructured} {
		raw, _, err := readFile(s.keyToFilePath(key, mode))
		if err != nil {
			continue
		}
		entry, err := decodeEntry(mode, raw)
		if err == nil && entry.Key != key {
			return nil, ErrCacheMiss
		}
		return entry, err
	}

	return nil, ErrCacheMiss
}

// IsEnabled returns true if caching is enabled.
func (s *FileStore) IsEnabled() bool {
	return s.enabled
}

// GetDirectory returns the cache root.
func (s *FileStore) GetDirectory() string {
	return s.directory
}

// Policy returns the TTL policy in effect.
func (s *FileStore) Policy() TTLPolicy {
	return s.policy
}

func (s *FileStore) modeDir(mode Mode) string {
	if mode == ModeStructured {
		return filepath.Join(s.directory, structuredDirName)
	}
	return filepath.Join(s.directory, plainDirName)
}

// keyToFilePath converts a cache key to a file path. Path separators, colons
// and percent signs are percent-encoded, so distinct keys never share a file.
func (s *FileStore) keyToFilePath(key string, mode Mode) string {
	safeKey := keyEscaper.Replace(key)

	ext := plainExtension
	if mode == ModeStructured {
		ext = structuredExt
	}
	return filepath.Join(s.modeDir(mode), safeKey+ext)
}

// walkEntriesLocked calls fn for every entry file in both mode directories.
// Temp files and foreign files are skipped. Must be called with mu held.
func (s *FileStore) walkEntriesLocked(fn func(path string, mode Mode, d fs.DirEntry) error) error {
	for _, mode := range []Mode{ModePlain, ModeStructured} {
		dir := s.modeDir(mode)
		ext := plainExtension
		if mode == ModeStructured {
			ext = structuredExt
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read cache directory: %w", err)
		}

		for _, d := range entries {
			if d.IsDir() || filepath.Ext(d.Name()) != ext {
				continue
			}
			if err := fn(filepath.Join(dir, d.Name()), mode, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeStaleTempLocked deletes temp files last modified before cutoff.
// Must be called with mu held.
func (s *FileStore) removeStaleTempLocked(cutoff time.Time) {
	for _, mode := range []Mode{ModePlain, ModeStructured} {
		dir := s.modeDir(mode)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, d := range entries {
			if d.IsDir() || filepath.Ext(d.Name()) != tempExtension {
				continue
			}
			info, infoErr := d.Info()
			if infoErr != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			path := filepath.Join(dir, d.Name())
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				s.log.Warn().Err(rmErr).Str("path", path).Msg("failed to remove orphaned temp file")
				continue
			}
			s.log.Debug().Str("path", path).Msg("removed orphaned temp file")
		}
	}
}

// promote stores entry in the memory tier unless path was rewritten or
// removed after it was read. Set updates the memory tier under the same lock.
func (s *FileStore) promote(path string, read os.FileInfo, entry *Entry, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !unchangedSince(path, read) {
		return
	}
	s.hot.set(entry, ttl)
}

// evictIfUnchanged deletes path unless it was rewritten after it was read.
func (s *FileStore) evictIfUnchanged(path string, read os.FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !unchangedSince(path, read) {
		return
	}
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
		s.log.Warn().Err(rmErr).Str("path", path).Msg("failed to evict cache file")
	}
}

// unchangedSince reports whether path is still the file described by read.
// Writes replace the file by rename, so a rewrite changes its identity.
func unchangedSince(path string, read os.FileInfo) bool {
	current, err := os.Stat(path)
	if err != nil || read == nil {
		return false
	}
	return os.SameFile(current, read) &&
		current.ModTime().Equal(read.ModTime()) &&
		current.Size() == read.Size()
}

func readFile(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return raw, info, nil
}

// writeFileAtomic writes to a temporary file first, then renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+tempExtension)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write cache file: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close cache file: %w", closeErr)
	}
	if chmodErr := os.Chmod(tmpPath, 0600); chmodErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod cache file: %w", chmodErr)
	}

	if renameErr := os.Rename(tmpPath, path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename cache file: %w", renameErr)
	}
	return nil
}
