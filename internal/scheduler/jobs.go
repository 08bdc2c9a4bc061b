package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Job names.
const (
	CacheSweepJobName   = "cache_sweep"
	SessionSweepJobName = "session_sweep"
)

// ExpiredEntrySweeper removes expired cache entries.
type ExpiredEntrySweeper interface {
	CleanupExpired() (int, error)
}

// IdleSessionSweeper drops idle sessions.
type IdleSessionSweeper interface {
	CleanupExpired() int
}

// CacheSweepJob deletes expired cache files for disk hygiene.
type CacheSweepJob struct {
	store ExpiredEntrySweeper
	log   zerolog.Logger
}

// NewCacheSweepJob creates a cache sweep job.
func NewCacheSweepJob(store ExpiredEntrySweeper, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		store: store,
		log:   log.With().Str("job", CacheSweepJobName).Logger(),
	}
}

// Run removes every expired entry.
func (j *CacheSweepJob) Run() error {
	removed, err := j.store.CleanupExpired()
	if err != nil {
		j.log.Error().Err(err).Int("removed", removed).Msg("failed to sweep expired cache entries")
		return fmt.Errorf("sweeping cache: %w", err)
	}
	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("swept expired cache entries")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *CacheSweepJob) Name() string {
	return CacheSweepJobName
}

// SessionSweepJob drops idle sessions from a registry.
type SessionSweepJob struct {
	registry IdleSessionSweeper
	log      zerolog.Logger
}

// NewSessionSweepJob creates a session sweep job.
func NewSessionSweepJob(registry IdleSessionSweeper, log zerolog.Logger) *SessionSweepJob {
	return &SessionSweepJob{
		registry: registry,
		log:      log.With().Str("job", SessionSweepJobName).Logger(),
	}
}

// Run drops every idle session.
func (j *SessionSweepJob) Run() error {
	if removed := j.registry.CleanupExpired(); removed > 0 {
		j.log.Info().Int("removed", removed).Msg("dropped idle sessions")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SessionSweepJob) Name() string {
	return SessionSweepJobName
}
