package scheduler

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stork/internal/cache"
	"github.com/rshade/stork/internal/session"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))
	require.NoError(t, s.AddJob("*/15 * * * *", &countingJob{}))
	assert.Equal(t, 2, s.Len())

	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@hourly", &countingJob{}))

	s.Start()
	s.Stop()
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	failing := &countingJob{err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestScheduler_RunLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))

	s.run(&countingJob{err: errors.New("disk full")})
	assert.Contains(t, buf.String(), `"job":"counting"`)
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), `"component":"scheduler"`)
}

func TestCacheSweepJob(t *testing.T) {
	now := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	store, err := cache.NewFileStore(t.TempDir(), true, cache.DefaultTTLPolicy(), cache.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, store.Set("quote", map[string]any{"price": 10.5}, cache.CategoryRealtime))
	require.NoError(t, store.Set("universe", map[string]any{"count": 5000}, cache.CategoryStatic))

	now = now.Add(10 * time.Minute)

	job := NewCacheSweepJob(store, zerolog.Nop())
	assert.Equal(t, CacheSweepJobName, job.Name())
	require.NoError(t, job.Run())

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries())
}

type failingSweeper struct{}

func (failingSweeper) CleanupExpired() (int, error) { return 0, errors.New("permission denied") }

func TestCacheSweepJob_Error(t *testing.T) {
	err := NewCacheSweepJob(failingSweeper{}, zerolog.Nop()).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestSessionSweepJob(t *testing.T) {
	now := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	registry := session.NewRegistry(
		session.WithClock(func() time.Time { return now }),
		session.WithIdleTimeout(time.Minute),
	)
	registry.Create()
	registry.Create()

	now = now.Add(2 * time.Minute)
	job := NewSessionSweepJob(registry, zerolog.Nop())
	assert.Equal(t, SessionSweepJobName, job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 0, registry.Len())
}
