package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAndGet(t *testing.T) {
	r := NewRegistry()
	s := r.Create()
	assert.Len(t, s.ID(), 26)

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	other := r.Create()
	assert.NotEqual(t, s.ID(), other.ID())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := NewRegistry()
	a := r.GetOrCreate("a")
	b := r.GetOrCreate("b")

	require.NoError(t, a.Start(KindScreen, nil, makeRows(10), 5))
	_, err := b.NextPage()
	assert.ErrorIs(t, err, ErrNoActiveSession)

	assert.Same(t, a, r.GetOrCreate("a"))
}

func TestRegistry_Expiry(t *testing.T) {
	clock := newClock()
	r := NewRegistry(WithClock(clock.now), WithIdleTimeout(time.Minute))

	stale := r.GetOrCreate(DefaultHandle)
	fresh := r.Create()
	require.NoError(t, stale.Start(KindScreen, nil, makeRows(3), 1))

	clock.advance(2 * time.Minute)
	require.NoError(t, fresh.Start(KindScreen, nil, makeRows(3), 1))

	assert.Equal(t, 1, r.CleanupExpired())
	assert.Equal(t, 1, r.Len())

	_, err := r.Get(DefaultHandle)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	replacement := r.GetOrCreate(DefaultHandle)
	assert.NotSame(t, stale, replacement)
	assert.False(t, replacement.Active())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	s := r.GetOrCreate(DefaultHandle)
	require.NoError(t, s.Start(KindScreen, nil, makeRows(3), 1))

	r.Remove(DefaultHandle)
	r.Remove(DefaultHandle)
	assert.Equal(t, 0, r.Len())
	assert.False(t, s.Active())
}
