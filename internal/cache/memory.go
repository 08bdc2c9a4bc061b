package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryCleanupInterval is how often the hot tier purges its own expired items.
const memoryCleanupInterval = 10 * time.Minute

// memoryTier keeps recently read or written entries in process memory. Its
// own expiration only reclaims memory; FileStore still checks ExpiresAt
// against its clock before serving a hit.
type memoryTier struct {
	items *gocache.Cache
}

func newMemoryTier() *memoryTier {
	return &memoryTier{items: gocache.New(gocache.NoExpiration, memoryCleanupInterval)}
}

func (m *memoryTier) get(key string) (*Entry, bool) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false
	}
	e, ok := v.(*Entry)
	return e, ok
}

func (m *memoryTier) set(e *Entry, ttl time.Duration) {
	if ttl <= 0 {
		m.items.Delete(e.Key)
		return
	}
	m.items.Set(e.Key, e.clone(), ttl)
}

func (m *memoryTier) delete(key string) {
	m.items.Delete(key)
}

func (m *memoryTier) flush() {
	m.items.Flush()
}

func (m *memoryTier) len() int {
	return m.items.ItemCount()
}
