package session

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// DefaultHandle is the handle used when a caller serves a single session.
const DefaultHandle = "default"

// Registry holds sessions keyed by handle. Sessions created by the registry
// share its options.
type Registry struct {
	opts []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry. opts apply to every session it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new Empty session under a fresh ULID handle.
func (r *Registry) Create() *Session {
	return r.create(ulid.Make().String())
}

// Get returns the session for handle. Idle sessions are dropped and reported
// as ErrSessionNotFound.
func (r *Registry) Get(handle string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[handle]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Expired() {
		delete(r.sessions, handle)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// GetOrCreate returns the live session for handle, replacing a missing or
// idle one with a new Empty session.
func (r *Registry) GetOrCreate(handle string) *Session {
	if s, err := r.Get(handle); err == nil {
		return s
	}
	return r.create(handle)
}

// Remove clears and drops the session for handle. Unknown handles are ignored.
func (r *Registry) Remove(handle string) {
	r.mu.Lock()
	s, ok := r.sessions[handle]
	delete(r.sessions, handle)
	r.mu.Unlock()

	if ok {
		s.Clear()
	}
}

// CleanupExpired drops every idle session and returns how many were dropped.
func (r *Registry) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for handle, s := range r.sessions {
		if s.Expired() {
			delete(r.sessions, handle)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) create(handle string) *Session {
	opts := append(append(make([]Option, 0, len(r.opts)+1), r.opts...), withID(handle))
	s := New(opts...)

	r.mu.Lock()
	r.sessions[handle] = s
	r.mu.Unlock()
	return s
}
