package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/stork/internal/logging"
	"github.com/rshade/stork/internal/pagination"
)

// DefaultIdleTimeout is how long a session may sit unused before it is
// treated as Empty.
const DefaultIdleTimeout = 30 * time.Minute

// Kind tags the query that produced the active result set.
type Kind string

// Query kinds.
const (
	KindNone   Kind = "none"
	KindScreen Kind = "screen"
	KindSearch Kind = "search"
)

// Row is one result row.
type Row = map[string]any

// Criteria are the parameters that produced the active result set.
type Criteria = map[string]any

// View is one page of the active result set.
type View struct {
	Rows       []Row
	Page       int
	TotalPages int
	TotalItems int
}

// Snapshot is the full unpaginated answer of the active session, handed to
// exporters.
type Snapshot struct {
	Kind      Kind
	Criteria  Criteria
	Rows      []Row
	CreatedAt time.Time
}

// Session is a pagination cursor over an in-memory result set. The zero
// value is not usable; construct with New.
type Session struct {
	id          string
	idleTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger

	mu           sync.Mutex
	active       bool
	kind         Kind
	criteria     Criteria
	rows         []Row
	pageSize     int
	currentPage  int
	createdAt    time.Time
	lastActivity time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the clock used for idle expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIdleTimeout sets the idle timeout. Zero or negative disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.idleTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = logging.ComponentLogger(l, "session")
	}
}

func withID(id string) Option {
	return func(s *Session) {
		s.id = id
	}
}

// New returns an Empty session.
func New(opts ...Option) *Session {
	s := &Session{
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		log:         zerolog.Nop(),
		kind:        KindNone,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActivity = s.now()
	return s
}

// ID returns the registry handle, empty for standalone sessions.
func (s *Session) ID() string {
	return s.id
}

// Start replaces the active query wholesale and resets the cursor to page 1.
// rows is copied; the rows themselves are shared.
func (s *Session) Start(kind Kind, criteria Criteria, rows []Row, pageSize int) error {
	if err := pagination.ValidatePageSize(pageSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPageSize, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.active = true
	s.kind = kind
	s.criteria = criteria
	s.rows = append(make([]Row, 0, len(rows)), rows...)
	s.pageSize = pageSize
	s.currentPage = 1
	s.createdAt = now
	s.lastActivity = now

	s.log.Debug().
		Str("session_id", s.id).
		Str("kind", string(kind)).
		Int("rows", len(rows)).
		Int("page_size", pageSize).
		Int("total_pages", pagination.TotalPages(len(rows), pageSize)).
		Msg("session started")
	return nil
}

// CurrentPageView returns the rows of the current page.
func (s *Session) CurrentPageView() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checkActiveLocked() {
		return View{}, ErrNoActiveSession
	}
	s.lastActivity = s.now()
	return s.viewLocked(), nil
}

// NextPage advances the cursor and returns the new page.
func (s *Session) NextPage() (View, error) {
	return s.move(DirectionNext, func(current int) int { return current + 1 })
}

// PrevPage moves the cursor back and returns the new page.
func (s *Session) PrevPage() (View, error) {
	return s.move(DirectionPrev, func(current int) int { return current - 1 })
}

// GotoPage moves the cursor to page n (1-based) and returns it.
func (s *Session) GotoPage(n int) (View, error) {
	return s.move(DirectionGoto, func(int) int { return n })
}

func (s *Session) move(dir Direction, target func(current int) int) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checkActiveLocked() {
		return View{}, ErrNoActiveSession
	}

	total := pagination.TotalPages(len(s.rows), s.pageSize)
	next := target(s.currentPage)
	if total == 0 || next < 1 || next > total {
		return View{}, &OutOfRangeError{
			Direction:   dir,
			CurrentPage: s.currentPage,
			TotalPages:  total,
			Requested:   next,
		}
	}

	s.currentPage = next
	s.lastActivity = s.now()
	s.log.Debug().
		Str("session_id", s.id).
		Str("direction", string(dir)).
		Int("page", next).
		Int("total_pages", total).
		Msg("page changed")
	return s.viewLocked(), nil
}

// ExportSnapshot returns the criteria and full result set of the active
// session.
func (s *Session) ExportSnapshot() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checkActiveLocked() {
		return Snapshot{}, ErrNoActiveSession
	}
	s.lastActivity = s.now()
	return Snapshot{
		Kind:      s.kind,
		Criteria:  s.criteria,
		Rows:      append(make([]Row, 0, len(s.rows)), s.rows...),
		CreatedAt: s.createdAt,
	}, nil
}

// Info returns pagination metadata for the current page.
func (s *Session) Info() (pagination.PaginationMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checkActiveLocked() {
		return pagination.PaginationMeta{}, ErrNoActiveSession
	}
	return pagination.NewPaginationMeta(s.currentPage, s.pageSize, len(s.rows)), nil
}

// Kind returns the kind of the active query, KindNone when Empty.
func (s *Session) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.checkActiveLocked() {
		return KindNone
	}
	return s.kind
}

// Active reports whether the session holds a live result set.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkActiveLocked()
}

// Expired reports whether the session has been idle past its timeout.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiredLocked()
}

// Clear returns the session to Empty.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) expiredLocked() bool {
	if s.idleTimeout <= 0 {
		return false
	}
	return s.now().Sub(s.lastActivity) > s.idleTimeout
}

// checkActiveLocked resets an idle session and reports whether a result set
// is live.
func (s *Session) checkActiveLocked() bool {
	if !s.active {
		return false
	}
	if s.expiredLocked() {
		s.log.Debug().Str("session_id", s.id).Msg("session expired")
		s.resetLocked()
		return false
	}
	return true
}

func (s *Session) resetLocked() {
	s.active = false
	s.kind = KindNone
	s.criteria = nil
	s.rows = nil
	s.pageSize = 0
	s.currentPage = 0
	s.createdAt = time.Time{}
}

func (s *Session) viewLocked() View {
	total := len(s.rows)
	start, end := pagination.Bounds(s.currentPage, s.pageSize, total)
	return View{
		Rows:       s.rows[start:end:end],
		Page:       s.currentPage,
		TotalPages: pagination.TotalPages(total, s.pageSize),
		TotalItems: total,
	}
}
