package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned when pagination or export is requested
	// before any paged query ran, or after the session went idle.
	ErrNoActiveSession = errors.New("no active session")

	// ErrOutOfRange is matched by every *OutOfRangeError.
	ErrOutOfRange = errors.New("page out of range")

	// ErrInvalidPageSize is returned by Start for a page size outside [1, 1000].
	ErrInvalidPageSize = errors.New("invalid page size")

	// ErrSessionNotFound is returned by Registry lookups for unknown handles.
	ErrSessionNotFound = errors.New("session not found")
)

// Direction names the navigation that failed.
type Direction string

// Navigation directions.
const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
	DirectionGoto Direction = "goto"
)

// OutOfRangeError reports a navigation request beyond the result set. The
// cursor is left unchanged.
type OutOfRangeError struct {
	Direction   Direction
	CurrentPage int
	TotalPages  int
	// Requested is the target page of a goto.
	Requested int
}

func (e *OutOfRangeError) Error() string {
	if e.TotalPages == 0 {
		return "page out of range: result set is empty"
	}
	switch e.Direction {
	case DirectionNext:
		return fmt.Sprintf("already on the last page (page %d/%d)", e.CurrentPage, e.TotalPages)
	case DirectionPrev:
		return fmt.Sprintf("already on the first page (page %d/%d)", e.CurrentPage, e.TotalPages)
	default:
		return fmt.Sprintf("page %d out of range (valid: 1-%d)", e.Requested, e.TotalPages)
	}
}

// Is makes errors.Is(err, ErrOutOfRange) match.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}
