package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Mode is the serialization strategy of an entry.
type Mode string

// Serialization modes.
const (
	// ModePlain stores the payload as JSON text.
	ModePlain Mode = "plain"

	// ModeStructured stores the payload as MessagePack, preserving integer,
	// float and timestamp types exactly.
	ModeStructured Mode = "structured"
)

// Structured is implemented by payloads that must be stored in structured
// mode. *frame.Frame implements it.
type Structured interface {
	Structured()
}

// ModeFor selects the serialization mode for payload.
func ModeFor(payload any) Mode {
	if _, ok := payload.(Structured); ok {
		return ModeStructured
	}
	return ModePlain
}

// Entry is a cached payload with TTL metadata.
//
//nolint:revive // Entry is the canonical name for this exported type.
type Entry struct {
	// Key is the fingerprint the entry is stored under.
	Key string

	// Category selected the TTL.
	Category Category

	// Mode records how Data is encoded.
	Mode Mode

	// FormatVersion is the envelope format version that wrote the entry.
	FormatVersion string

	// CreatedAt is when the entry was written.
	CreatedAt time.Time

	// ExpiresAt is CreatedAt plus the category TTL.
	ExpiresAt time.Time

	// Data is the encoded payload: JSON for plain, MessagePack for structured.
	Data []byte
}

// IsExpiredAt reports whether the entry is unreadable at now. An entry is
// readable strictly before ExpiresAt.
func (e *Entry) IsExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// TTL returns the lifetime the entry was written with.
func (e *Entry) TTL() time.Duration {
	return e.ExpiresAt.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the remaining lifetime at now, or 0 if expired.
func (e *Entry) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Decode decodes the payload into dst using the entry's mode.
func (e *Entry) Decode(dst any) error {
	switch e.Mode {
	case ModePlain:
		return json.Unmarshal(e.Data, dst)
	case ModeStructured:
		return msgpack.Unmarshal(e.Data, dst)
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrCacheCorrupted, e.Mode)
	}
}

func (e *Entry) clone() *Entry {
	c := *e
	return &c
}
