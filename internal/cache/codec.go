package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is the on-disk envelope version written by this package.
// Entries with a different major version are treated as corrupted.
const FormatVersion = "1.0.0"

//nolint:gochecknoglobals // parsed once from a constant
var currentFormat = semver.MustParse(FormatVersion)

// File layout.
const (
	plainDirName      = "json"
	structuredDirName = "msgpack"
	plainExtension    = ".json"
	structuredExt     = ".msgpack"
	tempExtension     = ".tmp"
)

// jsonEnvelope is the plain-mode file format. The payload is embedded as raw
// JSON so the file stays readable.
type jsonEnvelope struct {
	Key           string          `json:"key"`
	Category      Category        `json:"category"`
	Mode          Mode            `json:"mode"`
	FormatVersion string          `json:"format_version"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Data          json.RawMessage `json:"data"`
}

// binaryEnvelope is the structured-mode file format.
type binaryEnvelope struct {
	Key           string    `msgpack:"key"`
	Category      Category  `msgpack:"category"`
	Mode          Mode      `msgpack:"mode"`
	FormatVersion string    `msgpack:"format_version"`
	CreatedAt     time.Time `msgpack:"created_at"`
	ExpiresAt     time.Time `msgpack:"expires_at"`
	Data          []byte    `msgpack:"data"`
}

func encodePayload(mode Mode, payload any) ([]byte, error) {
	if mode == ModeStructured {
		return msgpack.Marshal(payload)
	}
	return json.Marshal(payload)
}

func encodeEntry(e *Entry) ([]byte, error) {
	if e.Mode == ModeStructured {
		return msgpack.Marshal(&binaryEnvelope{
			Key:           e.Key,
			Category:      e.Category,
			Mode:          e.Mode,
			FormatVersion: e.FormatVersion,
			CreatedAt:     e.CreatedAt,
			ExpiresAt:     e.ExpiresAt,
			Data:          e.Data,
		})
	}
	return json.MarshalIndent(&jsonEnvelope{
		Key:           e.Key,
		Category:      e.Category,
		Mode:          e.Mode,
		FormatVersion: e.FormatVersion,
		CreatedAt:     e.CreatedAt,
		ExpiresAt:     e.ExpiresAt,
		Data:          e.Data,
	}, "", "  ")
}

// decodeEntry parses a file written in mode. Any failure is reported as
// ErrCacheCorrupted.
func decodeEntry(mode Mode, raw []byte) (*Entry, error) {
	var e Entry
	switch mode {
	case ModePlain:
		var env jsonEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheCorrupted, err)
		}
		e = Entry{
			Key: env.Key, Category: env.Category, Mode: env.Mode, FormatVersion: env.FormatVersion,
			CreatedAt: env.CreatedAt, ExpiresAt: env.ExpiresAt, Data: env.Data,
		}
	case ModeStructured:
		var env binaryEnvelope
		if err := msgpack.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheCorrupted, err)
		}
		e = Entry{
			Key: env.Key, Category: env.Category, Mode: env.Mode, FormatVersion: env.FormatVersion,
			CreatedAt: env.CreatedAt, ExpiresAt: env.ExpiresAt, Data: env.Data,
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrCacheCorrupted, mode)
	}

	if e.Mode != mode {
		return nil, fmt.Errorf("%w: envelope mode %q stored as %q", ErrCacheCorrupted, e.Mode, mode)
	}
	if len(e.Data) == 0 || e.ExpiresAt.IsZero() {
		return nil, fmt.Errorf("%w: incomplete envelope", ErrCacheCorrupted)
	}
	if err := checkFormatVersion(e.FormatVersion); err != nil {
		return nil, err
	}
	return &e, nil
}

func checkFormatVersion(v string) error {
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: format version %q: %w", ErrCacheCorrupted, v, err)
	}
	if parsed.Major() != currentFormat.Major() {
		return fmt.Errorf("%w: format version %s incompatible with %s", ErrCacheCorrupted, parsed, currentFormat)
	}
	return nil
}
