package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrUnsupportedValue is returned when a row holds a value RowSet cannot encode.
var ErrUnsupportedValue = errors.New("unsupported row value")

// Cell type tags written ahead of each value.
const (
	tagNil     = "nil"
	tagBool    = "bool"
	tagString  = "string"
	tagInt     = "int"
	tagInt32   = "int32"
	tagInt64   = "int64"
	tagUint64  = "uint64"
	tagFloat32 = "float32"
	tagFloat64 = "float64"
	tagTime    = "time"
)

// RowSet is a list of rows that keeps every cell's Go type through a
// MessagePack round trip. A plain []Row decoded from MessagePack or JSON comes
// back with whatever numeric type the decoder picks.
type RowSet []Row

// Structured marks RowSet for type-preserving cache storage.
func (RowSet) Structured() {}

// EncodeMsgpack writes each row as a map of column name to a [tag, value] pair.
func (rs RowSet) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(rs)); err != nil {
		return err
	}
	for i, row := range rs {
		if err := enc.EncodeMapLen(len(row)); err != nil {
			return err
		}
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := encodeCell(enc, row[k]); err != nil {
				return fmt.Errorf("row %d column %q: %w", i, k, err)
			}
		}
	}
	return nil
}

// DecodeMsgpack reads rows written by EncodeMsgpack.
func (rs *RowSet) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 0 {
		*rs = nil
		return nil
	}

	out := make(RowSet, n)
	for i := range out {
		cols, mapErr := dec.DecodeMapLen()
		if mapErr != nil {
			return mapErr
		}
		row := make(Row, max(cols, 0))
		for range cols {
			k, keyErr := dec.DecodeString()
			if keyErr != nil {
				return keyErr
			}
			v, cellErr := decodeCell(dec)
			if cellErr != nil {
				return fmt.Errorf("row %d column %q: %w", i, k, cellErr)
			}
			row[k] = v
		}
		out[i] = row
	}
	*rs = out
	return nil
}

//nolint:gocyclo // one case per supported value type
func encodeCell(enc *msgpack.Encoder, v any) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		return errors.Join(enc.EncodeString(tagNil), enc.EncodeNil())
	case bool:
		return errors.Join(enc.EncodeString(tagBool), enc.EncodeBool(x))
	case string:
		return errors.Join(enc.EncodeString(tagString), enc.EncodeString(x))
	case int:
		return errors.Join(enc.EncodeString(tagInt), enc.EncodeInt64(int64(x)))
	case int32:
		return errors.Join(enc.EncodeString(tagInt32), enc.EncodeInt64(int64(x)))
	case int64:
		return errors.Join(enc.EncodeString(tagInt64), enc.EncodeInt64(x))
	case uint64:
		return errors.Join(enc.EncodeString(tagUint64), enc.EncodeUint64(x))
	case float32:
		return errors.Join(enc.EncodeString(tagFloat32), enc.EncodeFloat32(x))
	case float64:
		return errors.Join(enc.EncodeString(tagFloat64), enc.EncodeFloat64(x))
	case time.Time:
		return errors.Join(enc.EncodeString(tagTime), enc.EncodeTime(x))
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

//nolint:gocyclo // one case per supported value type
func decodeCell(dec *msgpack.Decoder) (any, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, fmt.Errorf("%w: cell has %d elements", ErrUnsupportedValue, n)
	}
	tag, err := dec.DecodeString()
	if err != nil {
		return nil, err
	}

	switch tag {
	case tagNil:
		return nil, dec.DecodeNil()
	case tagBool:
		return dec.DecodeBool()
	case tagString:
		return dec.DecodeString()
	case tagInt:
		v, decErr := dec.DecodeInt64()
		return int(v), decErr
	case tagInt32:
		v, decErr := dec.DecodeInt64()
		return int32(v), decErr //nolint:gosec // written from an int32
	case tagInt64:
		return dec.DecodeInt64()
	case tagUint64:
		return dec.DecodeUint64()
	case tagFloat32:
		return dec.DecodeFloat32()
	case tagFloat64:
		return dec.DecodeFloat64()
	case tagTime:
		t, decErr := dec.DecodeTime()
		return t, decErr
	default:
		return nil, fmt.Errorf("%w: tag %q", ErrUnsupportedValue, tag)
	}
}
