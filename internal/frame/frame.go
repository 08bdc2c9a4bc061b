// Package frame provides a small typed, column-oriented table used for tabular
// market data such as OHLC history and financial statements.
//
// Every column holds a single kind of value so a Frame can round-trip through a
// binary encoding without losing the distinction between integers, floats, and
// timestamps.
package frame

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the value type stored in a Column.
type Kind string

// Supported column kinds.
const (
	KindFloat  Kind = "float"
	KindInt    Kind = "int"
	KindString Kind = "string"
	KindTime   Kind = "time"
	KindBool   Kind = "bool"
)

// Frame errors.
var (
	ErrColumnLength    = errors.New("column length does not match frame length")
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrColumnNotFound  = errors.New("column not found")
	ErrRowOutOfRange   = errors.New("row index out of range")
)

// Column is a named, homogeneous vector. Exactly one of the value slices is
// populated, selected by Kind.
type Column struct {
	Name    string      `msgpack:"name"`
	Kind    Kind        `msgpack:"kind"`
	Floats  []float64   `msgpack:"floats,omitempty"`
	Ints    []int64     `msgpack:"ints,omitempty"`
	Strings []string    `msgpack:"strings,omitempty"`
	Times   []time.Time `msgpack:"times,omitempty"`
	Bools   []bool      `msgpack:"bools,omitempty"`
}

// FloatColumn builds a float column.
func FloatColumn(name string, values ...float64) Column {
	return Column{Name: name, Kind: KindFloat, Floats: values}
}

// IntColumn builds an integer column.
func IntColumn(name string, values ...int64) Column {
	return Column{Name: name, Kind: KindInt, Ints: values}
}

// StringColumn builds a string column.
func StringColumn(name string, values ...string) Column {
	return Column{Name: name, Kind: KindString, Strings: values}
}

// TimeColumn builds a timestamp column.
func TimeColumn(name string, values ...time.Time) Column {
	return Column{Name: name, Kind: KindTime, Times: values}
}

// BoolColumn builds a boolean column.
func BoolColumn(name string, values ...bool) Column {
	return Column{Name: name, Kind: KindBool, Bools: values}
}

// Len returns the number of values in the column.
func (c Column) Len() int {
	switch c.Kind {
	case KindFloat:
		return len(c.Floats)
	case KindInt:
		return len(c.Ints)
	case KindString:
		return len(c.Strings)
	case KindTime:
		return len(c.Times)
	case KindBool:
		return len(c.Bools)
	default:
		return 0
	}
}

// Value returns the i-th value boxed as an interface.
func (c Column) Value(i int) any {
	switch c.Kind {
	case KindFloat:
		return c.Floats[i]
	case KindInt:
		return c.Ints[i]
	case KindString:
		return c.Strings[i]
	case KindTime:
		return c.Times[i]
	case KindBool:
		return c.Bools[i]
	default:
		return nil
	}
}

// Frame is an ordered set of equal-length columns.
type Frame struct {
	Columns []Column `msgpack:"columns"`
}

// New builds a Frame and validates that all columns have the same length and
// unique names.
func New(columns ...Column) (*Frame, error) {
	f := &Frame{Columns: columns}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the column invariants.
func (f *Frame) Validate() error {
	seen := make(map[string]struct{}, len(f.Columns))
	for i, col := range f.Columns {
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = struct{}{}

		if i > 0 && col.Len() != f.Columns[0].Len() {
			return fmt.Errorf("%w: column %q has %d values, want %d",
				ErrColumnLength, col.Name, col.Len(), f.Columns[0].Len())
		}
	}
	return nil
}

// Structured marks Frame as a payload that needs type-preserving storage.
func (f *Frame) Structured() {}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil || len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

// Names returns column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (f *Frame) Column(name string) (Column, error) {
	for _, c := range f.Columns {
		if c.Name == name {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Row returns row i as a name→value map.
func (f *Frame) Row(i int) (map[string]any, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}
	row := make(map[string]any, len(f.Columns))
	for _, c := range f.Columns {
		row[c.Name] = c.Value(i)
	}
	return row, nil
}

// Records returns every row as a name→value map.
func (f *Frame) Records() []map[string]any {
	n := f.Len()
	rows := make([]map[string]any, 0, n)
	for i := range n {
		row, _ := f.Row(i)
		rows = append(rows, row)
	}
	return rows
}

// Tail returns a new Frame with the last n rows.
func (f *Frame) Tail(n int) *Frame {
	total := f.Len()
	if n >= total {
		return f
	}
	if n < 0 {
		n = 0
	}
	from := total - n
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.slice(from, total)
	}
	return out
}

func (c Column) slice(from, to int) Column {
	out := Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindFloat:
		out.Floats = c.Floats[from:to]
	case KindInt:
		out.Ints = c.Ints[from:to]
	case KindString:
		out.Strings = c.Strings[from:to]
	case KindTime:
		out.Times = c.Times[from:to]
	case KindBool:
		out.Bools = c.Bools[from:to]
	}
	return out
}
