package pagination

import (
	"cmp"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RowSorter orders result rows by a named field. Numeric fields compare
// numerically, times chronologically, everything else as case-insensitive
// text. Rows missing the field, or holding nil, always sort last.
type RowSorter struct {
	validFields map[string]bool
}

// NewRowSorter creates a RowSorter. With no fields every field is accepted.
func NewRowSorter(fields ...string) *RowSorter {
	s := &RowSorter{}
	if len(fields) > 0 {
		s.validFields = make(map[string]bool, len(fields))
		for _, f := range fields {
			s.validFields[f] = true
		}
	}
	return s
}

// IsValidField checks if the field is valid for sorting.
func (s *RowSorter) IsValidField(field string) bool {
	if field == "" {
		return false
	}
	if s.validFields == nil {
		return true
	}
	return s.validFields[field]
}

// GetValidFields returns the accepted sort fields, or nil when any field is accepted.
func (s *RowSorter) GetValidFields() []string {
	if s.validFields == nil {
		return nil
	}
	fields := make([]string, 0, len(s.validFields))
	for field := range s.validFields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Sort returns a sorted copy of rows. The input is never modified. An
// invalid field returns rows unchanged.
func (s *RowSorter) Sort(rows []map[string]any, field, order string) []map[string]any {
	if !s.IsValidField(field) {
		return rows
	}

	sorted := make([]map[string]any, len(rows))
	copy(sorted, rows)

	desc := order == SortOrderDesc
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := sorted[i][field]
		b, bok := sorted[j][field]
		aMissing := !aok || a == nil
		bMissing := !bok || b == nil
		switch {
		case aMissing && bMissing:
			return false
		case aMissing:
			return false
		case bMissing:
			return true
		}
		c := compareValues(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})

	return sorted
}

func compareValues(a, b any) int {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(strings.ToLower(toString(a)), strings.ToLower(toString(b)))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
