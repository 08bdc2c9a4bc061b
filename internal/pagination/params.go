package pagination

import (
	"errors"
	"fmt"
	"strings"
)

// Pagination defaults and validation limits.
const (
	DefaultPageSize  = 50
	MinPageSize      = 1
	MaxPageSize      = 1000
	DefaultPage      = 1
	MinPage          = 1
	DefaultSortField = ""
	DefaultSortOrder = "asc"
	SortOrderAsc     = "asc"
	SortOrderDesc    = "desc"
)

// Common validation errors.
var (
	ErrInvalidPageSize   = errors.New("page size must be between 1 and 1000")
	ErrInvalidPage       = errors.New("page must be >= 1")
	ErrInvalidSortOrder  = errors.New("sort order must be 'asc' or 'desc'")
	ErrInvalidSortFormat = errors.New("invalid sort format: use 'field' or 'field:order' (e.g., 'pct_chg:desc')")
	ErrEmptySortField    = errors.New("sort field cannot be empty")
)

// sortPartsMax is the maximum number of parts in a sort string (field:order).
const sortPartsMax = 2

// Params holds page-based pagination and sort options for a paged query.
type Params struct {
	// Page is the 1-based page number.
	Page int

	// PageSize is the number of rows per page.
	PageSize int

	// SortField is the row field to sort by. Empty keeps provider order.
	SortField string

	// SortOrder is "asc" or "desc".
	SortOrder string
}

// NewParams returns Params for the first page with the given page size.
func NewParams(pageSize int) Params {
	return Params{
		Page:      DefaultPage,
		PageSize:  pageSize,
		SortField: DefaultSortField,
		SortOrder: DefaultSortOrder,
	}
}

// Validate checks page and page size bounds and the sort order.
func (p Params) Validate() error {
	if err := ValidatePageSize(p.PageSize); err != nil {
		return err
	}
	if p.Page < MinPage {
		return fmt.Errorf("%w: got %d", ErrInvalidPage, p.Page)
	}
	if p.SortOrder != "" && p.SortOrder != SortOrderAsc && p.SortOrder != SortOrderDesc {
		return fmt.Errorf("%w: got %q", ErrInvalidSortOrder, p.SortOrder)
	}
	return nil
}

// Offset returns the index of the first row on the page.
func (p Params) Offset() int {
	if p.Page < MinPage || p.PageSize < MinPageSize {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// ValidatePageSize reports ErrInvalidPageSize for sizes outside [1, 1000].
func ValidatePageSize(size int) error {
	if size < MinPageSize || size > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, size)
	}
	return nil
}

// ParseSort parses a sort string in the format "field" or "field:order".
// Examples: "pct_chg", "pct_chg:desc", "name:asc".
// An empty string yields the default (no sort).
//
//nolint:nonamedreturns // Named returns improve readability for this multi-value function.
func ParseSort(sortStr string) (field, order string, err error) {
	if strings.TrimSpace(sortStr) == "" {
		return DefaultSortField, DefaultSortOrder, nil
	}

	parts := strings.Split(sortStr, ":")
	switch len(parts) {
	case 1:
		field = strings.TrimSpace(parts[0])
		order = DefaultSortOrder
	case sortPartsMax:
		field = strings.TrimSpace(parts[0])
		order = strings.ToLower(strings.TrimSpace(parts[1]))
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidSortFormat, sortStr)
	}

	if field == "" {
		return "", "", ErrEmptySortField
	}

	if order != SortOrderAsc && order != SortOrderDesc {
		return "", "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, order)
	}

	return field, order, nil
}

// TotalPages returns ceil(total/pageSize). It is zero for an empty result set
// or a non-positive page size.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize > 0 {
		pages++
	}
	return pages
}

// Bounds returns the half-open row range [start, end) of page within a result
// set of total rows. Pages outside the result set yield an empty range.
//
//nolint:nonamedreturns // Named returns document the half-open range.
func Bounds(page, pageSize, total int) (start, end int) {
	if page < MinPage || pageSize <= 0 || total <= 0 {
		return 0, 0
	}
	start = (page - 1) * pageSize
	if start >= total {
		return total, total
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
