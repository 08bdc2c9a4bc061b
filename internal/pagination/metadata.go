package pagination

// PaginationMeta contains metadata about a paged result set.
//
//nolint:revive // PaginationMeta is the canonical name for this exported type.
type PaginationMeta struct {
	CurrentPage int  `json:"current_page" yaml:"current_page"`
	PageSize    int  `json:"page_size"    yaml:"page_size"`
	TotalPages  int  `json:"total_pages"  yaml:"total_pages"`
	TotalItems  int  `json:"total_items"  yaml:"total_items"`
	HasPrevious bool `json:"has_previous" yaml:"has_previous"`
	HasNext     bool `json:"has_next"     yaml:"has_next"`
}

// NewPaginationMeta builds metadata for page of a result set with totalCount rows.
func NewPaginationMeta(page, pageSize, totalCount int) PaginationMeta {
	totalPages := TotalPages(totalCount, pageSize)

	currentPage := page
	if currentPage < MinPage {
		currentPage = MinPage
	}

	return PaginationMeta{
		CurrentPage: currentPage,
		PageSize:    pageSize,
		TotalPages:  totalPages,
		TotalItems:  totalCount,
		HasPrevious: totalPages > 0 && currentPage > 1,
		HasNext:     currentPage < totalPages,
	}
}
