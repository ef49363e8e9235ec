// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Pagination describes where a page sits in the full filtered result set.
type Pagination struct {
	CurrentPage     int  `json:"currentPage" yaml:"current_page"`
	TotalPages      int  `json:"totalPages" yaml:"total_pages"`
	PageSize        int  `json:"pageSize" yaml:"page_size"`
	TotalItems      int  `json:"totalItems" yaml:"total_items"`
	HasNextPage     bool `json:"hasNextPage" yaml:"has_next_page"`
	HasPreviousPage bool `json:"hasPreviousPage" yaml:"has_previous_page"`
}

// NewPagination derives page metadata from the requested page, the page
// size and the total number of items. page and pageSize must be >= 1.
func NewPagination(page, pageSize, totalItems int) Pagination {
	totalPages := 0
	if totalItems > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}
	return Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		PageSize:        pageSize,
		TotalItems:      totalItems,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// Offset returns the index of the first item on the page.
func (p Pagination) Offset() int {
	return (p.CurrentPage - 1) * p.PageSize
}

// NormalizePage replaces out-of-range page and page size values with the
// defaults and caps the page size at MaxPageSize.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// SearchPage is one page of an owner's stored results.
type SearchPage struct {
	Items      []StoredResult `json:"items" yaml:"items"`
	Pagination Pagination     `json:"pagination" yaml:"pagination"`
}

// PublicItems projects the page items for clients. It never returns nil
// so that JSON output carries an empty array.
func (p SearchPage) PublicItems() []PublicResult {
	out := make([]PublicResult, 0, len(p.Items))
	for _, r := range p.Items {
		out = append(out, r.Public())
	}
	return out
}
