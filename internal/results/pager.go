// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package results

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/edusearch/internal/store"
	"github.com/pdiddy/edusearch/pkg/types"
)

// Pager reads an owner's stored results one page at a time.
type Pager struct {
	store Reader
}

// NewPager returns a Pager reading from r.
func NewPager(r Reader) *Pager {
	return &Pager{store: r}
}

// Page returns the requested page of owner's results, newest first. A
// non-blank filter keeps results whose title or description contains it,
// ignoring case. Out-of-range page and pageSize values are normalized
// first; a page past the end is empty but still reports the totals.
func (p *Pager) Page(ctx context.Context, owner, filter string, page, pageSize int) (types.SearchPage, error) {
	page, pageSize = types.NormalizePage(page, pageSize)
	f := store.Filter{OwnerID: owner, Text: strings.TrimSpace(filter)}

	total, err := p.store.Count(ctx, f)
	if err != nil {
		return types.SearchPage{}, fmt.Errorf("counting results: %w", err)
	}

	pagination := types.NewPagination(page, pageSize, total)
	var items []types.StoredResult
	if pagination.Offset() < total {
		items, err = p.store.List(ctx, f, pageSize, pagination.Offset())
		if err != nil {
			return types.SearchPage{}, fmt.Errorf("listing results: %w", err)
		}
	}

	return types.SearchPage{Items: items, Pagination: pagination}, nil
}
