// internal/github/paginate.go
package github

import (
	"context"
	"encoding/json"
)

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 100

// PageFunc fetches one 1-based page of at most perPage items.
type PageFunc[T any] func(ctx context.Context, page, perPage int) ([]T, error)

// CollectPages calls fetch for pages 1, 2, ... and concatenates the items in
// order. It stops after the first page holding fewer than perPage items; a
// full page always causes the next one to be requested.
func CollectPages[T any](ctx context.Context, perPage int, fetch PageFunc[T]) ([]T, error) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	all := []T{}
	for page := 1; ; page++ {
		items, err := fetch(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < perPage {
			return all, nil
		}
	}
}

// PageLister fetches a single page of a listing endpoint.
type PageLister interface {
	ListPage(ctx context.Context, ep Endpoint, page, perPage int) ([]json.RawMessage, error)
}

// ListAll retrieves every item of ep.
func ListAll(ctx context.Context, l PageLister, ep Endpoint, perPage int) ([]json.RawMessage, error) {
	return CollectPages(ctx, perPage, func(ctx context.Context, page, perPage int) ([]json.RawMessage, error) {
		return l.ListPage(ctx, ep, page, perPage)
	})
}
