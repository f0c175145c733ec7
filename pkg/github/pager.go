package github

import (
	"context"
	"net/url"
	"strconv"
)

const (
	// DefaultPerPage is the page size used when none or an out-of-range one is given
	DefaultPerPage = 100
	// MaxPerPage is the largest page size the REST API accepts
	MaxPerPage = 100
)

// normalizePerPage clamps out-of-range page sizes to the default
func normalizePerPage(perPage int) int {
	if perPage < 1 || perPage > MaxPerPage {
		return DefaultPerPage
	}
	return perPage
}

// FetchAll retrieves every item of a paginated collection.
//
// Pages are requested from 1 upwards with a fixed per_page. Fetching stops at the first page
// holding fewer than per_page items, so a collection of exactly k*per_page items costs k+1
// calls. Items are returned in server order; an empty collection yields an empty, non-nil slice.
// Executor errors are returned unchanged.
func FetchAll[T any](ctx context.Context, exec Executor, method, endpoint string, params url.Values, perPage int) ([]T, error) {
	perPage = normalizePerPage(perPage)
	items := make([]T, 0)

	for page := 1; ; page++ {
		query := url.Values{}
		for key, values := range params {
			query[key] = append([]string(nil), values...)
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))

		var batch []T
		if err := exec.Execute(ctx, method, endpoint, query, nil, &batch); err != nil {
			return nil, err
		}

		if len(batch) > perPage {
			return nil, &PaginationIntegrityError{
				Endpoint: endpoint,
				Page:     page,
				PerPage:  perPage,
				Received: len(batch),
			}
		}

		items = append(items, batch...)
		if len(batch) < perPage {
			return items, nil
		}
	}
}
