package api

import (
	"net/http"
	"strconv"

	"github.com/jdholdren/quantumwatch/internal/quantumwatch"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// paginationMeta is echoed back with every item listing.
type paginationMeta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// itemPage is the window of an item listing requested by ?limit=&offset=.
type itemPage struct {
	limit  int
	offset int
}

// parseItemPage reads the page window from the query string. A missing or
// non-positive limit falls back to the default, and a large one is capped.
func parseItemPage(r *http.Request) itemPage {
	query := r.URL.Query()

	limit, _ := strconv.Atoi(query.Get("limit"))
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}

	offset, _ := strconv.Atoi(query.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return itemPage{limit: limit, offset: offset}
}

// apply narrows the listing args to this page.
func (p itemPage) apply(args quantumwatch.ItemsArgs) quantumwatch.ItemsArgs {
	args.Limit = uint64(p.limit)
	args.Offset = uint64(p.offset)
	return args
}

func (p itemPage) meta(total int) paginationMeta {
	return paginationMeta{
		Limit:  p.limit,
		Offset: p.offset,
		Total:  total,
	}
}
