// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows in a paged list.
const PageSize = 50

// Page is a 1-based page number with its size.
type Page struct {
	Number int
	Size   int
}

// Parse reads the "page" query parameter. Missing, malformed or
// non-positive values mean page 1. A non-positive size means PageSize.
func Parse(r *http.Request, size int) Page {
	if size <= 0 {
		size = PageSize
	}
	n, err := strconv.Atoi(query.Get(r, "page"))
	if err != nil || n < 1 {
		n = 1
	}
	return Page{Number: n, Size: size}
}

// Limit returns the page size as int64 for Find().SetLimit().
func (p Page) Limit() int64 { return int64(p.Size) }

// Skip returns how many rows precede this page.
func (p Page) Skip() int64 { return int64(p.Number-1) * int64(p.Size) }

// Result describes where a page sits in the full result set.
type Result struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Total      int64 `json:"total"`
	HasPrev    bool  `json:"hasPrev"`
	HasNext    bool  `json:"hasNext"`
}

// Describe computes the page indicators for total matching rows.
// TotalPages is at least 1 so an empty list still reports page 1 of 1.
func (p Page) Describe(total int64) Result {
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	if pages < 1 {
		pages = 1
	}
	return Result{
		Page:       p.Number,
		TotalPages: pages,
		Total:      total,
		HasPrev:    p.Number > 1,
		HasNext:    p.Number < pages,
	}
}
