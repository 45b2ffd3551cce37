package shared

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 50
	maxPerPage     = 1000
)

// PageRequest carries normalized paging parameters for list queries.
type PageRequest struct {
	Page    int
	PerPage int
}

// NewPageRequest clamps page to >= 1 and per_page to [1, 1000].
func NewPageRequest(page, perPage int) PageRequest {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// PageRequestFromQuery reads page/per_page query parameters, falling back
// to page 1 with 50 items on absent or malformed values.
func PageRequestFromQuery(r *http.Request) PageRequest {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil {
		perPage = defaultPerPage
	}
	return NewPageRequest(page, perPage)
}

// Offset returns the row offset for the request.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit returns the row limit for the request.
func (p PageRequest) Limit() int {
	return p.PerPage
}
