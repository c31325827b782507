package shared

import (
	"math"
	"net/url"
	"strconv"
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageRequest is a limit/offset window derived from query parameters.
type PageRequest struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads page and per_page query parameters, clamping
// per_page to the given default when absent or out of range.
func ParsePagination(q url.Values, defaultPerPage int) PageRequest {
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 || perPage > 200 {
		perPage = defaultPerPage
	}
	return PageRequest{Page: page, Limit: perPage, Offset: (page - 1) * perPage}
}
