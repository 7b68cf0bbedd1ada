package repository

import "github.com/roach88/repokit/internal/queryir"

// Page is one bounded slice of a result set plus the authoritative total.
//
// Total comes from a separate count round trip and may be skewed relative to
// Content if the data changes between the two calls.
type Page[T any] struct {
	Content []T
	Total   int64
	Request *queryir.PageRequest
}

// TotalPages returns the number of pages needed to cover Total.
// An unpaged result is a single page.
func (p Page[T]) TotalPages() int64 {
	if p.Request == nil || p.Request.Size <= 0 {
		return 1
	}
	size := int64(p.Request.Size)
	return (p.Total + size - 1) / size
}

// HasNext reports whether records remain after this page.
func (p Page[T]) HasNext() bool {
	if p.Request == nil {
		return false
	}
	return p.Request.Offset() < p.Total-int64(p.Request.Size)
}
