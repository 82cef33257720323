package router

import (
	"net/url"
	"strconv"
)

// ParamPage is the query key carrying the page offset.
const ParamPage = "p"

// Pager slices a list of items into a window for one keyboard screen. An
// out-of-range offset is clamped, so a stale page button re-renders a valid
// screen instead of failing.
type Pager[T any] struct {
	Items    []T
	Offset   int
	pageSize int
	total    int
}

// NewPager windows items at offset with the given page size.
func NewPager[T any](items []T, offset, pageSize int) Pager[T] {
	total := len(items)
	if offset < 0 || offset >= total {
		offset = 0
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return Pager[T]{
		Items:    items[offset:end],
		Offset:   offset,
		pageSize: pageSize,
		total:    total,
	}
}

// HasNext reports whether a later page exists.
func (p Pager[T]) HasNext() bool {
	return p.Offset+p.pageSize < p.total
}

// HasPrevious reports whether an earlier page exists.
func (p Pager[T]) HasPrevious() bool {
	return p.Offset > 0
}

// NextData returns the callback data of path pointing at the next page.
func (p Pager[T]) NextData(path string) string {
	return pageData(path, p.Offset+p.pageSize)
}

// PreviousData returns the callback data of path pointing at the previous
// page.
func (p Pager[T]) PreviousData(path string) string {
	offset := p.Offset - p.pageSize
	if offset < 0 {
		offset = 0
	}
	return pageData(path, offset)
}

func pageData(path string, offset int) string {
	return WithParams(path, url.Values{ParamPage: {strconv.Itoa(offset)}})
}
