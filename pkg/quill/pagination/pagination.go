// Package pagination splits ordered result sets into numbered pages.
package pagination

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrPageNotAnInteger is returned for page values that are neither a number nor "last"
	ErrPageNotAnInteger = errors.New("page number is not an integer")
	// ErrEmptyPage is returned for page numbers outside 1..NumPages
	ErrEmptyPage = errors.New("page contains no results")
)

// Last is the page value that selects the final page
const Last = "last"

// Paginator computes page boundaries for a result set of known size
type Paginator struct {
	Count   int64
	PerPage int
	Orphans int
}

// New returns a paginator. A non-positive perPage is treated as 1.
func New(count int64, perPage, orphans int) *Paginator {
	if perPage < 1 {
		perPage = 1
	}
	if orphans < 0 {
		orphans = 0
	}
	return &Paginator{Count: count, PerPage: perPage, Orphans: orphans}
}

// NumPages is the total number of pages; an empty result set has one empty page
func (p *Paginator) NumPages() int {
	if p.Count == 0 {
		return 1
	}
	hits := p.Count - int64(p.Orphans)
	if hits < 1 {
		hits = 1
	}
	per := int64(p.PerPage)
	return int((hits + per - 1) / per)
}

// Page describes one page of results
type Page struct {
	Number   int
	NumPages int
	Offset   int
	Limit    int
	Count    int64
}

// HasNext reports whether a later page exists
func (pg Page) HasNext() bool { return pg.Number < pg.NumPages }

// HasPrevious reports whether an earlier page exists
func (pg Page) HasPrevious() bool { return pg.Number > 1 }

// HasOtherPages reports whether the result set spans more than one page
func (pg Page) HasOtherPages() bool { return pg.HasNext() || pg.HasPrevious() }

// NextNumber is the next page number; only meaningful when HasNext
func (pg Page) NextNumber() int { return pg.Number + 1 }

// PreviousNumber is the previous page number; only meaningful when HasPrevious
func (pg Page) PreviousNumber() int { return pg.Number - 1 }

// StartIndex is the 1-based index of the first item on the page, 0 when empty
func (pg Page) StartIndex() int64 {
	if pg.Count == 0 {
		return 0
	}
	return int64(pg.Offset) + 1
}

// EndIndex is the 1-based index of the last item on the page
func (pg Page) EndIndex() int64 {
	return int64(pg.Offset + pg.Limit)
}

// Numbers lists every page number, for rendering page links
func (pg Page) Numbers() []int {
	nums := make([]int, pg.NumPages)
	for i := range nums {
		nums[i] = i + 1
	}
	return nums
}

// Page returns the bounds of page number n
func (p *Paginator) Page(n int) (Page, error) {
	numPages := p.NumPages()
	if n < 1 || n > numPages {
		return Page{}, ErrEmptyPage
	}

	offset := (n - 1) * p.PerPage
	limit := p.PerPage
	if n == numPages {
		limit = int(p.Count) - offset
		if limit < 0 {
			limit = 0
		}
	}

	return Page{
		Number:   n,
		NumPages: numPages,
		Offset:   offset,
		Limit:    limit,
		Count:    p.Count,
	}, nil
}

// ParsePage resolves a raw page query value. Empty means the first page;
// "last" means the final page.
func (p *Paginator) ParsePage(raw string) (Page, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return p.Page(1)
	case Last:
		return p.Page(p.NumPages())
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return Page{}, ErrPageNotAnInteger
	}
	return p.Page(n)
}
