// Package table holds the pagination, search, filter and sort state shared by
// every list view, and the server-side parsing of the same parameters.
package table

import (
	"net/url"
	"strconv"
	"strings"
)

// PageSizeOptions are the page sizes a list view offers.
var PageSizeOptions = []int{10, 25, 50, 100}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// State is the state of one list view. In server-side mode the rows of the
// current page come from the API and Total is reported by it; otherwise
// Process pages through an in-memory row set.
type State struct {
	Page          int
	PageSize      int
	Term          string
	Filters       map[string]string
	SortBy        string
	SortDirection Direction
	Total         int
	ServerSide    bool
}

// New returns the state of a list view on its first page.
func New(serverSide bool) *State {
	return &State{
		Page:       1,
		PageSize:   DefaultPageSize,
		Filters:    map[string]string{},
		ServerSide: serverSide,
	}
}

// TotalPages is the number of pages for the current total. An empty list still
// has one page.
func (s *State) TotalPages() int {
	if s.Total <= 0 || s.PageSize <= 0 {
		return 1
	}
	return (s.Total + s.PageSize - 1) / s.PageSize
}

// StartIndex is the 1-based position of the first row on the page, or 0 when
// there are no rows.
func (s *State) StartIndex() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Page-1)*s.PageSize + 1
}

// EndIndex is the 1-based position of the last row on the page.
func (s *State) EndIndex() int {
	return min(s.Page*s.PageSize, s.Total)
}

// Offset is the number of rows before the current page.
func (s *State) Offset() int {
	return (s.Page - 1) * s.PageSize
}

// GoToPage moves to page p. Out of range pages and the current page are
// ignored; the return value reports whether the page changed.
func (s *State) GoToPage(p int) bool {
	if p < 1 || p > s.TotalPages() || p == s.Page {
		return false
	}
	s.Page = p
	return true
}

func (s *State) Next() bool     { return s.GoToPage(s.Page + 1) }
func (s *State) Previous() bool { return s.GoToPage(s.Page - 1) }
func (s *State) First() bool    { return s.GoToPage(1) }
func (s *State) Last() bool     { return s.GoToPage(s.TotalPages()) }

// SetPageSize switches to one of PageSizeOptions and returns to the first
// page. Other sizes are rejected.
func (s *State) SetPageSize(n int) bool {
	if !validPageSize(n) || n == s.PageSize {
		return false
	}
	s.PageSize = n
	s.Page = 1
	return true
}

// SetTotal records the total row count and pulls the page back in range.
func (s *State) SetTotal(n int) {
	if n < 0 {
		n = 0
	}
	s.Total = n
	if s.Page > s.TotalPages() {
		s.Page = s.TotalPages()
	}
	if s.Page < 1 {
		s.Page = 1
	}
}

// SetFilter sets the filter for key. An empty value removes it. It reports
// whether the filter changed; in server-side mode a change returns to the
// first page.
func (s *State) SetFilter(key, value string) bool {
	value = strings.TrimSpace(value)
	if s.Filters == nil {
		s.Filters = map[string]string{}
	}
	old, had := s.Filters[key]
	switch {
	case value == "" && !had:
		return false
	case value == "":
		delete(s.Filters, key)
	case had && old == value:
		return false
	default:
		s.Filters[key] = value
	}
	s.resetOnChange()
	return true
}

// ClearFilters removes every filter.
func (s *State) ClearFilters() bool {
	if len(s.Filters) == 0 {
		return false
	}
	s.Filters = map[string]string{}
	s.resetOnChange()
	return true
}

// SetSearch sets the global search term with the same rules as SetFilter.
func (s *State) SetSearch(term string) bool {
	term = strings.TrimSpace(term)
	if term == s.Term {
		return false
	}
	s.Term = term
	s.resetOnChange()
	return true
}

// ToggleSort sorts by column. Sorting by the current column again flips the
// direction; a new column starts ascending.
func (s *State) ToggleSort(column string) {
	if column == "" {
		return
	}
	if s.SortBy == column {
		if s.SortDirection == Asc {
			s.SortDirection = Desc
		} else {
			s.SortDirection = Asc
		}
		return
	}
	s.SortBy = column
	s.SortDirection = Asc
}

// Query renders the state as list request parameters.
func (s *State) Query() url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(s.Page))
	q.Set("limit", strconv.Itoa(s.PageSize))
	if s.Term != "" {
		q.Set("term", s.Term)
	}
	if s.SortBy != "" {
		q.Set("sortBy", s.SortBy)
		dir := s.SortDirection
		if dir == "" {
			dir = Asc
		}
		q.Set("sortDirection", string(dir))
	}
	for k, v := range s.Filters {
		if v = strings.TrimSpace(v); v != "" {
			q.Set(k, v)
		}
	}
	return q
}

func (s *State) resetOnChange() {
	if s.ServerSide {
		s.Page = 1
	}
}

func validPageSize(n int) bool {
	for _, o := range PageSizeOptions {
		if o == n {
			return true
		}
	}
	return false
}
