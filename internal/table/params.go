package table

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

var reservedParams = map[string]bool{
	"page": true, "limit": true, "term": true, "sortBy": true, "sortDirection": true,
}

// ParseListParams reads list request parameters into a server-side State.
// Only sortable columns and filterable keys are honoured. The limit defaults
// to DefaultPageSize and is capped at MaxPageSize.
func ParseListParams(q url.Values, sortable, filterable []string) *State {
	s := New(true)

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		s.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		s.PageSize = min(l, MaxPageSize)
	}
	s.Term = strings.TrimSpace(q.Get("term"))

	if by := q.Get("sortBy"); by != "" && slices.Contains(sortable, by) {
		s.SortBy = by
		s.SortDirection = Asc
		if strings.EqualFold(q.Get("sortDirection"), string(Desc)) {
			s.SortDirection = Desc
		}
	}

	for _, key := range filterable {
		if reservedParams[key] {
			continue
		}
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			s.Filters[key] = v
		}
	}
	return s
}
