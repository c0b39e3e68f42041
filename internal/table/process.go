package table

import (
	"fmt"
	"slices"
	"strings"
)

// Row is one record of a client-side list, keyed by column.
type Row map[string]any

// Process applies the search term, the column filters and the sort to rows,
// records the resulting total and returns the rows of the current page. The
// input slice is not modified.
func (s *State) Process(rows []Row, columns []string) []Row {
	term := strings.ToLower(s.Term)
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if term != "" && !matchesAny(r, columns, term) {
			continue
		}
		if !matchesFilters(r, s.Filters) {
			continue
		}
		out = append(out, r)
	}

	if s.SortBy != "" {
		dir := 1
		if s.SortDirection == Desc {
			dir = -1
		}
		slices.SortStableFunc(out, func(a, b Row) int {
			return dir * compareValues(a[s.SortBy], b[s.SortBy])
		})
	}

	s.SetTotal(len(out))
	start := min(s.Offset(), len(out))
	end := min(start+s.PageSize, len(out))
	return out[start:end]
}

func matchesAny(r Row, columns []string, term string) bool {
	for _, c := range columns {
		v, ok := r[c]
		if !ok || v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
			return true
		}
	}
	return false
}

func matchesFilters(r Row, filters map[string]string) bool {
	for k, want := range filters {
		if want == "" {
			continue
		}
		v, ok := r[k]
		if !ok || v == nil {
			return false
		}
		if !strings.Contains(strings.ToLower(fmt.Sprint(v)), strings.ToLower(want)) {
			return false
		}
	}
	return true
}

// compareValues orders nil before anything else and compares everything else
// by its string form, so 10 sorts before 9.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
