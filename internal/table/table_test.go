package table

import (
	"net/url"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{95, 25, 4},
		{100, 100, 1},
	}
	for _, tt := range tests {
		s := &State{Page: 1, PageSize: tt.size, Total: tt.total}
		if got := s.TotalPages(); got != tt.want {
			t.Errorf("TotalPages(total=%d, size=%d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestIndices(t *testing.T) {
	s := &State{Page: 3, PageSize: 10, Total: 25}
	if got := s.StartIndex(); got != 21 {
		t.Errorf("StartIndex = %d, want 21", got)
	}
	if got := s.EndIndex(); got != 25 {
		t.Errorf("EndIndex = %d, want 25", got)
	}

	s = &State{Page: 1, PageSize: 10, Total: 0}
	if s.StartIndex() != 0 || s.EndIndex() != 0 {
		t.Errorf("empty list indices = %d..%d, want 0..0", s.StartIndex(), s.EndIndex())
	}
}

func TestGoToPage(t *testing.T) {
	s := New(true)
	s.SetTotal(35)

	tests := []struct {
		page     int
		changed  bool
		wantPage int
	}{
		{0, false, 1},
		{1, false, 1},
		{5, false, 1},
		{4, true, 4},
		{4, false, 4},
		{2, true, 2},
	}
	for _, tt := range tests {
		if got := s.GoToPage(tt.page); got != tt.changed {
			t.Errorf("GoToPage(%d) = %v, want %v", tt.page, got, tt.changed)
		}
		if s.Page != tt.wantPage {
			t.Errorf("after GoToPage(%d) page = %d, want %d", tt.page, s.Page, tt.wantPage)
		}
	}

	if !s.Last() || s.Page != 4 {
		t.Errorf("Last: page = %d", s.Page)
	}
	if s.Next() {
		t.Error("Next on last page should be ignored")
	}
	if !s.First() || s.Previous() {
		t.Error("First then Previous should stay on page 1")
	}
}

func TestSetPageSize(t *testing.T) {
	s := New(false)
	s.SetTotal(200)
	s.GoToPage(5)

	if s.SetPageSize(30) {
		t.Error("SetPageSize(30) should be rejected")
	}
	if !s.SetPageSize(25) {
		t.Fatal("SetPageSize(25) rejected")
	}
	if s.Page != 1 {
		t.Errorf("page = %d after page size change, want 1", s.Page)
	}
	if s.SetPageSize(25) {
		t.Error("same page size should be a no-op")
	}
}

func TestSetFilterServerSideResetsPage(t *testing.T) {
	s := New(true)
	s.SetTotal(100)
	s.GoToPage(3)

	if !s.SetFilter("status", "  active ") {
		t.Fatal("expected filter change")
	}
	if s.Page != 1 {
		t.Errorf("page = %d, want 1", s.Page)
	}
	if s.Filters["status"] != "active" {
		t.Errorf("filter = %q, want trimmed value", s.Filters["status"])
	}

	s.GoToPage(2)
	if s.SetFilter("status", "active") {
		t.Error("unchanged filter reported a change")
	}
	if s.Page != 2 {
		t.Error("unchanged filter must not reset the page")
	}

	if !s.SetFilter("status", "") {
		t.Error("clearing a filter is a change")
	}
	if _, ok := s.Filters["status"]; ok {
		t.Error("empty value must remove the filter")
	}
	if s.SetFilter("missing", " ") {
		t.Error("removing an absent filter is not a change")
	}
}

func TestSetFilterClientSideKeepsPage(t *testing.T) {
	s := New(false)
	s.SetTotal(100)
	s.GoToPage(3)
	s.SetFilter("status", "active")
	if s.Page != 3 {
		t.Errorf("client-side filter change moved page to %d", s.Page)
	}
}

func TestSetSearch(t *testing.T) {
	s := New(true)
	s.SetTotal(50)
	s.GoToPage(2)
	if !s.SetSearch("ada") || s.Page != 1 {
		t.Errorf("SetSearch: page = %d", s.Page)
	}
	if s.SetSearch(" ada ") {
		t.Error("same term after trim is not a change")
	}
}

func TestToggleSort(t *testing.T) {
	s := New(true)
	s.ToggleSort("name")
	if s.SortBy != "name" || s.SortDirection != Asc {
		t.Fatalf("first toggle: %s %s", s.SortBy, s.SortDirection)
	}
	s.ToggleSort("name")
	if s.SortDirection != Desc {
		t.Errorf("second toggle: %s", s.SortDirection)
	}
	s.ToggleSort("name")
	if s.SortDirection != Asc {
		t.Errorf("third toggle: %s", s.SortDirection)
	}
	s.ToggleSort("email")
	if s.SortBy != "email" || s.SortDirection != Asc {
		t.Errorf("new column: %s %s", s.SortBy, s.SortDirection)
	}
}

func TestQuery(t *testing.T) {
	s := New(true)
	s.SetTotal(100)
	s.GoToPage(2)
	s.SetPageSize(50)
	s.SetSearch("grace")
	s.ToggleSort("createdAt")
	s.ToggleSort("createdAt")
	s.Filters["status"] = "active"
	s.Filters["blank"] = "  "

	want := url.Values{
		"page":          {"1"},
		"limit":         {"50"},
		"term":          {"grace"},
		"sortBy":        {"createdAt"},
		"sortDirection": {"desc"},
		"status":        {"active"},
	}
	if got := s.Query(); !reflect.DeepEqual(got, want) {
		t.Errorf("Query() = %v, want %v", got, want)
	}

	plain := New(true).Query()
	if plain.Has("term") || plain.Has("sortBy") {
		t.Errorf("default query carries optional params: %v", plain)
	}
}

func TestParseListParams(t *testing.T) {
	q := url.Values{
		"page":          {"3"},
		"limit":         {"500"},
		"term":          {"  ada "},
		"sortBy":        {"email"},
		"sortDirection": {"DESC"},
		"isActive":      {"true"},
		"password_hash": {"x"},
		"adminType":     {" "},
	}
	s := ParseListParams(q, []string{"name", "email"}, []string{"isActive", "adminType"})

	if s.Page != 3 || s.PageSize != MaxPageSize {
		t.Errorf("page/limit = %d/%d", s.Page, s.PageSize)
	}
	if s.Term != "ada" {
		t.Errorf("term = %q", s.Term)
	}
	if s.SortBy != "email" || s.SortDirection != Desc {
		t.Errorf("sort = %s %s", s.SortBy, s.SortDirection)
	}
	if len(s.Filters) != 1 || s.Filters["isActive"] != "true" {
		t.Errorf("filters = %v", s.Filters)
	}
	if s.Offset() != 200 {
		t.Errorf("offset = %d", s.Offset())
	}

	d := ParseListParams(url.Values{"sortBy": {"password_hash"}, "page": {"-2"}, "limit": {"abc"}}, []string{"name"}, nil)
	if d.SortBy != "" || d.Page != 1 || d.PageSize != DefaultPageSize {
		t.Errorf("defaults = %+v", d)
	}
}

func TestProcess(t *testing.T) {
	rows := []Row{
		{"name": "Charlie", "role": "editor", "age": 30},
		{"name": "alice", "role": "admin", "age": 25},
		{"name": nil, "role": "viewer", "age": 41},
		{"name": "Bob", "role": "Admin", "age": 9},
	}
	cols := []string{"name", "role"}

	s := New(false)
	page := s.Process(rows, cols)
	if len(page) != 4 || s.Total != 4 {
		t.Fatalf("unfiltered: %d rows, total %d", len(page), s.Total)
	}

	s.SetSearch("ADMIN")
	page = s.Process(rows, cols)
	if s.Total != 2 {
		t.Fatalf("search total = %d, want 2", s.Total)
	}

	s.SetSearch("")
	s.SetFilter("role", "adm")
	s.ToggleSort("name")
	page = s.Process(rows, cols)
	if len(page) != 2 || page[0]["name"] != "Bob" || page[1]["name"] != "alice" {
		t.Errorf("filter+sort = %v", page)
	}

	s.ClearFilters()
	page = s.Process(rows, cols)
	if page[0]["name"] != nil {
		t.Errorf("nil should sort first ascending, got %v", page[0]["name"])
	}
	s.ToggleSort("name")
	page = s.Process(rows, cols)
	if page[len(page)-1]["name"] != nil {
		t.Errorf("nil should sort last descending, got %v", page[len(page)-1]["name"])
	}

	// Values compare by their string form.
	s.ToggleSort("age")
	page = s.Process(rows, cols)
	if page[0]["age"] != 25 || page[2]["age"] != 41 || page[3]["age"] != 9 {
		t.Errorf("age sort = %v", page)
	}
}

func TestProcessPaging(t *testing.T) {
	var rows []Row
	for i := 0; i < 23; i++ {
		rows = append(rows, Row{"n": i})
	}
	s := New(false)
	s.Process(rows, []string{"n"})
	s.Last()
	page := s.Process(rows, []string{"n"})
	if len(page) != 3 || page[0]["n"] != 20 {
		t.Errorf("last page = %v", page)
	}

	// Shrinking the result set pulls the page back in range.
	s.SetSearch("1")
	page = s.Process(rows, []string{"n"})
	if s.Page != 2 || len(page) != 2 {
		t.Errorf("page = %d, rows = %d", s.Page, len(page))
	}
}

func TestDebouncer(t *testing.T) {
	var mu sync.Mutex
	var got []string
	d := NewDebouncer(20*time.Millisecond, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	defer d.Stop()

	d.Trigger("a")
	d.Trigger("ad")
	d.Trigger("ada")
	time.Sleep(80 * time.Millisecond)

	d.Trigger("ada")
	time.Sleep(80 * time.Millisecond)

	d.Trigger("bob")
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"ada", "bob"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestDebouncerStop(t *testing.T) {
	fired := make(chan string, 1)
	d := NewDebouncer(10*time.Millisecond, func(v string) { fired <- v })
	d.Trigger("x")
	d.Stop()
	d.Trigger("y")
	select {
	case v := <-fired:
		t.Errorf("stopped debouncer delivered %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}
