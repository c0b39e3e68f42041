package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/client"
	"github.com/phdlabs/admind/internal/model"
	tstate "github.com/phdlabs/admind/internal/table"
)

// fakeFetcher records the states it was asked for.
type fakeFetcher struct {
	mu     sync.Mutex
	states []tstate.State
	page   model.Page[map[string]interface{}]
	err    error
}

func (f *fakeFetcher) List(ctx context.Context, path string, st *tstate.State) (model.Page[map[string]interface{}], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, *st)
	return f.page, f.err
}

func (f *fakeFetcher) last() tstate.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[len(f.states)-1]
}

func adminsResource() client.Resource {
	r, _ := client.LookupResource("admins")
	return r
}

func newTestBrowser(t *testing.T, total int64) (browserModel, *fakeFetcher) {
	t.Helper()
	f := &fakeFetcher{page: model.Page[map[string]interface{}]{
		Data: []map[string]interface{}{
			{"id": float64(1), "name": "Ada", "email": "ada@example.com", "isActive": true,
				"adminType": map[string]interface{}{"name": "Owners"}},
		},
		TotalCount: total,
	}}
	m := newBrowser(context.Background(), f, adminsResource())
	t.Cleanup(func() { m.debouncer.Stop(); m.cancel() })

	// Deliver the first page.
	updated, _ := m.Update(m.load(m.seq)())
	return updated.(browserModel), f
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the returned fetch, if any.
func press(t *testing.T, m browserModel, k string) (browserModel, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(key(k))
	m = updated.(browserModel)
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	if pm, ok := msg.(pageMsg); ok {
		updated, _ = m.Update(pm)
		m = updated.(browserModel)
	}
	return m, msg
}

func TestBrowserFirstPage(t *testing.T) {
	m, f := newTestBrowser(t, 30)

	if m.loading || m.state.Total != 30 {
		t.Errorf("loading = %v, total = %d", m.loading, m.state.Total)
	}
	rows := m.table.Rows()
	if len(rows) != 1 || rows[0][1] != "Ada" || rows[0][3] != "Owners" || rows[0][4] != "yes" {
		t.Errorf("rows = %v", rows)
	}
	if got := f.last(); got.Page != 1 || got.PageSize != tstate.DefaultPageSize {
		t.Errorf("first request = %+v", got)
	}
	if !strings.Contains(m.View(), "Showing 1-10 of 30") {
		t.Errorf("view = %s", m.View())
	}
}

func TestBrowserPaging(t *testing.T) {
	m, f := newTestBrowser(t, 30)

	tests := []struct {
		key  string
		page int
	}{
		{"n", 2},
		{"n", 3},
		{"f", 1},
		{"l", 3},
		{"p", 2},
	}
	for _, tt := range tests {
		m, _ = press(t, m, tt.key)
		if m.state.Page != tt.page {
			t.Fatalf("after %q page = %d, want %d", tt.key, m.state.Page, tt.page)
		}
		if got := f.last().Page; got != tt.page {
			t.Fatalf("after %q requested page %d, want %d", tt.key, got, tt.page)
		}
	}

	// Moving past the last page does not refetch.
	m, _ = press(t, m, "l")
	before := len(f.states)
	m, msg := press(t, m, "n")
	if msg != nil || len(f.states) != before {
		t.Error("next on the last page should be ignored")
	}
}

func TestBrowserPageSize(t *testing.T) {
	m, f := newTestBrowser(t, 300)
	m, _ = press(t, m, "n")

	m, _ = press(t, m, "+")
	if m.state.PageSize != 25 || m.state.Page != 1 || f.last().PageSize != 25 {
		t.Errorf("after + state = %+v", m.state)
	}
	m, _ = press(t, m, "-")
	m, msg := press(t, m, "-")
	if m.state.PageSize != 10 || msg != nil {
		t.Errorf("page size = %d, extra fetch = %v", m.state.PageSize, msg)
	}
}

func TestBrowserSort(t *testing.T) {
	m, f := newTestBrowser(t, 30)

	// The ID column is not sortable.
	m, msg := press(t, m, "1")
	if msg != nil || m.state.SortBy != "" {
		t.Error("unsortable column should be ignored")
	}

	m, _ = press(t, m, "2")
	if got := f.last(); got.SortBy != "name" || got.SortDirection != tstate.Asc {
		t.Errorf("sort = %s %s", got.SortBy, got.SortDirection)
	}
	m, _ = press(t, m, "2")
	if got := f.last(); got.SortDirection != tstate.Desc {
		t.Errorf("second toggle = %s", got.SortDirection)
	}
	if !strings.Contains(m.View(), "sorted by name desc") {
		t.Error("status line should show the sort")
	}
}

func TestBrowserSearch(t *testing.T) {
	m, _ := newTestBrowser(t, 30)
	m, _ = press(t, m, "n")

	// Cursor blink commands are not run.
	updated, _ := m.Update(key("/"))
	m = updated.(browserModel)
	if !m.searching {
		t.Fatal("slash should start searching")
	}
	// Typing while searching does not page.
	updated, _ = m.Update(key("n"))
	m = updated.(browserModel)
	if m.state.Page != 2 || m.search.Value() != "n" {
		t.Errorf("page = %d, input = %q", m.state.Page, m.search.Value())
	}

	seq := m.seq
	updated, _ = m.Update(searchMsg("ada"))
	m = updated.(browserModel)
	if m.state.Term != "ada" || m.state.Page != 1 {
		t.Errorf("state after search = %+v", m.state)
	}
	if m.seq != seq+1 {
		t.Error("a new term should fetch")
	}

	// The same term again is distinct-until-changed.
	updated, _ = m.Update(searchMsg("ada"))
	m = updated.(browserModel)
	if m.seq != seq+1 {
		t.Error("unchanged term should not fetch")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(browserModel)
	if m.searching {
		t.Error("esc should leave search")
	}
}

func TestBrowserDropsStalePages(t *testing.T) {
	m, _ := newTestBrowser(t, 30)
	m.seq = 5
	updated, _ := m.Update(pageMsg{seq: 4, page: model.Page[map[string]interface{}]{TotalCount: 99}})
	if updated.(browserModel).state.Total != 30 {
		t.Error("stale response was applied")
	}
}

func TestBrowserQuitsOnUnauthorized(t *testing.T) {
	m, _ := newTestBrowser(t, 30)
	updated, cmd := m.Update(pageMsg{seq: m.seq, err: client.ErrUnauthorized})
	if cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !errors.Is(updated.(browserModel).err, client.ErrUnauthorized) {
		t.Error("error should be kept for the caller")
	}

	m, _ = newTestBrowser(t, 30)
	updated, cmd = m.Update(pageMsg{seq: m.seq, err: errors.New("boom")})
	if cmd != nil || !strings.Contains(updated.(browserModel).View(), "boom") {
		t.Error("other errors are shown without quitting")
	}
}

func TestBrowserQuit(t *testing.T) {
	m, _ := newTestBrowser(t, 30)
	_, msg := press(t, m, "q")
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("q returned %T", msg)
	}
	if m.ctx.Err() == nil {
		t.Error("quitting should cancel in-flight requests")
	}
}

func TestRunRefusesUnreadableResource(t *testing.T) {
	privs := authz.Privileges{{Function: model.Function{Key: model.FunctionUsers}, Read: true}}
	err := Run(context.Background(), &fakeFetcher{}, adminsResource(), privs)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{true, "yes"},
		{false, "no"},
		{float64(42), "42"},
		{2.5, "2.5"},
		{"draft", "draft"},
	}
	for _, tt := range tests {
		if got := formatCell(tt.in); got != tt.want {
			t.Errorf("formatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLookup(t *testing.T) {
	row := map[string]interface{}{
		"phone": map[string]interface{}{"number": "555"},
		"name":  "Ada",
	}
	if got := lookup(row, "phone.number"); got != "555" {
		t.Errorf("nested = %v", got)
	}
	if got := lookup(row, "name.first"); got != nil {
		t.Errorf("through a scalar = %v", got)
	}
	if got := lookup(row, "missing"); got != nil {
		t.Errorf("missing = %v", got)
	}
}

func TestStepPageSize(t *testing.T) {
	tests := []struct{ current, dir, want int }{
		{10, 1, 25},
		{100, 1, 100},
		{10, -1, 10},
		{50, -1, 25},
		{7, 1, tstate.DefaultPageSize},
	}
	for _, tt := range tests {
		if got := stepPageSize(tt.current, tt.dir); got != tt.want {
			t.Errorf("stepPageSize(%d, %d) = %d, want %d", tt.current, tt.dir, got, tt.want)
		}
	}
}

func TestEveryResourceHasColumns(t *testing.T) {
	for _, r := range client.Resources {
		if len(resourceColumns[r.Name]) == 0 {
			t.Errorf("resource %s has no columns", r.Name)
		}
	}
}
