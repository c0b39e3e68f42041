// Package tui is the terminal table browser behind `admind browse`.
package tui

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/client"
	"github.com/phdlabs/admind/internal/model"
	tstate "github.com/phdlabs/admind/internal/table"
)

// Fetcher loads one page of a collection.
type Fetcher interface {
	List(ctx context.Context, path string, st *tstate.State) (model.Page[map[string]interface{}], error)
}

// ErrForbidden is returned when the session cannot read the resource.
var ErrForbidden = errors.New("you do not have read access to this resource")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			MarginLeft(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			MarginLeft(1)

	tableBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))
)

const helpText = "n/p page · f/l first/last · +/- page size · / search · 1-9 sort · r reload · q quit"

type pageMsg struct {
	seq  int
	page model.Page[map[string]interface{}]
	err  error
}

type searchMsg string

// browserModel is the bubbletea model of the browser.
type browserModel struct {
	ctx      context.Context
	cancel   context.CancelFunc
	fetcher  Fetcher
	resource client.Resource
	columns  []column

	state     *tstate.State
	table     table.Model
	search    textinput.Model
	searching bool
	debouncer *tstate.Debouncer
	searchCh  chan string

	seq     int
	loading bool
	err     error
}

func newBrowser(ctx context.Context, fetcher Fetcher, res client.Resource) browserModel {
	ctx, cancel := context.WithCancel(ctx)
	cols := resourceColumns[res.Name]

	tcols := make([]table.Column, len(cols))
	for i, c := range cols {
		tcols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	t := table.New(table.WithColumns(tcols), table.WithFocused(true), table.WithHeight(tstate.DefaultPageSize+1))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	in := textinput.New()
	in.Placeholder = "search"
	in.Prompt = "/ "
	in.CharLimit = 100

	// The debouncer fires on its own goroutine; the newest term wins.
	searchCh := make(chan string, 1)
	deb := tstate.NewDebouncer(0, func(v string) {
		select {
		case <-searchCh:
		default:
		}
		searchCh <- v
	})

	return browserModel{
		ctx:       ctx,
		cancel:    cancel,
		fetcher:   fetcher,
		resource:  res,
		columns:   cols,
		state:     tstate.New(true),
		table:     t,
		search:    in,
		debouncer: deb,
		searchCh:  searchCh,
		seq:       1,
		loading:   true,
	}
}

func (m browserModel) Init() tea.Cmd {
	return tea.Batch(m.load(m.seq), m.waitForSearch())
}

// fetch loads the page the state points at. Responses of superseded
// requests are dropped by sequence number.
func (m *browserModel) fetch() tea.Cmd {
	m.seq++
	m.loading = true
	return m.load(m.seq)
}

func (m browserModel) load(seq int) tea.Cmd {
	st := *m.state
	st.Filters = maps.Clone(m.state.Filters)
	ctx, fetcher, path := m.ctx, m.fetcher, m.resource.Path
	return func() tea.Msg {
		page, err := fetcher.List(ctx, path, &st)
		return pageMsg{seq: seq, page: page, err: err}
	}
}

func (m browserModel) waitForSearch() tea.Cmd {
	ch, ctx := m.searchCh, m.ctx
	return func() tea.Msg {
		select {
		case v := <-ch:
			return searchMsg(v)
		case <-ctx.Done():
			return nil
		}
	}
}

func (m browserModel) quit() (tea.Model, tea.Cmd) {
	m.debouncer.Stop()
	m.cancel()
	return m, tea.Quit
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width - 2)
		m.table.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case pageMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, client.ErrUnauthorized) {
				return m.quit()
			}
			return m, nil
		}
		m.err = nil
		m.state.SetTotal(int(msg.page.TotalCount))
		m.table.SetRows(m.rows(msg.page.Data))
		m.table.GotoTop()
		return m, nil

	case searchMsg:
		cmds := []tea.Cmd{m.waitForSearch()}
		if m.state.SetSearch(string(msg)) {
			cmds = append(cmds, m.fetch())
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m browserModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc", "enter":
		m.searching = false
		m.search.Blur()
		m.table.Focus()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.debouncer.Trigger(m.search.Value())
	return m, cmd
}

func (m browserModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	changed := false
	switch key {
	case "q", "ctrl+c":
		return m.quit()
	case "n":
		changed = m.state.Next()
	case "p":
		changed = m.state.Previous()
	case "f":
		changed = m.state.First()
	case "l":
		changed = m.state.Last()
	case "+":
		changed = m.state.SetPageSize(stepPageSize(m.state.PageSize, 1))
	case "-":
		changed = m.state.SetPageSize(stepPageSize(m.state.PageSize, -1))
	case "r":
		changed = true
	case "/":
		m.searching = true
		m.table.Blur()
		return m, m.search.Focus()
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			idx := int(key[0] - '1')
			if idx < len(m.columns) && m.columns[idx].Sort != "" {
				m.state.ToggleSort(m.columns[idx].Sort)
				changed = true
			}
			break
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	if changed {
		return m, m.fetch()
	}
	return m, nil
}

func (m browserModel) rows(data []map[string]interface{}) []table.Row {
	rows := make([]table.Row, len(data))
	for i, rec := range data {
		row := make(table.Row, len(m.columns))
		for j, c := range m.columns {
			row[j] = formatCell(lookup(rec, c.Key))
		}
		rows[i] = row
	}
	return rows
}

func (m browserModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("admind · " + m.resource.Name))
	b.WriteString("\n")
	if m.searching || m.state.Term != "" {
		b.WriteString(" " + m.search.View())
		b.WriteString("\n")
	}
	b.WriteString(tableBorder.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status()))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(helpText))
	b.WriteString("\n")
	return b.String()
}

func (m browserModel) status() string {
	st := m.state
	s := fmt.Sprintf("Showing %d-%d of %d · page %d/%d · %d per page",
		st.StartIndex(), st.EndIndex(), st.Total, st.Page, st.TotalPages(), st.PageSize)
	if st.SortBy != "" {
		s += fmt.Sprintf(" · sorted by %s %s", st.SortBy, st.SortDirection)
	}
	if m.loading {
		s += " · loading"
	}
	return s
}

// stepPageSize moves to the neighbouring page size option.
func stepPageSize(current, dir int) int {
	i := slices.Index(tstate.PageSizeOptions, current)
	if i < 0 {
		return tstate.DefaultPageSize
	}
	i = min(max(i+dir, 0), len(tstate.PageSizeOptions)-1)
	return tstate.PageSizeOptions[i]
}

// Run browses resource until the user quits. It refuses resources the
// privilege matrix cannot read.
func Run(ctx context.Context, fetcher Fetcher, res client.Resource, privs authz.Privileges) error {
	if !privs.CanVisit(authz.Route{Path: res.Path, Function: res.Function}) {
		return fmt.Errorf("%s: %w", res.Name, ErrForbidden)
	}
	final, err := tea.NewProgram(newBrowser(ctx, fetcher, res), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(browserModel); ok && errors.Is(m.err, client.ErrUnauthorized) {
		return m.err
	}
	return nil
}
