// Package tui provides the interactive result browser.
package tui

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rshade/stork/internal/pagination"
	"github.com/rshade/stork/internal/session"
)

// Layout defaults.
const (
	defaultWidth    = 120
	defaultHeight   = 30
	defaultColWidth = 12
	maxColWidth     = 28
	chromeHeight    = 6
	minTableHeight  = 3
	defaultDecimals = 2
)

// ViewState represents the current state of the browser.
type ViewState int

// Browser states.
const (
	ViewStateList ViewState = iota
	ViewStateQuitting
	ViewStateError
)

// Pager is the pagination cursor the browser drives. *session.Session
// implements it.
type Pager interface {
	CurrentPageView() (session.View, error)
	NextPage() (session.View, error)
	PrevPage() (session.View, error)
	GotoPage(n int) (session.View, error)
	Info() (pagination.PaginationMeta, error)
}

// BrowserModel is the Bubble Tea model that pages through a session's
// result set one page at a time.
type BrowserModel struct {
	pager    Pager
	title    string
	columns  []string
	decimals int

	state  ViewState
	view   session.View
	meta   pagination.PaginationMeta
	table  table.Model
	status string
	err    error

	width  int
	height int
}

// NewBrowserModel creates a browser over pager. columns selects and orders
// the displayed fields; when empty they are derived from the first page.
func NewBrowserModel(pager Pager, title string, columns ...string) (*BrowserModel, error) {
	m := &BrowserModel{
		pager:    pager,
		title:    title,
		columns:  columns,
		decimals: defaultDecimals,
		width:    defaultWidth,
		height:   defaultHeight,
	}

	view, err := pager.CurrentPageView()
	if err != nil {
		return nil, err
	}
	if len(m.columns) == 0 {
		m.columns = deriveColumns(view.Rows)
	}
	m.show(view)
	return m, nil
}

// SetDecimals sets the number of decimals used for float cells.
func (m *BrowserModel) SetDecimals(n int) {
	if n >= 0 {
		m.decimals = n
		m.rebuildTable()
	}
}

// Init initializes the model.
func (m *BrowserModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m *BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if winMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = winMsg.Width
		m.height = winMsg.Height
		m.rebuildTable()
		return m, nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case keyQuit, keyCtrlC:
		m.state = ViewStateQuitting
		return m, tea.Quit
	case keyNext, keyRight, keyPgDown:
		m.navigate(m.pager.NextPage)
		return m, nil
	case keyPrev, keyLeft, keyPgUp:
		m.navigate(m.pager.PrevPage)
		return m, nil
	case keyFirst, keyHome:
		m.navigate(func() (session.View, error) { return m.pager.GotoPage(1) })
		return m, nil
	case keyLast, keyEnd:
		m.navigate(func() (session.View, error) { return m.pager.GotoPage(m.meta.TotalPages) })
		return m, nil
	case keyEsc:
		m.status = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the browser.
func (m *BrowserModel) View() string {
	if m.state == ViewStateQuitting {
		return ""
	}
	if m.state == ViewStateError {
		return ErrorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	header := TitleStyle.Render(m.title)
	footer := fmt.Sprintf("Page %d/%d • %d results", m.view.Page, m.view.TotalPages, m.view.TotalItems)
	if m.view.TotalItems == 0 {
		footer = "No results"
	}

	parts := []string{header, m.table.View(), footer}
	if m.status != "" {
		parts = append(parts, StatusStyle.Render(m.status))
	}
	parts = append(parts, HelpStyle.Render(helpMessage))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Page returns the page currently displayed.
func (m *BrowserModel) Page() int {
	return m.view.Page
}

// Status returns the last navigation notice, if any.
func (m *BrowserModel) Status() string {
	return m.status
}

func (m *BrowserModel) navigate(move func() (session.View, error)) {
	view, err := move()
	if err != nil {
		if errors.Is(err, session.ErrOutOfRange) {
			m.status = err.Error()
			return
		}
		m.err = err
		m.state = ViewStateError
		return
	}
	m.status = ""
	m.show(view)
}

func (m *BrowserModel) show(view session.View) {
	m.view = view
	if meta, err := m.pager.Info(); err == nil {
		m.meta = meta
	}
	m.rebuildTable()
}

func (m *BrowserModel) rebuildTable() {
	columns := make([]table.Column, len(m.columns))
	for i, name := range m.columns {
		columns[i] = table.Column{Title: name, Width: m.columnWidth(name)}
	}

	rows := make([]table.Row, len(m.view.Rows))
	for i, r := range m.view.Rows {
		cells := make(table.Row, len(m.columns))
		for j, name := range m.columns {
			cells[j] = formatCell(r[name], m.decimals)
		}
		rows[i] = cells
	}

	height := m.height - chromeHeight
	if height < minTableHeight {
		height = minTableHeight
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = TableHeaderStyle
	s.Selected = TableSelectedStyle
	t.SetStyles(s)

	m.table = t
}

func (m *BrowserModel) columnWidth(name string) int {
	width := max(len(name), defaultColWidth)
	for _, r := range m.view.Rows {
		width = max(width, lipgloss.Width(formatCell(r[name], m.decimals)))
	}
	return min(width, maxColWidth)
}

// deriveColumns orders code and name first, then the remaining fields alphabetically.
func deriveColumns(rows []session.Row) []string {
	if len(rows) == 0 {
		return []string{"code", "name"}
	}

	var rest []string
	for k := range rows[0] {
		if k != "code" && k != "name" {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)

	var out []string
	for _, k := range []string{"code", "name"} {
		if _, ok := rows[0][k]; ok {
			out = append(out, k)
		}
	}
	return append(out, rest...)
}

func formatCell(v any, decimals int) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', decimals, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', decimals, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.DateOnly)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
