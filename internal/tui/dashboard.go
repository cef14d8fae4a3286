package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
	"github.com/blackwell-systems/bookdesk/internal/tui/delegate"
)

// DashboardAction is what the browser asks its runner to do next.
type DashboardAction string

const (
	ActionNone   DashboardAction = ""
	ActionBack   DashboardAction = "back"
	ActionQuit   DashboardAction = "quit"
	ActionCreate DashboardAction = "create"
	ActionEdit   DashboardAction = "edit"
)

// DashboardResult holds the result of a browser session.
type DashboardResult struct {
	Action DashboardAction
	ID     string
}

// RowAction is a dashboard-specific key bound to the selected record.
type RowAction struct {
	Key   string
	Label string
	// Build returns the success message and the action for a record.
	Build func(r entity.Record) (string, shell.Action)
}

// DashboardOptions are the runner-supplied extras of a browser.
type DashboardOptions struct {
	Status  *StatusBar
	Actions []RowAction
	// Export writes the visible rows and returns where they went.
	Export func(rows []entity.Record) (string, error)
}

// recordItem is one list row with its cells precomputed.
type recordItem struct {
	rec   entity.Record
	cells []string
}

func (r recordItem) FilterValue() string { return strings.Join(r.cells, " ") }

// filterChoice is one step of the filter cycle; the zero value shows all.
type filterChoice struct {
	name, value string
}

func (f filterChoice) String() string {
	if f.name == "" {
		return "all"
	}
	return f.name + "=" + f.value
}

type (
	refreshedMsg  struct{ err error }
	actionDoneMsg struct{ err error }
	syncTickMsg   struct{}
)

type exportedMsg struct {
	path string
	err  error
}

type dashboardModel struct {
	ctx     context.Context
	sh      *shell.Shell
	opts    DashboardOptions
	keys    dashboardKeys
	list    list.Model
	widths  []int
	filters []filterChoice
	filter  int
	status  statusLine
	done    chan struct{}

	loading     bool
	busy        bool
	showDetails bool
	confirming  string // ID awaiting delete confirmation
	activeCmd   string
	width       int
	height      int
	seen        int // store length at the last sync
	result      DashboardResult
	quitting    bool
}

func newDashboard(ctx context.Context, sh *shell.Shell, opts DashboardOptions) dashboardModel {
	def := sh.Definition()
	m := dashboardModel{
		ctx:     ctx,
		sh:      sh,
		opts:    opts,
		keys:    newDashboardKeys(),
		filters: []filterChoice{{}},
		status:  opts.Status.recent(),
		done:    make(chan struct{}),
	}
	for _, f := range def.Filters {
		for _, c := range f.Choices {
			m.filters = append(m.filters, filterChoice{name: f.Name, value: c})
		}
	}
	m.widths = make([]int, len(def.Columns))
	for i, c := range def.Columns {
		m.widths[i] = c.Width
		if m.widths[i] <= 0 {
			m.widths[i] = max(len(c.Header), 12)
		}
	}

	widths := m.widths
	row := func(item list.Item) (string, bool) {
		it, ok := item.(recordItem)
		if !ok {
			return "", false
		}
		return joinCells(it.cells, widths), true
	}
	l := list.New(nil, delegate.New(row, StyleNormal, StyleHighlight), 0, 0)
	l.Title = def.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Styles.Title = StyleHeader
	l.Styles.PaginationStyle = StyleHelp
	l.Styles.HelpStyle = StyleHelp
	m.list = l
	m.reload()
	return m
}

// reload rebuilds the rows from the shell's list under the current filter.
func (m *dashboardModel) reload() tea.Cmd {
	def := m.sh.Definition()
	var f store.Filter
	if choice := m.filters[m.filter]; choice.name != "" {
		if nf, ok := def.Filter(choice.name); ok {
			f.Where = []store.Predicate{nf.Build(choice.value)}
		}
	}
	rows := m.sh.List(f)
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = recordItem{rec: r, cells: cells(def.Columns, r)}
	}
	m.seen = m.sh.Store().Len()
	return m.list.SetItems(items)
}

func cells(cols []export.Column, r entity.Record) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.Join(strings.Fields(c.Cell(r)), " ")
	}
	return out
}

func (m dashboardModel) selected() (entity.Record, bool) {
	it, ok := m.list.SelectedItem().(recordItem)
	if !ok {
		return nil, false
	}
	return it.rec, true
}

func (m dashboardModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: m.sh.Refresh(m.ctx)}
	}
}

func syncTick() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg { return syncTickMsg{} })
}

func (m dashboardModel) Init() tea.Cmd {
	cmds := []tea.Cmd{syncTick()}
	if m.opts.Status != nil {
		cmds = append(cmds, m.opts.Status.listen(m.done))
	}
	if !m.sh.Store().Loaded() {
		cmds = append(cmds, m.refreshCmd())
	}
	return tea.Batch(cmds...)
}

func (m dashboardModel) exit(a DashboardAction, id string) (tea.Model, tea.Cmd) {
	m.result = DashboardResult{Action: a, ID: id}
	m.quitting = true
	return m, tea.Quit
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ClearActiveCmdMsg:
		m.activeCmd = ""
		return m, nil

	case NoticeMsg:
		m.status = statusLine{notice: shell.Notice(msg), at: time.Now()}
		return m, m.opts.Status.listen(m.done)

	case refreshedMsg:
		m.loading = false
		return m, m.reload()

	case actionDoneMsg:
		m.busy = false
		return m, m.reload()

	case exportedMsg:
		if msg.err != nil {
			m.status = statusLine{notice: shell.Notice{Level: shell.Failure, Message: "Export failed: " + msg.err.Error()}}
		} else {
			m.status = statusLine{notice: shell.Notice{Level: shell.Success, Message: "Exported to " + msg.path}}
		}
		return m, nil

	case syncTickMsg:
		// Scheduled refreshes land in the store without a message.
		if m.sh.Store().Len() != m.seen && m.list.FilterState() != list.Filtering {
			return m, tea.Batch(m.reload(), syncTick())
		}
		return m, syncTick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		if m.confirming != "" {
			return m.confirm(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m dashboardModel) confirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirming
	m.confirming = ""
	if s := msg.String(); s != "y" && s != "Y" {
		return m, nil
	}
	m.busy = true
	sh, ctx := m.sh, m.ctx
	return m, func() tea.Msg {
		err := sh.Delete(ctx, id, shell.AlwaysConfirm)
		return actionDoneMsg{err: err}
	}
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	def := m.sh.Definition()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.exit(ActionQuit, "")

	case key.Matches(msg, m.keys.Back):
		if m.list.FilterState() == list.FilterApplied {
			break
		}
		return m.exit(ActionBack, "")

	case key.Matches(msg, m.keys.New):
		if def.CanCreate() {
			return m.exit(ActionCreate, "")
		}

	case key.Matches(msg, m.keys.Edit):
		if r, ok := m.selected(); ok && def.CanUpdate() {
			return m.exit(ActionEdit, r.ID())
		}

	case key.Matches(msg, m.keys.Delete):
		if r, ok := m.selected(); ok && def.CanDelete() && !m.busy {
			m.confirming = r.ID()
			return m, nil
		}

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		m.activeCmd = "r"
		return m, tea.Batch(m.refreshCmd(), HighlightCmd())

	case key.Matches(msg, m.keys.Filter):
		if len(m.filters) > 1 {
			m.filter = (m.filter + 1) % len(m.filters)
			m.activeCmd = "f"
			return m, tea.Batch(m.reload(), HighlightCmd())
		}

	case key.Matches(msg, m.keys.Details):
		m.showDetails = !m.showDetails
		m.resize()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		if m.opts.Export != nil {
			rows := make([]entity.Record, 0, len(m.list.VisibleItems()))
			for _, it := range m.list.VisibleItems() {
				rows = append(rows, it.(recordItem).rec)
			}
			write := m.opts.Export
			m.activeCmd = "x"
			return m, tea.Batch(func() tea.Msg {
				path, err := write(rows)
				return exportedMsg{path: path, err: err}
			}, HighlightCmd())
		}

	default:
		for _, a := range m.opts.Actions {
			if msg.String() != a.Key {
				continue
			}
			r, ok := m.selected()
			if !ok || m.busy {
				return m, nil
			}
			text, fn := a.Build(r)
			m.busy = true
			m.activeCmd = a.Key
			sh, ctx := m.sh, m.ctx
			return m, tea.Batch(func() tea.Msg {
				_, err := sh.Run(ctx, text, fn)
				return actionDoneMsg{err: err}
			}, HighlightCmd())
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *dashboardModel) resize() {
	if m.width == 0 {
		return
	}
	const chrome = 4*2 + 2
	w := max(m.width-chrome, 40)
	if m.showDetails {
		w = w * 6 / 10
	}
	// stats, header row, divider, footer, status
	h := max(m.height-2*2-2-5, 5)
	m.list.SetSize(w, h)
}

func (m dashboardModel) renderStats() string {
	stats := m.sh.Stats()
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = StyleStat.Render(s.Label + ": " + StyleHeader.Render(s.Value))
	}
	line := strings.Join(parts, StyleHelp.Render("│"))
	if f := m.filters[m.filter]; f.name != "" {
		line += "  " + StyleHelp.Render("filter "+f.String())
	}
	if m.loading {
		line += "  " + StyleHelp.Render("loading…")
	}
	return line
}

func (m dashboardModel) renderHeader() string {
	def := m.sh.Definition()
	heads := make([]string, len(def.Columns))
	for i, c := range def.Columns {
		heads[i] = c.Header
	}
	return "  " + StyleHelp.Render(joinCells(heads, m.widths))
}

func (m dashboardModel) renderFooter() string {
	def := m.sh.Definition()
	k := m.keys
	entries := []ShortcutEntry{{Label: "↑/↓ navigate"}, {Key: "/", Label: "/ search"}}
	if len(m.filters) > 1 {
		entries = append(entries, BindingEntry(k.Filter))
	}
	if def.CanCreate() {
		entries = append(entries, BindingEntry(k.New))
	}
	if def.CanUpdate() {
		entries = append(entries, BindingEntry(k.Edit))
	}
	if def.CanDelete() {
		entries = append(entries, BindingEntry(k.Delete))
	}
	for _, a := range m.opts.Actions {
		entries = append(entries, ShortcutEntry{Key: a.Key, Label: a.Key + " " + a.Label})
	}
	if m.opts.Export != nil {
		entries = append(entries, BindingEntry(k.Export))
	}
	entries = append(entries, BindingEntry(k.Refresh), BindingEntry(k.Details), BindingEntry(k.Back))
	return RenderFooterBar(entries, m.activeCmd, m.width)
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}
	outerStyle := lipgloss.NewStyle().Padding(2, 4)

	main := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.list.View())
	if m.showDetails {
		listStyle := lipgloss.NewStyle().
			BorderRight(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ColorTeal)
		main = lipgloss.JoinHorizontal(lipgloss.Top, listStyle.Render(main), m.renderDetails())
	}

	bottom := m.renderFooter()
	if m.confirming != "" {
		label := m.confirming
		if r, ok := m.sh.Store().Get(m.confirming); ok {
			label = m.sh.Label(r)
		}
		bottom = StyleHighlight.Render(fmt.Sprintf("  Delete %s %q? ", m.sh.Definition().Title, label)) + StyleHelp.Render("y/N")
	}
	if s := m.status.View(); s != "" {
		bottom = lipgloss.JoinVertical(lipgloss.Left, bottom, " "+s)
	}
	if err := m.sh.Store().Err(); err != nil && !errors.Is(err, context.Canceled) && m.status.notice.Message == "" {
		bottom = lipgloss.JoinVertical(lipgloss.Left, bottom, " "+StyleError.Render(err.Error()))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, m.renderStats(), main, bottom)
	return outerStyle.Render(StyleBorder.Render(content))
}

// joinCells truncates and pads each cell to its column width.
func joinCells(values []string, widths []int) string {
	var b strings.Builder
	for i, v := range values {
		if i >= len(widths) {
			break
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(fitCell(v, widths[i]))
	}
	return b.String()
}

func fitCell(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

// RunDashboard shows one dashboard until the user leaves it or asks for a
// form.
func RunDashboard(ctx context.Context, sh *shell.Shell, opts DashboardOptions) (DashboardResult, error) {
	m := newDashboard(ctx, sh, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	close(m.done)
	if err != nil {
		return DashboardResult{}, fmt.Errorf("running dashboard: %w", err)
	}
	fm, ok := finalModel.(dashboardModel)
	if !ok {
		return DashboardResult{Action: ActionQuit}, nil
	}
	if !fm.quitting {
		return DashboardResult{Action: ActionQuit}, nil
	}
	return fm.result, nil
}
