package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/blackwell-systems/bookdesk/internal/tui/delegate"
)

// MenuItem is one sidebar entry.
type MenuItem struct {
	Key         string
	Label       string
	Description string
	Shortcut    string // digit that opens the entry directly
}

// FilterValue implements list.Item
func (m MenuItem) FilterValue() string {
	return m.Label + " " + m.Description
}

// HubContext is what the sidebar shows around its entries.
type HubContext struct {
	User    string // signed-in admin, empty when unknown
	BaseURL string
	Items   []MenuItem // dashboards in sidebar order
	Last    string     // key to put the cursor on
}

// Trailing entries after the dashboards.
var (
	LogoutItem = MenuItem{Key: "logout", Label: "Log out", Description: "Clear the stored session"}
	QuitItem   = MenuItem{Key: "quit", Label: "Quit", Description: "Exit bookdesk"}
)

func menuRow(item list.Item) (string, bool) {
	mi, ok := item.(MenuItem)
	if !ok {
		return "", false
	}
	sc := " "
	if mi.Shortcut != "" {
		sc = mi.Shortcut
	}
	return fmt.Sprintf("%s %-16s %s", StyleHelp.Render(sc), mi.Label, StyleHelp.Render(mi.Description)), true
}

var (
	hubTitle  = lipgloss.NewStyle().Bold(true).Foreground(ColorTeal).Padding(0, 1)
	hubFrame  = lipgloss.NewStyle().Padding(1, 2)
	hubInside = lipgloss.NewStyle().Padding(0, 2, 0, 1)
)

// hubChrome is the header height plus border and padding.
const hubChrome = 4

type hubModel struct {
	list      list.Model
	ctx       HubContext
	shortcuts map[string]string
	action    string
	done      bool
}

func newHub(ctx HubContext) hubModel {
	items := make([]list.Item, 0, len(ctx.Items)+2)
	shortcuts := make(map[string]string)
	cursor := 0
	for i, it := range ctx.Items {
		if i < 9 {
			it.Shortcut = strconv.Itoa(i + 1)
			shortcuts[it.Shortcut] = it.Key
		}
		if it.Key == ctx.Last {
			cursor = i
		}
		items = append(items, it)
	}
	items = append(items, LogoutItem, QuitItem)

	l := list.New(items, delegate.New(menuRow, StyleNormal, StyleHighlight), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.HelpStyle = StyleHelp
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{hubKeyMap.selectItem, hubKeyMap.jump}
	}
	l.Select(cursor)

	return hubModel{list: l, ctx: ctx, shortcuts: shortcuts}
}

func (m hubModel) Init() tea.Cmd { return nil }

func (m hubModel) choose(action string) (tea.Model, tea.Cmd) {
	m.action = action
	m.done = true
	return m, tea.Quit
}

func (m hubModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, hubKeyMap.quit):
			return m.choose(QuitItem.Key)
		case key.Matches(msg, hubKeyMap.jump):
			if target, found := m.shortcuts[msg.String()]; found {
				return m.choose(target)
			}
		case key.Matches(msg, hubKeyMap.selectItem):
			if item, ok := m.list.SelectedItem().(MenuItem); ok {
				return m.choose(item.Key)
			}
		}

	case tea.WindowSizeMsg:
		fh, fv := hubFrame.GetFrameSize()
		bh, bv := StyleBorder.GetFrameSize()
		ih, _ := hubInside.GetFrameSize()
		m.list.SetSize(max(msg.Width-fh-bh-ih, 40), max(msg.Height-fv-bv-hubChrome, 5))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// subtitle is "user · base URL" with whichever parts are known.
func (m hubModel) subtitle() string {
	switch {
	case m.ctx.User != "" && m.ctx.BaseURL != "":
		return m.ctx.User + " · " + m.ctx.BaseURL
	case m.ctx.User != "":
		return m.ctx.User
	}
	return m.ctx.BaseURL
}

func (m hubModel) View() string {
	if m.done {
		return ""
	}
	parts := []string{hubTitle.Render("bookdesk · Bookstore Admin")}
	if sub := m.subtitle(); sub != "" {
		parts = append(parts, StyleHelp.Render("  "+sub))
	}
	parts = append(parts, "", m.list.View())

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return hubFrame.Render(StyleBorder.Render(hubInside.Render(content)))
}

// RunHub shows the sidebar and returns the chosen entry's key. An empty
// key means the program ended without a choice.
func RunHub(ctx HubContext) (string, error) {
	p := tea.NewProgram(newHub(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running hub: %w", err)
	}
	fm, ok := final.(hubModel)
	if !ok {
		return "", fmt.Errorf("unexpected model type %T", final)
	}
	return fm.action, nil
}
