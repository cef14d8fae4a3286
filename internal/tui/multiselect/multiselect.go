// Package multiselect maps a set of selected IDs against a labeled option
// list. The pure helpers in options.go own no state; Model adds only the
// open/closed and cursor state needed to browse options in a terminal.
// The selection itself always belongs to the caller's draft.
package multiselect

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ToggleMsg asks the owner to toggle Value in its selection.
type ToggleMsg struct{ Value string }

// ClosedMsg reports that the option list was closed.
type ClosedMsg struct{}

type optionItem struct{ Option }

func (i optionItem) FilterValue() string { return i.Label + " " + i.Tag }

// delegate draws a checkbox from the selection handed to Render.
type delegate struct {
	selected *map[string]bool
}

func (d delegate) Height() int                             { return 1 }
func (d delegate) Spacing() int                            { return 0 }
func (d delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d delegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(optionItem)
	if !ok {
		return
	}
	box := "[ ] "
	if (*d.selected)[it.Value] {
		box = "[✓] "
	}
	label := it.Label
	if label == "" {
		label = it.Value
	}
	if it.Tag != "" {
		label += " " + tagStyle.Render("("+it.Tag+")")
	}
	line := box + label
	if index == m.Index() {
		line = cursorStyle.Render("› " + line)
	} else {
		line = "  " + line
	}
	_, _ = fmt.Fprint(w, line)
}

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD700"}).Bold(true)
	tagStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#767676", Dark: "#808080"})
	tokenStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00AFAF", Dark: "#00D7D7"})
)

type keyMap struct {
	Toggle key.Binding
	Close  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "toggle")),
		Close:  key.NewBinding(key.WithKeys("esc", "tab"), key.WithHelp("esc", "done")),
	}
}

// Model browses options for one multi-reference field.
type Model struct {
	List     list.Model
	options  []Option
	open     bool
	selected *map[string]bool
	keys     keyMap
}

// New creates a closed option browser.
func New(title string, options []Option, width, height int) Model {
	sel := map[string]bool{}
	items := make([]list.Item, len(options))
	for i, o := range options {
		items[i] = optionItem{o}
	}
	l := list.New(items, delegate{selected: &sel}, width, height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	k := newKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{k.Toggle, k.Close} }

	return Model{List: l, options: options, selected: &sel, keys: k}
}

// Options returns the option list.
func (m Model) Options() []Option { return m.options }

// IsOpen reports whether the option list is showing.
func (m Model) IsOpen() bool { return m.open }

// SetOpen shows or hides the option list.
func (m *Model) SetOpen(open bool) { m.open = open }

// SetSize resizes the list.
func (m *Model) SetSize(width, height int) { m.List.SetSize(width, height) }

// Update handles keys while open. Toggling emits a ToggleMsg for the owner.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.open {
		return m, nil
	}
	if km, ok := msg.(tea.KeyMsg); ok && m.List.FilterState() != list.Filtering {
		switch {
		case key.Matches(km, m.keys.Toggle):
			if it, ok := m.List.SelectedItem().(optionItem); ok {
				v := it.Value
				return m, func() tea.Msg { return ToggleMsg{Value: v} }
			}
			return m, nil
		case key.Matches(km, m.keys.Close):
			m.open = false
			return m, func() tea.Msg { return ClosedMsg{} }
		}
	}
	var cmd tea.Cmd
	m.List, cmd = m.List.Update(msg)
	return m, cmd
}

// Render draws the option list with checkboxes for selected.
func (m Model) Render(selected []string) string {
	set := make(map[string]bool, len(selected))
	for _, v := range selected {
		set[v] = true
	}
	*m.selected = set
	m.List.Title = fmt.Sprintf("%s (%d selected)", strings.SplitN(m.List.Title, " (", 2)[0], len(selected))
	return m.List.View()
}

// RenderTokens draws the selection as a row of removable tokens.
func RenderTokens(options []Option, selected []string) string {
	toks := Tokens(options, selected)
	if len(toks) == 0 {
		return tagStyle.Render("none selected")
	}
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = tokenStyle.Render("[" + t + " ×]")
	}
	return strings.Join(parts, " ")
}
