// Package delegate renders one-line list rows with a cursor marker.
package delegate

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// RenderFunc returns the row text for an item, or false to skip it.
type RenderFunc func(item list.Item) (string, bool)

const cursor = "› "

// Row is a list.ItemDelegate for single-line rows. The selected row gets
// the cursor marker; every row is cut to the list width.
type Row struct {
	render   RenderFunc
	normal   lipgloss.Style
	selected lipgloss.Style
}

// New creates a Row delegate.
func New(render RenderFunc, normal, selected lipgloss.Style) Row {
	return Row{render: render, normal: normal, selected: selected}
}

func (d Row) Height() int                         { return 1 }
func (d Row) Spacing() int                        { return 0 }
func (d Row) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d Row) Render(w io.Writer, m list.Model, index int, item list.Item) {
	if d.render == nil {
		return
	}
	text, ok := d.render(item)
	if !ok {
		return
	}
	line := "  " + d.normal.Render(text)
	if index == m.Index() {
		line = d.selected.Render(cursor + text)
	}
	if width := m.Width(); width > 0 {
		line = ansi.Truncate(line, width, "…")
	}
	_, _ = fmt.Fprint(w, line)
}
