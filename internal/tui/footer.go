package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ClearActiveCmdMsg ends the footer highlight of the last shortcut.
type ClearActiveCmdMsg struct{}

// ShortcutEntry is one footer label. Key is what activeCmd is compared
// with; an empty Key is never highlighted.
type ShortcutEntry struct {
	Key   string
	Label string
}

// BindingEntry builds a footer entry from a binding's help text.
func BindingEntry(b key.Binding) ShortcutEntry {
	h := b.Help()
	return ShortcutEntry{Key: h.Key, Label: h.Key + " " + h.Desc}
}

// HighlightCmd clears the highlight after half a second.
//
//	m.activeCmd = "r"
//	return m, tui.HighlightCmd()
func HighlightCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		return ClearActiveCmdMsg{}
	})
}

var (
	footerDim = lipgloss.NewStyle().Foreground(ColorGray)
	footerSep = footerDim.Render(" • ")
)

// RenderFooterBar lays the shortcuts out on as many lines as width needs.
// A width of zero keeps everything on one line.
func RenderFooterBar(shortcuts []ShortcutEntry, activeCmd string, width int) string {
	const indent = 1
	sepWidth := ansi.StringWidth(footerSep)

	var (
		lines   []string
		line    strings.Builder
		lineLen int
	)
	for _, sc := range shortcuts {
		cell := footerDim.Render(sc.Label)
		if activeCmd != "" && sc.Key == activeCmd {
			cell = StyleHighlight.Render("[ " + sc.Label + " ]")
		}
		w := ansi.StringWidth(cell)
		if lineLen > 0 && width > 0 && indent+lineLen+sepWidth+w > width {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
		if lineLen > 0 {
			line.WriteString(footerSep)
			lineLen += sepWidth
		}
		line.WriteString(cell)
		lineLen += w
	}
	if lineLen > 0 {
		lines = append(lines, line.String())
	}

	pad := strings.Repeat(" ", indent)
	return pad + strings.Join(lines, "\n"+pad)
}
