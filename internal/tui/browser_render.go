package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/shell"
)

// renderDetails draws every field of the selected record.
func (m dashboardModel) renderDetails() string {
	r, ok := m.selected()
	if !ok {
		return ""
	}

	detailsWidth := max(((m.width-2)*4)/10, 30)
	const labelWidth = 14
	maxTextWidth := max(detailsWidth-2-labelWidth, 10)

	detailsStyle := lipgloss.NewStyle().
		Width(detailsWidth).
		Padding(0, 1)
	label := lipgloss.NewStyle().
		Foreground(ColorYellow).
		Width(labelWidth)

	var s strings.Builder
	s.WriteString(StyleHeader.Render(m.sh.Label(r)))
	s.WriteString("\n")
	s.WriteString(StyleHelp.Render(r.ID()))
	s.WriteString("\n\n")

	for _, row := range detailRows(m.sh.Definition(), r) {
		s.WriteString(label.Render(row[0]))
		s.WriteString(ansi.Truncate(row[1], maxTextWidth, "…"))
		s.WriteString("\n")
	}
	return detailsStyle.Render(s.String())
}

// detailRows lists label/value pairs: schema fields in declaration order,
// or the record's own keys for read-only dashboards.
func detailRows(def *shell.Definition, r entity.Record) [][2]string {
	var rows [][2]string
	if def.Schema != nil {
		for _, f := range def.Schema.Fields {
			v, ok := r[f.Name]
			if !ok || v == nil {
				continue
			}
			rows = append(rows, [2]string{f.DisplayLabel(), detailValue(f.Kind, v)})
		}
		return rows
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		if k == "_id" || k == "__v" || k == "password" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{k, detailValue(form.Text, r[k])})
	}
	return rows
}

func detailValue(kind form.Kind, v any) string {
	switch kind {
	case form.Refs:
		return fmt.Sprintf("%d linked", len(entity.RefIDs(v)))
	case form.Media:
		n := len(shell.URLSlots(v))
		if n == 1 {
			return "1 file"
		}
		return fmt.Sprintf("%d files", n)
	}
	return strings.Join(strings.Fields(entity.Format(v)), " ")
}
