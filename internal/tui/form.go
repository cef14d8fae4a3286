package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/media"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/tui/multiselect"
)

// FormOptions are the runner-supplied extras of a form.
type FormOptions struct {
	Status *StatusBar
	// Choices holds option lists for Refs (pick many) and Select (pick
	// one) fields. A Refs field without choices is edited as
	// comma-separated IDs.
	Choices map[string][]multiselect.Option
	// Resolve turns a typed path or URL into a stageable file.
	Resolve func(ctx context.Context, input string) (media.File, error)
}

// FormResult reports how the form closed.
type FormResult struct {
	Saved    entity.Record
	Canceled bool
}

type formField struct {
	field  form.Field
	input  textinput.Model
	picker *multiselect.Model
}

// typed reports whether the field is edited through its text input.
func (f formField) typed() bool {
	switch f.field.Kind {
	case form.Bool:
		return false
	case form.Select:
		return f.picker == nil && len(f.field.Options) == 0
	case form.Refs:
		return f.picker == nil
	}
	return true
}

type (
	submittedMsg struct {
		rec entity.Record
		err error
	}
	stagedMsg struct {
		field string
		err   error
	}
)

type formModel struct {
	ctx      context.Context
	sh       *shell.Shell
	opts     FormOptions
	fields   []formField
	focused  int
	status   statusLine
	done     chan struct{}
	protocol TerminalImageProtocol

	busy      bool
	activeCmd string
	width     int
	height    int
	result    FormResult
	quitting  bool
}

func newForm(ctx context.Context, sh *shell.Shell, opts FormOptions) formModel {
	m := formModel{
		ctx:      ctx,
		sh:       sh,
		opts:     opts,
		done:     make(chan struct{}),
		protocol: DetectImageProtocol(),
	}
	const fieldWidth = 42
	for _, f := range sh.Definition().Schema.Fields {
		ff := formField{field: f}
		if (f.Kind == form.Refs || f.Kind == form.Select) && len(opts.Choices[f.Name]) > 0 {
			p := multiselect.New(f.DisplayLabel(), opts.Choices[f.Name], 60, 14)
			ff.picker = &p
		}
		ff.input = textinput.New()
		ff.input.Prompt = "│ "
		ff.input.Width = fieldWidth
		ff.input.CharLimit = 2000
		switch f.Kind {
		case form.Media:
			ff.input.Placeholder = "path or URL, enter to add"
		case form.List, form.Refs:
			ff.input.Placeholder = "comma,separated"
		case form.Date:
			ff.input.Placeholder = "YYYY-MM-DD"
		}
		m.fields = append(m.fields, ff)
	}
	m.load()
	m.focus(0)
	return m
}

// load copies the draft into the text inputs.
func (m *formModel) load() {
	d := m.sh.Draft()
	if d == nil {
		return
	}
	for i := range m.fields {
		f := &m.fields[i]
		switch f.field.Kind {
		case form.Media:
			f.input.SetValue("")
		case form.List, form.Refs:
			f.input.SetValue(strings.Join(d.Refs(f.field.Name), ", "))
		default:
			f.input.SetValue(d.String(f.field.Name))
		}
	}
}

func (m *formModel) focus(i int) tea.Cmd {
	if len(m.fields) == 0 {
		return nil
	}
	m.focused = (i + len(m.fields)) % len(m.fields)
	var cmd tea.Cmd
	for j := range m.fields {
		if j == m.focused && m.fields[j].typed() {
			cmd = m.fields[j].input.Focus()
		} else {
			m.fields[j].input.Blur()
		}
	}
	return cmd
}

// push writes one typed field into the draft.
func (m *formModel) push(f formField) {
	if f.field.Kind == form.Media || !f.typed() {
		return
	}
	var v any = f.input.Value()
	if f.field.Kind == form.List || f.field.Kind == form.Refs {
		v = splitList(f.input.Value())
	}
	_ = m.sh.UpdateField(f.field.Name, v)
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (m formModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.opts.Status != nil {
		cmds = append(cmds, m.opts.Status.listen(m.done))
	}
	return tea.Batch(cmds...)
}

func (m formModel) current() *formField {
	if len(m.fields) == 0 {
		return nil
	}
	return &m.fields[m.focused]
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ClearActiveCmdMsg:
		m.activeCmd = ""
		return m, nil

	case NoticeMsg:
		m.status = statusLine{notice: shell.Notice(msg)}
		return m, m.opts.Status.listen(m.done)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case multiselect.ToggleMsg:
		f := m.current()
		d := m.sh.Draft()
		if f == nil || d == nil {
			return m, nil
		}
		if f.field.Kind == form.Select && f.picker != nil {
			_ = m.sh.UpdateField(f.field.Name, msg.Value)
			f.picker.SetOpen(false)
			return m, nil
		}
		_ = m.sh.UpdateField(f.field.Name, multiselect.Toggle(d.Refs(f.field.Name), msg.Value))
		return m, nil

	case multiselect.ClosedMsg:
		return m, nil

	case stagedMsg:
		m.busy = false
		if msg.err == nil {
			for i := range m.fields {
				if m.fields[i].field.Name == msg.field {
					m.fields[i].input.SetValue("")
				}
			}
		}
		return m, nil

	case submittedMsg:
		m.busy = false
		var verr *shell.ValidationError
		switch {
		case msg.err == nil:
			m.result.Saved = msg.rec
			m.quitting = true
			return m, tea.Quit
		case errors.As(msg.err, &verr) && len(verr.Order) > 0:
			for i, f := range m.fields {
				if f.field.Name == verr.Order[0] {
					return m, m.focus(i)
				}
			}
		}
		return m, nil

	case tea.KeyMsg:
		if f := m.current(); f != nil && f.picker != nil && f.picker.IsOpen() {
			p, cmd := f.picker.Update(msg)
			*f.picker = p
			return m, cmd
		}
		return m.handleKey(msg)
	}

	return m, m.updateInput(msg)
}

func (m formModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.current()
	switch msg.String() {
	case "ctrl+c", "esc":
		_ = m.sh.Cancel()
		m.result.Canceled = true
		m.quitting = true
		return m, tea.Quit

	case "tab", "down", "shift+tab", "up":
		if f != nil {
			m.push(*f)
		}
		next := m.focused + 1
		if s := msg.String(); s == "up" || s == "shift+tab" {
			next = m.focused - 1
		}
		cmd := m.focus(next)
		m.activeCmd = "tab"
		return m, tea.Batch(cmd, HighlightCmd())

	case "ctrl+s":
		if m.busy {
			return m, nil
		}
		for _, ff := range m.fields {
			m.push(ff)
		}
		m.busy = true
		m.activeCmd = "ctrl+s"
		sh, ctx := m.sh, m.ctx
		return m, tea.Batch(func() tea.Msg {
			rec, err := sh.Submit(ctx)
			return submittedMsg{rec: rec, err: err}
		}, HighlightCmd())

	case "ctrl+r":
		if err := m.sh.ResetDraft(); err == nil {
			m.load()
		}
		m.activeCmd = "ctrl+r"
		return m, HighlightCmd()
	}

	if f == nil {
		return m, nil
	}
	d := m.sh.Draft()
	switch f.field.Kind {
	case form.Bool:
		if msg.String() == " " && d != nil {
			_ = m.sh.UpdateField(f.field.Name, !d.Bool(f.field.Name))
		}
		return m, nil

	case form.Select:
		if f.picker != nil {
			if msg.String() == "enter" || msg.String() == " " {
				f.picker.SetOpen(true)
			}
			return m, nil
		}
		if d != nil && len(f.field.Options) > 0 {
			switch msg.String() {
			case "left", "right", " ":
				step := 1
				if msg.String() == "left" {
					step = -1
				}
				_ = m.sh.UpdateField(f.field.Name, cycle(f.field.Options, d.String(f.field.Name), step))
			}
			return m, nil
		}

	case form.Refs:
		if f.picker != nil {
			if msg.String() == "enter" || msg.String() == " " {
				f.picker.SetOpen(true)
			}
			return m, nil
		}

	case form.Media:
		switch msg.String() {
		case "enter":
			return m.stage(*f)
		case "ctrl+d":
			if n := m.sh.Count(f.field.Name); n > 0 {
				_ = m.sh.RemoveMedia(f.field.Name, n-1)
			}
			return m, nil
		}
	}

	cmd := m.updateInput(msg)
	if msg.Type == tea.KeyRunes || msg.Type == tea.KeyBackspace || msg.Type == tea.KeyDelete || msg.Type == tea.KeySpace {
		m.push(m.fields[m.focused])
	}
	return m, cmd
}

func (m formModel) stage(f formField) (tea.Model, tea.Cmd) {
	inputs := splitList(f.input.Value())
	if len(inputs) == 0 || m.busy || m.opts.Resolve == nil {
		return m, nil
	}
	m.busy = true
	sh, ctx, resolve, name, status := m.sh, m.ctx, m.opts.Resolve, f.field.Name, m.opts.Status
	return m, func() tea.Msg {
		files := make([]media.File, 0, len(inputs))
		for _, in := range inputs {
			file, err := resolve(ctx, in)
			if err != nil {
				if status != nil {
					status.Notify(shell.Notice{Level: shell.Failure, Message: err.Error()})
				}
				return stagedMsg{field: name, err: err}
			}
			files = append(files, file)
		}
		return stagedMsg{field: name, err: sh.Stage(ctx, name, files)}
	}
}

func (m *formModel) updateInput(msg tea.Msg) tea.Cmd {
	f := m.current()
	if f == nil || !f.typed() {
		return nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

func cycle(options []string, current string, step int) string {
	idx := -1
	for i, o := range options {
		if o == current {
			idx = i
		}
	}
	if idx < 0 {
		if step < 0 {
			return options[len(options)-1]
		}
		return options[0]
	}
	return options[(idx+step+len(options))%len(options)]
}

func (m formModel) View() string {
	if m.quitting {
		return ""
	}
	if f := m.current(); f != nil && f.picker != nil && f.picker.IsOpen() {
		d := m.sh.Draft()
		var sel []string
		switch {
		case d == nil:
		case f.field.Kind == form.Select:
			if v := d.String(f.field.Name); v != "" {
				sel = []string{v}
			}
		default:
			sel = d.Refs(f.field.Name)
		}
		return lipgloss.NewStyle().Padding(2, 4).Render(StyleBorder.Render(f.picker.Render(sel)))
	}

	outerStyle := lipgloss.NewStyle().Padding(1, 4)
	sepStyle := lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#444444"})
	formLabel := lipgloss.NewStyle().
		Foreground(ColorGray).
		Width(18).
		Align(lipgloss.Right).
		PaddingRight(1)
	formLabelActive := formLabel.
		Foreground(ColorYellow).
		Bold(true)

	const w = 64
	sep := sepStyle.Render(strings.Repeat("─", w))
	def := m.sh.Definition()
	d := m.sh.Draft()
	errs := m.sh.Errors()

	var b strings.Builder
	if d == nil || d.IsNew() {
		b.WriteString(StyleHeader.Render("New " + def.Title))
	} else {
		b.WriteString(StyleHeader.Render("Edit " + def.Title))
		b.WriteString("\n")
		b.WriteString(StyleHelp.Render(d.ID()))
	}
	b.WriteString("\n")
	b.WriteString(sep)
	b.WriteString("\n")

	// Keep the focused field on screen by windowing around it.
	first, last := m.window()
	for i := first; i < last; i++ {
		f := m.fields[i]
		lbl := f.field.DisplayLabel()
		if i == m.focused {
			b.WriteString(formLabelActive.Render("› " + lbl))
		} else {
			b.WriteString(formLabel.Render(lbl))
		}
		b.WriteString(m.renderValue(f, d, i == m.focused))
		b.WriteString("\n")
		if msg := errs[f.field.Name]; msg != "" {
			b.WriteString(formLabel.Render(""))
			b.WriteString(StyleError.Render(msg))
			b.WriteString("\n")
		}
	}

	b.WriteString(sep)
	b.WriteString("\n")
	if m.busy {
		b.WriteString(StyleHelp.Render("  working…"))
	} else {
		b.WriteString(RenderFooterBar([]ShortcutEntry{
			{Key: "tab", Label: "tab/↑↓ navigate"},
			{Key: "ctrl+s", Label: "ctrl+s save"},
			{Key: "ctrl+r", Label: "ctrl+r reset"},
			{Label: "esc cancel"},
		}, m.activeCmd, m.width))
	}
	if s := m.status.View(); s != "" {
		b.WriteString("\n ")
		b.WriteString(s)
	}

	innerPadding := lipgloss.NewStyle().Padding(0, 2, 0, 1)
	return outerStyle.Render(StyleBorder.Render(innerPadding.Render(b.String())))
}

// window returns the field range that fits the terminal.
func (m formModel) window() (int, int) {
	n := len(m.fields)
	rows := n
	if m.height > 0 {
		rows = max((m.height-12)/2, 4)
	}
	if rows >= n {
		return 0, n
	}
	first := min(max(m.focused-rows/2, 0), n-rows)
	return first, first + rows
}

func (m formModel) renderValue(f formField, d *form.Draft, focused bool) string {
	if d == nil {
		return ""
	}
	name := f.field.Name
	switch f.field.Kind {
	case form.Bool:
		box := "[ ]"
		if d.Bool(name) {
			box = StyleSuccess.Render("[✓]")
		}
		if focused {
			box += StyleHelp.Render("  space toggles")
		}
		return box

	case form.Select:
		v := d.String(name)
		if f.picker != nil && v != "" {
			v = multiselect.Tokens(f.picker.Options(), []string{v})[0]
		}
		if !f.typed() && focused && f.picker != nil {
			return v + StyleHelp.Render("  enter to choose")
		}
		if f.typed() {
			break
		}
		if v == "" {
			v = StyleHelp.Render("(none)")
		}
		if focused {
			return "‹ " + StyleHighlight.Render(v) + " ›"
		}
		return v

	case form.Refs:
		if f.picker != nil {
			tokens := multiselect.RenderTokens(f.picker.Options(), d.Refs(name))
			if focused {
				tokens += StyleHelp.Render("  enter to choose")
			}
			return ansi.Truncate(tokens, 90, "…")
		}

	case form.Media:
		var s strings.Builder
		s.WriteString(f.input.View())
		slots := m.sh.Slots(name)
		if mf, ok := m.sh.Definition().MediaField(name); ok {
			s.WriteString(StyleHelp.Render(fmt.Sprintf("  %d/%d", len(slots), mf.Limits.Max)))
		}
		for i, sl := range slots {
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Width(18).Render(""))
			if sl.Pending() {
				s.WriteString(fmt.Sprintf("%d. %s %s", i+1, sl.File.Name, StyleSuccess.Render("new")))
				if img := RenderPreview(sl, m.protocol); img != "" && focused {
					s.WriteString(" " + img)
				}
			} else {
				s.WriteString(fmt.Sprintf("%d. %s", i+1, ansi.Truncate(sl.URL, 50, "…")))
			}
		}
		if focused && len(slots) > 0 {
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Width(18).Render(""))
			s.WriteString(StyleHelp.Render("ctrl+d removes the last file"))
		}
		return s.String()
	}
	return f.input.View()
}

// RunForm edits the shell's open draft until it is saved or cancelled.
// The caller opens the draft first with OpenCreate or OpenEdit.
func RunForm(ctx context.Context, sh *shell.Shell, opts FormOptions) (FormResult, error) {
	if sh.Draft() == nil {
		return FormResult{}, shell.ErrNoDraft
	}
	m := newForm(ctx, sh, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	close(m.done)
	if err != nil {
		_ = sh.Cancel()
		return FormResult{}, fmt.Errorf("running form: %w", err)
	}
	fm, ok := finalModel.(formModel)
	if !ok || !fm.quitting {
		_ = sh.Cancel()
		return FormResult{Canceled: true}, nil
	}
	return fm.result, nil
}
