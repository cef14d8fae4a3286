package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/tui"
	"github.com/blackwell-systems/bookdesk/internal/util"
)

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Fprintln(stdout(), color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Fprintln(stdout(), color.CyanString(fmt.Sprintf(format, a...)))
}

// stdout is where human-readable lines go. Under --json they move to
// stderr so stdout stays parseable.
func stdout() io.Writer {
	if flagJSON {
		return os.Stderr
	}
	return os.Stdout
}

// colorNotifier prints shell notices as colored lines. Failures are
// skipped: the command returns the error and Execute prints it.
type colorNotifier struct{}

func (colorNotifier) Notify(n shell.Notice) {
	switch n.Level {
	case shell.Success:
		ok("%s", n.Message)
	case shell.Info:
		fmt.Fprintln(stdout(), color.CyanString("•"), n.Message)
	}
}

// promptConfirm asks a y/N question on the terminal. Without a terminal
// it declines, so scripts must pass --yes.
func promptConfirm(in io.Reader) shell.ConfirmFunc {
	return func(ctx context.Context, prompt string) (bool, error) {
		if !util.IsTTY() {
			return false, fmt.Errorf("%s: refusing without a terminal (use --yes)", prompt)
		}
		fmt.Fprintf(os.Stderr, "%s (y/N): ", prompt)
		line, err := readLine(ctx, in)
		if err != nil {
			return false, err
		}
		return isYes(line), nil
	}
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// readLine reads one line, giving up when ctx is cancelled.
func readLine(ctx context.Context, in io.Reader) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- result{strings.TrimRight(line, "\r\n"), err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

// parseAssignments splits "key=value" pairs. Later pairs win.
func parseAssignments(pairs []string) (map[string]string, []string, error) {
	out := make(map[string]string, len(pairs))
	order := make([]string, 0, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			return nil, nil, fmt.Errorf("invalid assignment %q (want key=value)", p)
		}
		if _, seen := out[k]; !seen {
			order = append(order, k)
		}
		out[k] = v
	}
	return out, order, nil
}

// parseFiles groups "field=path" pairs by field, keeping order.
func parseFiles(pairs []string) (map[string][]string, []string, error) {
	out := make(map[string][]string)
	var order []string
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !found || k == "" || v == "" {
			return nil, nil, fmt.Errorf("invalid file %q (want field=path or field=url)", p)
		}
		if _, seen := out[k]; !seen {
			order = append(order, k)
		}
		out[k] = append(out[k], v)
	}
	return out, order, nil
}

// printTable writes rows as a bordered table of the given columns.
func printTable(w io.Writer, cols []export.Column, rows []entity.Record) error {
	head := make([]string, 0, len(cols)+1)
	head = append(head, "ID")
	for _, c := range cols {
		head = append(head, strings.ToUpper(c.Header))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.ColorGray)).
		Headers(head...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range rows {
		line := make([]string, 0, len(cols)+1)
		line = append(line, r.ID())
		for _, c := range cols {
			line = append(line, ansi.Truncate(oneLine(c.Cell(r)), 40, "…"))
		}
		t.Row(line...)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
