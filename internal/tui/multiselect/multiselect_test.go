package multiselect_test

import (
	"reflect"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackwell-systems/bookdesk/internal/tui/multiselect"
)

var opts = []multiselect.Option{
	{Value: "b1", Label: "Physics", Tag: "11"},
	{Value: "b2", Label: "Chemistry", Tag: "11"},
	{Value: "b3", Label: "Biology", Tag: "12"},
}

// --- Toggle ---

func TestToggle_AddRemove(t *testing.T) {
	sel := multiselect.Toggle(nil, "b1")
	sel = multiselect.Toggle(sel, "b2")
	if !reflect.DeepEqual(sel, []string{"b1", "b2"}) {
		t.Fatalf("after two adds = %v", sel)
	}
	sel = multiselect.Toggle(sel, "b1")
	if !reflect.DeepEqual(sel, []string{"b2"}) {
		t.Errorf("after remove = %v, want [b2]", sel)
	}
}

func TestToggle_DoesNotMutateInput(t *testing.T) {
	in := []string{"b1", "b2"}
	_ = multiselect.Toggle(in, "b1")
	if !reflect.DeepEqual(in, []string{"b1", "b2"}) {
		t.Errorf("input mutated: %v", in)
	}
}

func TestToggle_NoDuplicates(t *testing.T) {
	sel := []string{"b1"}
	for i := 0; i < 5; i++ {
		sel = multiselect.Toggle(sel, "b2")
	}
	if !reflect.DeepEqual(sel, []string{"b1", "b2"}) {
		t.Errorf("odd toggles = %v, want [b1 b2]", sel)
	}
}

// --- Tokens ---

func TestTokens_LabelFallback(t *testing.T) {
	got := multiselect.Tokens(opts, []string{"b3", "gone"})
	if !reflect.DeepEqual(got, []string{"Biology", "gone"}) {
		t.Errorf("Tokens = %v", got)
	}
}

func TestByTag(t *testing.T) {
	if got := len(multiselect.ByTag(opts, "11")); got != 2 {
		t.Errorf("ByTag(11) = %d options, want 2", got)
	}
	if got := len(multiselect.ByTag(opts, "")); got != 3 {
		t.Errorf("ByTag('') = %d options, want 3", got)
	}
}

func TestWithout(t *testing.T) {
	got := multiselect.Without(opts, map[string]bool{"b2": true})
	if len(got) != 2 || got[1].Value != "b3" {
		t.Errorf("Without = %v", got)
	}
}

// --- Model ---

func TestModel_ToggleEmitsMsg(t *testing.T) {
	m := multiselect.New("Books", opts, 40, 10)
	m.SetOpen(true)

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if cmd == nil {
		t.Fatal("space produced no command")
	}
	msg, ok := cmd().(multiselect.ToggleMsg)
	if !ok || msg.Value != "b1" {
		t.Errorf("msg = %#v, want ToggleMsg{b1}", msg)
	}
	if !m.IsOpen() {
		t.Error("toggle closed the list")
	}
}

func TestModel_ClosedIgnoresKeys(t *testing.T) {
	m := multiselect.New("Books", opts, 40, 10)
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace}); cmd != nil {
		t.Error("closed model handled a key")
	}
}

func TestModel_RenderShowsSelection(t *testing.T) {
	m := multiselect.New("Books", opts, 40, 10)
	out := m.Render([]string{"b2"})
	if !strings.Contains(out, "[✓] Chemistry") {
		t.Errorf("Render missing checked item:\n%s", out)
	}
	if !strings.Contains(out, "1 selected") {
		t.Errorf("Render missing count:\n%s", out)
	}
}
