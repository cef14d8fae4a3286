package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

type cannedRequester struct {
	body    string
	deleted []string
}

func (c *cannedRequester) Request(_ context.Context, method, path string, _ any) (*api.Envelope, error) {
	if method == "DELETE" {
		c.deleted = append(c.deleted, path)
		return api.Decode([]byte(`{"status":true}`))
	}
	return api.Decode([]byte(c.body))
}

func testDefinition() *shell.Definition {
	return &shell.Definition{
		Name:  "banners",
		Title: "Banners",
		Schema: &form.Schema{Fields: []form.Field{
			{Name: "title", Label: "Title", Kind: form.Text},
			{Name: "isActive", Label: "Active", Kind: form.Bool},
			{Name: "kind", Label: "Kind", Kind: form.Select, Options: []string{"home", "promo"}},
		}},
		Source:     store.Source{Path: "v1/banner"},
		CreatePath: "v3/banner",
		UpdatePath: "v3/banner/:id",
		DeletePath: "v3/banner/:id",
		Columns: []export.Column{
			{Header: "Title", Path: "title", Width: 10},
			{Header: "Active", Path: "isActive", Width: 6},
		},
		Filters: []shell.NamedFilter{{
			Name:    "active",
			Choices: []string{"true", "false"},
			Build: func(v string) store.Predicate {
				return func(r entity.Record) bool { return r.String("isActive") == v }
			},
		}},
	}
}

const bannersBody = `{"status":true,"data":[
	{"_id":"a","title":"Summer sale banner","isActive":true},
	{"_id":"b","title":"Old","isActive":false}
]}`

func loadedShell(t *testing.T) (*shell.Shell, *cannedRequester) {
	t.Helper()
	req := &cannedRequester{body: bannersBody}
	sh := shell.New(testDefinition(), req)
	t.Cleanup(sh.Close)
	if err := sh.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	return sh, req
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// --- cells ---

func TestFitCell(t *testing.T) {
	if got := fitCell("Summer sale banner", 10); ansi.StringWidth(got) != 10 || !strings.HasSuffix(got, "…") {
		t.Errorf("fitCell long = %q, want 10 wide ending in …", got)
	}
	if got := fitCell("Old", 6); got != "Old   " {
		t.Errorf("fitCell short = %q, want %q", got, "Old   ")
	}
}

func TestJoinCells_IgnoresExtraValues(t *testing.T) {
	got := joinCells([]string{"a", "b", "c"}, []int{2, 2})
	if got != "a   b " {
		t.Errorf("joinCells = %q, want %q", got, "a   b ")
	}
}

// --- form helpers ---

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,c")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitList = %v, want [a b c]", got)
	}
	if got := splitList(""); got == nil || len(got) != 0 {
		t.Errorf("splitList(\"\") = %#v, want empty non-nil", got)
	}
}

func TestCycle(t *testing.T) {
	opts := []string{"x", "y", "z"}
	tests := []struct {
		cur  string
		step int
		want string
	}{
		{"x", 1, "y"},
		{"z", 1, "x"},
		{"x", -1, "z"},
		{"", 1, "x"},
		{"", -1, "z"},
	}
	for _, tt := range tests {
		if got := cycle(opts, tt.cur, tt.step); got != tt.want {
			t.Errorf("cycle(%q, %d) = %q, want %q", tt.cur, tt.step, got, tt.want)
		}
	}
}

// --- StatusBar ---

func TestStatusBar_ListenDeliversNotice(t *testing.T) {
	s := NewStatusBar()
	done := make(chan struct{})
	s.Notify(shell.Notice{Level: shell.Success, Message: "Banner created"})

	msg := s.listen(done)()
	n, ok := msg.(NoticeMsg)
	if !ok || n.Message != "Banner created" {
		t.Errorf("listen = %#v, want NoticeMsg", msg)
	}
	if last, _ := s.Last(); last.Message != "Banner created" {
		t.Errorf("Last = %q", last.Message)
	}
}

func TestStatusBar_ListenStopsOnDone(t *testing.T) {
	s := NewStatusBar()
	done := make(chan struct{})
	close(done)
	if msg := s.listen(done)(); msg != nil {
		t.Errorf("listen after done = %#v, want nil", msg)
	}
}

func TestStatusBar_NotifyNeverBlocks(t *testing.T) {
	s := NewStatusBar()
	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Notify(shell.Notice{Message: "x"})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked with no listener")
	}
}

// --- dashboard ---

func TestDashboard_FilterCycle(t *testing.T) {
	sh, _ := loadedShell(t)
	m := newDashboard(context.Background(), sh, DashboardOptions{})
	if n := len(m.list.Items()); n != 2 {
		t.Fatalf("items = %d, want 2", n)
	}

	next, _ := m.Update(keyPress("f"))
	m = next.(dashboardModel)
	if got := m.filters[m.filter].String(); got != "active=true" {
		t.Errorf("filter = %q, want active=true", got)
	}
	if n := len(m.list.Items()); n != 1 {
		t.Errorf("filtered items = %d, want 1", n)
	}

	for i := 0; i < 2; i++ {
		next, _ = m.Update(keyPress("f"))
		m = next.(dashboardModel)
	}
	if m.filter != 0 || len(m.list.Items()) != 2 {
		t.Errorf("after full cycle filter = %d items = %d, want 0 and 2", m.filter, len(m.list.Items()))
	}
}

func TestDashboard_DeleteNeedsConfirmation(t *testing.T) {
	sh, req := loadedShell(t)
	m := newDashboard(context.Background(), sh, DashboardOptions{})

	next, _ := m.Update(keyPress("d"))
	m = next.(dashboardModel)
	if m.confirming != "a" {
		t.Fatalf("confirming = %q, want a", m.confirming)
	}
	if !strings.Contains(m.View(), `Delete Banners "Summer sale banner"?`) {
		t.Error("View does not show the delete prompt")
	}

	next, cmd := m.Update(keyPress("n"))
	m = next.(dashboardModel)
	if m.confirming != "" || cmd != nil {
		t.Error("declining should clear the prompt without a command")
	}

	next, _ = m.Update(keyPress("d"))
	m = next.(dashboardModel)
	_, cmd = m.Update(keyPress("y"))
	if cmd == nil {
		t.Fatal("confirming should return a delete command")
	}
	if msg, ok := cmd().(actionDoneMsg); !ok || msg.err != nil {
		t.Errorf("delete msg = %#v", msg)
	}
	if len(req.deleted) != 1 || req.deleted[0] != "v3/banner/a" {
		t.Errorf("deleted = %v, want [v3/banner/a]", req.deleted)
	}
	if sh.Store().Len() != 1 {
		t.Errorf("list len = %d, want 1", sh.Store().Len())
	}
}

func TestDashboard_EditExits(t *testing.T) {
	sh, _ := loadedShell(t)
	m := newDashboard(context.Background(), sh, DashboardOptions{})
	next, cmd := m.Update(keyPress("e"))
	fm := next.(dashboardModel)
	if cmd == nil || fm.result.Action != ActionEdit || fm.result.ID != "a" {
		t.Errorf("result = %+v, want edit a", fm.result)
	}
}

func TestDashboard_RowAction(t *testing.T) {
	sh, _ := loadedShell(t)
	var got string
	m := newDashboard(context.Background(), sh, DashboardOptions{Actions: []RowAction{{
		Key:   "t",
		Label: "toggle",
		Build: func(r entity.Record) (string, shell.Action) {
			got = r.ID()
			return "Toggled", func(context.Context, store.Requester) (entity.Record, error) {
				return nil, nil
			}
		},
	}}})
	_, cmd := m.Update(keyPress("t"))
	if cmd == nil {
		t.Fatal("row action returned no command")
	}
	if got != "a" {
		t.Errorf("action built for %q, want a", got)
	}
}

// --- form ---

func TestForm_TypingUpdatesDraft(t *testing.T) {
	sh, _ := loadedShell(t)
	if err := sh.OpenCreate(); err != nil {
		t.Fatal(err)
	}
	m := newForm(context.Background(), sh, FormOptions{})

	next, _ := m.Update(keyPress("Hi"))
	m = next.(formModel)
	if got := sh.Draft().String("title"); got != "Hi" {
		t.Errorf("title = %q, want Hi", got)
	}

	next, _ = m.Update(keyPress("tab"))
	m = next.(formModel)
	next, _ = m.Update(keyPress(" "))
	m = next.(formModel)
	if !sh.Draft().Bool("isActive") {
		t.Error("space did not toggle isActive")
	}

	next, _ = m.Update(keyPress("tab"))
	m = next.(formModel)
	_, _ = m.Update(keyPress("right"))
	if got := sh.Draft().String("kind"); got != "home" {
		t.Errorf("kind = %q, want home", got)
	}
}

func TestForm_EscCancelsDraft(t *testing.T) {
	sh, _ := loadedShell(t)
	if err := sh.OpenEdit("a"); err != nil {
		t.Fatal(err)
	}
	m := newForm(context.Background(), sh, FormOptions{})
	if got := m.fields[0].input.Value(); got != "Summer sale banner" {
		t.Errorf("title input = %q, want seeded value", got)
	}
	next, _ := m.Update(keyPress("esc"))
	if !next.(formModel).result.Canceled {
		t.Error("esc did not cancel")
	}
	if sh.State() != shell.Idle {
		t.Errorf("state = %s, want idle", sh.State())
	}
}

// --- detailRows ---

func TestDetailRows_SchemaOrder(t *testing.T) {
	rows := detailRows(testDefinition(), entity.Record{"_id": "a", "kind": "promo", "title": "T"})
	if len(rows) != 2 || rows[0][0] != "Title" || rows[1][0] != "Kind" {
		t.Errorf("rows = %v", rows)
	}
}

func TestDetailRows_ReadOnlySortsKeys(t *testing.T) {
	def := &shell.Definition{Name: "users"}
	rows := detailRows(def, entity.Record{"_id": "u", "name": "N", "email": "e", "password": "x"})
	if len(rows) != 2 || rows[0][0] != "email" || rows[1][0] != "name" {
		t.Errorf("rows = %v", rows)
	}
}

// --- hub ---

func TestHub_DigitOpensDashboard(t *testing.T) {
	m := newHub(HubContext{Items: []MenuItem{{Key: "orders", Label: "Orders"}, {Key: "books", Label: "Books"}}})
	next, cmd := m.Update(keyPress("2"))
	if cmd == nil {
		t.Fatal("digit shortcut did not quit the hub")
	}
	if got := next.(hubModel).action; got != "books" {
		t.Errorf("action = %q, want %q", got, "books")
	}
}

func TestHub_UnknownDigitIgnored(t *testing.T) {
	m := newHub(HubContext{Items: []MenuItem{{Key: "orders", Label: "Orders"}}})
	next, _ := m.Update(keyPress("7"))
	if got := next.(hubModel).action; got != "" {
		t.Errorf("action = %q, want none", got)
	}
}

func TestHub_CursorOnLast(t *testing.T) {
	m := newHub(HubContext{Last: "books", Items: []MenuItem{{Key: "orders"}, {Key: "books"}}})
	if it, _ := m.list.SelectedItem().(MenuItem); it.Key != "books" {
		t.Errorf("selected = %q, want books", it.Key)
	}
}

// --- footer ---

func TestRenderFooterBar_Wraps(t *testing.T) {
	entries := []ShortcutEntry{{Label: "aaaa"}, {Label: "bbbb"}, {Label: "cccc"}}
	if got := RenderFooterBar(entries, "", 0); strings.Contains(got, "\n") {
		t.Errorf("zero width wrapped: %q", got)
	}
	got := ansi.Strip(RenderFooterBar(entries, "", 12))
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	for _, l := range lines {
		if w := ansi.StringWidth(l); w > 12 {
			t.Errorf("line %q is %d wide, want <= 12", l, w)
		}
	}
}

func TestRenderFooterBar_HighlightsActive(t *testing.T) {
	got := ansi.Strip(RenderFooterBar([]ShortcutEntry{BindingEntry(newDashboardKeys().Refresh)}, "r", 0))
	if !strings.Contains(got, "[ r refresh ]") {
		t.Errorf("footer = %q, want highlighted refresh", got)
	}
}

// --- images ---

func TestKittyImage_Chunks(t *testing.T) {
	payload := strings.Repeat("A", kittyChunk+10)
	got := kittyImage(payload)
	if n := strings.Count(got, "\x1b_G"); n != 2 {
		t.Fatalf("escapes = %d, want 2", n)
	}
	if !strings.Contains(got, "m=1;") || !strings.Contains(got, "\x1b_Gm=0;") {
		t.Errorf("continuation flags missing in %q", got[:40])
	}
}

func TestDetectImageProtocol_OptOut(t *testing.T) {
	t.Setenv("TERM", "xterm-kitty")
	t.Setenv("BOOKDESK_NO_IMAGES", "1")
	if got := DetectImageProtocol(); got != ProtocolNone {
		t.Errorf("DetectImageProtocol = %v, want none", got)
	}
	t.Setenv("BOOKDESK_NO_IMAGES", "")
	if got := DetectImageProtocol(); got != ProtocolKitty {
		t.Errorf("DetectImageProtocol = %v, want kitty", got)
	}
}
