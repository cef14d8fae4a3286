package app

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/bookdesk/internal/dashboards"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
)

func sub(parent *cobra.Command, name string) *cobra.Command {
	for _, c := range parent.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// --- command tree ---

func TestCommandTree_EveryDashboardHasGroup(t *testing.T) {
	for _, name := range dashboards.Names {
		group := sub(rootCmd, name)
		if group == nil {
			t.Errorf("missing command group %q", name)
			continue
		}
		for _, always := range []string{"list", "stats", "show", "export"} {
			if sub(group, always) == nil {
				t.Errorf("%s has no %s command", name, always)
			}
		}
	}
}

func TestCommandTree_FollowsEndpoints(t *testing.T) {
	cases := []struct {
		group                string
		create, edit, delete bool
	}{
		{"books", true, true, true},
		{"offers", true, true, true},
		{"banners", true, false, true},
		{"testimonials", true, false, true},
		{"referrals", true, false, false},
		{"users", false, false, false},
		{"orders", false, false, false},
		{"inquiries", false, false, false},
	}
	for _, tt := range cases {
		group := sub(rootCmd, tt.group)
		if group == nil {
			t.Fatalf("missing group %q", tt.group)
		}
		if got := sub(group, "create") != nil; got != tt.create {
			t.Errorf("%s create present = %v, want %v", tt.group, got, tt.create)
		}
		if got := sub(group, "edit") != nil; got != tt.edit {
			t.Errorf("%s edit present = %v, want %v", tt.group, got, tt.edit)
		}
		if got := sub(group, "delete") != nil; got != tt.delete {
			t.Errorf("%s delete present = %v, want %v", tt.group, got, tt.delete)
		}
	}
}

func TestCommandTree_Extras(t *testing.T) {
	cases := [][2]string{
		{"banners", "toggle"},
		{"books", "remove-video"},
		{"orders", "shipping"},
		{"offers", "migrate-books"},
	}
	for _, c := range cases {
		if sub(sub(rootCmd, c[0]), c[1]) == nil {
			t.Errorf("%s %s missing", c[0], c[1])
		}
	}
	shipping := sub(sub(rootCmd, "orders"), "shipping")
	if sub(shipping, "get") == nil || sub(shipping, "set") == nil {
		t.Error("orders shipping should have get and set")
	}
}

func TestOffline(t *testing.T) {
	cases := []struct {
		path []string
		want bool
	}{
		{[]string{"version"}, true},
		{[]string{"completion"}, true},
		{[]string{"config", "show"}, true},
		{[]string{"cache", "info"}, true},
		{[]string{"books", "list"}, false},
		{[]string{"login"}, false},
	}
	for _, tt := range cases {
		c := rootCmd
		for _, p := range tt.path {
			c = sub(c, p)
			if c == nil {
				t.Fatalf("no command %v", tt.path)
			}
		}
		if got := offline(c); got != tt.want {
			t.Errorf("offline(%v) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// --- assignments ---

func TestParseAssignments(t *testing.T) {
	values, order, err := parseAssignments([]string{"title=Physics", "price=450", "title=Chemistry", "note=a=b", "empty="})
	if err != nil {
		t.Fatal(err)
	}
	if values["title"] != "Chemistry" {
		t.Errorf("title = %q, want %q", values["title"], "Chemistry")
	}
	if values["note"] != "a=b" {
		t.Errorf("note = %q, want %q", values["note"], "a=b")
	}
	if v, found := values["empty"]; !found || v != "" {
		t.Errorf("empty = %q, %v, want empty string", v, found)
	}
	if want := []string{"title", "price", "note", "empty"}; !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestParseAssignments_Invalid(t *testing.T) {
	for _, in := range []string{"title", "=value", " =x"} {
		if _, _, err := parseAssignments([]string{in}); err == nil {
			t.Errorf("parseAssignments(%q) succeeded, want error", in)
		}
	}
}

func TestParseFiles(t *testing.T) {
	byField, order, err := parseFiles([]string{"images=a.jpg", "video=v.mp4", "images=https://x.test/b.png"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a.jpg", "https://x.test/b.png"}; !reflect.DeepEqual(byField["images"], want) {
		t.Errorf("images = %v, want %v", byField["images"], want)
	}
	if want := []string{"images", "video"}; !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if _, _, err := parseFiles([]string{"images="}); err == nil {
		t.Error("parseFiles(images=) succeeded, want error")
	}
}

func TestFieldValue(t *testing.T) {
	refs := form.Field{Name: "books", Kind: form.Refs}
	if got, want := fieldValue(refs, "a, b,,c"), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("fieldValue(refs) = %v, want %v", got, want)
	}
	if got := fieldValue(refs, `["a","b"]`); got != `["a","b"]` {
		t.Errorf("fieldValue(refs, json) = %v, want raw string", got)
	}
	if got, want := fieldValue(refs, ""), []string{}; !reflect.DeepEqual(got, want) {
		t.Errorf("fieldValue(refs, empty) = %v, want %v", got, want)
	}
	text := form.Field{Name: "title"}
	if got := fieldValue(text, "a, b"); got != "a, b" {
		t.Errorf("fieldValue(text) = %v, want %q", got, "a, b")
	}
}

func TestIsYes(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES": true, " yes ": true, "": false, "n": false, "yeah": false} {
		if got := isYes(in); got != want {
			t.Errorf("isYes(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestReadLine(t *testing.T) {
	got, err := readLine(context.Background(), strings.NewReader("admin@example.com\r\nrest"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "admin@example.com" {
		t.Errorf("readLine = %q, want %q", got, "admin@example.com")
	}
}

// --- filters ---

func TestBuildFilter(t *testing.T) {
	def := dashboards.Orders()
	f, err := buildFilter(def, "ravi", []string{"status=Shipped"})
	if err != nil {
		t.Fatal(err)
	}
	if f.Search != "ravi" || len(f.Where) != 1 {
		t.Fatalf("filter = %+v, want search and one predicate", f)
	}
	shipped := entity.Record{"status": "shipped"}
	pending := entity.Record{"status": "pending"}
	if !f.Where[0](shipped) || f.Where[0](pending) {
		t.Error("status predicate should match shipped only")
	}
}

func TestBuildFilter_Errors(t *testing.T) {
	def := dashboards.Orders()
	if _, err := buildFilter(def, "", []string{"colour=red"}); err == nil || !strings.Contains(err.Error(), "status") {
		t.Errorf("unknown filter error = %v, want one naming the known filters", err)
	}
	if _, err := buildFilter(def, "", []string{"status=lost"}); err == nil {
		t.Error("out-of-vocabulary value succeeded, want error")
	}
}

// --- output ---

func TestRecordKeys(t *testing.T) {
	def := dashboards.Banners(dashboards.DefaultSettings())
	rec := entity.Record{"_id": "1", "__v": 0, "zeta": 1, "title": "Sale", "alpha": 2, "isActive": true}
	keys := recordKeys(def, rec)
	if keys[0] != "title" {
		t.Errorf("first key = %q, want schema field title", keys[0])
	}
	for _, k := range keys {
		if k == "_id" || k == "__v" {
			t.Errorf("internal key %q listed", k)
		}
	}
	if last := keys[len(keys)-2:]; !reflect.DeepEqual(last, []string{"alpha", "zeta"}) {
		t.Errorf("trailing keys = %v, want sorted extras", last)
	}
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)
	users := dashboards.Users()
	if got := exportFilename(users, export.JSONFormat, now); got != "users_2024-05-01.json" {
		t.Errorf("users export = %q, want %q", got, "users_2024-05-01.json")
	}
	inq := dashboards.Inquiries(dashboards.DefaultSettings())
	if got := exportFilename(inq, export.XLSXFormat, now); got != "Inquiries_2024-05-01.xlsx" {
		t.Errorf("inquiries export = %q, want %q", got, "Inquiries_2024-05-01.xlsx")
	}
	if got := defaultExportFormat("users"); got != "json" {
		t.Errorf("defaultExportFormat(users) = %q, want json", got)
	}
	if got := defaultExportFormat("orders"); got != "xlsx" {
		t.Errorf("defaultExportFormat(orders) = %q, want xlsx", got)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 5 * 1024 * 1024: "5.0 MiB"}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanUntil(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{-time.Minute, "expired"},
		{30 * time.Minute, "in 30m"},
		{5 * time.Hour, "in 5h"},
		{72 * time.Hour, "in 3d"},
	}
	for _, tt := range cases {
		if got := humanUntil(tt.d); got != tt.want {
			t.Errorf("humanUntil(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRowActions(t *testing.T) {
	if got := rowActions("banners"); len(got) != 1 || got[0].Key != "t" {
		t.Errorf("banners actions = %+v, want one on t", got)
	}
	if got := rowActions("books"); len(got) != 1 || got[0].Key != "v" {
		t.Errorf("books actions = %+v, want one on v", got)
	}
	if got := rowActions("orders"); got != nil {
		t.Errorf("orders actions = %+v, want none", got)
	}
	text, fn := rowActions("banners")[0].Build(entity.Record{"_id": "b1", "isActive": true})
	if text != "Banner deactivated" || fn == nil {
		t.Errorf("banner toggle = %q, %v", text, fn != nil)
	}
}

// --- completion ---

func TestCompleteFilter(t *testing.T) {
	complete := completeFilter("orders")
	names, _ := complete(nil, nil, "")
	if want := []string{"status="}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
	values, _ := complete(nil, nil, "status=sh")
	if len(values) != len(dashboards.OrderStatuses) || values[0] != "status=confirmed" {
		t.Errorf("values = %v, want every order status", values)
	}
	if got, d := completeFilter("nope")(nil, nil, ""); got != nil || d != cobra.ShellCompDirectiveError {
		t.Errorf("unknown dashboard = %v, %v", got, d)
	}
}
