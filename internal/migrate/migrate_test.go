package migrate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/migrate"
)

const offersBody = `{"status":true,"data":[
	{"_id":"o1","title":"Combo","boooks":["b1","b2"]},
	{"_id":"o2","title":"Fixed","boooks":["b3"],"books":["b3"]},
	{"_id":"o3","title":"Plain","books":[{"_id":"b4"}]},
	{"_id":"o4","title":"Stringly","boooks":"[\"b5\"]"}
]}`

type call struct {
	method, path string
	body         any
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (f *fakeBackend) Request(ctx context.Context, method, path string, body any) (*api.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method, path, body})
	if method == "GET" {
		return api.Decode([]byte(offersBody))
	}
	if f.fail[path] {
		return nil, &api.Error{Method: method, Path: path, StatusCode: 500, Err: api.ErrServer}
	}
	return api.Decode([]byte(`{"status":true}`))
}

func (f *fakeBackend) writes() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method != "GET" {
			out = append(out, c)
		}
	}
	return out
}

func openLedger(t *testing.T) *migrate.Ledger {
	t.Helper()
	l, err := migrate.OpenLedger(filepath.Join(t.TempDir(), "nested", "migrated.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

// --- Rename.Needs ---

func TestNeeds(t *testing.T) {
	tests := []struct {
		name string
		rec  entity.Record
		want bool
	}{
		{"legacy only", entity.Record{"boooks": []any{"b1"}}, true},
		{"both", entity.Record{"boooks": []any{"b1"}, "books": []any{"b1"}}, false},
		{"canonical only", entity.Record{"books": []any{"b1"}}, false},
		{"empty legacy", entity.Record{"boooks": []any{}}, false},
		{"empty canonical", entity.Record{"boooks": []any{"b1"}, "books": []any{}}, true},
	}
	for _, tt := range tests {
		if _, got := migrate.OfferBooks.Needs(tt.rec); got != tt.want {
			t.Errorf("%s: Needs = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// --- Scan ---

func TestScan(t *testing.T) {
	got, err := migrate.Scan(context.Background(), &fakeBackend{}, migrate.OfferBooks)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Scan returned %d candidates, want 2", len(got))
	}
	if got[0].ID != "o1" || got[0].Label != "Combo" || len(got[0].Values) != 2 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].ID != "o4" || len(got[1].Values) != 1 || got[1].Values[0] != "b5" {
		t.Errorf("got[1] = %+v", got[1])
	}
}

// --- Runner ---

func TestRun_RewritesAndRecords(t *testing.T) {
	be := &fakeBackend{}
	l := openLedger(t)
	r := &migrate.Runner{Client: be, Ledger: l}

	results, err := r.Run(context.Background(), migrate.OfferBooks)
	if err != nil {
		t.Fatal(err)
	}
	if n := migrate.Count(results)[migrate.Migrated]; n != 2 {
		t.Errorf("migrated = %d, want 2", n)
	}

	writes := be.writes()
	if len(writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(writes))
	}
	if writes[0].method != "PUT" || writes[0].path != "v3/offer/o1" {
		t.Errorf("write[0] = %s %s, want PUT v3/offer/o1", writes[0].method, writes[0].path)
	}
	form, ok := writes[0].body.(*api.Form)
	if !ok {
		t.Fatalf("body = %T, want *api.Form", writes[0].body)
	}
	if v := form.Values("books"); len(v) != 1 || v[0] != `["b1","b2"]` {
		t.Errorf("books part = %v, want [\"b1\",\"b2\"]", v)
	}

	found, err := l.Contains("v1/offer", "o1")
	if err != nil || !found {
		t.Errorf("Contains(o1) = %v, %v; want true", found, err)
	}
}

func TestRun_SkipsLedgered(t *testing.T) {
	be := &fakeBackend{}
	l := openLedger(t)
	if err := l.Append(migrate.LedgerEntry{Resource: "v1/offer", ID: "o1"}); err != nil {
		t.Fatal(err)
	}
	r := &migrate.Runner{Client: be, Ledger: l}

	results, err := r.Run(context.Background(), migrate.OfferBooks)
	if err != nil {
		t.Fatal(err)
	}
	counts := migrate.Count(results)
	if counts[migrate.Skipped] != 1 || counts[migrate.Migrated] != 1 {
		t.Errorf("counts = %v, want 1 skipped 1 migrated", counts)
	}
	if len(be.writes()) != 1 {
		t.Errorf("writes = %d, want 1", len(be.writes()))
	}
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	be := &fakeBackend{}
	l := openLedger(t)
	r := &migrate.Runner{Client: be, Ledger: l, DryRun: true}

	results, err := r.Run(context.Background(), migrate.OfferBooks)
	if err != nil {
		t.Fatal(err)
	}
	if n := migrate.Count(results)[migrate.Planned]; n != 2 {
		t.Errorf("planned = %d, want 2", n)
	}
	if len(be.writes()) != 0 {
		t.Error("dry run sent writes")
	}
	if entries, _ := l.Entries(); len(entries) != 0 {
		t.Errorf("dry run wrote %d ledger entries", len(entries))
	}
}

func TestRun_FailureContinues(t *testing.T) {
	be := &fakeBackend{fail: map[string]bool{"v3/offer/o1": true}}
	l := openLedger(t)
	r := &migrate.Runner{Client: be, Ledger: l}

	results, err := r.Run(context.Background(), migrate.OfferBooks)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Outcome != migrate.Failed || !errors.Is(results[0].Err, api.ErrServer) {
		t.Errorf("results[0] = %+v, want failed with ErrServer", results[0])
	}
	if results[1].Outcome != migrate.Migrated {
		t.Errorf("results[1].Outcome = %q, want migrated", results[1].Outcome)
	}
	if found, _ := l.Contains("v1/offer", "o1"); found {
		t.Error("failed record was written to the ledger")
	}
}

// --- Ledger ---

func TestLedger_ContainsMissingFile(t *testing.T) {
	l := openLedger(t)
	found, err := l.Contains("v1/offer", "any")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("Contains on missing ledger file should return false")
	}
}

func TestLedger_ScopedByResource(t *testing.T) {
	l := openLedger(t)
	_ = l.Append(migrate.LedgerEntry{Resource: "v1/offer", ID: "x", Field: "books", Values: []string{"b"}})

	if found, _ := l.Contains("v1/offer", "x"); !found {
		t.Error("Contains(v1/offer, x) = false, want true")
	}
	if found, _ := l.Contains("books", "x"); found {
		t.Error("Contains(books, x) = true, want false")
	}
	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Timestamp.IsZero() {
		t.Errorf("Entries = %+v, want one stamped entry", entries)
	}
}

func TestLedger_AppendAfterLookup(t *testing.T) {
	l := openLedger(t)
	if found, _ := l.Contains("v1/offer", "y"); found {
		t.Fatal("Contains(y) on empty ledger = true")
	}
	if err := l.Append(migrate.LedgerEntry{Resource: "v1/offer", ID: "y"}); err != nil {
		t.Fatal(err)
	}
	if found, _ := l.Contains("v1/offer", "y"); !found {
		t.Error("Contains(y) after Append = false, want true")
	}
}

func TestLedger_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrated.jsonl")
	body := "not json\n{\"resource\":\"v1/offer\",\"id\":\"z\"}\n{\"resource\":\"v1/offer\"}\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	l, err := migrate.OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "z" {
		t.Errorf("Entries = %+v, want only z", entries)
	}
}

func TestDefaultLedgerPath(t *testing.T) {
	if filepath.Base(migrate.DefaultLedgerPath()) != "migrated.jsonl" {
		t.Errorf("DefaultLedgerPath = %q", migrate.DefaultLedgerPath())
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	if got, want := migrate.DefaultLedgerPath(), filepath.Join(dir, "bookdesk", "migrated.jsonl"); got != want {
		t.Errorf("DefaultLedgerPath with XDG_DATA_HOME = %q, want %q", got, want)
	}
}
