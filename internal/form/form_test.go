package form_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/form"
)

func offerSchema() *form.Schema {
	return &form.Schema{
		Fields: []form.Field{
			{Name: "discount", Kind: form.Number},
			{Name: "start_time", Kind: form.Date},
			{Name: "end_time", Kind: form.Date},
			{Name: "offer_details", Kind: form.HTML},
			{Name: "books", Kind: form.Refs},
			{Name: "poster", Kind: form.Media},
		},
		Rules: []form.Rule{
			form.Positive("discount", "Valid discount is required"),
			form.Required("start_time", "Start date is required"),
			form.Required("end_time", "End date is required"),
			form.After("end_time", "start_time", "End date must be after start date"),
			form.Required("offer_details", "Offer details are required"),
			form.MinItems("books", 1, "At least one book must be selected"),
		},
	}
}

type counts map[string]int

func (c counts) Count(field string) int { return c[field] }

// --- New / Seed ---

func TestNew_Defaults(t *testing.T) {
	s := &form.Schema{Fields: []form.Field{
		{Name: "title"},
		{Name: "language", Default: "English"},
		{Name: "books", Kind: form.Refs},
		{Name: "isActive", Kind: form.Bool},
	}}
	d := form.New(s)
	if !d.IsNew() {
		t.Error("New draft should be new")
	}
	if got := d.String("title"); got != "" {
		t.Errorf("title = %q, want empty", got)
	}
	if got := d.String("language"); got != "English" {
		t.Errorf("language = %q, want %q", got, "English")
	}
	if got := d.Refs("books"); got == nil || len(got) != 0 {
		t.Errorf("books = %#v, want empty non-nil list", got)
	}
	if d.Bool("isActive") {
		t.Error("isActive should default to false")
	}
}

func TestSeed_FromRecord(t *testing.T) {
	rec := entity.Record{
		"_id":      "of1",
		"discount": float64(15),
		"books":    []any{map[string]any{"_id": "b1"}, "b2"},
		"__v":      float64(0),
	}
	d := form.Seed(offerSchema(), rec)
	if d.ID() != "of1" || d.IsNew() {
		t.Errorf("ID = %q, want of1", d.ID())
	}
	if got := d.String("discount"); got != "15" {
		t.Errorf("discount = %q, want %q", got, "15")
	}
	if got := d.Refs("books"); !reflect.DeepEqual(got, []string{"b1", "b2"}) {
		t.Errorf("books = %v", got)
	}
	if _, ok := d.Values()["__v"]; ok {
		t.Error("undeclared field copied into draft")
	}
}

// --- UpdateField ---

func TestUpdateField_DoesNotMutate(t *testing.T) {
	d0 := form.New(offerSchema())
	d1, err := d0.UpdateField("discount", "20")
	if err != nil {
		t.Fatal(err)
	}
	if d0.String("discount") != "" {
		t.Error("UpdateField mutated the previous draft")
	}
	if d1.String("discount") != "20" {
		t.Errorf("discount = %q, want 20", d1.String("discount"))
	}
}

func TestUpdateField_ListIsCopied(t *testing.T) {
	ids := []string{"b1"}
	d, err := form.New(offerSchema()).UpdateField("books", ids)
	if err != nil {
		t.Fatal(err)
	}
	ids[0] = "changed"
	if got := d.Refs("books"); got[0] != "b1" {
		t.Errorf("draft shares caller slice: %v", got)
	}
	got := d.Refs("books")
	got[0] = "changed"
	if d.Refs("books")[0] != "b1" {
		t.Error("Refs exposes internal slice")
	}
}

func TestUpdateField_Unknown(t *testing.T) {
	d := form.New(offerSchema())
	same, err := d.UpdateField("boooks", []string{"x"})
	if !errors.Is(err, form.ErrUnknownField) {
		t.Fatalf("err = %v, want ErrUnknownField", err)
	}
	if same != d {
		t.Error("unknown field should return the original draft")
	}
}

func TestReset(t *testing.T) {
	d := form.Seed(offerSchema(), entity.Record{"_id": "x", "discount": "5"})
	r := d.Reset()
	if !r.IsNew() || r.String("discount") != "" {
		t.Errorf("Reset = id %q discount %q, want blank", r.ID(), r.String("discount"))
	}
}

// --- Validate ---

func TestValidate_CollectsAll(t *testing.T) {
	s := offerSchema()
	d := form.New(s)
	d, _ = d.UpdateField("discount", "10")
	d, _ = d.UpdateField("books", []string{"b1"})
	d, _ = d.UpdateField("start_time", "2026-11-10")
	d, _ = d.UpdateField("end_time", "2026-11-01")
	// offer_details missing too, poster has no rule here.

	res := s.Validate(d, nil)
	want := map[string]string{
		"end_time":      "End date must be after start date",
		"offer_details": "Offer details are required",
	}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Errorf("Errors = %v, want %v", res.Errors, want)
	}
}

func TestValidate_TwoMissingAndBadOrder(t *testing.T) {
	s := &form.Schema{
		Fields: []form.Field{{Name: "title"}, {Name: "author"}, {Name: "start"}, {Name: "end"}},
		Rules: []form.Rule{
			form.Required("title", ""),
			form.Required("author", ""),
			form.After("end", "start", ""),
		},
	}
	d := form.New(s)
	d, _ = d.UpdateField("start", "2026-05-02")
	d, _ = d.UpdateField("end", "2026-05-01")

	res := s.Validate(d, nil)
	if len(res.Errors) != 3 {
		t.Fatalf("len(Errors) = %d, want 3: %v", len(res.Errors), res.Errors)
	}
	if res.Valid() {
		t.Error("Valid() = true with errors")
	}
	if got := res.Fields(s); !reflect.DeepEqual(got, []string{"title", "author", "end"}) {
		t.Errorf("Fields = %v", got)
	}
}

func TestValidate_FirstMessagePerField(t *testing.T) {
	s := offerSchema()
	res := s.Validate(form.New(s), nil)
	if got := res.Errors["end_time"]; got != "End date is required" {
		t.Errorf("end_time = %q, want required message", got)
	}
	if got := res.Errors["discount"]; got != "Valid discount is required" {
		t.Errorf("discount = %q", got)
	}
}

func TestRange(t *testing.T) {
	s := &form.Schema{
		Fields: []form.Field{{Name: "rating", Kind: form.Number}},
		Rules:  []form.Rule{form.Range("rating", 1, 5, "")},
	}
	for v, ok := range map[string]bool{"": true, "1": true, "5": true, "0": false, "6": false, "abc": false} {
		d, _ := form.New(s).UpdateField("rating", v)
		if got := s.Validate(d, nil).Valid(); got != ok {
			t.Errorf("rating %q valid = %v, want %v", v, got, ok)
		}
	}
}

func TestMediaRequired(t *testing.T) {
	s := &form.Schema{
		Fields: []form.Field{{Name: "poster", Kind: form.Media}},
		Rules:  []form.Rule{form.MediaRequired("poster", "Poster image is required")},
	}
	d := form.New(s)
	if s.Validate(d, counts{}).Valid() {
		t.Error("no poster should fail")
	}
	if !s.Validate(d, counts{"poster": 1}).Valid() {
		t.Error("staged poster should pass")
	}
	seeded := form.Seed(s, entity.Record{"poster": "https://cdn/x.png"})
	if !s.Validate(seeded, nil).Valid() {
		t.Error("existing URL should pass without attachments")
	}
}

func TestEmail(t *testing.T) {
	s := &form.Schema{
		Fields: []form.Field{{Name: "ownerEmail"}},
		Rules:  []form.Rule{form.Email("ownerEmail", "")},
	}
	for v, ok := range map[string]bool{"": true, "t@school.in": true, "nope": false} {
		d, _ := form.New(s).UpdateField("ownerEmail", v)
		if got := s.Validate(d, nil).Valid(); got != ok {
			t.Errorf("email %q valid = %v, want %v", v, got, ok)
		}
	}
}
