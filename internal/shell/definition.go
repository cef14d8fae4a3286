package shell

import (
	"strings"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/media"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// Definition declares everything that differs between dashboards. A shell
// holds no entity-specific logic of its own.
type Definition struct {
	Name  string // command and sidebar key, e.g. "books"
	Title string // display and export title, e.g. "Books"

	Schema *form.Schema
	Source store.Source

	// Endpoints. Update and Delete paths carry an ":id" placeholder. An
	// empty path disables the operation.
	CreatePath   string
	UpdatePath   string
	UpdateMethod string // PUT when empty
	DeletePath   string

	// Multipart sends a form body; otherwise the draft goes out as JSON.
	Multipart bool
	Media     []MediaField
	// Omit lists field names never sent, on top of the server-managed ones.
	Omit []string
	// ResultKeys names the nesting of the saved record in write responses.
	ResultKeys []string

	Search  []string        // dotted paths matched by free-text search
	Columns []export.Column // list and export columns
	Filters []NamedFilter
	Stats   func(list []entity.Record, now time.Time) []store.Stat

	// Refresh, when positive, refetches the list on that interval and once
	// after local midnight while the shell is open.
	Refresh time.Duration

	Messages Messages
}

// MediaField binds one schema field to a bounded slot list.
type MediaField struct {
	Field  string // schema field name
	Part   string // multipart part name; Field when empty
	Limits media.Limits
	// Persisted extracts existing media from a fetched record. When nil,
	// the field is read as a URL string or a list of URL strings/objects.
	Persisted func(entity.Record) []media.Slot
}

// PartName returns the multipart part name.
func (m MediaField) PartName() string {
	if m.Part != "" {
		return m.Part
	}
	return m.Field
}

// NamedFilter is a list filter selectable by name, e.g. "status".
type NamedFilter struct {
	Name    string
	Choices []string // accepted values, empty for free text
	Build   func(value string) store.Predicate
}

// Messages are the notification texts for successful operations.
type Messages struct {
	Created string
	Updated string
	Deleted string
}

// CanCreate reports whether the dashboard supports creation.
func (d *Definition) CanCreate() bool { return d.CreatePath != "" && d.Schema != nil }

// CanUpdate reports whether existing records can be edited.
func (d *Definition) CanUpdate() bool { return d.UpdatePath != "" && d.Schema != nil }

// CanDelete reports whether records can be deleted.
func (d *Definition) CanDelete() bool { return d.DeletePath != "" }

// Filter returns the named filter.
func (d *Definition) Filter(name string) (NamedFilter, bool) {
	for _, f := range d.Filters {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return NamedFilter{}, false
}

// MediaField returns the media binding for a schema field.
func (d *Definition) MediaField(field string) (MediaField, bool) {
	for _, m := range d.Media {
		if m.Field == field {
			return m, true
		}
	}
	return MediaField{}, false
}

// WithID substitutes id into an endpoint template.
func WithID(path, id string) string {
	return strings.ReplaceAll(path, ":id", id)
}

// persistedSlots reads existing media for a field from a fetched record.
func (m MediaField) persistedSlots(r entity.Record) []media.Slot {
	if m.Persisted != nil {
		return m.Persisted(r)
	}
	return URLSlots(r[m.Field])
}

// URLSlots reads a media value stored as a URL string, a list of URL
// strings, or a list of {url, alt} objects.
func URLSlots(v any) []media.Slot {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []media.Slot{{URL: t}}
	case []string:
		out := make([]media.Slot, 0, len(t))
		for _, u := range t {
			if u != "" {
				out = append(out, media.Slot{URL: u})
			}
		}
		return out
	case []any:
		var out []media.Slot
		for _, el := range t {
			switch e := el.(type) {
			case string:
				if e != "" {
					out = append(out, media.Slot{URL: e})
				}
			case map[string]any:
				r := entity.Record(e)
				if u := r.String("url"); u != "" {
					out = append(out, media.Slot{URL: u, Alt: r.String("alt")})
				}
			}
		}
		return out
	case map[string]any:
		r := entity.Record(t)
		if u := r.String("url"); u != "" {
			return []media.Slot{{URL: u, Alt: r.String("alt")}}
		}
	}
	return nil
}
