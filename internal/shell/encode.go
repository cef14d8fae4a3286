package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/media"
)

// serverManaged fields are never sent back.
var serverManaged = map[string]bool{
	"_id":       true,
	"id":        true,
	"__v":       true,
	"createdAt": true,
	"updatedAt": true,
}

// Encode serializes a draft into a request body: *api.Form when the
// definition is multipart, a JSON object otherwise. Reference and list
// fields become JSON arrays; multipart bodies carry them as JSON strings.
// Blank text is left out. Only pending media is attached, in slot order.
func Encode(def *Definition, d *form.Draft, pending map[string][]media.Slot) (any, error) {
	omit := make(map[string]bool, len(def.Omit))
	for _, name := range def.Omit {
		omit[name] = true
	}
	skip := func(f form.Field) bool {
		return serverManaged[f.Name] || omit[f.Name] || f.Kind == form.Media
	}

	if !def.Multipart {
		body := map[string]any{}
		for _, f := range def.Schema.Fields {
			if skip(f) {
				continue
			}
			if v, ok := jsonValue(f, d); ok {
				body[f.Name] = v
			}
		}
		return body, nil
	}

	fm := api.NewForm()
	for _, f := range def.Schema.Fields {
		if skip(f) {
			continue
		}
		switch f.Kind {
		case form.Refs, form.List:
			if err := fm.SetJSON(f.Name, d.Refs(f.Name)); err != nil {
				return nil, fmt.Errorf("encoding %s: %w", f.Name, err)
			}
		case form.Bool:
			fm.Set(f.Name, strconv.FormatBool(d.Bool(f.Name)))
		case form.Number:
			if s := strings.TrimSpace(d.String(f.Name)); s != "" {
				fm.Set(f.Name, s)
			}
		default:
			if v := d.String(f.Name); strings.TrimSpace(v) != "" {
				fm.Set(f.Name, v)
			}
		}
	}
	for _, m := range def.Media {
		for _, sl := range pending[m.Field] {
			if sl.File == nil {
				continue
			}
			fm.AddFile(m.PartName(), sl.File.Path, sl.File.MIMEType)
		}
	}
	return fm, nil
}

func jsonValue(f form.Field, d *form.Draft) (any, bool) {
	switch f.Kind {
	case form.Refs, form.List:
		return d.Refs(f.Name), true
	case form.Bool:
		return d.Bool(f.Name), true
	case form.Number:
		s := strings.TrimSpace(d.String(f.Name))
		if s == "" {
			return nil, false
		}
		if n, ok := d.Float(f.Name); ok {
			return n, true
		}
		return s, true
	default:
		v := d.String(f.Name)
		return v, strings.TrimSpace(v) != ""
	}
}

// merged builds the list entry for a saved draft when the server response
// carries no usable record. Draft values overlay the previous record.
func merged(prev entity.Record, d *form.Draft, id string) entity.Record {
	out := prev.Clone()
	if out == nil {
		out = entity.Record{}
	}
	for k, v := range d.Values() {
		if f, ok := d.Schema().Field(k); ok && f.Kind == form.Media {
			continue
		}
		out[k] = v
	}
	if id != "" {
		out["_id"] = id
	}
	return out
}
