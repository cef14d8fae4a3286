package form

import (
	"fmt"
	"strconv"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// Draft is an in-progress copy of one entity. A Draft is never modified
// after construction; UpdateField returns a new one.
type Draft struct {
	schema *Schema
	id     string
	values map[string]any
}

// New returns a draft for a not-yet-created entity with every field at its
// default.
func New(s *Schema) *Draft {
	values := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		values[f.Name] = f.zero()
	}
	return &Draft{schema: s, values: values}
}

// Seed returns an edit draft populated from a fetched record. Fields the
// record lacks keep their defaults; fields the schema does not declare are
// ignored.
func Seed(s *Schema, r entity.Record) *Draft {
	d := New(s)
	d.id = r.ID()
	for _, f := range s.Fields {
		v, ok := r[f.Name]
		if !ok || v == nil {
			continue
		}
		d.values[f.Name] = normalize(f, v)
	}
	return d
}

func normalize(f Field, v any) any {
	switch f.Kind {
	case Refs:
		ids := entity.RefIDs(v)
		if ids == nil {
			ids = []string{}
		}
		return ids
	case List:
		switch t := v.(type) {
		case []string:
			return append([]string{}, t...)
		case []any:
			out := make([]string, 0, len(t))
			for _, el := range t {
				out = append(out, entity.Format(el))
			}
			return out
		case string:
			return entity.RefIDs(t)
		}
		return []string{entity.Format(v)}
	case Bool:
		switch t := v.(type) {
		case bool:
			return t
		case string:
			b, _ := strconv.ParseBool(t)
			return b
		}
		return false
	case Media:
		return v
	default:
		return entity.Format(v)
	}
}

// Schema returns the draft's schema.
func (d *Draft) Schema() *Schema { return d.schema }

// ID returns the persisted entity ID, empty for new entities.
func (d *Draft) ID() string { return d.id }

// IsNew reports whether the draft will create an entity.
func (d *Draft) IsNew() bool { return d.id == "" }

// UpdateField returns a copy of d with one field replaced. Unknown names
// fail with ErrUnknownField and d is returned unchanged.
func (d *Draft) UpdateField(name string, value any) (*Draft, error) {
	f, ok := d.schema.Field(name)
	if !ok {
		return d, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	next := &Draft{schema: d.schema, id: d.id, values: make(map[string]any, len(d.values))}
	for k, v := range d.values {
		next.values[k] = v
	}
	if value == nil {
		next.values[name] = f.zero()
	} else {
		next.values[name] = normalize(f, value)
	}
	return next, nil
}

// Reset returns a blank draft for the same schema.
func (d *Draft) Reset() *Draft {
	return New(d.schema)
}

// Get returns the raw value of a field.
func (d *Draft) Get(name string) any {
	return cloneValue(d.values[name])
}

// String returns a field formatted as text.
func (d *Draft) String(name string) string {
	return entity.Format(d.values[name])
}

// Float parses a numeric field.
func (d *Draft) Float(name string) (float64, bool) {
	return entity.ToFloat(d.values[name])
}

// Time parses a date field.
func (d *Draft) Time(name string) (time.Time, bool) {
	return entity.ParseTime(d.String(name))
}

// Refs returns a copy of a Refs or List field.
func (d *Draft) Refs(name string) []string {
	if list, ok := d.values[name].([]string); ok {
		return append([]string{}, list...)
	}
	return nil
}

// Bool returns a Bool field.
func (d *Draft) Bool(name string) bool {
	b, _ := d.values[name].(bool)
	return b
}

// Values returns a copy of every field keyed by name.
func (d *Draft) Values() entity.Record {
	out := make(entity.Record, len(d.values))
	for k, v := range d.values {
		out[k] = cloneValue(v)
	}
	return out
}
