// Package form holds entity drafts: declared field schemas, immutable drafts
// and declarative validation.
package form

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a field name is not in the schema.
var ErrUnknownField = errors.New("unknown field")

// Kind tells the draft how to default and normalize a field.
type Kind int

const (
	Text Kind = iota
	Number
	Bool
	Date
	Select
	Refs // multi-reference set of foreign IDs
	List // free-form string list
	HTML // opaque rich-text markup
	Media
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Date:
		return "date"
	case Select:
		return "select"
	case Refs:
		return "refs"
	case List:
		return "list"
	case HTML:
		return "html"
	case Media:
		return "media"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field declares one draft field.
type Field struct {
	Name    string
	Label   string
	Kind    Kind
	Default any
	Options []string // vocabulary for Select fields
}

// DisplayLabel returns Label, or Name when unset.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Schema is the declared field list and rule set for one entity type.
type Schema struct {
	Fields []Field
	Rules  []Rule
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// zero returns the default value for a field.
func (f Field) zero() any {
	if f.Default != nil {
		return cloneValue(f.Default)
	}
	switch f.Kind {
	case Refs, List:
		return []string{}
	case Bool:
		return false
	case Media:
		return nil
	default:
		return ""
	}
}

func cloneValue(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string{}, list...)
	}
	return v
}
