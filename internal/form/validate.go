package form

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Attachments reports how many media slots a field currently holds, staged
// and persisted together. A nil Attachments falls back to the draft's own
// persisted value.
type Attachments interface {
	Count(field string) int
}

// Rule is one declarative check against a single field.
type Rule struct {
	Field   string
	Message string
	valid   func(d *Draft, att Attachments) bool
}

// Result is the outcome of Validate: every violated field with its message.
type Result struct {
	Errors map[string]string
}

// Valid reports whether no rule failed.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Fields returns the failing field names in schema order.
func (r Result) Fields(s *Schema) []string {
	var out []string
	for _, name := range s.Names() {
		if _, ok := r.Errors[name]; ok {
			out = append(out, name)
		}
	}
	// Rules may name fields outside the schema.
	var extra []string
	for name := range r.Errors {
		if _, ok := s.Field(name); !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Validate runs every rule and collects all violations. The first failing
// rule for a field supplies its message. Validate never fails itself.
func (s *Schema) Validate(d *Draft, att Attachments) Result {
	res := Result{Errors: map[string]string{}}
	for _, r := range s.Rules {
		if _, done := res.Errors[r.Field]; done {
			continue
		}
		if !r.valid(d, att) {
			res.Errors[r.Field] = r.Message
		}
	}
	return res
}

func message(msg, field, def string) string {
	if msg != "" {
		return msg
	}
	return fmt.Sprintf(def, field)
}

func empty(d *Draft, field string) bool {
	switch v := d.values[field].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	}
	return false
}

// Required fails when the field is blank or an empty list.
func Required(field, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, "%s is required"),
		valid:   func(d *Draft, _ Attachments) bool { return !empty(d, field) },
	}
}

// Range fails when a non-empty field is not a number within [min, max].
func Range(field string, min, max float64, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, fmt.Sprintf("%%s must be between %g and %g", min, max)),
		valid: func(d *Draft, _ Attachments) bool {
			if empty(d, field) {
				return true
			}
			n, ok := d.Float(field)
			return ok && n >= min && n <= max
		},
	}
}

// Positive fails unless the field is a number greater than zero.
func Positive(field, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, "%s must be greater than 0"),
		valid: func(d *Draft, _ Attachments) bool {
			n, ok := d.Float(field)
			return ok && n > 0
		},
	}
}

// After fails when both dates parse and field is not strictly after other.
// Missing or unparseable dates are left to Required.
func After(field, other, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, "%s must be after "+other),
		valid: func(d *Draft, _ Attachments) bool {
			end, ok1 := d.Time(field)
			start, ok2 := d.Time(other)
			if !ok1 || !ok2 {
				return true
			}
			return end.After(start)
		},
	}
}

// MediaRequired fails when the field has neither a staged file nor an
// existing URL.
func MediaRequired(field, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, "%s is required"),
		valid: func(d *Draft, att Attachments) bool {
			if att != nil {
				return att.Count(field) > 0
			}
			return !empty(d, field)
		},
	}
}

// MinItems fails when a list field holds fewer than n entries.
func MinItems(field string, n int, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, fmt.Sprintf("%%s needs at least %d item(s)", n)),
		valid:   func(d *Draft, _ Attachments) bool { return len(d.Refs(field)) >= n },
	}
}

// Email fails when a non-empty field is not an email address.
func Email(field, msg string) Rule {
	return Rule{
		Field:   field,
		Message: message(msg, field, "%s must be a valid email"),
		valid: func(d *Draft, _ Attachments) bool {
			v := strings.TrimSpace(d.String(field))
			return v == "" || validate.Var(v, "email") == nil
		},
	}
}
