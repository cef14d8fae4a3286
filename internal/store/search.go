package store

import (
	"strings"

	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// Predicate is one extra filter criterion.
type Predicate func(entity.Record) bool

// Filter applies a free-text search over an allow-list of fields plus any
// extra predicates. Zero-value fields are ignored.
type Filter struct {
	Search string
	Fields []string // dotted paths searched by Search
	Where  []Predicate
}

// Apply returns the subset of list matching every non-empty criterion.
// The input is not modified.
func (f Filter) Apply(list []entity.Record) []entity.Record {
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]entity.Record, 0, len(list))
	for _, r := range list {
		if q != "" && !matchesSearch(r, q, f.Fields) {
			continue
		}
		if !all(r, f.Where) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func all(r entity.Record, preds []Predicate) bool {
	for _, p := range preds {
		if p != nil && !p(r) {
			return false
		}
	}
	return true
}

// matchesSearch reports whether any allow-listed field contains q. q must
// already be lower-cased.
func matchesSearch(r entity.Record, q string, fields []string) bool {
	for _, path := range fields {
		if strings.Contains(strings.ToLower(r.String(path)), q) {
			return true
		}
	}
	return false
}

// ByID returns the record with the given ID.
func ByID(list []entity.Record, id string) (entity.Record, bool) {
	for _, r := range list {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// FieldEquals matches records whose field equals value, ignoring case. An
// empty value matches everything.
func FieldEquals(path, value string) Predicate {
	if value == "" {
		return nil
	}
	return func(r entity.Record) bool {
		return strings.EqualFold(r.String(path), value)
	}
}

// FieldContains matches records whose field contains sub, ignoring case.
func FieldContains(path, sub string) Predicate {
	sub = strings.ToLower(sub)
	return func(r entity.Record) bool {
		return strings.Contains(strings.ToLower(r.String(path)), sub)
	}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return func(r entity.Record) bool { return !p(r) }
}
