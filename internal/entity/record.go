// Package entity holds the generic record shape shared by every dashboard.
// Records are decoded JSON objects; the backend owns their schema.
package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one backend entity: a decoded JSON object.
type Record map[string]any

// ID returns the entity's identifier, "_id" first, then "id".
// Empty for records that have not been persisted.
func (r Record) ID() string {
	for _, k := range []string{"_id", "id"} {
		if v, ok := r[k]; ok && v != nil {
			if s := Format(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Lookup resolves a dotted path such as "address.city". When a segment
// crosses a list, the remaining path is applied to every element and the
// results are flattened, so "items.title" yields all item titles.
func (r Record) Lookup(path string) (any, bool) {
	return lookup(map[string]any(r), strings.Split(path, "."))
}

func lookup(v any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return v, v != nil
	}
	switch t := v.(type) {
	case map[string]any:
		next, ok := t[parts[0]]
		if !ok {
			return nil, false
		}
		return lookup(next, parts[1:])
	case Record:
		return lookup(map[string]any(t), parts)
	case []any:
		var out []any
		for _, el := range t {
			if got, ok := lookup(el, parts); ok {
				if list, isList := got.([]any); isList {
					out = append(out, list...)
				} else {
					out = append(out, got)
				}
			}
		}
		return out, len(out) > 0
	default:
		return nil, false
	}
}

// String returns the value at path formatted for display, or "".
func (r Record) String(path string) string {
	v, ok := r.Lookup(path)
	if !ok {
		return ""
	}
	return Format(v)
}

// Float returns the numeric value at path. Numeric strings are accepted
// because form-encoded submissions come back as strings.
func (r Record) Float(path string) (float64, bool) {
	v, ok := r.Lookup(path)
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// Time parses the timestamp at path.
func (r Record) Time(path string) (time.Time, bool) {
	return ParseTime(r.String(path))
}

// Bool reports the boolean at path; "true" strings count.
func (r Record) Bool(path string) bool {
	v, ok := r.Lookup(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	}
	return false
}

// Refs returns the foreign IDs stored at path. Entries may be plain IDs or
// populated objects carrying "_id"/"id".
func (r Record) Refs(path string) []string {
	v, ok := r[path]
	if !ok {
		return nil
	}
	return RefIDs(v)
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneValue(map[string]any(r)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = cloneValue(el)
		}
		return out
	case Record:
		return Record(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = cloneValue(el)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// RefIDs normalizes a multi-reference value into a de-duplicated ID list,
// keeping first-seen order. A JSON-encoded array string is accepted too.
func RefIDs(v any) []string {
	var raw []any
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		for _, s := range t {
			raw = append(raw, s)
		}
	case []any:
		raw = t
	case string:
		if strings.HasPrefix(strings.TrimSpace(t), "[") {
			if err := json.Unmarshal([]byte(t), &raw); err != nil {
				return nil
			}
		} else if t != "" {
			raw = []any{t}
		}
	default:
		raw = []any{t}
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, el := range raw {
		var id string
		switch e := el.(type) {
		case map[string]any:
			id = Record(e).ID()
		default:
			id = Format(e)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Format renders a decoded JSON value as a display string.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			if s := Format(el); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(t, ", ")
	case map[string]any:
		if id := Record(t).ID(); id != "" {
			return id
		}
		b, _ := json.Marshal(t)
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// ToFloat converts numbers and numeric strings.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts the timestamp shapes the backend and date inputs use.
// Zone-less values are read in local time.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if strings.Contains(layout, "Z07") {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, time.Local)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
