package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// Envelope is the canonical form of every response body. Endpoints wrap
// payloads as {status, data}, {success, data}, {data} or not at all; Decode
// folds those into one shape so callers never branch on it.
type Envelope struct {
	// Status is nil when the body carried no status/success flag.
	Status  *bool
	Message string
	Data    json.RawMessage
}

// Decode normalizes a response body.
func Decode(body []byte) (*Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &Envelope{}, nil
	}
	if body[0] != '{' {
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: invalid JSON", ErrUnexpectedShape)
		}
		return &Envelope{Data: json.RawMessage(body)}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}

	env := &Envelope{}
	for _, key := range []string{"status", "success"} {
		if raw, ok := top[key]; ok {
			if b, ok := flag(raw); ok {
				env.Status = &b
				break
			}
		}
	}
	if raw, ok := top["message"]; ok {
		_ = json.Unmarshal(raw, &env.Message)
	}

	data, hasData := top["data"]
	switch {
	case hasData:
		env.Data = data
	case env.Status != nil || env.Message != "":
		// A bare {status, message} acknowledgement has no payload.
	default:
		env.Data = json.RawMessage(body)
	}
	return env, nil
}

// flag interprets the status/success field. Some endpoints send a bool,
// others a string such as "success", others an HTTP-like number.
func flag(raw json.RawMessage) (bool, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(t) {
		case "success", "ok", "true":
			return true, true
		case "error", "fail", "failed", "false":
			return false, true
		}
	case float64:
		return t >= 200 && t < 300, true
	}
	return false, false
}

// OK reports whether the envelope signals success. A missing flag counts
// as success; the HTTP status already passed.
func (e *Envelope) OK() bool {
	return e.Status == nil || *e.Status
}

// Records normalizes the payload into a flat list. keys name the resource
// nesting to try, e.g. "books" for {data: {books: [...]}}.
func (e *Envelope) Records(keys ...string) ([]entity.Record, error) {
	return collect(e.Data, keys, 0)
}

// Record returns the single entity in the payload, unwrapping one level of
// resource nesting when keys match.
func (e *Envelope) Record(keys ...string) (entity.Record, error) {
	raw := bytes.TrimSpace(e.Data)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var rec entity.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if rec.ID() != "" {
		return rec, nil
	}
	for _, k := range append(append([]string(nil), keys...), "data") {
		if inner, ok := rec[k].(map[string]any); ok {
			return entity.Record(inner), nil
		}
	}
	return rec, nil
}

// Into decodes the payload into out.
func (e *Envelope) Into(out any) error {
	if len(bytes.TrimSpace(e.Data)) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

const maxDepth = 4

func collect(raw json.RawMessage, keys []string, depth int) ([]entity.Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []entity.Record{}, nil
	}
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: nested too deeply", ErrUnexpectedShape)
	}

	switch raw[0] {
	case '[':
		var list []entity.Record
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		out := list[:0]
		for _, r := range list {
			if r != nil {
				out = append(out, r)
			}
		}
		return out, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
		}
		for _, k := range append(append([]string(nil), keys...), "data") {
			if inner, ok := obj[k]; ok {
				return collect(inner, keys, depth+1)
			}
		}
		// Last resort: a single list-valued member.
		var listKeys []string
		for k, v := range obj {
			if t := bytes.TrimSpace(v); len(t) > 0 && t[0] == '[' {
				listKeys = append(listKeys, k)
			}
		}
		if len(listKeys) == 1 {
			return collect(obj[listKeys[0]], keys, depth+1)
		}
		sort.Strings(listKeys)
		return nil, fmt.Errorf("%w: no collection among %v", ErrUnexpectedShape, listKeys)
	default:
		return nil, fmt.Errorf("%w: expected list, got %s", ErrUnexpectedShape, string(raw[:1]))
	}
}
