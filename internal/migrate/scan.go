package migrate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// Candidate is one record that needs rewriting.
type Candidate struct {
	ID     string
	Label  string
	Values []string
}

// Scan lists every record of the resource that still uses the legacy
// field.
func Scan(ctx context.Context, c store.Requester, m Rename) ([]Candidate, error) {
	env, err := c.Request(ctx, http.MethodGet, m.Resource, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", m.Resource, err)
	}
	list, err := env.Records(m.Keys...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", m.Resource, err)
	}

	var out []Candidate
	for _, r := range list {
		ids, ok := m.Needs(r)
		if !ok || r.ID() == "" {
			continue
		}
		out = append(out, Candidate{ID: r.ID(), Label: label(r), Values: ids})
	}
	return out, nil
}

func label(r entity.Record) string {
	for _, k := range []string{"title", "name", "offer_details"} {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return r.ID()
}
