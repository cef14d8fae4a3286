package migrate

import (
	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// Rename moves reference IDs from a legacy field to its canonical name.
type Rename struct {
	Resource string // list endpoint, e.g. "v1/offer"
	Keys     []string
	Update   string // update endpoint with an :id placeholder
	Legacy   string
	Field    string
}

// OfferBooks is the misspelled offers field. Offers written by the old
// console carry "boooks"; everything reads "books".
var OfferBooks = Rename{
	Resource: "v1/offer",
	Keys:     []string{"offers"},
	Update:   "v3/offer/:id",
	Legacy:   "boooks",
	Field:    "books",
}

// Needs reports whether r carries the legacy field and lacks the canonical
// one, returning the IDs to move.
func (m Rename) Needs(r entity.Record) ([]string, bool) {
	legacy := entity.RefIDs(r[m.Legacy])
	if len(legacy) == 0 {
		return nil, false
	}
	if len(entity.RefIDs(r[m.Field])) > 0 {
		return nil, false
	}
	return legacy, true
}
