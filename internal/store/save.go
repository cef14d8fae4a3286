package store

import "github.com/blackwell-systems/bookdesk/internal/entity"

// Upsert returns a new list with r replacing the record of the same ID, or
// prepended when no such record exists. The input is not modified.
func Upsert(list []entity.Record, r entity.Record) ([]entity.Record, bool) {
	id := r.ID()
	for i, existing := range list {
		if id != "" && existing.ID() == id {
			out := append([]entity.Record(nil), list...)
			out[i] = r
			return out, false
		}
	}
	out := make([]entity.Record, 0, len(list)+1)
	out = append(out, r)
	return append(out, list...), true
}

// Remove returns a new list without the record id, and whether one was
// removed. The input is not modified.
func Remove(list []entity.Record, id string) ([]entity.Record, bool) {
	for i, r := range list {
		if r.ID() == id {
			out := make([]entity.Record, 0, len(list)-1)
			out = append(out, list[:i]...)
			return append(out, list[i+1:]...), true
		}
	}
	return list, false
}
