package store

import (
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// Stat is one derived figure shown above a list.
type Stat struct {
	Label string
	Value string
}

// Count returns how many records satisfy p. A nil p counts all.
func Count(list []entity.Record, p Predicate) int {
	n := 0
	for _, r := range list {
		if p == nil || p(r) {
			n++
		}
	}
	return n
}

// SameMonth matches records whose timestamp at path falls in now's month.
// Zone-aware timestamps are compared in now's location.
func SameMonth(path string, now time.Time) Predicate {
	return func(r entity.Record) bool {
		t, ok := r.Time(path)
		if !ok {
			return false
		}
		t = t.In(now.Location())
		return t.Year() == now.Year() && t.Month() == now.Month()
	}
}

// Average returns the mean of the numeric field over records that have it.
func Average(list []entity.Record, path string) (float64, bool) {
	var sum float64
	n := 0
	for _, r := range list {
		if v, ok := r.Float(path); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Sum adds the numeric field across records.
func Sum(list []entity.Record, path string) float64 {
	var sum float64
	for _, r := range list {
		if v, ok := r.Float(path); ok {
			sum += v
		}
	}
	return sum
}

// CountBy groups records by the lower-cased value at path.
func CountBy(list []entity.Record, path string) map[string]int {
	out := map[string]int{}
	for _, r := range list {
		out[strings.ToLower(r.String(path))]++
	}
	return out
}

// Within matches records whose [start, end] window contains now.
func Within(startPath, endPath string, now time.Time) Predicate {
	return func(r entity.Record) bool {
		start, ok1 := r.Time(startPath)
		end, ok2 := r.Time(endPath)
		if !ok1 || !ok2 {
			return false
		}
		return !now.Before(start) && !now.After(end)
	}
}

// NewestFirst sorts by the timestamp at the first path present, newest
// first. Records without a timestamp sink to the end. The sort is stable.
func NewestFirst(list []entity.Record, paths ...string) {
	at := func(r entity.Record) (time.Time, bool) {
		for _, p := range paths {
			if t, ok := r.Time(p); ok {
				return t, true
			}
		}
		return time.Time{}, false
	}
	sort.SliceStable(list, func(i, j int) bool {
		ti, oki := at(list[i])
		tj, okj := at(list[j])
		if oki != okj {
			return oki
		}
		return ti.After(tj)
	})
}
