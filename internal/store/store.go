// Package store holds the fetched collection for one entity type, with
// search, local reconciliation and derived statistics.
package store

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// ErrStale is returned by FetchAll when a newer fetch started before this
// one completed. Its result was discarded.
var ErrStale = errors.New("stale response discarded")

// Requester is the slice of the API client the store needs.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*api.Envelope, error)
}

// Source describes where a collection comes from.
type Source struct {
	Path string   // list endpoint
	Keys []string // payload nesting, e.g. "books"
	// Order, when set, reorders a freshly fetched list in place.
	Order func([]entity.Record)
}

// Store is the in-memory list for one entity type.
type Store struct {
	client Requester
	src    Source
	logger *zap.Logger

	mu     sync.RWMutex
	items  []entity.Record
	seq    uint64
	loaded bool
	err    error
}

// New returns an empty store. logger may be nil.
func New(client Requester, src Source, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, src: src, logger: logger.Named("store").With(zap.String("path", src.Path))}
}

// FetchAll loads the collection. Each call is tagged; only the most
// recently started call may replace the list. A failed fetch leaves the
// list as it was and is reported by Err.
func (s *Store) FetchAll(ctx context.Context) ([]entity.Record, error) {
	s.mu.Lock()
	s.seq++
	tag := s.seq
	s.mu.Unlock()

	var list []entity.Record
	env, err := s.client.Request(ctx, http.MethodGet, s.src.Path, nil)
	if err == nil {
		list, err = env.Records(s.src.Keys...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tag != s.seq {
		s.logger.Debug("discarding stale fetch", zap.Uint64("tag", tag), zap.Uint64("latest", s.seq))
		return nil, ErrStale
	}
	if err != nil {
		s.err = err
		s.logger.Warn("fetch failed", zap.Error(err))
		return nil, err
	}
	if s.src.Order != nil {
		s.src.Order(list)
	}
	s.items = list
	s.loaded = true
	s.err = nil
	return append([]entity.Record(nil), list...), nil
}

// Items returns the current list.
func (s *Store) Items() []entity.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.Record(nil), s.items...)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Loaded reports whether any fetch has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Err returns the error of the latest fetch, nil after a success.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Get returns the record with id.
func (s *Store) Get(id string) (entity.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ByID(s.items, id)
}

// Apply filters the current list.
func (s *Store) Apply(f Filter) []entity.Record {
	return f.Apply(s.Items())
}

// UpsertLocal reconciles a saved record without a refetch: prepended when
// new, replaced in place otherwise. Reports whether it was new. A record
// without an ID is ignored.
func (s *Store) UpsertLocal(r entity.Record) bool {
	if r.ID() == "" {
		s.logger.Debug("ignoring record without id")
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var created bool
	s.items, created = Upsert(s.items, r)
	return created
}

// RemoveLocal drops a deleted record without a refetch.
func (s *Store) RemoveLocal(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	s.items, removed = Remove(s.items, id)
	return removed
}

// Replace swaps the whole list, for callers that refetch for consistency.
func (s *Store) Replace(list []entity.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]entity.Record(nil), list...)
	s.loaded = true
}
