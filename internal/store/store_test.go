package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// fakeRequester answers GETs with a canned body. When gate is set, each call
// blocks until a value is received on it.
type fakeRequester struct {
	mu    sync.Mutex
	body  []string
	calls int
	err   error
	gates []chan struct{}
}

func (f *fakeRequester) Request(ctx context.Context, method, path string, body any) (*api.Envelope, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	var gate chan struct{}
	if i < len(f.gates) {
		gate = f.gates[i]
	}
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return nil, f.err
	}
	return api.Decode([]byte(f.body[i%len(f.body)]))
}

func TestFetchAllNested(t *testing.T) {
	f := &fakeRequester{body: []string{`{"status":true,"data":{"books":[{"_id":"b1","title":"A"},{"_id":"b2","title":"B"}]}}`}}
	s := store.New(f, store.Source{Path: "books?limit=100", Keys: []string{"books"}}, nil)

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID())
	assert.True(t, s.Loaded())
	assert.NoError(t, s.Err())
}

func TestFetchAllFailureKeepsList(t *testing.T) {
	f := &fakeRequester{body: []string{`[{"_id":"x"}]`}}
	s := store.New(f, store.Source{Path: "v3/pdf"}, nil)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)

	f.err = &api.Error{StatusCode: 500, Err: api.ErrServer}
	_, err = s.FetchAll(context.Background())
	require.ErrorIs(t, err, api.ErrServer)
	assert.Equal(t, 1, s.Len())
	assert.ErrorIs(t, s.Err(), api.ErrServer)
}

func TestFetchAllLastRequestWins(t *testing.T) {
	first, second := make(chan struct{}), make(chan struct{})
	f := &fakeRequester{
		body:  []string{`[{"_id":"old"}]`, `[{"_id":"new"}]`},
		gates: []chan struct{}{first, second},
	}
	s := store.New(f, store.Source{Path: "v3/videos"}, nil)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = s.FetchAll(context.Background())
	}()
	// Wait until the first call has been issued before starting the second.
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.calls == 1
	}, timeout, tick)

	wg.Add(1)
	var secondErr error
	go func() {
		defer wg.Done()
		_, secondErr = s.FetchAll(context.Background())
	}()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.calls == 2
	}, timeout, tick)

	close(second)
	close(first)
	wg.Wait()

	assert.NoError(t, secondErr)
	assert.True(t, errors.Is(firstErr, store.ErrStale), "first fetch err = %v, want ErrStale", firstErr)
	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID())
}

func TestFetchAllOrder(t *testing.T) {
	f := &fakeRequester{body: []string{`[{"_id":"a","createdAt":"2024-01-01T00:00:00Z"},{"_id":"b","createdAt":"2024-03-01T00:00:00Z"}]`}}
	s := store.New(f, store.Source{Path: "v3/enquries", Order: func(l []entity.Record) {
		store.NewestFirst(l, "createdAt")
	}}, nil)
	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", got[0].ID())
}

func TestLocalReconciliation(t *testing.T) {
	s := store.New(&fakeRequester{}, store.Source{}, nil)
	s.Replace([]entity.Record{{"_id": "1", "title": "one"}, {"_id": "2", "title": "two"}})

	assert.True(t, s.UpsertLocal(entity.Record{"_id": "3", "title": "three"}))
	assert.Equal(t, "3", s.Items()[0].ID(), "new records are prepended")

	assert.False(t, s.UpsertLocal(entity.Record{"_id": "2", "title": "TWO"}))
	r, ok := s.Get("2")
	require.True(t, ok)
	assert.Equal(t, "TWO", r.String("title"))
	assert.Equal(t, 3, s.Len())

	assert.True(t, s.RemoveLocal("1"))
	assert.False(t, s.RemoveLocal("1"))
	assert.Equal(t, 2, s.Len())
}

func TestUpsertLocalIgnoresRecordWithoutID(t *testing.T) {
	s := store.New(&fakeRequester{}, store.Source{}, nil)
	s.Replace([]entity.Record{{"_id": "1", "title": "one"}})

	assert.False(t, s.UpsertLocal(entity.Record{"title": "Maths"}))
	assert.Equal(t, 1, s.Len())
	_, ok := s.Get("")
	assert.False(t, ok)
}
