package media

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Previewer creates and disposes of previews.
type Previewer interface {
	Acquire(ctx context.Context, f File) (Preview, error)
	Release(p Preview) error
}

// Stager is the ordered, bounded slot list for one media field.
type Stager struct {
	limits Limits
	pv     Previewer
	logger *zap.Logger

	mu       sync.Mutex
	slots    []Slot
	reserved int // slots promised to a Stage still generating previews
	closed   bool
}

// NewStager returns an empty stager. logger may be nil.
func NewStager(limits Limits, pv Previewer, logger *zap.Logger) *Stager {
	if limits.Max <= 0 {
		limits.Max = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stager{limits: limits, pv: pv, logger: logger.Named("media")}
}

// Limits returns the stager's bounds.
func (s *Stager) Limits() Limits { return s.limits }

// Staging reports whether a Stage call is still generating previews.
func (s *Stager) Staging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reserved > 0
}

// Load replaces the slot list with persisted media, releasing anything
// pending. Used when a draft is seeded from an existing entity.
func (s *Stager) Load(persisted []Slot) {
	s.mu.Lock()
	old := s.slots
	s.slots = make([]Slot, 0, len(persisted))
	for _, p := range persisted {
		if p.URL != "" {
			s.slots = append(s.slots, Slot{URL: p.URL, Alt: p.Alt})
		}
	}
	s.mu.Unlock()
	s.releaseAll(old)
}

// Stage validates files and appends them as pending slots. Either every
// file is staged or none is. Previews are generated concurrently; the
// committed order is the order of files.
func (s *Stager) Stage(ctx context.Context, files []File) error {
	if len(files) == 0 {
		return nil
	}
	described := make([]File, len(files))
	for i, f := range files {
		d, err := Describe(f)
		if err != nil {
			return err
		}
		described[i] = d
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if len(s.slots)+s.reserved+len(described) > s.limits.Max {
		s.mu.Unlock()
		return tooMany(s.limits)
	}
	for _, f := range described {
		if s.limits.MaxBytes > 0 && f.Size > s.limits.MaxBytes {
			s.mu.Unlock()
			return tooLarge(s.limits, f)
		}
		if !s.limits.Category.Accepts(f.MIMEType) {
			s.mu.Unlock()
			return badType(s.limits, f)
		}
	}
	s.reserved += len(described)
	s.mu.Unlock()

	previews := make([]Preview, len(described))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range described {
		g.Go(func() error {
			p, err := s.pv.Acquire(gctx, f)
			if err != nil {
				return fmt.Errorf("preview for %s: %w", f.Name, err)
			}
			previews[i] = p
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	s.reserved -= len(described)
	if err == nil && s.closed {
		err = ErrClosed
	}
	if err != nil {
		s.mu.Unlock()
		for _, p := range previews {
			if p.Handle != "" {
				s.release(p)
			}
		}
		return err
	}
	for i := range described {
		f := described[i]
		s.slots = append(s.slots, Slot{File: &f, Preview: previews[i]})
	}
	s.mu.Unlock()

	s.logger.Debug("staged", zap.Int("files", len(described)))
	return nil
}

// Remove deletes one slot. A pending slot's preview is released at once.
func (s *Stager) Remove(index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.slots) {
		n := len(s.slots)
		s.mu.Unlock()
		return fmt.Errorf("slot %d out of range [0,%d)", index, n)
	}
	slot := s.slots[index]
	s.slots = append(s.slots[:index:index], s.slots[index+1:]...)
	s.mu.Unlock()

	if slot.Pending() {
		s.release(slot.Preview)
	}
	return nil
}

// Clear releases every pending slot. Persisted slots stay unless
// includePersisted is set.
func (s *Stager) Clear(includePersisted bool) {
	s.mu.Lock()
	var gone, kept []Slot
	for _, sl := range s.slots {
		if sl.Pending() || includePersisted {
			gone = append(gone, sl)
		} else {
			kept = append(kept, sl)
		}
	}
	s.slots = kept
	s.mu.Unlock()
	s.releaseAll(gone)
}

// Close clears everything and rejects further staging. A Stage still
// generating previews releases them when it finishes.
func (s *Stager) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Clear(true)
}

// Count is the number of slots visible to the user, persisted and pending.
func (s *Stager) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// Slots returns a copy of the slot list.
func (s *Stager) Slots() []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Slot(nil), s.slots...)
}

// Pending returns the pending slots in order.
func (s *Stager) Pending() []Slot {
	return s.filter(true)
}

// Persisted returns the persisted slots in order.
func (s *Stager) Persisted() []Slot {
	return s.filter(false)
}

func (s *Stager) filter(pending bool) []Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Slot
	for _, sl := range s.slots {
		if sl.Pending() == pending {
			out = append(out, sl)
		}
	}
	return out
}

func (s *Stager) releaseAll(slots []Slot) {
	for _, sl := range slots {
		if sl.Pending() {
			s.release(sl.Preview)
		}
	}
}

func (s *Stager) release(p Preview) {
	if err := s.pv.Release(p); err != nil {
		s.logger.Warn("releasing preview", zap.String("handle", p.Handle), zap.Error(err))
	}
}
