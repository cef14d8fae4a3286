// Package shell runs one entity dashboard: the list, the single open draft
// with its media, and the submit and delete flows that reconcile the list
// after the server confirms.
package shell

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/media"
	"github.com/blackwell-systems/bookdesk/internal/schedule"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// State is the shell's position in the edit lifecycle.
type State int

const (
	Idle State = iota
	Composing
	Validating
	Submitting
	Deleting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Composing:
		return "composing"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Deleting:
		return "deleting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Option configures a Shell.
type Option func(*Shell)

// WithPreviewer sets the preview generator for media fields.
func WithPreviewer(p media.Previewer) Option {
	return func(s *Shell) { s.pv = p }
}

// WithNotifier routes user-facing notices.
func WithNotifier(n Notifier) Option {
	return func(s *Shell) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger sets the developer log.
func WithLogger(l *zap.Logger) Option {
	return func(s *Shell) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for statistics.
func WithClock(now func() time.Time) Option {
	return func(s *Shell) { s.now = now }
}

// WithScheduler replaces the refresh scheduler built from
// Definition.Refresh.
func WithScheduler(sc *schedule.Scheduler) Option {
	return func(s *Shell) { s.sched = sc }
}

// Shell owns one dashboard's list and draft.
type Shell struct {
	def      *Definition
	client   store.Requester
	list     *store.Store
	pv       media.Previewer
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
	sched    *schedule.Scheduler

	// ctx is cancelled by Close, aborting every request the shell issued.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	state   State
	draft   *form.Draft
	errs    form.Result
	stagers map[string]*media.Stager
	busy    bool
	closed  bool
}

// New returns an idle shell with an empty list. Call Refresh to load it.
func New(def *Definition, client store.Requester, opts ...Option) *Shell {
	s := &Shell{
		def:      def,
		client:   client,
		notifier: nopNotifier{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.pv == nil {
		s.pv = media.NewThumbnailPreviewer(nil, 0)
	}
	s.logger = s.logger.Named("shell").With(zap.String("dashboard", def.Name))
	s.list = store.New(client, def.Source, s.logger)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.stagers = s.newStagers()
	if s.sched == nil && def.Refresh > 0 {
		s.sched = schedule.New(def.Refresh, schedule.WithLogger(s.logger))
	}
	return s
}

func (s *Shell) newStagers() map[string]*media.Stager {
	out := make(map[string]*media.Stager, len(s.def.Media))
	for _, m := range s.def.Media {
		out[m.Field] = media.NewStager(m.Limits, s.pv, s.logger.With(zap.String("field", m.Field)))
	}
	return out
}

// Definition returns the dashboard definition.
func (s *Shell) Definition() *Definition { return s.def }

// Store returns the list store.
func (s *Shell) Store() *store.Store { return s.list }

// State returns the current lifecycle state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the open draft, nil when Idle.
func (s *Shell) Draft() *form.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Errors returns the field errors of the last validation.
func (s *Shell) Errors() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.errs.Errors))
	for k, v := range s.errs.Errors {
		out[k] = v
	}
	return out
}

// requestContext derives a request context that is also cancelled by Close.
func (s *Shell) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// --- list ---

// Refresh refetches the list. A response overtaken by a newer refresh is
// dropped silently.
func (s *Shell) Refresh(ctx context.Context) error {
	ctx, done := s.requestContext(ctx)
	defer done()

	_, err := s.list.FetchAll(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrStale):
		return nil
	case errors.Is(err, context.Canceled):
		return err
	}
	s.fail(fmt.Sprintf("Failed to load %s", s.def.Title), err)
	return err
}

// StartRefresh begins the scheduled refetch, if the dashboard has one.
func (s *Shell) StartRefresh() {
	if s.sched == nil {
		return
	}
	s.sched.Start(s.ctx, func(ctx context.Context) {
		_ = s.Refresh(ctx)
	})
}

// List returns the filtered list. An empty Fields searches the dashboard's
// allow-list.
func (s *Shell) List(f store.Filter) []entity.Record {
	if len(f.Fields) == 0 {
		f.Fields = s.def.Search
	}
	return s.list.Apply(f)
}

// Stats derives the dashboard's figures from the current list.
func (s *Shell) Stats() []store.Stat {
	items := s.list.Items()
	if s.def.Stats == nil {
		return []store.Stat{{Label: "Total", Value: fmt.Sprint(len(items))}}
	}
	return s.def.Stats(items, s.now())
}

// --- draft ---

// OpenCreate opens a blank draft.
func (s *Shell) OpenCreate() error {
	if !s.def.CanCreate() {
		return fmt.Errorf("create %s: %w", s.def.Name, ErrUnsupported)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openableLocked(); err != nil {
		return err
	}
	s.draft = form.New(s.def.Schema)
	s.errs = form.Result{}
	s.state = Composing
	return nil
}

// OpenEdit opens a draft seeded from a listed record, with its existing
// media loaded as persisted slots.
func (s *Shell) OpenEdit(id string) error {
	if !s.def.CanUpdate() {
		return fmt.Errorf("edit %s: %w", s.def.Name, ErrUnsupported)
	}
	if id == "" {
		return fmt.Errorf("edit %s: empty id: %w", s.def.Name, ErrNotFound)
	}
	rec, ok := s.list.Get(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", s.def.Name, id, ErrNotFound)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openableLocked(); err != nil {
		return err
	}
	s.draft = form.Seed(s.def.Schema, rec)
	s.errs = form.Result{}
	for _, m := range s.def.Media {
		s.stagers[m.Field].Load(m.persistedSlots(rec))
	}
	s.state = Composing
	return nil
}

func (s *Shell) openableLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.busy:
		return ErrInFlight
	case s.state != Idle:
		return ErrBusy
	}
	return nil
}

func (s *Shell) editableLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.draft == nil:
		return ErrNoDraft
	case s.state == Submitting:
		return ErrInFlight
	}
	return nil
}

// UpdateField sets one draft field and clears its error.
func (s *Shell) UpdateField(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	next, err := s.draft.UpdateField(name, value)
	if err != nil {
		return err
	}
	s.draft = next
	delete(s.errs.Errors, name)
	return nil
}

// ResetDraft returns the open draft to its starting values: blank for a
// create, the listed record for an edit. Pending media is released.
func (s *Shell) ResetDraft() error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	var (
		rec   entity.Record
		found bool
	)
	if id := s.draft.ID(); id != "" {
		rec, found = s.list.Get(id)
	}
	if !found {
		s.draft = s.draft.Reset()
	} else {
		s.draft = form.Seed(s.def.Schema, rec)
	}
	s.errs = form.Result{}
	stagers := s.stagers
	s.mu.Unlock()

	for _, m := range s.def.Media {
		if found {
			stagers[m.Field].Load(m.persistedSlots(rec))
		} else {
			stagers[m.Field].Clear(true)
		}
	}
	return nil
}

// Stage adds files to a media field. Constraint violations reject the
// whole selection and are reported to the user.
func (s *Shell) Stage(ctx context.Context, field string, files []media.File) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	st, ok := s.stagers[field]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q is not a media field", form.ErrUnknownField, field)
	}

	if err := st.Stage(ctx, files); err != nil {
		var ce *media.ConstraintError
		if errors.As(err, &ce) {
			s.notifier.Notify(Notice{Level: Failure, Message: ce.Message})
		}
		return err
	}
	s.mu.Lock()
	delete(s.errs.Errors, field)
	s.mu.Unlock()
	return nil
}

// RemoveMedia drops one slot from a media field.
func (s *Shell) RemoveMedia(field string, index int) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	st, ok := s.stagers[field]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q is not a media field", form.ErrUnknownField, field)
	}
	return st.Remove(index)
}

// Slots returns a media field's slots.
func (s *Shell) Slots(field string) []media.Slot {
	s.mu.Lock()
	st, ok := s.stagers[field]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return st.Slots()
}

// Count implements form.Attachments.
func (s *Shell) Count(field string) int {
	s.mu.Lock()
	st, ok := s.stagers[field]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	return st.Count()
}

type attachments map[string]*media.Stager

func (a attachments) Count(field string) int {
	if st, ok := a[field]; ok {
		return st.Count()
	}
	return 0
}

// Validate checks the open draft without submitting it.
func (s *Shell) Validate() (form.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return form.Result{}, err
	}
	s.errs = s.def.Schema.Validate(s.draft, attachments(s.stagers))
	return s.errs, nil
}

// Cancel discards the open draft and every pending preview.
func (s *Shell) Cancel() error {
	s.mu.Lock()
	if s.state == Submitting {
		s.mu.Unlock()
		return ErrInFlight
	}
	old := s.discardLocked()
	s.mu.Unlock()
	closeStagers(old)
	return nil
}

// discardLocked drops the draft and swaps in fresh stagers. The caller
// closes the returned ones outside the lock; closing also releases previews
// from a Stage that is still running.
func (s *Shell) discardLocked() map[string]*media.Stager {
	old := s.stagers
	s.stagers = s.newStagers()
	s.draft = nil
	s.errs = form.Result{}
	s.state = Idle
	return old
}

func closeStagers(m map[string]*media.Stager) {
	for _, st := range m {
		st.Close()
	}
}

// --- submit / delete ---

// Submit validates and sends the open draft. On success the list is
// reconciled and the draft discarded; on failure the draft stays open.
// A call while another submit or delete runs returns ErrInFlight without
// touching the network.
func (s *Shell) Submit(ctx context.Context) (entity.Record, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.busy:
		s.mu.Unlock()
		return nil, ErrInFlight
	case s.draft == nil:
		s.mu.Unlock()
		return nil, ErrNoDraft
	}
	for _, st := range s.stagers {
		if st.Staging() {
			s.mu.Unlock()
			return nil, ErrInFlight
		}
	}

	s.state = Validating
	res := s.def.Schema.Validate(s.draft, attachments(s.stagers))
	s.errs = res
	if !res.Valid() {
		s.state = Composing
		s.mu.Unlock()
		return nil, &ValidationError{Result: res, Order: res.Fields(s.def.Schema)}
	}

	draft := s.draft
	pending := make(map[string][]media.Slot, len(s.stagers))
	for name, st := range s.stagers {
		pending[name] = st.Pending()
	}
	s.state = Submitting
	s.busy = true
	s.mu.Unlock()

	method, path, verb := http.MethodPost, s.def.CreatePath, orDefault(s.def.Messages.Created, s.def.Title+" created")
	if !draft.IsNew() {
		method = orDefault(s.def.UpdateMethod, http.MethodPut)
		path = WithID(s.def.UpdatePath, draft.ID())
		verb = orDefault(s.def.Messages.Updated, s.def.Title+" updated")
	}
	log := s.logger.With(zap.String("method", method), zap.String("path", path))

	rec, err := s.send(ctx, method, path, draft, pending)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		if s.state == Submitting {
			s.state = Composing
		}
		s.mu.Unlock()
		log.Warn("save failed", zap.Error(err))
		s.fail("Save failed", err)
		return nil, err
	}
	reload := rec.ID() == ""
	if !reload {
		s.list.UpsertLocal(rec)
	}
	old := s.discardLocked()
	s.mu.Unlock()
	closeStagers(old)

	log.Info("saved", zap.String("id", rec.ID()))
	s.notifier.Notify(Notice{Level: Success, Message: verb})
	if reload {
		// The reply named no ID, so the new row comes from the server.
		if err := s.Refresh(ctx); err != nil {
			log.Warn("reload after create failed", zap.Error(err))
		}
	}
	return rec, nil
}

func (s *Shell) send(ctx context.Context, method, path string, d *form.Draft, pending map[string][]media.Slot) (entity.Record, error) {
	body, err := Encode(s.def, d, pending)
	if err != nil {
		return nil, err
	}
	ctx, done := s.requestContext(ctx)
	defer done()

	env, err := s.client.Request(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	if rec, err := env.Record(s.def.ResultKeys...); err == nil && rec.ID() != "" {
		return rec, nil
	}
	// Bare acknowledgement. An edit keeps its ID; a create comes back
	// without one and Submit reloads the list.
	var prev entity.Record
	if !d.IsNew() {
		prev, _ = s.list.Get(d.ID())
	}
	return merged(prev, d, d.ID()), nil
}

// Delete asks c to confirm, then deletes the record and removes it from
// the list. A declined confirmation, or a nil c, returns
// ErrConfirmationAborted and changes nothing.
func (s *Shell) Delete(ctx context.Context, id string, c Confirmer) error {
	if !s.def.CanDelete() {
		return fmt.Errorf("delete %s: %w", s.def.Name, ErrUnsupported)
	}
	if err := s.deletable(); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("delete %s: empty id: %w", s.def.Name, ErrNotFound)
	}
	rec, ok := s.list.Get(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", s.def.Name, id, ErrNotFound)
	}

	if c == nil {
		return ErrConfirmationAborted
	}
	yes, err := c.Confirm(ctx, fmt.Sprintf("Delete %s %q?", s.def.Title, s.Label(rec)))
	if err != nil {
		return err
	}
	if !yes {
		return ErrConfirmationAborted
	}

	s.mu.Lock()
	if err := s.openableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.busy = true
	s.state = Deleting
	s.mu.Unlock()

	path := WithID(s.def.DeletePath, id)
	rctx, done := s.requestContext(ctx)
	_, err = s.client.Request(rctx, http.MethodDelete, path, nil)
	done()

	s.mu.Lock()
	s.busy = false
	s.state = Idle
	if err == nil {
		s.list.RemoveLocal(id)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("delete failed", zap.String("id", id), zap.Error(err))
		s.fail("Delete failed", err)
		return err
	}
	s.logger.Info("deleted", zap.String("id", id))
	s.notifier.Notify(Notice{Level: Success, Message: orDefault(s.def.Messages.Deleted, s.def.Title+" deleted")})
	return nil
}

func (s *Shell) deletable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openableLocked()
}

// Action is a dashboard-specific call such as toggling a banner. A
// non-nil record replaces or joins the list on success.
type Action func(ctx context.Context, c store.Requester) (entity.Record, error)

// Run executes an action under the same single-flight guard as Submit and
// Delete, reporting success with msg.
func (s *Shell) Run(ctx context.Context, msg string, fn Action) (entity.Record, error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrClosed
	case s.busy:
		s.mu.Unlock()
		return nil, ErrInFlight
	}
	s.busy = true
	s.mu.Unlock()

	rctx, done := s.requestContext(ctx)
	rec, err := fn(rctx, s.client)
	done()

	s.mu.Lock()
	s.busy = false
	if err == nil && rec != nil {
		s.list.UpsertLocal(rec)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("action failed", zap.String("action", msg), zap.Error(err))
		s.fail(msg+" failed", err)
		return nil, err
	}
	if msg != "" {
		s.notifier.Notify(Notice{Level: Success, Message: msg})
	}
	return rec, nil
}

// Label names a record for prompts: its first column, else its ID.
func (s *Shell) Label(r entity.Record) string {
	if len(s.def.Columns) > 0 {
		if v := s.def.Columns[0].Cell(r); v != "" {
			return v
		}
	}
	return r.ID()
}

// Close stops the refresh schedule, aborts in-flight requests and releases
// every preview. The shell is unusable afterwards.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	old := s.stagers
	s.stagers = map[string]*media.Stager{}
	s.draft = nil
	s.state = Idle
	s.mu.Unlock()

	s.cancel()
	if s.sched != nil {
		s.sched.Stop()
	}
	closeStagers(old)
	s.logger.Debug("closed")
}

func (s *Shell) fail(prefix string, err error) {
	s.notifier.Notify(Notice{Level: Failure, Message: prefix + ": " + api.Message(err)})
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
