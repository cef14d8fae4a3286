// Package session is the single source of truth for "is an admin signed in".
// The token and admin profile live in a durable Store; everything else reads
// them through a Session and learns about changes by subscribing.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/entity"
)

// Store keys. They match what the web console kept in local storage.
const (
	keyToken = "token"
	keyAdmin = "admin"
)

// State is a snapshot handed to subscribers.
type State struct {
	Token         string
	Admin         entity.Record
	Authenticated bool
}

// Authenticator performs the sign-in call.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
}

// Session holds the current credential. It satisfies api.Credentials.
// Login is the only writer of a token and Logout the only eraser.
type Session struct {
	store Store
	now   func() time.Time

	mu    sync.RWMutex
	token string
	admin entity.Record
	subs  map[int]func(State)
	next  int
}

// Open loads any persisted session from store.
func Open(ctx context.Context, store Store) (*Session, error) {
	s := &Session{store: store, now: time.Now, subs: make(map[int]func(State))}

	tok, err := store.Get(ctx, keyToken)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	s.token = string(tok)

	if raw, err := store.Get(ctx, keyAdmin); err != nil {
		return nil, fmt.Errorf("loading admin profile: %w", err)
	} else if len(raw) > 0 {
		// A corrupt profile is dropped rather than blocking startup.
		_ = json.Unmarshal(raw, &s.admin)
	}
	return s, nil
}

// SetClock overrides the clock used for token expiry checks.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Token returns the stored token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Admin returns a copy of the signed-in admin profile.
func (s *Session) Admin() entity.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin.Clone()
}

// Authenticated reports whether a usable token is stored. A JWT whose exp
// has passed does not count; opaque tokens are trusted until the backend
// answers 401.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticatedLocked()
}

func (s *Session) authenticatedLocked() bool {
	if s.token == "" {
		return false
	}
	if exp, ok := Expiry(s.token); ok {
		return s.now().Before(exp)
	}
	return true
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{Token: s.token, Admin: s.admin.Clone(), Authenticated: s.authenticatedLocked()}
}

// Login authenticates and persists the result.
func (s *Session) Login(ctx context.Context, auth Authenticator, email, password string) error {
	res, err := auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return s.SignIn(ctx, res.Token, res.Admin)
}

// SignIn persists token and profile, then notifies subscribers.
func (s *Session) SignIn(ctx context.Context, token string, admin entity.Record) error {
	if token == "" {
		return fmt.Errorf("sign in: empty token")
	}
	raw, err := json.Marshal(admin)
	if err != nil {
		return fmt.Errorf("encoding admin profile: %w", err)
	}
	if err := s.store.Set(ctx, keyToken, []byte(token)); err != nil {
		return err
	}
	if err := s.store.Set(ctx, keyAdmin, raw); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.admin = admin.Clone()
	st, subs := s.stateLocked(), s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, st)
	return nil
}

// Logout clears the persisted session and notifies subscribers.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, keyToken); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, keyAdmin); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = ""
	s.admin = nil
	st, subs := s.stateLocked(), s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, st)
	return nil
}

// Subscribe registers fn for future changes and returns its cancel func.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) subscribersLocked() []func(State) {
	out := make([]func(State), 0, len(s.subs))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.subs[i]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}

// Expiry reads the exp claim of a JWT without verifying its signature.
func Expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
