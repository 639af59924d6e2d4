// Package session holds the process-wide authentication state: whether the
// user is logged in, the cached profile, and the bearer credential. All
// mutation goes through the Store's contract methods; every surface that
// depends on auth state observes it through Subscribe or lifecycle events.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/amolsr/authmatrix-client/internal/client/gateway"
	"github.com/amolsr/authmatrix-client/internal/models"
)

// Lifecycle event topics published through the configured Publisher.
const (
	// TopicAuthenticated is published when a session is established.
	TopicAuthenticated = "session.authenticated"
	// TopicCleared is published when the session is reset, whether by
	// logout or by expiry detected mid-flight.
	TopicCleared = "session.cleared"
)

// AuthenticatedEvent is the payload for TopicAuthenticated.
type AuthenticatedEvent struct {
	Email string `json:"email"`
}

// ClearedEvent is the payload for TopicCleared.
type ClearedEvent struct{}

// State is a snapshot of the authentication record. Authenticated == false
// always implies Profile == nil.
type State struct {
	// Authenticated is derived state, re-validated against the backend
	// during Initialize.
	Authenticated bool
	// Profile is the cached account profile; nil until fetched and always
	// nil when unauthenticated.
	Profile *models.UserProfile
	// Token is the opaque bearer credential, empty when the client relies
	// on the ambient cookie session only.
	Token string
}

// Backend is the slice of the gateway the store depends on.
type Backend interface {
	CheckSession(ctx context.Context) (bool, error)
	Profile(ctx context.Context) (models.UserProfile, error)
}

// Publisher receives session lifecycle events. Implementations must not
// block; delivery failures are logged, never propagated to callers.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Store is the single shared mutable resource of the client.
type Store struct {
	backend Backend
	tokens  *TokenFile
	log     *zap.Logger
	events  Publisher

	mu      sync.Mutex
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New creates a Store. The returned Store is unauthenticated until
// Initialize or SetAuthenticated runs.
func New(backend Backend, tokens *TokenFile, log *zap.Logger) *Store {
	return &Store{
		backend: backend,
		tokens:  tokens,
		log:     log,
		subs:    make(map[int]func(State)),
	}
}

// SetEventPublisher wires an optional lifecycle event publisher.
func (s *Store) SetEventPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = p
}

// Token returns the current bearer credential. It implements
// gateway.CredentialSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Token
}

// State returns a copy of the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := s.state
	if s.state.Profile != nil {
		p := *s.state.Profile
		st.Profile = &p
	}
	return st
}

// Subscribe registers fn to run after every state change and returns the
// matching unsubscribe function. fn receives a snapshot, never live state.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Initialize hydrates the store at application start: it loads any persisted
// credential, discards it if it is a JWT that already expired, and performs
// one session check against the backend. An Unauthorized answer is the
// expected cold-start outcome and clears state silently; any other failure
// is returned so the caller can surface a non-blocking notice.
func (s *Store) Initialize(ctx context.Context) error {
	token, err := s.tokens.Load()
	if err != nil {
		s.log.Warn("could not load persisted token", zap.Error(err))
	}
	if token != "" && tokenExpired(token, time.Now()) {
		s.log.Debug("persisted token expired, discarding")
		if err := s.tokens.Clear(); err != nil {
			s.log.Warn("could not clear expired token", zap.Error(err))
		}
		token = ""
	}

	s.mu.Lock()
	s.state.Token = token
	s.mu.Unlock()

	ok, err := s.backend.CheckSession(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			// Expected when no valid session exists yet; not user-visible.
			s.Clear()
			return nil
		}
		return fmt.Errorf("session check: %w", err)
	}
	if !ok {
		s.Clear()
		return nil
	}

	s.mu.Lock()
	s.state.Authenticated = true
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.log.Info("session restored")
	s.notify(subs, snapshot)
	s.publish(TopicAuthenticated, AuthenticatedEvent{})
	return nil
}

// SetAuthenticated records a successful login. The token is persisted when
// one was issued.
func (s *Store) SetAuthenticated(profile models.UserProfile, token string) {
	s.mu.Lock()
	s.state.Authenticated = true
	p := profile
	s.state.Profile = &p
	s.state.Token = token
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if token != "" {
		if err := s.tokens.Save(token); err != nil {
			s.log.Warn("could not persist token", zap.Error(err))
		}
	}

	s.notify(subs, snapshot)
	s.publish(TopicAuthenticated, AuthenticatedEvent{Email: profile.Email})
}

// Clear atomically resets the store to the unauthenticated invariant and
// purges the persisted credential. Clearing an already-empty store is a
// no-op, so concurrent Unauthorized responses collapse into one reset.
func (s *Store) Clear() {
	s.mu.Lock()
	if !s.state.Authenticated && s.state.Profile == nil && s.state.Token == "" {
		s.mu.Unlock()
		return
	}
	s.state = State{}
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("could not purge persisted token", zap.Error(err))
	}

	s.log.Info("session cleared")
	s.notify(subs, snapshot)
	s.publish(TopicCleared, ClearedEvent{})
}

// FetchProfile re-fetches the profile from the backend. It is idempotent;
// an Unauthorized answer clears the whole session.
func (s *Store) FetchProfile(ctx context.Context) error {
	profile, err := s.backend.Profile(ctx)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			s.Clear()
		}
		return err
	}

	s.mu.Lock()
	s.state.Authenticated = true
	s.state.Profile = &profile
	snapshot := s.snapshotLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.notify(subs, snapshot)
	return nil
}

func (s *Store) subscribersLocked() []func(State) {
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func (s *Store) notify(subs []func(State), snapshot State) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

func (s *Store) publish(topic string, payload any) {
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()
	if events == nil {
		return
	}
	if err := events.Publish(topic, payload); err != nil {
		s.log.Warn("could not publish session event",
			zap.String("topic", topic), zap.Error(err))
	}
}
