package memory

// Package memory provides an in-process session store for single-replica deployments.

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/ports"
)

// DefaultMaxEntries bounds the number of sessions kept in memory.
const DefaultMaxEntries = 10000

// SessionStore keeps session state in a size-bounded LRU whose entries expire after ttl.
// Every Save restarts the entry's lifetime.
type SessionStore struct {
	cache *lru.LRU[string, domainauth.SessionState]
	now   func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a store holding at most maxEntries sessions for ttl each.
func NewSessionStore(maxEntries int, ttl time.Duration) *SessionStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &SessionStore{
		cache: lru.NewLRU[string, domainauth.SessionState](maxEntries, nil, ttl),
		now:   time.Now,
	}
}

func (s *SessionStore) Save(_ context.Context, st domainauth.SessionState) error {
	if st.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !st.ExpiresAt.After(s.now()) {
		return errors.New("session is expired")
	}
	s.cache.Add(st.ID, st.Clone())
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domainauth.SessionState, error) {
	st, ok := s.cache.Get(id)
	if !ok {
		return domainauth.SessionState{}, ports.ErrSessionNotFound
	}
	if s.now().After(st.ExpiresAt) {
		s.cache.Remove(id)
		return domainauth.SessionState{}, ports.ErrSessionNotFound
	}
	return st.Clone(), nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int { return s.cache.Len() }
