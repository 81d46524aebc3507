package redis

// Package redis provides the Redis-backed session store.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/ports"
	"github.com/target/rolegate/internal/sessioncrypt"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "rolegate:session:"

// SessionStore keeps session state in Redis. Keys expire at the session's ExpiresAt.
// Payloads pass through a sessioncrypt.Sealer; a payload that no longer opens reads as missing.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	sealer sessioncrypt.Sealer
	now    func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return NewSessionStoreWithPrefix(client, DefaultKeyPrefix)
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return NewSealedSessionStore(client, prefix, sessioncrypt.PlainSealer{})
}

// NewSealedSessionStore creates a Redis session store that seals payloads with sealer.
func NewSealedSessionStore(client redis.UniversalClient, prefix string, sealer sessioncrypt.Sealer) *SessionStore {
	if sealer == nil {
		sealer = sessioncrypt.PlainSealer{}
	}
	return &SessionStore{
		client: client,
		prefix: prefix,
		sealer: sealer,
		now:    time.Now,
	}
}

func (s *SessionStore) Save(ctx context.Context, st domainauth.SessionState) error {
	if st.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	ttl := st.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	sealed, err := s.sealer.Seal(st.ID, data)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+st.ID, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.SessionState, error) {
	if id == "" {
		return domainauth.SessionState{}, ErrNotFound
	}

	sealed, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.SessionState{}, ErrNotFound
		}
		return domainauth.SessionState{}, fmt.Errorf("redis get: %w", err)
	}
	data, err := s.sealer.Open(id, sealed)
	if errors.Is(err, sessioncrypt.ErrUnsealable) {
		// Key rotated or sealing toggled: the holder starts a fresh session.
		if delErr := s.Delete(ctx, id); delErr != nil {
			return domainauth.SessionState{}, fmt.Errorf("cleanup unsealable session: %w", delErr)
		}
		return domainauth.SessionState{}, ErrNotFound
	}
	if err != nil {
		return domainauth.SessionState{}, fmt.Errorf("open session: %w", err)
	}

	var st domainauth.SessionState
	if err := json.Unmarshal(data, &st); err != nil {
		return domainauth.SessionState{}, fmt.Errorf("unmarshal session: %w", err)
	}

	if s.now().After(st.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.SessionState{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.SessionState{}, ErrNotFound
	}

	return st, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}

// ErrNotFound is returned when a session is not found.
var ErrNotFound = ports.ErrSessionNotFound
