package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.DirectoryClient  = (*StaticDirectory)(nil)
	_ ports.RoleFetcher      = (*StaticRoleFetcher)(nil)
	_ ports.SessionStore     = (*MemorySessionStore)(nil)
)

// MockIdentityProvider simulates the tenant token endpoint with deterministic tokens.
// Func fields override the default behavior when set.
type MockIdentityProvider struct {
	ExchangeFunc func(ctx context.Context, st *domainauth.SessionState, code, scope string) (string, error)
	AppTokenFunc func(ctx context.Context, st *domainauth.SessionState, scope string) (string, error)

	AuthURL string

	mu        sync.Mutex
	exchanges []string
	appCalls  int
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{AuthURL: "https://mock-idp/authorize"}
}

func (m *MockIdentityProvider) AuthorizationURL(scope, state string) string {
	q := url.Values{"scope": {scope}}
	if state != "" {
		q.Set("state", state)
	}
	return m.AuthURL + "?" + q.Encode()
}

func (m *MockIdentityProvider) ExchangeCode(ctx context.Context, st *domainauth.SessionState, code, scope string) (string, error) {
	m.mu.Lock()
	m.exchanges = append(m.exchanges, code)
	m.mu.Unlock()

	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, st, code, scope)
	}
	st.RefreshToken = "refresh-" + code
	st.UserAccessToken = "access-" + code
	st.UserCurrentScope = scope
	return st.UserAccessToken, nil
}

func (m *MockIdentityProvider) AppToken(ctx context.Context, st *domainauth.SessionState, scope string) (string, error) {
	m.mu.Lock()
	m.appCalls++
	m.mu.Unlock()

	if m.AppTokenFunc != nil {
		return m.AppTokenFunc(ctx, st, scope)
	}
	if !st.LoggedIn {
		return "", domainauth.ErrNotAuthenticated
	}
	st.AppAccessToken = "app-token"
	st.AppCurrentScope = scope
	return st.AppAccessToken, nil
}

func (m *MockIdentityProvider) UserToken(_ context.Context, st *domainauth.SessionState, scope string) (string, error) {
	if !st.LoggedIn {
		return "", domainauth.ErrNotAuthenticated
	}
	if st.RefreshToken == "" {
		return "", domainauth.ErrNoRefreshToken
	}
	st.UserCurrentScope = scope
	return st.UserAccessToken, nil
}

// Exchanges returns the codes redeemed so far.
func (m *MockIdentityProvider) Exchanges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.exchanges...)
}

// AppTokenCalls returns how often AppToken was invoked.
func (m *MockIdentityProvider) AppTokenCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appCalls
}

// StaticDirectory returns a fixed profile for any token.
type StaticDirectory struct {
	DisplayName string
	Groups      []string
	Err         error
}

func (d StaticDirectory) FetchProfileAndGroups(_ context.Context, _ string) (string, []string, error) {
	if d.Err != nil {
		return "", nil, d.Err
	}
	return d.DisplayName, append([]string(nil), d.Groups...), nil
}

// StaticRoleFetcher returns a fixed role list.
type StaticRoleFetcher struct {
	Roles []domainauth.Role
	Err   error
}

func (f StaticRoleFetcher) FetchRoles(_ context.Context, _ string) ([]domainauth.Role, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]domainauth.Role(nil), f.Roles...), nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.SessionState
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.SessionState),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, st domainauth.SessionState) error {
	if st.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[st.ID] = st.Clone()
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok || id == "" {
		return domainauth.SessionState{}, ErrNotFound
	}
	return st.Clone(), nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ErrNotFound is returned by mocks when a session is not present.
var ErrNotFound = ports.ErrSessionNotFound
