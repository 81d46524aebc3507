package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/target/rolegate/internal/domain/auth"
)

// IdentityProvider issues and refreshes tokens against the tenant's OAuth2 token endpoint.
// Token-bearing methods read and write the caller's session state.
type IdentityProvider interface {
	// AuthorizationURL builds the browser redirect that starts the authorization-code flow.
	AuthorizationURL(scope, state string) string

	// ExchangeCode redeems a one-time authorization code and stores the resulting tokens in st.
	ExchangeCode(ctx context.Context, st *domainauth.SessionState, code, scope string) (string, error)

	// AppToken returns an application-only token for scope, cached per session on exact scope match.
	AppToken(ctx context.Context, st *domainauth.SessionState, scope string) (string, error)

	// UserToken returns a delegated token for scope, refreshing (and rotating) when needed.
	UserToken(ctx context.Context, st *domainauth.SessionState, scope string) (string, error)
}

// DirectoryClient reads the signed-in user's profile and group memberships.
type DirectoryClient interface {
	FetchProfileAndGroups(ctx context.Context, userToken string) (displayName string, groups []string, err error)
}

// ErrRolesUnavailable is returned by RoleFetcher when storage refused or lacked the document.
// Callers treat it as an empty, retryable registry.
var ErrRolesUnavailable = errors.New("role document unavailable")

// RoleFetcher reads the role registry document from remote storage.
// A storage-level failure yields ErrRolesUnavailable; parse failures are returned as is.
type RoleFetcher interface {
	FetchRoles(ctx context.Context, appToken string) ([]domainauth.Role, error)
}

// ErrSessionNotFound is returned by SessionStore.Get for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists and retrieves session state.
type SessionStore interface {
	Save(ctx context.Context, st domainauth.SessionState) error
	Get(ctx context.Context, id string) (domainauth.SessionState, error)
	Delete(ctx context.Context, id string) error
}

// RoleResolver maps group memberships to a single role using registry order.
type RoleResolver interface {
	Resolve(groups []string, roles []domainauth.Role) domainauth.Role
}
