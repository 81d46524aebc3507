package httpx

import (
	"context"

	domainauth "github.com/target/rolegate/internal/domain/auth"
)

// sessionKey is an unexported context key type to avoid collisions across packages.
type sessionKey struct{}

// roleKey carries the role resolved by RequireAppAccess.
type roleKey struct{}

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.SessionState) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSessionFromContext returns the session attached by the Sessions middleware.
func GetSessionFromContext(ctx context.Context) (*domainauth.SessionState, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.SessionState); ok && session != nil {
		return session, true
	}
	return nil, false
}

// IsAnonymous reports whether the request context carries no signed-in session.
func IsAnonymous(ctx context.Context) bool {
	s, ok := GetSessionFromContext(ctx)
	return !ok || !s.LoggedIn
}

// SetRoleInContext attaches the resolved role.
func SetRoleInContext(ctx context.Context, role domainauth.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

// GetRoleFromContext returns the role attached by RequireAppAccess.
func GetRoleFromContext(ctx context.Context) (domainauth.Role, bool) {
	role, ok := ctx.Value(roleKey{}).(domainauth.Role)
	return role, ok
}
