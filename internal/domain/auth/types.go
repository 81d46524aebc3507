package auth

// Package auth contains domain-level types for authentication, sessions and roles.
// It is pure and free of framework/adapter concerns.

import (
	"encoding/json"
	"errors"
	"slices"
	"time"
)

// Role is an application role granted through membership of a directory group.
// Field names follow the role document stored in object storage.
type Role struct {
	RoleName  string `json:"role_name"`
	ADGroup   string `json:"ad_group"`
	MaySeeApp bool   `json:"may_see_app"`
}

// UnmarshalJSON defaults may_see_app to true when the document omits it.
func (r *Role) UnmarshalJSON(data []byte) error {
	type rawRole Role
	raw := rawRole{MaySeeApp: true}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Role(raw)
	return nil
}

// NoAccessRoleName is the name of the fallback role.
const NoAccessRoleName = "no_access"

// NoAccessRole is returned when none of a user's groups match the registry.
// Its empty ADGroup never matches a real membership.
var NoAccessRole = Role{RoleName: NoAccessRoleName, ADGroup: "", MaySeeApp: false}

// IsNoAccess reports whether r is the fallback role.
func (r Role) IsNoAccess() bool { return r == NoAccessRole }

// Phase is the authentication state of a session.
type Phase string

const (
	PhaseAnonymous     Phase = "anonymous"
	PhaseExchanging    Phase = "exchanging"
	PhaseAuthenticated Phase = "authenticated"
)

// SessionState is the per-browser-session record read and written by the session controller.
// It carries the token set and the authentication state; nothing in it is shared across users.
type SessionState struct {
	ID string `json:"id"`

	LoggedIn bool     `json:"logged_in"`
	UserName string   `json:"user_name,omitempty"`
	ADGroups []string `json:"ad_groups,omitempty"`

	RefreshToken     string `json:"refresh_token,omitempty"`
	UserAccessToken  string `json:"user_access_token,omitempty"`
	UserCurrentScope string `json:"user_current_scope,omitempty"`
	AppAccessToken   string `json:"app_access_token,omitempty"`
	AppCurrentScope  string `json:"app_current_scope,omitempty"`

	// PendingState is the OAuth state value issued by the last login redirect.
	PendingState string `json:"pending_state,omitempty"`
	// ConsumedCode is a digest of the last authorization code this session redeemed.
	ConsumedCode string `json:"consumed_code,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSessionState returns an anonymous session that expires after ttl.
func NewSessionState(id string, now time.Time, ttl time.Duration) SessionState {
	return SessionState{ID: id, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

// Phase derives the state machine position from the stored flags.
func (s *SessionState) Phase() Phase {
	if s.LoggedIn {
		return PhaseAuthenticated
	}
	return PhaseAnonymous
}

// InGroup reports whether the session's user is a member of group.
// The empty group never matches.
func (s *SessionState) InGroup(group string) bool {
	if group == "" || !s.LoggedIn {
		return false
	}
	return slices.Contains(s.ADGroups, group)
}

// Clone returns a deep copy so callers can stage changes and commit them atomically.
func (s SessionState) Clone() SessionState {
	s.ADGroups = slices.Clone(s.ADGroups)
	return s
}

// Soft, expected conditions. Callers treat these as "not (yet) authorized" rather than failures.
var (
	// ErrNotAuthenticated is returned when a token or role is requested for an anonymous session.
	ErrNotAuthenticated = errors.New("user not logged in")
	// ErrNoRefreshToken is returned when a user token is requested but no refresh token is stored.
	ErrNoRefreshToken = errors.New("no refresh token found")
	// ErrTokenDenied is returned when the provider answered a code exchange without an access token.
	ErrTokenDenied = errors.New("token response did not contain an access token")
)

// IsSoft reports whether err is one of the expected, non-fatal auth conditions.
func IsSoft(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) ||
		errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrTokenDenied)
}
