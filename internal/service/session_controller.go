package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/observability/metrics"
	"github.com/target/rolegate/internal/observability/statsd"
	"github.com/target/rolegate/internal/ports"
)

// Default scopes.
const (
	DefaultLoginScope   = "offline_access https://graph.microsoft.com/.default"
	DefaultStorageScope = "https://storage.azure.com/.default"
	DefaultSessionTTL   = 8 * time.Hour
)

// authQueryParams are removed from the URL once an authorization code is seen.
var authQueryParams = []string{"code", "state", "session_state", "client_info"}

// SessionControllerOptions groups dependencies for SessionController.
type SessionControllerOptions struct {
	Provider  ports.IdentityProvider
	Directory ports.DirectoryClient
	Registry  *RoleRegistry
	Resolver  ports.RoleResolver
	Sessions  ports.SessionStore

	LoginScope   string        // Optional, defaults to DefaultLoginScope
	StorageScope string        // Optional, defaults to DefaultStorageScope
	SessionTTL   time.Duration // Optional, defaults to DefaultSessionTTL

	// RequireLoginState rejects codes that arrive without a login started by this session.
	// Off by default so provider-initiated sign-in keeps working.
	RequireLoginState bool

	Metrics statsd.Sink
	Logger  *slog.Logger
	Now     func() time.Time
}

// SessionController drives a session from anonymous to authenticated and answers
// authentication and authorization queries for it.
type SessionController struct {
	provider  ports.IdentityProvider
	directory ports.DirectoryClient
	registry  *RoleRegistry
	resolver  ports.RoleResolver
	sessions  ports.SessionStore

	loginScope   string
	storageScope string
	ttl          time.Duration
	strictState  bool

	metrics statsd.Sink
	logger  *slog.Logger
	now     func() time.Time
	locks   keyedMutex
}

// NewSessionController constructs a SessionController.
func NewSessionController(opts SessionControllerOptions) (*SessionController, error) {
	if opts.Provider == nil || opts.Directory == nil || opts.Registry == nil ||
		opts.Resolver == nil || opts.Sessions == nil {
		return nil, errors.New("provider, directory, registry, resolver and sessions are required")
	}
	c := &SessionController{
		provider:     opts.Provider,
		directory:    opts.Directory,
		registry:     opts.Registry,
		resolver:     opts.Resolver,
		sessions:     opts.Sessions,
		loginScope:   opts.LoginScope,
		storageScope: opts.StorageScope,
		ttl:          opts.SessionTTL,
		strictState:  opts.RequireLoginState,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if c.loginScope == "" {
		c.loginScope = DefaultLoginScope
	}
	if c.storageScope == "" {
		c.storageScope = DefaultStorageScope
	}
	if c.ttl <= 0 {
		c.ttl = DefaultSessionTTL
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.logger = c.logger.With("component", "session_controller")
	return c, nil
}

// RequestOutcome reports what OnRequest did with an inbound URL.
type RequestOutcome struct {
	// CleanURL is the URL without authorization response parameters.
	CleanURL *url.URL
	// Consumed is true when the URL carried an authorization code.
	Consumed bool
	// Authenticated reflects the session after the request was handled.
	Authenticated bool
}

// BeginLogin issues a fresh login state for st and returns the authorization URL.
func (c *SessionController) BeginLogin(ctx context.Context, st *domainauth.SessionState) (string, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	st.PendingState = state
	c.logger.InfoContext(ctx, "login started", "session_id", st.ID)
	return c.provider.AuthorizationURL(c.loginScope, state), nil
}

// OnRequest consumes an authorization code found in u, if any.
// Soft failures (denied exchange, state mismatch, replayed code) leave the session anonymous and
// return a nil error; remote failures are returned and nothing but the consumed-code marker is
// committed to st.
func (c *SessionController) OnRequest(ctx context.Context, st *domainauth.SessionState, u *url.URL) (RequestOutcome, error) {
	q := u.Query()
	code := q.Get("code")
	if code == "" {
		clean := *u
		return RequestOutcome{CleanURL: &clean, Authenticated: st.LoggedIn}, nil
	}

	out := RequestOutcome{CleanURL: stripAuthParams(u), Consumed: true}

	digest := codeDigest(code)
	if st.ConsumedCode == digest {
		c.logger.DebugContext(ctx, "authorization code already consumed", "session_id", st.ID)
		out.Authenticated = st.LoggedIn
		return out, nil
	}
	st.ConsumedCode = digest

	switch {
	case st.PendingState != "" && q.Get("state") != st.PendingState:
		c.logger.WarnContext(ctx, "login state mismatch, ignoring authorization code", "session_id", st.ID)
		out.Authenticated = st.LoggedIn
		return out, nil
	case st.PendingState == "" && c.strictState:
		c.logger.WarnContext(ctx, "authorization code without a pending login, ignoring", "session_id", st.ID)
		out.Authenticated = st.LoggedIn
		return out, nil
	case st.PendingState == "":
		c.logger.WarnContext(ctx, "authorization code without a pending login", "session_id", st.ID)
	}

	if err := c.completeLogin(ctx, st, code); err != nil {
		if domainauth.IsSoft(err) {
			c.logger.InfoContext(ctx, "login not completed", "session_id", st.ID, "reason", err.Error())
			out.Authenticated = st.LoggedIn
			return out, nil
		}
		return out, err
	}
	out.Authenticated = true
	return out, nil
}

// completeLogin runs EXCHANGING on a copy of st and commits it only when both the code
// exchange and the profile fetch succeed.
func (c *SessionController) completeLogin(ctx context.Context, st *domainauth.SessionState, code string) error {
	from := st.Phase()
	c.transition(ctx, st.ID, from, domainauth.PhaseExchanging)

	next := st.Clone()
	userToken, err := c.provider.ExchangeCode(ctx, &next, code, c.loginScope)
	if err != nil {
		c.transition(ctx, st.ID, domainauth.PhaseExchanging, from)
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	name, groups, err := c.directory.FetchProfileAndGroups(ctx, userToken)
	if err != nil {
		c.transition(ctx, st.ID, domainauth.PhaseExchanging, from)
		return fmt.Errorf("fetch user profile: %w", err)
	}

	next.LoggedIn = true
	next.UserName = name
	next.ADGroups = groups
	next.PendingState = ""
	*st = next

	c.transition(ctx, st.ID, domainauth.PhaseExchanging, domainauth.PhaseAuthenticated)
	c.logger.InfoContext(ctx, "user signed in", "session_id", st.ID, "groups", len(groups))
	return nil
}

func (c *SessionController) transition(ctx context.Context, sessionID string, from, to domainauth.Phase) {
	c.logger.DebugContext(ctx, "session transition", "session_id", sessionID, "from", from, "to", to)
	metrics.EmitSessionTransition(c.metrics, string(from), string(to))
}

// IsAuthenticated reports whether st completed sign-in.
func (c *SessionController) IsAuthenticated(st *domainauth.SessionState) bool {
	return st != nil && st.LoggedIn
}

// CurrentRole resolves the signed-in user's role against the role registry.
func (c *SessionController) CurrentRole(ctx context.Context, st *domainauth.SessionState) (domainauth.Role, error) {
	if !c.IsAuthenticated(st) {
		return domainauth.Role{}, domainauth.ErrNotAuthenticated
	}
	roles, err := c.registry.Roles(ctx, func(ctx context.Context) (string, error) {
		return c.provider.AppToken(ctx, st, c.storageScope)
	})
	if err != nil {
		return domainauth.Role{}, fmt.Errorf("load role registry: %w", err)
	}
	return c.resolver.Resolve(st.ADGroups, roles), nil
}

// UserToken returns a delegated token for scope on behalf of the signed-in user.
func (c *SessionController) UserToken(ctx context.Context, st *domainauth.SessionState, scope string) (string, error) {
	return c.provider.UserToken(ctx, st, scope)
}

// WithSession loads the session identified by id (creating a new one when id is empty or
// unknown), runs fn with exclusive access to it and saves it with a renewed lifetime.
// It returns the ID of the session fn ran against.
func (c *SessionController) WithSession(ctx context.Context, id string, fn func(st *domainauth.SessionState) error) (string, error) {
	if id != "" {
		unlock := c.locks.lock(id)
		defer unlock()

		st, err := c.sessions.Get(ctx, id)
		switch {
		case err == nil:
			return id, c.run(ctx, &st, fn)
		case !errors.Is(err, ports.ErrSessionNotFound):
			return "", fmt.Errorf("load session: %w", err)
		}
	}

	st := domainauth.NewSessionState(uuid.NewString(), c.now(), c.ttl)
	return st.ID, c.run(ctx, &st, fn)
}

func (c *SessionController) run(ctx context.Context, st *domainauth.SessionState, fn func(st *domainauth.SessionState) error) error {
	fnErr := fn(st)
	st.ExpiresAt = c.now().Add(c.ttl)
	if err := c.sessions.Save(ctx, *st); err != nil {
		return errors.Join(fnErr, fmt.Errorf("save session: %w", err))
	}
	return fnErr
}

// Logout removes the session.
func (c *SessionController) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	unlock := c.locks.lock(id)
	defer unlock()

	if err := c.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	c.logger.InfoContext(ctx, "user signed out", "session_id", id)
	return nil
}

// InvalidateRoles forces the next role lookup to refetch the role document.
func (c *SessionController) InvalidateRoles() { c.registry.Invalidate() }

// RegistryState reports the role registry cache state.
func (c *SessionController) RegistryState() RegistryState { return c.registry.State() }

// StripAuthParams returns a copy of u without authorization response parameters.
func StripAuthParams(u *url.URL) *url.URL { return stripAuthParams(u) }

func stripAuthParams(u *url.URL) *url.URL {
	clean := *u
	q := clean.Query()
	for _, k := range authQueryParams {
		q.Del(k)
	}
	clean.RawQuery = q.Encode()
	return &clean
}

func codeDigest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateRandomString creates a URL-safe random string of n bytes of entropy.
func generateRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// keyedMutex serializes work per key. Entries are dropped once no caller holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
