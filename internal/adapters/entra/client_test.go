package entra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/rolegate/internal/domain/auth"
)

// fakeTenant is a token endpoint that records every form it receives.
type fakeTenant struct {
	mu      sync.Mutex
	forms   []url.Values
	respond func(form url.Values) (int, map[string]any)
	server  *httptest.Server
}

func newFakeTenant(t *testing.T, respond func(form url.Values) (int, map[string]any)) *fakeTenant {
	t.Helper()
	ft := &fakeTenant{respond: respond}
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ft.mu.Lock()
		ft.forms = append(ft.forms, r.PostForm)
		ft.mu.Unlock()
		status, body := ft.respond(r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
	mux.HandleFunc("/tenant-1/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		base := ft.server.URL + "/tenant-1"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 base + "/v2.0",
			"authorization_endpoint": base + "/oauth2/v2.0/authorize",
			"token_endpoint":         base + "/oauth2/v2.0/token",
			"jwks_uri":               base + "/discovery/v2.0/keys",
		})
	})
	ft.server = httptest.NewServer(mux)
	t.Cleanup(ft.server.Close)
	return ft
}

func (f *fakeTenant) requests() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.forms...)
}

func newTestClient(t *testing.T, ft *fakeTenant) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Config{
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		TenantID:      "tenant-1",
		RedirectURL:   "https://app.example.com/",
		AuthorityHost: ft.server.URL,
		HTTPClient:    ft.server.Client(),
	})
	require.NoError(t, err)
	return c
}

func loggedIn() *domainauth.SessionState {
	return &domainauth.SessionState{ID: "s1", LoggedIn: true, RefreshToken: "R0"}
}

func TestNewClient_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		errMsg string
	}{
		{name: "missing client ID", config: Config{ClientSecret: "s", TenantID: "t", RedirectURL: "r"}, errMsg: "client ID is required"},
		{name: "missing client secret", config: Config{ClientID: "c", TenantID: "t", RedirectURL: "r"}, errMsg: "client secret is required"},
		{name: "missing tenant", config: Config{ClientID: "c", ClientSecret: "s", RedirectURL: "r"}, errMsg: "tenant ID is required"},
		{name: "missing redirect URL", config: Config{ClientID: "c", ClientSecret: "s", TenantID: "t"}, errMsg: "redirect URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(context.Background(), tt.config)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewClient_StaticEndpoints(t *testing.T) {
	c, err := NewClient(context.Background(), Config{
		ClientID: "c", ClientSecret: "s", TenantID: "contoso", RedirectURL: "https://app/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/authorize", c.oauth.Endpoint.AuthURL)
	assert.Equal(t, "https://login.microsoftonline.com/contoso/oauth2/v2.0/token", c.oauth.Endpoint.TokenURL)
}

func TestNewClient_Discovery(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) { return http.StatusOK, nil })
	c, err := NewClient(context.Background(), Config{
		ClientID:         "client-1",
		ClientSecret:     "secret-1",
		TenantID:         "tenant-1",
		RedirectURL:      "https://app.example.com/",
		AuthorityHost:    ft.server.URL,
		DiscoveryEnabled: true,
		HTTPClient:       ft.server.Client(),
	})
	require.NoError(t, err)
	assert.Equal(t, ft.server.URL+"/tenant-1/oauth2/v2.0/token", c.oauth.Endpoint.TokenURL)
}

func TestAuthorizationURL(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) { return http.StatusOK, nil })
	c := newTestClient(t, ft)

	raw := c.AuthorizationURL("offline_access https://graph.microsoft.com/.default", "xyz")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "/tenant-1/oauth2/v2.0/authorize", u.Path)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "https://app.example.com/", q.Get("redirect_uri"))
	assert.Equal(t, "offline_access https://graph.microsoft.com/.default", q.Get("scope"))
	assert.Equal(t, "query", q.Get("form_post"))
	assert.Equal(t, "xyz", q.Get("state"))

	u, err = url.Parse(c.AuthorizationURL("openid", ""))
	require.NoError(t, err)
	assert.False(t, u.Query().Has("state"))
}

func TestExchangeCode_Success(t *testing.T) {
	ft := newFakeTenant(t, func(form url.Values) (int, map[string]any) {
		return http.StatusOK, map[string]any{"access_token": "T1", "refresh_token": "R1", "token_type": "Bearer", "expires_in": 3600}
	})
	c := newTestClient(t, ft)
	st := &domainauth.SessionState{ID: "s1"}

	tok, err := c.ExchangeCode(context.Background(), st, "ABC123", "graph-scope")
	require.NoError(t, err)
	assert.Equal(t, "T1", tok)
	assert.Equal(t, "R1", st.RefreshToken)
	assert.Equal(t, "T1", st.UserAccessToken)
	assert.Equal(t, "graph-scope", st.UserCurrentScope)

	reqs := ft.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "authorization_code", reqs[0].Get("grant_type"))
	assert.Equal(t, "ABC123", reqs[0].Get("code"))
	assert.Equal(t, "graph-scope", reqs[0].Get("scope"))
	assert.Equal(t, "https://app.example.com/", reqs[0].Get("redirect_uri"))
	assert.Equal(t, "client-1", reqs[0].Get("client_id"))
	assert.Equal(t, "secret-1", reqs[0].Get("client_secret"))
}

func TestExchangeCode_DeniedIsSoft(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
	}{
		{name: "oauth error body", status: http.StatusBadRequest, body: map[string]any{"error": "invalid_grant"}},
		{name: "missing access token", status: http.StatusOK, body: map[string]any{"token_type": "Bearer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTenant(t, func(url.Values) (int, map[string]any) { return tt.status, tt.body })
			c := newTestClient(t, ft)
			st := &domainauth.SessionState{ID: "s1"}

			_, err := c.ExchangeCode(context.Background(), st, "used-code", "scope")
			require.ErrorIs(t, err, domainauth.ErrTokenDenied)
			assert.True(t, domainauth.IsSoft(err))
			assert.Empty(t, st.RefreshToken)
		})
	}
}

func TestExchangeCode_ServerErrorIsHard(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) { return http.StatusBadGateway, nil })
	c := newTestClient(t, ft)

	_, err := c.ExchangeCode(context.Background(), &domainauth.SessionState{}, "code", "scope")
	require.Error(t, err)
	assert.False(t, domainauth.IsSoft(err))
}

func TestAppToken_ScopeMismatchForcesReacquisition(t *testing.T) {
	n := 0
	ft := newFakeTenant(t, func(form url.Values) (int, map[string]any) {
		n++
		return http.StatusOK, map[string]any{"access_token": "A" + form.Get("scope"), "token_type": "Bearer"}
	})
	c := newTestClient(t, ft)
	st := loggedIn()
	ctx := context.Background()

	tok, err := c.AppToken(ctx, st, "storage")
	require.NoError(t, err)
	assert.Equal(t, "Astorage", tok)

	tok, err = c.AppToken(ctx, st, "storage")
	require.NoError(t, err)
	assert.Equal(t, "Astorage", tok)
	assert.Equal(t, 1, n, "same scope must reuse the cached token")

	tok, err = c.AppToken(ctx, st, "vault")
	require.NoError(t, err)
	assert.Equal(t, "Avault", tok)
	assert.Equal(t, "vault", st.AppCurrentScope)
	assert.Equal(t, 2, n)

	reqs := ft.requests()
	assert.Equal(t, "client_credentials", reqs[0].Get("grant_type"))
}

func TestAppToken_Guards(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) {
		return http.StatusOK, map[string]any{"token_type": "Bearer"}
	})
	c := newTestClient(t, ft)

	_, err := c.AppToken(context.Background(), &domainauth.SessionState{}, "storage")
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)
	assert.Empty(t, ft.requests())

	_, err = c.AppToken(context.Background(), loggedIn(), "storage")
	require.Error(t, err)
	assert.False(t, domainauth.IsSoft(err), "missing app token is a hard failure")
}

func TestUserToken_RefreshRotatesToken(t *testing.T) {
	// Each refresh token is single use and is answered with the next pair.
	var mu sync.Mutex
	rotations := map[string][2]string{
		"R1": {"T2", "R2"},
		"R2": {"T3", "R3"},
	}
	ft := newFakeTenant(t, func(form url.Values) (int, map[string]any) {
		mu.Lock()
		defer mu.Unlock()
		next, ok := rotations[form.Get("refresh_token")]
		if !ok {
			return http.StatusBadRequest, map[string]any{"error": "invalid_grant"}
		}
		delete(rotations, form.Get("refresh_token"))
		return http.StatusOK, map[string]any{"access_token": next[0], "refresh_token": next[1], "token_type": "Bearer"}
	})
	c := newTestClient(t, ft)
	ctx := context.Background()
	st := &domainauth.SessionState{ID: "s1", LoggedIn: true, RefreshToken: "R1", UserAccessToken: "T1", UserCurrentScope: "graph"}
	stale := *st

	tok, err := c.UserToken(ctx, st, "vault")
	require.NoError(t, err)
	assert.Equal(t, "T2", tok)
	assert.Equal(t, "R2", st.RefreshToken)
	assert.Equal(t, "vault", st.UserCurrentScope)

	reqs := ft.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "refresh_token", reqs[0].Get("grant_type"))
	assert.Equal(t, "R1", reqs[0].Get("refresh_token"))
	assert.Equal(t, "offline_access vault", reqs[0].Get("scope"))

	tok, err = c.UserToken(ctx, st, "vault")
	require.NoError(t, err)
	assert.Equal(t, "T2", tok)
	assert.Len(t, ft.requests(), 1, "matching scope is served from the session")

	tok, err = c.UserToken(ctx, st, "other")
	require.NoError(t, err)
	assert.Equal(t, "T3", tok)
	assert.Equal(t, "R3", st.RefreshToken)
	assert.Equal(t, "other", st.UserCurrentScope)

	reqs = ft.requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "R2", reqs[1].Get("refresh_token"), "second refresh uses the rotated token")

	// The spent token is refused and leaves the stale copy untouched.
	_, err = c.UserToken(ctx, &stale, "other")
	require.Error(t, err)
	assert.Equal(t, "R1", stale.RefreshToken)
	reqs = ft.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "R1", reqs[2].Get("refresh_token"))
}

func TestUserToken_MissingRotationIsHard(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) {
		return http.StatusOK, map[string]any{"access_token": "T2", "token_type": "Bearer"}
	})
	c := newTestClient(t, ft)
	st := loggedIn()

	_, err := c.UserToken(context.Background(), st, "vault")
	require.Error(t, err)
	assert.False(t, domainauth.IsSoft(err))
	assert.Equal(t, "R0", st.RefreshToken)
	assert.Empty(t, st.UserAccessToken)
}

func TestUserToken_Guards(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) { return http.StatusOK, nil })
	c := newTestClient(t, ft)

	_, err := c.UserToken(context.Background(), &domainauth.SessionState{}, "s")
	require.ErrorIs(t, err, domainauth.ErrNotAuthenticated)

	_, err = c.UserToken(context.Background(), &domainauth.SessionState{LoggedIn: true}, "s")
	require.ErrorIs(t, err, domainauth.ErrNoRefreshToken)
	assert.Empty(t, ft.requests())
}

func TestWithOfflineAccess(t *testing.T) {
	assert.Equal(t, "offline_access vault", WithOfflineAccess("vault"))
	assert.Equal(t, "offline_access", WithOfflineAccess(""))
	assert.Equal(t, "vault offline_access", WithOfflineAccess("vault offline_access"))
	assert.True(t, strings.HasPrefix(WithOfflineAccess("a b"), OfflineAccessScope))
}

type recordingSink struct {
	mu     sync.Mutex
	counts []string
}

func (r *recordingSink) Count(name string, _ int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, name+":"+tags["grant"]+":"+tags["result"])
}

func (r *recordingSink) Timing(string, time.Duration, map[string]string) {}

func TestClient_EmitsGrantMetrics(t *testing.T) {
	ft := newFakeTenant(t, func(url.Values) (int, map[string]any) {
		return http.StatusOK, map[string]any{"access_token": "A", "token_type": "Bearer"}
	})
	c := newTestClient(t, ft)
	sink := &recordingSink{}
	c.metrics = sink

	st := loggedIn()
	_, err := c.AppToken(context.Background(), st, "storage")
	require.NoError(t, err)
	_, err = c.AppToken(context.Background(), st, "storage")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"token.grant:client_credentials:success",
		"token.grant:client_credentials:cached",
	}, sink.counts)
}
