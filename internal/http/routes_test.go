package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/rolegate"
	"github.com/target/rolegate/internal/adapters/authroles"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	apperrors "github.com/target/rolegate/internal/errors"
	"github.com/target/rolegate/internal/mocks"
	authmocks "github.com/target/rolegate/internal/mocks/auth"
	"github.com/target/rolegate/internal/ports"
	"github.com/target/rolegate/internal/service"
	"go.uber.org/mock/gomock"
)

const testCookie = "rolegate_session"

var testRoles = []domainauth.Role{
	{RoleName: "eng", ADGroup: "Engineers", MaySeeApp: true},
	{RoleName: "viewer", ADGroup: "Viewers", MaySeeApp: false},
}

type routerFixture struct {
	handler  http.Handler
	provider *authmocks.MockIdentityProvider
	store    *authmocks.MemorySessionStore
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	sub, err := fs.Sub(rolegate.TemplateFS, "templates")
	require.NoError(t, err)
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: sub, Logger: discardLogger()})
	require.NoError(t, err)
	return renderer
}

func newRouterFixture(t *testing.T, dir ports.DirectoryClient, fetcher ports.RoleFetcher) *routerFixture {
	t.Helper()
	provider := authmocks.NewMockIdentityProvider()
	store := authmocks.NewMemorySessionStore()
	ctrl, err := service.NewSessionController(service.SessionControllerOptions{
		Provider:  provider,
		Directory: dir,
		Registry:  service.NewRoleRegistry(service.RoleRegistryOptions{Fetcher: fetcher, Logger: discardLogger()}),
		Resolver:  authroles.FirstMatchResolver{},
		Sessions:  store,
		Logger:    discardLogger(),
	})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{
		Sessions:      ctrl,
		Renderer:      newTestRenderer(t),
		Cookie:        SessionCookie{Name: testCookie, TTL: time.Hour},
		RegistryState: ctrl.RegistryState,
		Logger:        discardLogger(),
	})
	return &routerFixture{handler: handler, provider: provider, store: store}
}

func janeFixture(t *testing.T) *routerFixture {
	t.Helper()
	return newRouterFixture(t,
		authmocks.StaticDirectory{DisplayName: "Jane", Groups: []string{"Engineers"}},
		authmocks.StaticRoleFetcher{Roles: testRoles},
	)
}

// do serves a request, attaching the session cookie when sid is non-empty.
func (f *routerFixture) do(method, target, sid string, header http.Header) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		r.Header[k] = v
	}
	if sid != "" {
		r.AddCookie(&http.Cookie{Name: testCookie, Value: sid})
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", testCookie)
	return nil
}

// login consumes an authorization code in a fresh session and returns its ID.
func (f *routerFixture) login(t *testing.T) string {
	t.Helper()
	w := f.do(http.MethodGet, "/?code=ABC123&session_state=xyz&tab=2", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	return sessionCookie(t, w).Value
}

func TestRouter_CodeIsConsumedAndStripped(t *testing.T) {
	f := janeFixture(t)

	w := f.do(http.MethodGet, "/?code=ABC123&state=s&session_state=xyz&client_info=ci&tab=2", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/?tab=2", w.Header().Get("Location"))

	c := sessionCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 3600, c.MaxAge)

	st, err := f.store.Get(context.Background(), c.Value)
	require.NoError(t, err)
	assert.True(t, st.LoggedIn)
	assert.Equal(t, "Jane", st.UserName)
	assert.Equal(t, []string{"Engineers"}, st.ADGroups)
	assert.Equal(t, []string{"ABC123"}, f.provider.Exchanges())
}

func TestRouter_CodeOnUnknownPathIsConsumed(t *testing.T) {
	f := janeFixture(t)

	w := f.do(http.MethodGet, "/reports/q3?code=ABC123", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/reports/q3", w.Header().Get("Location"))
}

func TestRouter_ReplayedCodeIsNotExchangedTwice(t *testing.T) {
	f := janeFixture(t)
	sid := f.login(t)

	w := f.do(http.MethodGet, "/?code=ABC123&session_state=xyz&tab=2", sid, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/?tab=2", w.Header().Get("Location"))
	assert.Len(t, f.provider.Exchanges(), 1)
}

func TestRouter_HomePageStates(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		f := janeFixture(t)
		w := f.do(http.MethodGet, "/", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Sign in required")
		assert.Contains(t, w.Body.String(), `href="/auth/login"`)
	})

	t.Run("access granted", func(t *testing.T) {
		f := janeFixture(t)
		sid := f.login(t)
		w := f.do(http.MethodGet, "/?tab=2", sid, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "Welcome, Jane")
		assert.Contains(t, body, "<strong>eng</strong>")
		assert.Contains(t, body, "<li>Engineers</li>")
	})

	t.Run("access denied", func(t *testing.T) {
		f := newRouterFixture(t,
			authmocks.StaticDirectory{DisplayName: "Joe", Groups: []string{"Contractors"}},
			authmocks.StaticRoleFetcher{Roles: testRoles},
		)
		sid := f.login(t)
		w := f.do(http.MethodGet, "/", sid, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Access denied")
		assert.Contains(t, w.Body.String(), domainauth.NoAccessRoleName)
	})
}

func TestRouter_HomePageEscapesUserName(t *testing.T) {
	f := newRouterFixture(t,
		authmocks.StaticDirectory{DisplayName: "<script>x</script>", Groups: []string{"Engineers"}},
		authmocks.StaticRoleFetcher{Roles: testRoles},
	)
	sid := f.login(t)
	w := f.do(http.MethodGet, "/", sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "<script>x</script>")
	assert.Contains(t, w.Body.String(), "&lt;script&gt;")
}

func TestRouter_HardFailuresAreNotRendered(t *testing.T) {
	t.Run("directory failure during sign-in", func(t *testing.T) {
		f := newRouterFixture(t,
			authmocks.StaticDirectory{Err: apperrors.Upstreamf(http.StatusServiceUnavailable, "GET /me: status 503")},
			authmocks.StaticRoleFetcher{Roles: testRoles},
		)
		w := f.do(http.MethodGet, "/?code=ABC123", "", nil)
		require.Equal(t, http.StatusBadGateway, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "upstream", body["error"])

		// The consumed code is remembered even though sign-in failed.
		st, err := f.store.Get(context.Background(), sessionCookie(t, w).Value)
		require.NoError(t, err)
		assert.False(t, st.LoggedIn)
		assert.NotEmpty(t, st.ConsumedCode)
	})

	t.Run("role document failure", func(t *testing.T) {
		f := newRouterFixture(t,
			authmocks.StaticDirectory{DisplayName: "Jane", Groups: []string{"Engineers"}},
			authmocks.StaticRoleFetcher{Err: errors.New("dial tcp: connection refused")},
		)
		sid := f.login(t)
		w := f.do(http.MethodGet, "/", sid, nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.NotContains(t, w.Body.String(), "<html")
	})
}

func TestRouter_DeniedExchangeStaysAnonymous(t *testing.T) {
	f := janeFixture(t)
	f.provider.ExchangeFunc = func(context.Context, *domainauth.SessionState, string, string) (string, error) {
		return "", domainauth.ErrTokenDenied
	}

	w := f.do(http.MethodGet, "/?code=BAD", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	sid := sessionCookie(t, w).Value

	w = f.do(http.MethodGet, "/", sid, nil)
	assert.Contains(t, w.Body.String(), "Sign in required")
}

func TestRouter_Status(t *testing.T) {
	f := janeFixture(t)

	w := f.do(http.MethodGet, "/auth/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	sid := f.login(t)
	w = f.do(http.MethodGet, "/auth/status", sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"authenticated":true,"user_name":"Jane","role":{"role_name":"eng","may_see_app":true}}`,
		w.Body.String())
}

func TestRouter_APIMeIsGated(t *testing.T) {
	t.Run("anonymous -> 401", func(t *testing.T) {
		f := janeFixture(t)
		w := f.do(http.MethodGet, "/api/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("may_see_app=false -> 403", func(t *testing.T) {
		f := newRouterFixture(t,
			authmocks.StaticDirectory{DisplayName: "Val", Groups: []string{"Viewers"}},
			authmocks.StaticRoleFetcher{Roles: testRoles},
		)
		sid := f.login(t)
		w := f.do(http.MethodGet, "/api/me", sid, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("eng -> 200", func(t *testing.T) {
		f := janeFixture(t)
		sid := f.login(t)
		w := f.do(http.MethodGet, "/api/me", sid, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t,
			`{"user_name":"Jane","groups":["Engineers"],"role":{"role_name":"eng","may_see_app":true}}`,
			w.Body.String())
	})
}

func TestRouter_LoginRedirectsToProvider(t *testing.T) {
	f := janeFixture(t)

	w := f.do(http.MethodGet, "/auth/login", "", nil)
	require.Equal(t, http.StatusFound, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), f.provider.AuthURL))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, service.DefaultLoginScope, loc.Query().Get("scope"))

	st, err := f.store.Get(context.Background(), sessionCookie(t, w).Value)
	require.NoError(t, err)
	assert.Equal(t, state, st.PendingState)
}

func TestRouter_LoginStateMismatchIsRejected(t *testing.T) {
	f := janeFixture(t)

	w := f.do(http.MethodGet, "/auth/login", "", nil)
	sid := sessionCookie(t, w).Value

	w = f.do(http.MethodGet, "/?code=ABC123&state=forged", sid, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Empty(t, f.provider.Exchanges())

	w = f.do(http.MethodGet, "/auth/status", sid, nil)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}

func TestRouter_LoginWhenSignedInGoesHome(t *testing.T) {
	f := janeFixture(t)
	sid := f.login(t)

	w := f.do(http.MethodGet, "/auth/login", sid, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestRouter_Logout(t *testing.T) {
	t.Run("browser", func(t *testing.T) {
		f := janeFixture(t)
		sid := f.login(t)

		w := f.do(http.MethodPost, "/auth/logout", sid, nil)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))
		assert.Negative(t, sessionCookie(t, w).MaxAge)

		_, err := f.store.Get(context.Background(), sid)
		assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	})

	t.Run("ajax", func(t *testing.T) {
		f := janeFixture(t)
		sid := f.login(t)

		w := f.do(http.MethodPost, "/auth/logout", sid, http.Header{"Accept": {"application/json"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"success","redirect_to":"/"}`, w.Body.String())
	})
}

func TestRouter_Health(t *testing.T) {
	f := janeFixture(t)

	w := f.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","role_registry":"unfetched"}`, w.Body.String())

	sid := f.login(t)
	f.do(http.MethodGet, "/", sid, nil)
	w = f.do(http.MethodGet, "/healthz", "", nil)
	assert.JSONEq(t, `{"status":"ok","role_registry":"populated"}`, w.Body.String())

	w = f.do(http.MethodHead, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestRouter_SessionStoreUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "s1").Return(domainauth.SessionState{}, errors.New("redis: connection refused"))

	sc, err := service.NewSessionController(service.SessionControllerOptions{
		Provider:  mocks.NewMockIdentityProvider(ctrl),
		Directory: mocks.NewMockDirectoryClient(ctrl),
		Registry:  service.NewRoleRegistry(service.RoleRegistryOptions{Fetcher: mocks.NewMockRoleFetcher(ctrl)}),
		Resolver:  authroles.FirstMatchResolver{},
		Sessions:  store,
		Logger:    discardLogger(),
	})
	require.NoError(t, err)
	handler := NewRouter(RouterServices{
		Sessions: sc,
		Renderer: newTestRenderer(t),
		Cookie:   SessionCookie{Name: testCookie, TTL: time.Hour},
		Logger:   discardLogger(),
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: testCookie, Value: "s1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "session_unavailable")
}
