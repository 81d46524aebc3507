package entra

// Package entra talks to a Microsoft Entra ID tenant's OAuth2 v2.0 endpoints.
// It implements the authorization-code, refresh-token and client-credentials grants
// and keeps the resulting tokens in the caller's session state.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/rolegate/internal/domain/auth"
	"github.com/target/rolegate/internal/observability/metrics"
	"github.com/target/rolegate/internal/observability/statsd"
	"github.com/target/rolegate/internal/ports"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultAuthorityHost is the public-cloud login host.
const DefaultAuthorityHost = "https://login.microsoftonline.com"

// OfflineAccessScope asks the provider to issue a refresh token.
const OfflineAccessScope = "offline_access"

const missingAccessTokenMsg = "server response missing access_token"

// Config holds configuration for the tenant client.
type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURL  string
	// AuthorityHost defaults to DefaultAuthorityHost.
	AuthorityHost string
	// DiscoveryEnabled resolves the endpoints from the tenant's OpenID configuration
	// instead of deriving them from the authority host.
	DiscoveryEnabled bool
	HTTPClient       *http.Client // Optional, defaults to a client with a 30s timeout
	Metrics          statsd.Sink
	Logger           *slog.Logger
}

// Client implements ports.IdentityProvider for a single tenant.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	metrics    statsd.Sink
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.IdentityProvider = (*Client)(nil)

// NewClient validates cfg and resolves the tenant endpoints.
// Discovery performs one network round-trip; the static layout does none.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.TenantID == "" {
		return nil, errors.New("tenant ID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	authority := strings.TrimSuffix(strings.TrimSpace(cfg.AuthorityHost), "/")
	if authority == "" {
		authority = DefaultAuthorityHost
	}
	tenantBase := authority + "/" + url.PathEscape(cfg.TenantID)

	endpoint := oauth2.Endpoint{
		AuthURL:  tenantBase + "/oauth2/v2.0/authorize",
		TokenURL: tenantBase + "/oauth2/v2.0/token",
	}
	if cfg.DiscoveryEnabled {
		op, err := gooidc.NewProvider(context.WithValue(ctx, oauth2.HTTPClient, httpClient), tenantBase+"/v2.0")
		if err != nil {
			return nil, fmt.Errorf("discover tenant endpoints: %w", err)
		}
		endpoint = op.Endpoint()
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
		},
		httpClient: httpClient,
		metrics:    cfg.Metrics,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// AuthorizationURL returns the browser redirect that starts the authorization-code flow.
// The state parameter is omitted when empty.
func (c *Client) AuthorizationURL(scope, state string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("scope", scope),
		oauth2.SetAuthURLParam("form_post", "query"),
	}
	authURL := c.oauth.AuthCodeURL(state, opts...)
	c.logger.Info("built authorization url", "scope", scope)
	return authURL
}

// ExchangeCode redeems a one-time authorization code. A provider response without an access
// token yields domainauth.ErrTokenDenied; transport failures are returned as is.
func (c *Client) ExchangeCode(ctx context.Context, st *domainauth.SessionState, code, scope string) (string, error) {
	if code == "" {
		return "", errors.New("authorization code is required")
	}

	start := c.now()
	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code, oauth2.SetAuthURLParam("scope", scope))
	if err != nil {
		if isDenied(err) {
			c.emit(metrics.GrantAuthorizationCode, metrics.ResultDenied, start, nil)
			c.logger.WarnContext(ctx, "code exchange denied", "error", err)
			return "", fmt.Errorf("exchange code: %w", domainauth.ErrTokenDenied)
		}
		c.emit(metrics.GrantAuthorizationCode, metrics.ResultError, start, err)
		return "", fmt.Errorf("exchange code: %w", err)
	}
	c.emit(metrics.GrantAuthorizationCode, metrics.ResultSuccess, start, nil)

	st.RefreshToken = tok.RefreshToken
	st.UserAccessToken = tok.AccessToken
	st.UserCurrentScope = scope
	c.logger.DebugContext(ctx, "code exchanged",
		"session_id", st.ID,
		"has_refresh_token", tok.RefreshToken != "",
		"expires_in", tok.ExpiresIn,
	)
	return tok.AccessToken, nil
}

// AppToken returns an application-only token for scope. The token stored in st is reused only
// when it was issued for exactly the same scope string. Any failure is a hard error.
func (c *Client) AppToken(ctx context.Context, st *domainauth.SessionState, scope string) (string, error) {
	if !st.LoggedIn {
		return "", domainauth.ErrNotAuthenticated
	}
	if st.AppAccessToken != "" && st.AppCurrentScope == scope {
		c.emit(metrics.GrantClientCredentials, metrics.ResultCached, time.Time{}, nil)
		return st.AppAccessToken, nil
	}

	tok, err := c.ClientCredentialsToken(ctx, scope)
	if err != nil {
		return "", err
	}
	st.AppAccessToken = tok
	st.AppCurrentScope = scope
	return tok, nil
}

// ClientCredentialsToken runs the client-credentials grant without consulting any session.
func (c *Client) ClientCredentialsToken(ctx context.Context, scope string) (string, error) {
	cc := c.clientCredentials(scope, nil)

	start := c.now()
	tok, err := cc.Token(c.withHTTPClient(ctx))
	if err != nil {
		c.emit(metrics.GrantClientCredentials, metrics.ResultError, start, err)
		return "", fmt.Errorf("acquire app token: %w", err)
	}
	c.emit(metrics.GrantClientCredentials, metrics.ResultSuccess, start, nil)
	return tok.AccessToken, nil
}

// UserToken returns a delegated token for scope, refreshing when the stored token was issued
// for a different scope. The refresh token is rotated on every refresh.
func (c *Client) UserToken(ctx context.Context, st *domainauth.SessionState, scope string) (string, error) {
	if !st.LoggedIn {
		return "", domainauth.ErrNotAuthenticated
	}
	if st.RefreshToken == "" {
		return "", domainauth.ErrNoRefreshToken
	}
	if st.UserAccessToken != "" && st.UserCurrentScope == scope {
		c.emit(metrics.GrantRefreshToken, metrics.ResultCached, time.Time{}, nil)
		return st.UserAccessToken, nil
	}

	cc := c.clientCredentials(WithOfflineAccess(scope), url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {st.RefreshToken},
	})

	start := c.now()
	tok, err := cc.Token(c.withHTTPClient(ctx))
	if err != nil {
		c.emit(metrics.GrantRefreshToken, metrics.ResultError, start, err)
		return "", fmt.Errorf("refresh user token: %w", err)
	}
	if tok.RefreshToken == "" {
		err := errors.New("refresh response did not rotate the refresh token")
		c.emit(metrics.GrantRefreshToken, metrics.ResultError, start, err)
		return "", err
	}
	c.emit(metrics.GrantRefreshToken, metrics.ResultSuccess, start, nil)

	st.RefreshToken = tok.RefreshToken
	st.UserAccessToken = tok.AccessToken
	st.UserCurrentScope = scope
	return tok.AccessToken, nil
}

// WithOfflineAccess prefixes scope with offline_access unless it is already requested.
func WithOfflineAccess(scope string) string {
	fields := strings.Fields(scope)
	if slices.Contains(fields, OfflineAccessScope) {
		return scope
	}
	return strings.TrimSpace(OfflineAccessScope + " " + scope)
}

// clientCredentials builds a token request against the tenant token endpoint. The grant_type
// may be overridden through params, which lets refresh requests carry an explicit scope.
func (c *Client) clientCredentials(scope string, params url.Values) *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:       c.oauth.ClientID,
		ClientSecret:   c.oauth.ClientSecret,
		TokenURL:       c.oauth.Endpoint.TokenURL,
		Scopes:         strings.Fields(scope),
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) emit(grant, result string, start time.Time, err error) {
	m := metrics.TokenGrantMetric{Grant: grant, Result: result, Err: err}
	if !start.IsZero() {
		m.Duration = c.now().Sub(start)
	}
	metrics.EmitTokenGrant(c.metrics, m)
}

// isDenied reports whether the provider answered but refused to issue a token:
// an OAuth error body, a 4xx status, or a success body without access_token.
func isDenied(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode != "" {
			return true
		}
		return re.Response != nil && re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
	}
	return strings.Contains(err.Error(), missingAccessTokenMsg)
}
