package config

import (
	"errors"
	"strings"
)

// OAuthConfig contains the tenant OAuth2 client configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	TenantID     string `env:"TENANT_ID"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/"`

	// AuthorityHost is the login host; override for sovereign clouds.
	AuthorityHost string `env:"AUTHORITY_HOST" envDefault:"https://login.microsoftonline.com"`

	// DiscoveryEnabled resolves endpoints from the tenant's OpenID configuration document.
	DiscoveryEnabled bool `env:"DISCOVERY_ENABLED" envDefault:"false"`

	// LoginScope is requested on the authorization redirect and the code exchange.
	LoginScope string `env:"LOGIN_SCOPE" envDefault:"offline_access https://graph.microsoft.com/.default"`

	// RequireState drops authorization codes that do not answer a login this session started.
	RequireState bool `env:"REQUIRE_STATE" envDefault:"false"`
}

// Sanitize trims values and restores defaults cleared by empty env vars.
func (c *OAuthConfig) Sanitize() {
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.TenantID = strings.TrimSpace(c.TenantID)
	c.RedirectURL = strings.TrimSpace(c.RedirectURL)
	c.AuthorityHost = strings.TrimSuffix(strings.TrimSpace(c.AuthorityHost), "/")
	if c.AuthorityHost == "" {
		c.AuthorityHost = "https://login.microsoftonline.com"
	}
	c.LoginScope = strings.Join(strings.Fields(c.LoginScope), " ")
	if c.LoginScope == "" {
		c.LoginScope = "offline_access https://graph.microsoft.com/.default"
	}
}

// Validate reports missing client registration values.
func (c *OAuthConfig) Validate() error {
	var errs []error
	if c.ClientID == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_ID is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("OAUTH_CLIENT_SECRET is required"))
	}
	if c.TenantID == "" {
		errs = append(errs, errors.New("OAUTH_TENANT_ID is required"))
	}
	if c.RedirectURL == "" {
		errs = append(errs, errors.New("OAUTH_REDIRECT_URL is required"))
	}
	return errors.Join(errs...)
}

// GraphConfig locates Microsoft Graph.
type GraphConfig struct {
	BaseURL string `env:"BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
}

// Sanitize restores the default base URL when unset.
func (c *GraphConfig) Sanitize() {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = "https://graph.microsoft.com/v1.0"
	}
}
