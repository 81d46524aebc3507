package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: tenant OAuth and Graph configuration
//   - roles.go: role document location
//   - session.go: session store configuration
//   - redis.go: Redis connection configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (debug logging, insecure cookies).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTPClientTimeout bounds every outbound call to the identity provider, Graph and storage.
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"30s"`

	OAuth OAuthConfig `envPrefix:"OAUTH_"`
	Graph GraphConfig `envPrefix:"GRAPH_"`
	Roles RolesConfig `envPrefix:"ROLES_"`

	Session SessionConfig `envPrefix:"SESSION_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	if c.HTTPClientTimeout <= 0 {
		c.HTTPClientTimeout = 30 * time.Second
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))

	c.OAuth.Sanitize()
	c.Graph.Sanitize()
	c.Roles.Sanitize()
	c.Session.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// Validate reports every missing or inconsistent setting the server cannot start without.
func (c *AppConfig) Validate() error {
	return errors.Join(
		c.OAuth.Validate(),
		c.Roles.Validate(),
		c.Session.Validate(),
	)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
