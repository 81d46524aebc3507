package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/target/rolegate/config"
	"github.com/target/rolegate/internal/adapters/authroles"
	"github.com/target/rolegate/internal/adapters/entra"
	"github.com/target/rolegate/internal/adapters/graph"
	"github.com/target/rolegate/internal/adapters/memory"
	redisadapter "github.com/target/rolegate/internal/adapters/redis"
	"github.com/target/rolegate/internal/adapters/rolestore"
	"github.com/target/rolegate/internal/observability/statsd"
	"github.com/target/rolegate/internal/ports"
	"github.com/target/rolegate/internal/service"
	"github.com/target/rolegate/internal/sessioncrypt"
)

// AuthConfig contains configuration for the auth components.
type AuthConfig struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// AuthComponents holds the wired auth stack.
type AuthComponents struct {
	Provider   *entra.Client
	Directory  *graph.Client
	Roles      ports.RoleFetcher
	Registry   *service.RoleRegistry
	Sessions   ports.SessionStore
	Controller *service.SessionController
	Metrics    *statsd.Client

	// Redis is set when sessions are kept in Redis.
	Redis redis.UniversalClient
}

// Close releases network resources held by the components.
func (c *AuthComponents) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close statsd: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BuildAuth wires the identity provider, directory, role source, role registry, session store
// and session controller from cfg.
func BuildAuth(ctx context.Context, cfg AuthConfig) (*AuthComponents, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	appCfg := cfg.Config
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics, err := NewMetricsClient(appCfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}
	out := &AuthComponents{Metrics: metrics}

	hc := NewHTTPClient(appCfg)
	if out.Provider, err = BuildIdentityProvider(ctx, appCfg, hc, metrics, logger); err != nil {
		return nil, errors.Join(err, out.Close())
	}
	out.Directory = graph.NewClient(graph.Config{
		BaseURL:    appCfg.Graph.BaseURL,
		HTTPClient: hc,
		Logger:     logger,
	})
	if out.Roles, err = BuildRoleSource(ctx, appCfg, hc, metrics, logger); err != nil {
		return nil, errors.Join(err, out.Close())
	}
	out.Registry = service.NewRoleRegistry(service.RoleRegistryOptions{
		Fetcher:      out.Roles,
		Logger:       logger,
		FetchTimeout: appCfg.HTTPClientTimeout,
	})

	if out.Sessions, out.Redis, err = BuildSessionStore(ctx, appCfg, logger); err != nil {
		return nil, errors.Join(err, out.Close())
	}

	out.Controller, err = service.NewSessionController(service.SessionControllerOptions{
		Provider:     out.Provider,
		Directory:    out.Directory,
		Registry:     out.Registry,
		Resolver:     authroles.FirstMatchResolver{},
		Sessions:     out.Sessions,
		LoginScope:   appCfg.OAuth.LoginScope,
		StorageScope: appCfg.Roles.StorageScope,
		SessionTTL:   appCfg.Session.TTL,
		Metrics:      metrics,
		Logger:       logger,

		RequireLoginState: appCfg.OAuth.RequireState,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build session controller: %w", err), out.Close())
	}

	logger.Info("auth configured",
		"tenant_id", appCfg.OAuth.TenantID,
		"roles_backend", appCfg.Roles.Backend,
		"session_store", appCfg.Session.Store,
		"discovery", appCfg.OAuth.DiscoveryEnabled,
	)
	return out, nil
}

// NewHTTPClient returns the client shared by all outbound calls, bounded by HTTP_CLIENT_TIMEOUT.
func NewHTTPClient(cfg *config.AppConfig) *http.Client {
	return &http.Client{Timeout: cfg.HTTPClientTimeout}
}

// NewMetricsClient creates the StatsD client. A disabled configuration yields a client that
// drops every metric.
func NewMetricsClient(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}
	return client, nil
}

// BuildIdentityProvider creates the tenant OAuth client.
func BuildIdentityProvider(
	ctx context.Context,
	cfg *config.AppConfig,
	hc *http.Client,
	metrics statsd.Sink,
	logger *slog.Logger,
) (*entra.Client, error) {
	client, err := entra.NewClient(ctx, entra.Config{
		ClientID:         cfg.OAuth.ClientID,
		ClientSecret:     cfg.OAuth.ClientSecret,
		TenantID:         cfg.OAuth.TenantID,
		RedirectURL:      cfg.OAuth.RedirectURL,
		AuthorityHost:    cfg.OAuth.AuthorityHost,
		DiscoveryEnabled: cfg.OAuth.DiscoveryEnabled,
		HTTPClient:       hc,
		Metrics:          metrics,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build identity provider: %w", err)
	}
	return client, nil
}

// BuildRoleSource creates the role document reader for the configured backend.
//
//nolint:ireturn // the backend is chosen at runtime.
func BuildRoleSource(
	ctx context.Context,
	cfg *config.AppConfig,
	hc *http.Client,
	metrics statsd.Sink,
	logger *slog.Logger,
) (ports.RoleFetcher, error) {
	switch cfg.Roles.Backend {
	case config.RolesBackendS3:
		src, err := rolestore.NewS3Source(ctx, rolestore.S3Config{
			Bucket:       cfg.Roles.S3.Bucket,
			Key:          cfg.Roles.S3.Key,
			Region:       cfg.Roles.S3.Region,
			Endpoint:     cfg.Roles.S3.Endpoint,
			UsePathStyle: cfg.Roles.S3.UsePathStyle,
			AccessKey:    cfg.Roles.S3.AccessKey,
			SecretKey:    cfg.Roles.S3.SecretKey,
			Selector:     cfg.Roles.Selector,
			Metrics:      metrics,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build s3 role source: %w", err)
		}
		return src, nil
	case config.RolesBackendBlob, "":
		src, err := rolestore.NewBlobSource(rolestore.BlobConfig{
			AccountName: cfg.Roles.StorageAccountName,
			Container:   cfg.Roles.ContainerName,
			Path:        cfg.Roles.FilePath,
			Endpoint:    cfg.Roles.BlobEndpoint,
			Selector:    cfg.Roles.Selector,
			HTTPClient:  hc,
			Metrics:     metrics,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build blob role source: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unsupported roles backend %q", cfg.Roles.Backend)
	}
}

// BuildSessionStore creates the configured session store. The Redis client is returned so the
// caller can close it; it is nil for the in-memory store.
//
//nolint:ireturn // the store is chosen at runtime.
func BuildSessionStore(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (ports.SessionStore, redis.UniversalClient, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		sealer, err := NewSessionSealer(cfg.Session.EncryptionKey, logger)
		if err != nil {
			return nil, nil, err
		}
		client, err := ConnectRedis(ctx, RedisConnConfig{Redis: cfg.Redis, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect session redis: %w", err)
		}
		return redisadapter.NewSealedSessionStore(client, cfg.Session.KeyPrefix, sealer), client, nil
	case config.SessionStoreMemory, "":
		return memory.NewSessionStore(cfg.Session.MaxEntries, cfg.Session.TTL), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store %q", cfg.Session.Store)
	}
}

// NewSessionSealer returns the sealer for persisted sessions. An empty key stores payloads in
// the clear, with a warning.
//
//nolint:ireturn // sealing is optional.
func NewSessionSealer(key string, logger *slog.Logger) (sessioncrypt.Sealer, error) {
	if key == "" {
		if logger != nil {
			logger.Warn("SESSION_ENCRYPTION_KEY is empty, session tokens are stored unencrypted")
		}
		return sessioncrypt.PlainSealer{}, nil
	}
	keyBytes, err := sessioncrypt.KeyFromString(key)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	sealer, err := sessioncrypt.NewAEADSealer(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create session sealer: %w", err)
	}
	return sealer, nil
}
