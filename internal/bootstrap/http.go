package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/rolegate"
	"github.com/target/rolegate/config"
	httpx "github.com/target/rolegate/internal/http"
	"github.com/target/rolegate/internal/service"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config     *config.AppConfig
	Controller *service.SessionController
	Logger     *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Config == nil || cfg.Controller == nil {
		return nil, errors.New("config and session controller are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := BuildHTTPHandler(cfg.Config, cfg.Controller, logger)
	if err != nil {
		return nil, err
	}

	// Start server (logs "starting HTTP server" internally)
	return startServer(logger, handler, cfg.Config.HTTP.Addr), nil
}

// BuildHTTPHandler assembles the router with its middleware.
// Order: Recover -> Logging -> Router.
func BuildHTTPHandler(cfg *config.AppConfig, ctrl *service.SessionController, logger *slog.Logger) (http.Handler, error) {
	templates, err := fs.Sub(rolegate.TemplateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	renderer, err := httpx.NewTemplateRenderer(httpx.TemplateRendererConfig{TemplateFS: templates, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := httpx.NewRouter(httpx.RouterServices{
		Sessions: ctrl,
		Renderer: renderer,
		Cookie: httpx.SessionCookie{
			Name:   cfg.HTTP.CookieName,
			Domain: cfg.HTTP.CookieDomain,
			TTL:    cfg.Session.TTL,
		},
		RegistryState: ctrl.RegistryState,
		Logger:        logger,
	})

	h := httpx.Logging(logger)(router)
	h = httpx.Recover(logger)(h)
	return h, nil
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, timeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
