package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/target/rolegate/config"
	"github.com/target/rolegate/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger("info")
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.InitLogger(cfg.LogLevel)
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logStartupInfo(ctx, logger, &cfg)

	auth, err := bootstrap.BuildAuth(ctx, bootstrap.AuthConfig{Config: &cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := auth.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close auth components failed", "error", cerr)
		}
	}()

	server, err := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config:     &cfg,
		Controller: auth.Controller,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit

	return bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
		Context: ctx,
		Server:  server,
		Timeout: cfg.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting rolegate",
		"addr", cfg.HTTP.Addr,
		"tenant_id", cfg.OAuth.TenantID,
		"roles_backend", cfg.Roles.Backend,
		"session_store", cfg.Session.Store,
		"dev", cfg.IsDev,
	)
}
