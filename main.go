package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/app"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/logging"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	slog.Info("starting orchestrator",
		"port", cfg.HTTPPort,
		"database", cfg.DatabaseURL,
		"data_dir", cfg.DataDir,
		"sync_enabled", cfg.SyncEnabled,
		"deploy_mode", cfg.DeployMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize orchestrator", "err", err)
		os.Exit(1)
	}

	if err := a.Start(ctx, fmt.Sprintf(":%d", cfg.HTTPPort)); err != nil {
		slog.Error("failed to start control plane", "err", err)
		_ = a.Shutdown(context.Background())
		os.Exit(1)
	}

	// Wait for interrupt signal or a server failure
	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("shutting down orchestrator")
	case err := <-a.Err():
		if err != nil {
			slog.Error("control plane failed", "err", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown finished with errors", "err", err)
		exitCode = 1
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
