package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/partyrush/backend/internal/app"
	"github.com/partyrush/backend/internal/auth"
	"github.com/partyrush/backend/internal/infra"
	"github.com/partyrush/backend/internal/realtime"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	adminExpiry, err := cfg.AdminExpiry()
	if err != nil {
		return err
	}
	bettingWindow, err := cfg.CrashBettingWindow()
	if err != nil {
		return err
	}

	// Connect to Postgres
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	// Apply migrations
	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Realtime fan-out. With NATS configured, broadcasts reach subscribers
	// on every instance; without it the hub stays instance-local.
	hub := realtime.NewHub(logger)
	var pub realtime.Publisher = hub
	if cfg.NATSURL != "" {
		bridge, err := realtime.NewBridge(hub, cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer bridge.Close()
		pub = bridge
		logger.Info("nats fan-out bridge connected", "url", cfg.NATSURL)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, adminExpiry)

	// Router
	r := app.NewRouter(app.RouterDeps{
		Pool:               pool,
		JWTMgr:             jwtMgr,
		Hub:                hub,
		Pub:                pub,
		Logger:             logger,
		MediaDir:           cfg.MediaDir,
		BaseURL:            cfg.BaseURL,
		BettingWindow:      bettingWindow,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	hub.Shutdown(shutdownCtx)

	logger.Info("server stopped gracefully")
	return nil
}
