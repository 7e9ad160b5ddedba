// Copyright (c) 2026 NextDash. All rights reserved.

// Command api is the entry point for the NextDash HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire domain services and HTTP handlers.
//  7. Start the expiry sweeper.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nextdash/nextdash/internal/api"
	"github.com/nextdash/nextdash/internal/auth"
	"github.com/nextdash/nextdash/internal/identity"
	"github.com/nextdash/nextdash/internal/notification"
	"github.com/nextdash/nextdash/internal/platform/config"
	"github.com/nextdash/nextdash/internal/platform/constants"
	"github.com/nextdash/nextdash/internal/platform/mail"
	"github.com/nextdash/nextdash/internal/platform/migration"
	pgstore "github.com/nextdash/nextdash/internal/platform/postgres"
	redisstore "github.com/nextdash/nextdash/internal/platform/redis"
	"github.com/nextdash/nextdash/internal/platform/sec"
	"github.com/nextdash/nextdash/internal/settings"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Security Primitives ────────────────────────────────────────────
	signer, err := sec.NewTokenService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		constants.AuthIssuer,
	)
	must(log, err, "initialize token service")

	hasher := sec.NewPasswordHasher(cfg.BcryptCost)
	mailer := mail.NewLogMailer(log)

	// ── 7. Health Handlers ────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	accountRepository := auth.NewAccountRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	tokenRepository := auth.NewEphemeralTokenRepository(pool)
	authService := auth.NewService(
		accountRepository,
		sessionRepository,
		tokenRepository,
		signer,
		hasher,
		mailer,
		auth.Config{
			SessionTTL:           cfg.SessionTTL,
			ResetTokenTTL:        cfg.ResetTokenTTL,
			VerificationTokenTTL: cfg.VerificationTokenTTL,
			AppBaseURL:           cfg.AppBaseURL,
		},
	)
	authHandler := auth.NewHandler(authService)

	userRepository := identity.NewUserRepository(pool)
	roleRepository := identity.NewRoleRepository(pool)
	identityService := identity.NewService(userRepository, roleRepository, hasher, mailer, authService)
	identityHandler := identity.NewHandler(identityService)

	notificationRepository := notification.NewRepository(pool)
	notificationService := notification.NewService(notificationRepository)
	notificationHandler := notification.NewHandler(notificationService)

	adminSettingsRepository := settings.NewAdminRepository(pool)
	userSettingsRepository := settings.NewUserRepository(pool)
	settingsService := settings.NewService(adminSettingsRepository, userSettingsRepository, rdb)
	settingsHandler := settings.NewHandler(settingsService)

	// ── 9. Expiry Sweeper ─────────────────────────────────────────────────
	// Purges dead sessions, ephemeral tokens, and expired notifications.
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	go runSweeper(sweeperCtx, log, authService, notificationService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:     liveness,
		Readiness:    readiness,
		Auth:         authHandler,
		Identity:     identityHandler,
		Notification: notificationHandler,
		Settings:     settingsHandler,
	}

	server := api.NewServer(sweeperCtx, cfg, log, authService, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// runSweeper periodically purges expired sessions, ephemeral tokens, and
// notifications until ctx is cancelled.
func runSweeper(ctx context.Context, log *slog.Logger, authService *auth.Service, notificationService *notification.Service) {
	ticker := time.NewTicker(constants.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, tokens, err := authService.SweepExpired(ctx)
			if err != nil {
				log.Error("expiry_sweep_failed", slog.Any("error", err))
			} else if sessions > 0 || tokens > 0 {
				log.Info("expiry_sweep_completed",
					slog.Int64("sessions_removed", sessions),
					slog.Int64("tokens_removed", tokens),
				)
			}

			removed, err := notificationService.SweepExpired(ctx, time.Now())
			if err != nil {
				log.Error("notification_sweep_failed", slog.Any("error", err))
			} else if removed > 0 {
				log.Info("notification_sweep_completed", slog.Int64("removed", removed))
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
