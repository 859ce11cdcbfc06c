// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atelierline/portal/internal/account"
	"github.com/atelierline/portal/internal/admin"
	"github.com/atelierline/portal/internal/audit"
	"github.com/atelierline/portal/internal/auth"
	"github.com/atelierline/portal/internal/config"
	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/health"
	"github.com/atelierline/portal/internal/lead"
	"github.com/atelierline/portal/internal/middleware"
	"github.com/atelierline/portal/internal/notify"
	"github.com/atelierline/portal/internal/payment"
	"github.com/atelierline/portal/internal/project"
	"github.com/atelierline/portal/internal/provision"
	"github.com/atelierline/portal/internal/recommend"
	"github.com/atelierline/portal/internal/server"
	"github.com/atelierline/portal/internal/webhook"
	"github.com/atelierline/portal/internal/workspace"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	metrics := core.NewMetrics()

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	notifier, err := notify.NewDispatcher(cfg.Mail, logger)
	if err != nil {
		return err
	}

	if cfg.Webhook.Secret == "" {
		logger.Warn("payment webhook secret not configured, payment events will be rejected")
	}

	accountSvc := account.NewService(account.NewRepository(db.DB))
	authSvc := auth.NewService(jwtManager, accountSvc)
	authHandler := auth.NewHandler(authSvc)

	engine := recommend.NewEngine(metrics)
	leadRepo := lead.NewRepository(db.DB)
	leadHandler := lead.NewHandler(lead.NewService(leadRepo, engine))

	coordinator := provision.NewCoordinator(provision.Deps{
		UnitOfWork: provision.NewUnitOfWork(db.DB),
		Notifier:   notifier,
		Workspace:  workspace.NewProvisioner(cfg.Notion),
		Metrics:    metrics,
		Logger:     logger,
		Config: provision.Config{
			DefaultTier:    cfg.Provisioning.DefaultTier,
			UnknownAddress: cfg.Provisioning.UnknownAddress,
			PortalURL:      cfg.Provisioning.PortalURL,
		},
	})

	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		Verifier:  webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance),
		Converter: coordinator,
		Seen:      core.NewKeyStore(redis.Client, "webhook:seen:", cfg.Webhook.SeenTTL),
		Metrics:   metrics,
		Logger:    logger,
	})

	projectRepo := project.NewRepository(db.DB)
	portalHandler := project.NewHandler(projectRepo)
	auditHandler := audit.NewHandler(audit.NewRepository(db.DB))

	healthHandler := health.NewHandler(
		health.Check{Name: "database", Ping: db.Ping},
		health.Check{Name: "redis", Ping: redis.Ping},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Projects:   projectRepo,
		Revenue:    payment.NewRepository(db.DB),
		Leads:      leadRepo,
		Notices:    coordinator,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())
	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	globalLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:  "global",
		Limit: middleware.PerMinute(
			cfg.RateLimit.Requests,
			cfg.RateLimit.Burst,
		),
		FailOpen: true,
		Logger:   logger,
	}).Handler

	intakeLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:  "intake",
		Limit: middleware.PerHour(
			cfg.RateLimit.IntakeRequests,
			cfg.RateLimit.IntakeRequests,
		),
		KeyFunc:  middleware.KeyByIPAndRoute,
		FailOpen: true,
		Logger:   logger,
	}).Handler

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/v1", func(r chi.Router) {
		// Payment provider retries must never be throttled.
		webhookHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(globalLimit)

			authHandler.RegisterRoutes(r, authenticator)
			leadHandler.RegisterRoutes(r, intakeLimit)
			portalHandler.RegisterRoutes(r, authenticator)

			leadHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
			auditHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
			adminHandler.RegisterRoutes(r, authenticator, adminOnly)
		})
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
