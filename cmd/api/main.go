package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/vantag/assistant-gateway/internal/api"
	"github.com/vantag/assistant-gateway/internal/assistant"
	"github.com/vantag/assistant-gateway/internal/audit"
	"github.com/vantag/assistant-gateway/internal/auth"
	"github.com/vantag/assistant-gateway/internal/config"
	"github.com/vantag/assistant-gateway/internal/database"
	"github.com/vantag/assistant-gateway/internal/events"
	"github.com/vantag/assistant-gateway/internal/llm"
	"github.com/vantag/assistant-gateway/internal/middleware"
	"github.com/vantag/assistant-gateway/internal/promo"
	"github.com/vantag/assistant-gateway/internal/quota"
	"github.com/vantag/assistant-gateway/internal/rates"
	iredis "github.com/vantag/assistant-gateway/internal/redis"
	"github.com/vantag/assistant-gateway/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional; without it events are dropped and the audit trail
	// is simply not written.
	auditRepo := audit.NewRepository(pool)
	var publisher *events.Publisher
	var eventsHealthy func() bool
	if cfg.NATS.URL != "" {
		natsClient, err := events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher = events.NewPublisher(natsClient.JetStream())
		eventsHealthy = natsClient.Healthy

		consumerMgr := events.NewConsumerManager(natsClient.JetStream())
		auditConsumer := audit.NewConsumer(auditRepo, consumerMgr)
		go func() {
			if err := auditConsumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	} else {
		slog.Info("NATS not configured, usage events disabled")
	}

	// Assistant
	usageRepo := quota.NewRepository(pool)
	modelClient := llm.NewHTTPClient(cfg.LLM)
	chatSvc := assistant.NewService(usageRepo, modelClient, publisher)
	chatHandler := assistant.NewHandler(chatSvc)
	quotaHandler := quota.NewHandler(usageRepo, publisher)

	// Exchange rates
	ratesStore := rates.NewStore(redisClient)
	ratesSvc := rates.NewService(rates.NewFetcher(), ratesStore)
	ratesHandler := rates.NewHandler(ratesSvc, ratesStore)
	if cfg.Rates.Enabled {
		go rates.NewJob(ratesSvc, cfg.Rates.Interval).Run(ctx)
	}

	// Admin
	promoHandler := promo.NewHandler(promo.NewRepository(pool), publisher)
	auditHandler := audit.NewHandler(auditRepo)
	var tokenManager *auth.TokenManager
	if cfg.Admin.JWTSecret != "" {
		tokenManager = auth.NewTokenManager(cfg.Admin.JWTSecret)
	}

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.ChatMaxPerMinute, 60)

	router := api.NewRouter(pool, redisClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		ChatRateLimiter:    rateLimiter.Middleware,
		EventsHealthy:      eventsHealthy,
	}, api.HandlerSet{
		Chat:        chatHandler.Chat,
		QuotaStatus: quotaHandler.Status,

		GetRates:     ratesHandler.Get,
		RefreshRates: ratesHandler.Refresh,

		GrantPromo: promoHandler.Grant,
		AddCredits: quotaHandler.AddCredits,
		AuditTrail: auditHandler.ListByUser,

		AdminMiddleware: auth.AdminMiddleware(tokenManager),
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
