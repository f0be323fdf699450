// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/communityshare/server/internal/admin"
	"github.com/communityshare/server/internal/auth"
	"github.com/communityshare/server/internal/config"
	"github.com/communityshare/server/internal/conversation"
	"github.com/communityshare/server/internal/core"
	"github.com/communityshare/server/internal/health"
	"github.com/communityshare/server/internal/institution"
	"github.com/communityshare/server/internal/mail"
	"github.com/communityshare/server/internal/middleware"
	"github.com/communityshare/server/internal/resource"
	"github.com/communityshare/server/internal/search"
	"github.com/communityshare/server/internal/secret"
	"github.com/communityshare/server/internal/server"
	"github.com/communityshare/server/internal/upload"
	"github.com/communityshare/server/internal/user"
)

const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	if cfg.Database.Migrate {
		if err := core.Migrate(ctx, db, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	rdb, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}

	secretStore := secret.NewStore(db.DB)
	userRepo := user.NewRepository(db.DB)
	searchRepo := search.NewRepository(db.DB)
	institutionRepo := institution.NewRepository(db.DB)
	associationRepo := institution.NewAssociationRepository(db.DB)
	conversationRepo := conversation.NewRepository(db.DB)
	messageRepo := conversation.NewMessageRepository(db.DB)

	mailer := mail.New(cfg.Mail, logger)

	userRes := user.NewResource(userRepo, searchRepo)
	searchRes := search.NewResource(searchRepo)
	institutionRes := institution.NewResource(institutionRepo)
	associationRes := institution.NewAssociationResource(
		associationRepo,
		institutionRepo,
		institutionRes,
	)
	messageRes := conversation.NewMessageResource(
		messageRepo,
		conversationRepo,
		userRepo,
		mailer,
		logger,
	)
	conversationRes := conversation.NewResource(
		conversationRepo,
		messageRepo,
		messageRes,
		userRepo,
		userRes,
	)

	resource.SetRequesterSerializer(
		func(ctx context.Context, req *resource.Requester) (map[string]any, error) {
			self, err := userRepo.GetByID(ctx, req.ID)
			if err != nil {
				return nil, err
			}
			return userRes.SerializeAdmin(ctx, self, req)
		},
	)

	resolver := auth.NewResolver(userRepo, secretStore, logger)
	authHandler := auth.NewHandler(
		userRepo,
		userRes,
		secretStore,
		mailer,
		cfg.App.BaseURL,
		logger,
	)

	healthHandler := health.NewHandler(db, rdb)
	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: rdb.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  rdb.Ping,
		Secrets:    secretStore,
	})

	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)
	rateLimiter := middleware.NewRateLimiter(rdb.Client, middleware.RateLimitConfig{
		Limit:    middleware.PerMinute(cfg.RateLimit.Requests, cfg.RateLimit.Burst),
		KeyFunc:  middleware.KeyByRequester,
		FailOpen: true,
	})

	srv := server.New(server.Config{
		ServerConfig: cfg.Server,
		Logger:       logger,
	})

	r := srv.Router()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Handler)
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	healthHandler.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(resolver.Middleware)
		r.Use(rateLimiter.Handler)

		authHandler.RegisterRoutes(r)
		adminHandler.RegisterRoutes(r)

		resource.Register(r, userRes)
		resource.Register(r, searchRes)
		resource.Register(r, institutionRes)
		resource.Register(r, associationRes)
		resource.Register(r, conversationRes)
		resource.Register(r, messageRes)

		if cfg.S3.Enabled {
			uploads, err := upload.NewService(ctx, cfg.S3)
			if err != nil {
				logger.Error("init uploads", slog.Any("error", err))
				return
			}
			upload.NewHandler(uploads).RegisterRoutes(r)
		}
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	healthHandler.SetShutdown(true)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", slog.Any("error", err))
	}

	if err := rdb.Close(); err != nil {
		logger.Error("redis close", slog.Any("error", err))
	}

	if err := db.Close(); err != nil {
		logger.Error("database close", slog.Any("error", err))
	}

	logger.Info("stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
