package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/site-analyzer/portal/internal/config"
	"github.com/site-analyzer/portal/internal/http/handler"
	"github.com/site-analyzer/portal/internal/http/router"
	"github.com/site-analyzer/portal/internal/observability"
	"github.com/site-analyzer/portal/internal/realtime"
	"github.com/site-analyzer/portal/internal/repository"
	"github.com/site-analyzer/portal/internal/security"
	"github.com/site-analyzer/portal/internal/service"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Gateway       *realtime.Gateway
	Observability *observability.Runtime

	redis *redis.Client
}

// New wires the whole service. The gateway is constructed here exactly once
// and handed by reference to the capture middleware and the websocket
// handler.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, loggerProvider, err := observability.InitLogger(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	runtime, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	runtime.LoggerProvider = loggerProvider

	db, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	users := repository.NewUserRepository(db)
	traffic := repository.NewTrafficRepository(db)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("revocation store unreachable: %w", err)
	}
	revocations := service.NewRedisRevocationStore(redisClient, "refresh_token")

	jwtMgr := security.NewJWTManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret)
	tokens := service.NewTokenService(jwtMgr, revocations, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	auth := service.NewAuthService(users, tokens)

	gateway := realtime.NewGateway(logger, cfg.BacklogSize, 0)
	recent, err := traffic.Recent(cfg.BacklogSize)
	if err != nil {
		logger.Warn("could not seed live feed backlog", "error", err)
	} else {
		gateway.Seed(recent)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap database handle: %w", err)
	}

	deps := router.Dependencies{
		Logger:               logger,
		AuthHandler:          handler.NewAuthHandler(logger, auth, cfg.RefreshTokenTTL),
		DashboardHandler:     handler.NewDashboardHandler(logger, traffic),
		DownloadHandler:      handler.NewDownloadHandler(logger, cfg.ArtifactPath),
		VersionHandler:       handler.NewVersionHandler(logger, cfg.VersionFilePath),
		WSHandler:            realtime.NewWSHandler(logger, tokens, gateway),
		TokenVerifier:        tokens,
		TrafficRepo:          traffic,
		Gateway:              gateway,
		RateLimitWindow:      cfg.RateLimitWindow,
		RateLimitMaxRequests: cfg.RateLimitMaxRequests,
		ReadinessChecks: map[string]func(context.Context) error{
			"database":         sqlDB.PingContext,
			"revocation_store": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		EnableOTelHTTP: cfg.OTELEnabled,
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Gateway:       gateway,
		Observability: runtime,
		redis:         redisClient,
	}, nil
}
