package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vidora/vidora-api/api/swagger"
	"github.com/vidora/vidora-api/internal/handler"
	"github.com/vidora/vidora-api/internal/media"
	"github.com/vidora/vidora-api/internal/middleware"
	"github.com/vidora/vidora-api/internal/repository"
	"github.com/vidora/vidora-api/internal/service"
	"github.com/vidora/vidora-api/pkg/cache"
	"github.com/vidora/vidora-api/pkg/config"
	"github.com/vidora/vidora-api/pkg/database"
	"github.com/vidora/vidora-api/pkg/jobs"
	"github.com/vidora/vidora-api/pkg/logger"
	corsmiddleware "github.com/vidora/vidora-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vidora/vidora-api/pkg/middleware/requestid"
	"github.com/vidora/vidora-api/pkg/storage"
)

// @title Vidora API
// @version 1.0.0
// @description Identity and session layer for the Vidora media platform
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, channel cache disabled", "error", err)
		redisClient = nil
	}

	spool, err := storage.NewLocalStorage(cfg.Uploads.SpoolDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload spool", "error", err)
	}

	spoolCleanup := jobs.NewScheduler("spool-cleanup", cfg.Uploads.CleanupInterval, func(ctx context.Context) error {
		deleted, err := spool.CleanupOlderThan(cfg.Uploads.SpoolTTL)
		if err != nil {
			return err
		}
		if len(deleted) > 0 {
			logr.Sugar().Infow("swept abandoned spool files", "count", len(deleted))
		}
		return nil
	}, logr)
	spoolCleanup.Start(context.Background())
	defer spoolCleanup.Stop()

	uploader, err := media.NewS3Uploader(context.Background(), cfg.Media)
	if err != nil {
		logr.Sugar().Fatalw("failed to configure media uploader", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Channels.CacheTTL, logr, cfg.Channels.CacheEnabled && redisClient != nil)
	tokenSvc := service.NewTokenService(cfg.Token)
	authSvc := service.NewAuthService(userRepo, tokenSvc, uploader, nil, logr)
	userSvc := service.NewUserService(userRepo, subscriptionRepo, cacheSvc, metricsSvc, uploader, nil, logr, cfg.Channels.CacheTTL)

	secureCookies := cfg.Env == config.EnvProduction
	authHandler := handler.NewAuthHandler(authSvc, spool, cfg.Uploads.MaxFileSizeBytes, cfg.Token.AccessExpiry, cfg.Token.RefreshExpiry, secureCookies)
	userHandler := handler.NewUserHandler(userSvc, spool, cfg.Uploads.MaxFileSizeBytes)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	gate := middleware.Authenticate(tokenSvc, userRepo)
	handler.RegisterRoutes(r, cfg.APIPrefix, authHandler, userHandler, gate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
