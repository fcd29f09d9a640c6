package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/asset-desk-api/api/swagger"
	"github.com/noah-isme/asset-desk-api/internal/handler"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	"github.com/noah-isme/asset-desk-api/internal/service"
	"github.com/noah-isme/asset-desk-api/pkg/cache"
	"github.com/noah-isme/asset-desk-api/pkg/config"
	"github.com/noah-isme/asset-desk-api/pkg/database"
	"github.com/noah-isme/asset-desk-api/pkg/events"
	"github.com/noah-isme/asset-desk-api/pkg/jobs"
	"github.com/noah-isme/asset-desk-api/pkg/logger"
	"github.com/noah-isme/asset-desk-api/pkg/warranty"
)

// @title Asset Desk API
// @version 1.0.0
// @description Internal asset management: lifecycle, assignments, requests, issues and alerts.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.Events.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable; cache and events disabled", zap.Error(err))
			cfg.Cache.Enabled = false
			cfg.Events.Enabled = false
		} else {
			defer redisClient.Close()
		}
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	assetRepo := repository.NewAssetRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	requestRepo := repository.NewAssetRequestRepository(db)
	issueRepo := repository.NewIssueReportRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, cfg.Cache.KeyspacePrefix)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	var publisher events.Publisher
	if cfg.Events.Enabled {
		redisPublisher := events.NewRedisPublisher(redisClient, cfg.Events.ChannelPrefix, jobs.QueueConfig{
			Workers:    cfg.Events.Workers,
			BufferSize: cfg.Events.BufferSize,
			MaxRetries: cfg.Events.MaxRetries,
			Logger:     logr.Named("events"),
		})
		redisPublisher.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			redisPublisher.Stop(stopCtx)
		}()
		publisher = redisPublisher
	}

	opts := []service.ServiceOption{
		service.WithPublisher(publisher),
		service.WithMetrics(metrics),
		service.WithCache(cacheSvc),
		service.WithAuditLogger(auditRepo),
		service.WithAlertWindow(cfg.Alerts.WindowDays),
	}

	authSvc := service.NewAuthService(userRepo, logr, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, opts...)
	userSvc := service.NewUserService(userRepo, validate, logr, opts...)
	referenceSvc := service.NewReferenceService(referenceRepo, validate, logr, opts...)
	assetSvc := service.NewAssetService(assetRepo, userRepo, validate, logr, opts...)
	maintenanceSvc := service.NewMaintenanceService(maintenanceRepo, assetRepo, validate, logr, opts...)
	requestSvc := service.NewRequestService(requestRepo, validate, logr, opts...)
	issueSvc := service.NewIssueService(issueRepo, assetRepo, validate, logr, opts...)
	alertSvc := service.NewAlertService(assetRepo, maintenanceRepo, logr, opts...)
	dashboardSvc := service.NewDashboardService(assetRepo, requestRepo, issueRepo, alertSvc, logr,
		service.DashboardServiceConfig{CacheTTL: cfg.Cache.TTL}, opts...)
	exportSvc := service.NewExportService(assetRepo, cfg.Exports.Enabled, logr, opts...)

	var warrantySvc *service.WarrantyService
	if cfg.Warranty.Enabled {
		client := warranty.NewClient(cfg.Warranty.BaseURL, cfg.Warranty.APIKey, cfg.Warranty.Timeout)
		warrantySvc = service.NewWarrantyService(client, assetRepo, referenceRepo, validate, logr, opts...)
	} else {
		warrantySvc = service.NewWarrantyService(nil, assetRepo, referenceRepo, validate, logr, opts...)
	}

	digestJob, err := service.NewAlertDigestJob(alertSvc, cfg.Alerts.DigestCron, logr)
	if err != nil {
		logr.Fatal("failed to schedule alerts digest", zap.Error(err))
	}
	digestJob.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		digestJob.Stop(stopCtx)
	}()

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	router := newRouter(cfg, logr, metrics, authSvc, auditRepo, handlers{
		users:       handler.NewUserHandler(userSvc),
		references:  handler.NewReferenceHandler(referenceSvc),
		assets:      handler.NewAssetHandler(assetSvc),
		warranty:    handler.NewWarrantyHandler(warrantySvc),
		maintenance: handler.NewMaintenanceHandler(maintenanceSvc),
		requests:    handler.NewRequestHandler(requestSvc),
		issues:      handler.NewIssueHandler(issueSvc),
		alerts:      handler.NewAlertHandler(alertSvc),
		dashboard:   handler.NewDashboardHandler(dashboardSvc),
		exports:     handler.NewExportHandler(exportSvc),
		metrics:     handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
