package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/hms-report-api/api/swagger"
	"github.com/noah-isme/hms-report-api/internal/handler"
	"github.com/noah-isme/hms-report-api/internal/middleware"
	"github.com/noah-isme/hms-report-api/internal/query"
	"github.com/noah-isme/hms-report-api/internal/repository"
	"github.com/noah-isme/hms-report-api/internal/scheduler"
	"github.com/noah-isme/hms-report-api/internal/service"
	"github.com/noah-isme/hms-report-api/pkg/cache"
	"github.com/noah-isme/hms-report-api/pkg/config"
	"github.com/noah-isme/hms-report-api/pkg/database"
	"github.com/noah-isme/hms-report-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hms-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hms-report-api/pkg/middleware/requestid"
	"github.com/noah-isme/hms-report-api/pkg/storage"
)

// @title HMS Report API
// @version 0.1.0
// @description Dynamic report engine for the hospital management suite
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, template cache disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	artifactStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init artifact storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	metrics := service.NewMetrics()

	templateRepo := repository.NewTemplateRepository(db)
	datasetRepo := repository.NewDatasetRepository(db)
	reportRepo := repository.NewGeneratedReportRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	reportSvc := service.NewReportService(service.ReportServiceDeps{
		Templates:        templateRepo,
		Cache:            cacheRepo,
		Datasets:         datasetRepo,
		Reports:          reportRepo,
		Storage:          artifactStore,
		Signer:           signer,
		Registry:         query.NewRegistry(),
		Metrics:          metrics,
		Logger:           logr,
		TemplateCacheTTL: cfg.Templates.CacheTTL,
		ArtifactTTL:      cfg.Reports.ArtifactTTL,
		ReaperInterval:   cfg.Reports.ReaperInterval,
		MaxPageSize:      cfg.Reports.MaxPageSize,
		DownloadBasePath: cfg.APIPrefix + "/export",
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, templateRepo, reportSvc, metrics, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportSvc.StartReaper(ctx)

	if cfg.Scheduler.Enabled {
		runner := scheduler.NewRunner(scheduleSvc, scheduler.Config{
			TickInterval: cfg.Scheduler.TickInterval,
			Workers:      cfg.Scheduler.Workers,
			Logger:       logr,
		})
		if err := runner.Start(ctx); err != nil {
			logr.Sugar().Fatalw("failed to start schedule runner", "error", err)
		}
		defer runner.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	reportHandler := handler.NewReportHandler(reportSvc, logr)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)

	api := r.Group(cfg.APIPrefix)

	// Signed links are self-authenticating; everything else requires a JWT.
	api.GET("/export/:token", reportHandler.Export)

	protected := api.Group("")
	protected.Use(middleware.JWT(cfg.JWT.Secret))
	{
		protected.POST("/reports/generate", reportHandler.Generate)
		protected.GET("/reports/templates", reportHandler.ListTemplates)
		protected.GET("/reports/templates/:id", reportHandler.GetTemplate)
		protected.GET("/reports", reportHandler.History)
		protected.GET("/reports/:id", reportHandler.GetReport)
		protected.GET("/reports/:id/download", reportHandler.Download)

		protected.POST("/schedules", scheduleHandler.Create)
		protected.GET("/schedules", scheduleHandler.List)
		protected.GET("/schedules/:id", scheduleHandler.Get)
		protected.PUT("/schedules/:id", scheduleHandler.Update)
		protected.DELETE("/schedules/:id", scheduleHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
