package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/badge-issuance-api/internal/handler"
	"github.com/noah-isme/badge-issuance-api/internal/middleware"
	"github.com/noah-isme/badge-issuance-api/internal/models"
	"github.com/noah-isme/badge-issuance-api/internal/repository"
	"github.com/noah-isme/badge-issuance-api/internal/service"
	"github.com/noah-isme/badge-issuance-api/pkg/cache"
	"github.com/noah-isme/badge-issuance-api/pkg/config"
	"github.com/noah-isme/badge-issuance-api/pkg/database"
	"github.com/noah-isme/badge-issuance-api/pkg/export"
	"github.com/noah-isme/badge-issuance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/badge-issuance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/badge-issuance-api/pkg/middleware/requestid"
	"github.com/noah-isme/badge-issuance-api/pkg/render"
	"github.com/noah-isme/badge-issuance-api/pkg/storage"
)

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
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, settings cache disabled", "error", err)
		redisClient = nil
	}

	artifacts, err := storage.NewLocalStorage(cfg.Storage.ArtifactDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare artifact storage", "error", err)
	}
	sheets, err := storage.NewLocalStorage(cfg.Storage.SheetDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare sheet storage", "error", err)
	}
	media, err := storage.NewLocalStorage(cfg.Assets.MediaDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare media storage", "error", err)
	}

	// Repositories.
	requestRepo := repository.NewRequestRepository(db)
	logRepo := repository.NewApprovalLogRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	signatoryRepo := repository.NewSignatoryRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Services.
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(cfg.JWT.Secret)
	settingService := service.NewSettingService(settingRepo, redisClient, cfg.Settings.CacheTTL, logr)
	signatoryService := service.NewSignatoryService(signatoryRepo, logr)
	approvalService := service.NewApprovalService(requestRepo, staffRepo, categoryRepo, badgeRepo, logRepo, metricsService, logr)
	renderer := render.New(render.LoadAssets(cfg.Assets, logr))
	badgeService := service.NewBadgeService(badgeRepo, requestRepo, staffRepo, categoryRepo,
		signatoryService, settingService, renderer, artifacts, media, metricsService, logr)
	printService := service.NewPrintService(badgeRepo, requestRepo, export.NewSheetExporter(), artifacts, sheets, metricsService, logr)

	// Handlers.
	approvalHandler := handler.NewApprovalHandler(approvalService)
	badgeHandler := handler.NewBadgeHandler(badgeService)
	printHandler := handler.NewPrintHandler(printService)
	signatoryHandler := handler.NewSignatoryHandler(signatoryService)
	settingHandler := handler.NewSettingHandler(settingService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))

	requests := api.Group("/requests")
	{
		requests.GET("", approvalHandler.List)
		requests.GET("/:id", approvalHandler.Get)
		requests.GET("/:id/history", approvalHandler.History)
		requests.POST("/:id/submit", approvalHandler.Submit)
		requests.POST("/bulk-submit", approvalHandler.BulkSubmit)

		reviewers := requests.Group("")
		reviewers.Use(middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin))
		{
			reviewers.POST("/:id/review", approvalHandler.Review)
			reviewers.POST("/:id/approve", approvalHandler.Approve)
			reviewers.POST("/:id/reject", approvalHandler.Reject)
			reviewers.POST("/:id/send-back", approvalHandler.SendBack)
			reviewers.POST("/bulk-approve", approvalHandler.BulkApprove)
			reviewers.POST("/bulk-reject", approvalHandler.BulkReject)
		}
	}

	api.GET("/activity", approvalHandler.Activity)
	api.GET("/categories", badgeHandler.Categories)

	badges := api.Group("/badges")
	{
		badges.GET("", badgeHandler.List)
		badges.GET("/:id", badgeHandler.Get)
		badges.GET("/:id/artifact", badgeHandler.Artifact)
		badges.GET("/:id/prints", printHandler.History)

		officers := badges.Group("")
		officers.Use(middleware.RequireRoles(models.RoleOfficer, models.RoleAdmin))
		{
			officers.POST("", badgeHandler.Create)
			officers.DELETE("/:id", badgeHandler.Delete)
			officers.PUT("/:id/color", badgeHandler.ChangeColor)
			officers.PUT("/:id/signature", badgeHandler.UpdateSignature)
			officers.POST("/:id/reset-print", printHandler.Reset)
			officers.POST("/print-batch", printHandler.Batch)
		}
	}

	signatories := api.Group("/signatories")
	signatories.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		signatories.GET("", signatoryHandler.List)
		signatories.GET("/active", signatoryHandler.Active)
		signatories.POST("", signatoryHandler.Create)
		signatories.POST("/:id/activate", signatoryHandler.Activate)
	}

	settings := api.Group("/settings")
	{
		settings.GET("", settingHandler.List)
		settings.GET("/:key", settingHandler.Get)
		settings.PUT("/:key", middleware.RequireRoles(models.RoleAdmin), settingHandler.Update)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
