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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/openlearn/lms-api/api/swagger"
	"github.com/openlearn/lms-api/internal/handler"
	"github.com/openlearn/lms-api/internal/middleware"
	"github.com/openlearn/lms-api/internal/models"
	"github.com/openlearn/lms-api/internal/repository"
	"github.com/openlearn/lms-api/internal/service"
	"github.com/openlearn/lms-api/pkg/cache"
	"github.com/openlearn/lms-api/pkg/config"
	"github.com/openlearn/lms-api/pkg/database"
	"github.com/openlearn/lms-api/pkg/jobs"
	"github.com/openlearn/lms-api/pkg/logger"
	corsmiddleware "github.com/openlearn/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/openlearn/lms-api/pkg/middleware/requestid"
	"github.com/openlearn/lms-api/pkg/response"
	"github.com/openlearn/lms-api/pkg/storage"
)

// @title OpenLearn LMS API
// @version 1.0.0
// @description Reporting and aggregation service for the OpenLearn platform
// @BasePath /api/v1
// @schemes http
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
		response.Production = true
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	// Redis is optional; aggregators fall back to fresh builds when the
	// cache is unavailable.
	var cacheRepo *repository.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close()
		}
	}

	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Analytics.CacheTTL, logr, false)
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	accessRepo := repository.NewAccessControlRepository(db)
	reportRepo := repository.NewReportRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	gradebookSvc := service.NewGradebookService(courseRepo, enrollmentRepo, assessmentRepo, cacheSvc, cfg.Analytics.CacheTTL, logr)
	engagementSvc := service.NewEngagementService(courseRepo, enrollmentRepo, engagementRepo, assessmentRepo, cacheSvc, cfg.Engagement.CacheTTL, cfg.Engagement.WindowDays, logr)
	searchSvc := service.NewSearchService(searchRepo, cacheSvc, validate, cfg.Search.CacheTTL, cfg.Search.MaxPageSize, cfg.Search.PreviewLimit, logr)
	dashboardSvc := service.NewDashboardService(analyticsRepo, cacheSvc, validate, cfg.Analytics.CacheTTL, logr)
	accessSvc := service.NewAccessControlService(courseRepo, accessRepo, userRepo, cacheSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	gradebookHandler := handler.NewGradebookHandler(gradebookSvc)
	engagementHandler := handler.NewEngagementHandler(engagementSvc)
	searchHandler := handler.NewSearchHandler(searchSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	accessHandler := handler.NewAccessControlHandler(accessSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reportHandler *handler.ReportHandler
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		worker := service.NewReportWorker(reportRepo, gradebookSvc, store, metricsSvc, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("gradebook-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportSvc := service.NewReportService(reportRepo, courseRepo, reportQueue, signer, validate, logr)
		reportHandler = handler.NewReportHandler(reportSvc, store)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", middleware.JWT(authSvc), authHandler.Logout)
	api.GET("/auth/me", middleware.JWT(authSvc), authHandler.Me)

	api.GET("/search", middleware.OptionalJWT(authSvc), searchHandler.Search)

	authed := api.Group("", middleware.JWT(authSvc))
	authed.GET("/me/privacy", accessHandler.Privacy)
	authed.PUT("/me/privacy", accessHandler.UpdatePrivacy)

	instructor := authed.Group("", middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin))
	instructor.GET("/instructor/courses/:id/marks", gradebookHandler.CourseMarks)
	instructor.GET("/instructor/analytics", engagementHandler.Analytics)
	instructor.GET("/courses/:id/access-control", accessHandler.CourseRules)
	instructor.POST("/courses/:id/access-control", accessHandler.UpdateRules)
	if reportHandler != nil {
		instructor.POST("/instructor/courses/:id/reports", reportHandler.CreateExport)
		instructor.GET("/reports/:id", reportHandler.ExportStatus)
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	admin := authed.Group("", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/analytics/dashboard", dashboardHandler.Dashboard)
	admin.GET("/analytics", dashboardHandler.Analytics)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
}
