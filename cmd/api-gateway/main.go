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
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-results-api/api/swagger"
	"github.com/noah-isme/academic-results-api/internal/handler"
	"github.com/noah-isme/academic-results-api/internal/middleware"
	"github.com/noah-isme/academic-results-api/internal/models"
	"github.com/noah-isme/academic-results-api/internal/repository"
	"github.com/noah-isme/academic-results-api/internal/service"
	"github.com/noah-isme/academic-results-api/pkg/cache"
	"github.com/noah-isme/academic-results-api/pkg/config"
	"github.com/noah-isme/academic-results-api/pkg/database"
	"github.com/noah-isme/academic-results-api/pkg/jobs"
	"github.com/noah-isme/academic-results-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-results-api/pkg/middleware/requestid"
)

// @title Academic Results API
// @version 1.0.0
// @description Computes, stores and serves course results from assessment grades.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, result cache disabled", zap.Error(err))
		redisClient = nil
	}

	engineCfg, err := service.EngineConfigFromSettings(cfg.Results)
	if err != nil {
		logr.Fatal("invalid result engine configuration", zap.Error(err))
	}

	validate := validator.New()
	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	resultRepo := repository.NewResultRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "academic-results:", logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Results.CacheTTL, logr, cfg.Results.CacheEnabled && redisClient != nil)
	resultSvc := service.NewResultService(enrollmentRepo, gradeRepo, resultRepo, cacheSvc, engineCfg, validate, logr, metrics)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	exportSvc := service.NewExportService(resultRepo, service.ExportConfig{MaxRows: cfg.Exports.MaxRows}, validate, logr, nil, nil)

	var gradeSvc *service.GradeService
	if cfg.Results.AutoRecalculate {
		queue := jobs.NewQueue("result-recalculation", resultSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Results.RecalcWorkers,
			MaxRetries: cfg.Results.RecalcRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()
		gradeSvc = service.NewGradeService(gradeRepo, enrollmentRepo, queue, validate, logr, metrics)
	} else {
		gradeSvc = service.NewGradeService(gradeRepo, enrollmentRepo, nil, validate, logr, metrics)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authSvc)
	resultHandler := handler.NewResultHandler(resultSvc, exportSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	secured.GET("/auth/me", authHandler.Me)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/results/generate", resultHandler.Generate)
	admin.POST("/results/calculate", resultHandler.Calculate)
	admin.GET("/results", resultHandler.List)
	admin.GET("/results/export", resultHandler.Export)
	admin.GET("/students/:id/results", resultHandler.ListByStudent)
	admin.GET("/grades", gradeHandler.List)
	admin.POST("/grades", gradeHandler.Upsert)
	if metrics != nil {
		admin.GET("/metrics", metricsHandler.Snapshot)
	}

	student := secured.Group("/student")
	student.Use(middleware.RequireRoles(models.RoleStudent))
	student.GET("/results", resultHandler.MyResults)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// batch generation may run up to the configured timeout
		WriteTimeout: cfg.Results.BatchTimeout + 30*time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
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
