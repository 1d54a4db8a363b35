package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campus-hq/ta-scheduler-api/api/swagger"
	"github.com/campus-hq/ta-scheduler-api/internal/handler"
	"github.com/campus-hq/ta-scheduler-api/internal/middleware"
	"github.com/campus-hq/ta-scheduler-api/internal/repository"
	"github.com/campus-hq/ta-scheduler-api/internal/service"
	"github.com/campus-hq/ta-scheduler-api/pkg/cache"
	"github.com/campus-hq/ta-scheduler-api/pkg/config"
	"github.com/campus-hq/ta-scheduler-api/pkg/database"
	"github.com/campus-hq/ta-scheduler-api/pkg/logger"
	corsmiddleware "github.com/campus-hq/ta-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-hq/ta-scheduler-api/pkg/middleware/requestid"
	"github.com/campus-hq/ta-scheduler-api/pkg/storage"
)

// @title TA Scheduler API
// @version 1.0.0
// @description Weekly TA shift scheduling: schedule lifecycle, preference intake and assignment dispatch.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	scheduleRepo := repository.NewScheduleRepository(db)
	taRepo := repository.NewTARepository(db)

	var scheduleCache *repository.CacheRepository
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		scheduleCache = repository.NewCacheRepository(redisClient, cfg.Cache.ScheduleTTL)
	}

	runLogs, err := storage.NewRunLogStore(cfg.Algorithm.LogDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init run log store", "error", err)
	}
	runner := service.NewProcessRunner(cfg.Algorithm, runLogs, logr)

	metricsSvc := service.NewMetricsService()

	var scheduleSvc *service.ScheduleService
	if scheduleCache != nil {
		scheduleSvc = service.NewScheduleService(scheduleRepo, taRepo, scheduleCache, runner, nil, logr)
	} else {
		scheduleSvc = service.NewScheduleService(scheduleRepo, taRepo, nil, runner, nil, logr)
	}
	taSvc := service.NewTAService(taRepo, scheduleRepo, nil, logr)

	var exportSvc *service.ExportService
	if cfg.Export.Enabled {
		exportSvc = service.NewExportService(scheduleSvc, nil, nil, logr)
	}

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, exportSvc, metricsSvc)
	taHandler := handler.NewTAHandler(taSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	schedule := api.Group("/schedule")
	{
		schedule.POST("/initSchedule", scheduleHandler.Init)
		schedule.GET("/getSchedule", scheduleHandler.Get)
		schedule.GET("/getLatestScheduleId", scheduleHandler.LatestID)
		schedule.PUT("/update", scheduleHandler.Update)
		schedule.PUT("/template", scheduleHandler.ApplyTemplate)
		schedule.GET("/importDataToAlg", scheduleHandler.ImportData)
		schedule.POST("/runAlgorithm", scheduleHandler.RunAlgorithm)
		schedule.GET("/export", scheduleHandler.Export)
	}

	ta := api.Group("/ta")
	{
		ta.POST("/create", taHandler.Create)
		ta.GET("", taHandler.List)
		ta.GET("/:id", taHandler.Get)
		ta.POST("/preferences", taHandler.SubmitPreferences)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
