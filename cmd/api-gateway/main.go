package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/evan-hart/studyplan-api/api/swagger"
	"github.com/evan-hart/studyplan-api/internal/handler"
	"github.com/evan-hart/studyplan-api/internal/middleware"
	"github.com/evan-hart/studyplan-api/internal/repository"
	"github.com/evan-hart/studyplan-api/internal/service"
	"github.com/evan-hart/studyplan-api/pkg/config"
	"github.com/evan-hart/studyplan-api/pkg/jobs"
	"github.com/evan-hart/studyplan-api/pkg/logger"
	corsmiddleware "github.com/evan-hart/studyplan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/evan-hart/studyplan-api/pkg/middleware/requestid"

	"github.com/evan-hart/studyplan-api/pkg/cache"
	"github.com/evan-hart/studyplan-api/pkg/database"
)

// @title Studyplan API
// @version 0.3.0
// @description Study-session scheduling service: availability, allocation, feasibility and replanning
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
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	timetables := repository.NewTimetableRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT.Secret, logr)

	var noteQueue *jobs.Queue
	if cfg.Notes.Enabled {
		noteSvc := service.NewNoteService(cacheRepo, logr, service.NoteServiceConfig{
			ProviderURL:    cfg.Notes.ProviderURL,
			RequestTimeout: cfg.Notes.RequestTimeout,
		})
		noteQueue = jobs.NewQueue("session-notes", noteSvc.Handle, jobs.QueueConfig{
			Workers: cfg.Notes.Workers,
			Logger:  logr,
		})
		noteQueue.Start(context.Background())
		defer noteQueue.Stop()
	}

	var dispatcher service.NoteDispatcher
	if noteQueue != nil {
		dispatcher = noteQueue
	}
	plannerSvc := service.NewPlannerService(timetables, cacheRepo, dispatcher, metricsSvc, nil, logr, service.PlannerConfig{
		MinViableSessionMin: cfg.Scheduler.MinViableSessionMin,
		MaxWindowDays:       cfg.Scheduler.MaxWindowDays,
		MaxPlacementsPerDay: cfg.Scheduler.MaxPlacementsPerDay,
		CacheTTL:            cfg.Scheduler.ScheduleCacheTTL,
	})

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(plannerSvc, nil, nil, logr)
	}

	plannerHandler := handler.NewPlannerHandler(plannerSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	{
		api.GET("/timetables", plannerHandler.List)
		api.DELETE("/timetables/:id", plannerHandler.Delete)
		api.POST("/timetables/:id/schedule", plannerHandler.Generate)
		api.GET("/timetables/:id/schedule", plannerHandler.GetSchedule)
		api.POST("/timetables/:id/schedule/estimate", plannerHandler.Estimate)
		api.POST("/timetables/:id/schedule/move", plannerHandler.Move)
		api.POST("/timetables/:id/days/:date/replan", plannerHandler.ReplanDay)
		api.PATCH("/timetables/:id/sessions/:sessionId", plannerHandler.SetCompletion)
		if exportSvc != nil {
			api.GET("/timetables/:id/schedule/export", plannerHandler.Export)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
