package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campushq/schedule-api/api/swagger"
	"github.com/campushq/schedule-api/internal/handler"
	"github.com/campushq/schedule-api/internal/middleware"
	"github.com/campushq/schedule-api/internal/repository"
	"github.com/campushq/schedule-api/internal/service"
	"github.com/campushq/schedule-api/internal/timegrid"
	"github.com/campushq/schedule-api/pkg/cache"
	"github.com/campushq/schedule-api/pkg/config"
	"github.com/campushq/schedule-api/pkg/database"
	"github.com/campushq/schedule-api/pkg/logger"
	corsmiddleware "github.com/campushq/schedule-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campushq/schedule-api/pkg/middleware/requestid"
)

// @title CampusHQ Schedule API
// @version 1.0.0
// @description Weekly schedule management and room conflict detection
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
		// The venue view falls back to direct store reads without redis.
		logr.Sugar().Warnw("redis unavailable, venue view cache disabled", "error", err)
		redisClient = nil
	}

	groupRepo := repository.NewGroupRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	validate := validator.New()

	grid := timegrid.Grid{
		StartHour:   cfg.Grid.StartHour,
		EndHour:     cfg.Grid.EndHour,
		SlotMinutes: cfg.Grid.SlotMinutes,
	}

	scheduleSvc := service.NewScheduleService(groupRepo, roomRepo, cacheRepo, cfg.Venue.CacheTTL, validate, metrics, logr)
	exportSvc := service.NewExportService(scheduleSvc, nil, nil, logr)

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, grid)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
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
	api.Use(middleware.JWT(cfg.JWT.Secret))

	api.GET("/sites/:siteId/venue-schedule", scheduleHandler.VenueSchedule)
	api.GET("/sites/:siteId/availability", scheduleHandler.Availability)

	api.GET("/groups", scheduleHandler.ListGroups)
	api.GET("/groups/:id/schedule", scheduleHandler.GroupSchedule)
	api.GET("/groups/:id/schedule/layout", scheduleHandler.GroupLayout)
	api.PUT("/groups/:id/schedule/entries", scheduleHandler.UpsertEntry)
	api.DELETE("/groups/:id/schedule/entries/:entryId", scheduleHandler.RemoveEntry)

	api.GET("/teachers/:id/schedule", scheduleHandler.TeacherSchedule)
	api.GET("/teachers/:id/schedule/layout", scheduleHandler.TeacherLayout)

	if cfg.Export.Enabled {
		api.GET("/groups/:id/schedule/export", exportHandler.GroupSchedule)
		api.GET("/teachers/:id/schedule/export", exportHandler.TeacherSchedule)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
