package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/faculty-scheduler-api/api/swagger"
	"github.com/noah-isme/faculty-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/faculty-scheduler-api/internal/middleware"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/internal/repository"
	"github.com/noah-isme/faculty-scheduler-api/internal/scheduler"
	"github.com/noah-isme/faculty-scheduler-api/internal/service"
	"github.com/noah-isme/faculty-scheduler-api/pkg/cache"
	"github.com/noah-isme/faculty-scheduler-api/pkg/config"
	"github.com/noah-isme/faculty-scheduler-api/pkg/database"
	"github.com/noah-isme/faculty-scheduler-api/pkg/events"
	"github.com/noah-isme/faculty-scheduler-api/pkg/jobs"
	"github.com/noah-isme/faculty-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/faculty-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/faculty-scheduler-api/pkg/middleware/requestid"
	"github.com/noah-isme/faculty-scheduler-api/pkg/storage"
)

// @title Faculty Scheduler API
// @version 1.0.0
// @description Timetable generation, conflict detection and reservation workflow for faculty spaces.
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
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck
	if err := database.EnsureSchema(ctx, db); err != nil {
		logr.Sugar().Fatalw("schema migration failed", "error", err)
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, published schedule cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	emitter, err := events.New(cfg.Events, logr)
	if err != nil {
		logr.Sugar().Fatalw("event emitter init failed", "error", err)
	}
	defer emitter.Close() //nolint:errcheck

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	spaceRepo := repository.NewSpaceRepository(db)
	horizonRepo := repository.NewHorizonRepository(db)
	demandRepo := repository.NewDemandRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	engineCfg := scheduler.Config{
		MaxIterations: cfg.Scheduler.MaxIterations,
		Weights: scheduler.Weights{
			Utilization: cfg.Scheduler.WeightUtilization,
			Load:        cfg.Scheduler.WeightLoad,
			Preference:  cfg.Scheduler.WeightPreference,
		},
		SuggestionLimit: cfg.Scheduler.SuggestionLimit,
	}

	generatorSvc := service.NewScheduleGeneratorService(
		horizonRepo, spaceRepo, demandRepo, scheduleRepo, cacheRepo, db, emitter, metricsSvc, validate, logr,
		service.ScheduleGeneratorConfig{
			Engine:       engineCfg,
			CacheEnabled: redisClient != nil,
			CacheTTL:     cfg.Scheduler.CacheTTL,
		},
	)
	generationQueue := jobs.NewQueue("schedule-generation", generatorSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		MaxRetries: cfg.Scheduler.JobRetries,
		Logger:     logr,
	})
	generatorSvc.AttachQueue(generationQueue)
	generationQueue.Start(ctx)
	defer generationQueue.Stop()

	reservationSvc := service.NewReservationService(
		horizonRepo, spaceRepo, scheduleRepo, reservationRepo, cacheRepo, db, emitter, metricsSvc, validate, logr,
		service.ReservationConfig{SuggestionLimit: cfg.Scheduler.SuggestionLimit},
	)

	exportSvc := service.NewTimetableExportService(
		scheduleRepo,
		exportStore,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		validate,
		service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		},
		logr,
	)
	exportSvc.StartCleanup(ctx)

	scheduleHandler := handler.NewScheduleGeneratorHandler(generatorSvc, cfg.APIPrefix)
	reservationHandler := handler.NewReservationHandler(reservationSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/health", "/ready", "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// Signed tokens authorise downloads on their own.
	api.GET("/exports/:token", exportHandler.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokenSvc))

	planners := internalmiddleware.RequireRoles(models.RoleScheduler)

	secured.POST("/horizons/:id/schedules/generate", planners, scheduleHandler.Generate)
	secured.GET("/horizons/:id/schedules", scheduleHandler.List)
	secured.GET("/horizons/:id/schedules/published", scheduleHandler.Published)
	secured.GET("/generation-jobs/:id", planners, scheduleHandler.JobStatus)
	secured.GET("/schedules/:id", scheduleHandler.Get)
	secured.POST("/schedules/:id/publish", planners, scheduleHandler.Publish)
	secured.DELETE("/schedules/:id", planners, scheduleHandler.Delete)
	secured.POST("/schedules/:id/export", exportHandler.Export)

	secured.POST("/conflicts/preview", reservationHandler.Preview)
	secured.POST("/reservations", reservationHandler.Submit)
	secured.GET("/reservations", reservationHandler.List)
	secured.GET("/reservations/:id", reservationHandler.Get)
	secured.POST("/reservations/:id/validate", reservationHandler.Validate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}
