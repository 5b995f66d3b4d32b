package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	internalhandler "github.com/schoolforge/timetable-engine/internal/handler"
	internalmiddleware "github.com/schoolforge/timetable-engine/internal/middleware"
	"github.com/schoolforge/timetable-engine/internal/engine"
	"github.com/schoolforge/timetable-engine/internal/ga"
	"github.com/schoolforge/timetable-engine/internal/repository"
	"github.com/schoolforge/timetable-engine/pkg/cache"
	"github.com/schoolforge/timetable-engine/pkg/config"
	"github.com/schoolforge/timetable-engine/pkg/database"
	"github.com/schoolforge/timetable-engine/pkg/export"
	"github.com/schoolforge/timetable-engine/pkg/jobs"
	"github.com/schoolforge/timetable-engine/pkg/logger"
	corsmiddleware "github.com/schoolforge/timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/schoolforge/timetable-engine/pkg/middleware/requestid"
	"github.com/schoolforge/timetable-engine/pkg/metrics"
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to initialise database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	var fitnessCache ga.FitnessCache
	var sessionStore engine.SessionStore
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, falling back to in-process GA fitness cache", "error", err)
	} else {
		fitnessCache = cache.NewFitnessCache(redisClient, cfg.Scheduler.FitnessCacheTTL, "ga")
		sessionStore = cache.NewSessionStore(redisClient, cfg.Scheduler.FitnessCacheTTL)
		defer redisClient.Close()
	}

	m := metrics.New()

	gaParams := ga.Params{
		PopulationSize: cfg.Scheduler.GAPopulationSize,
		Generations:    cfg.Scheduler.GAGenerations,
		Elitism:        cfg.Scheduler.GAElitism,
		TournamentSize: cfg.Scheduler.GATournamentSize,
		CrossoverRate:  cfg.Scheduler.GACrossoverRate,
		MutationRate:   cfg.Scheduler.GAMutationRate,
		MaxRepairOps:   cfg.Scheduler.GAMaxRepairOps,
		Patience:       cfg.Scheduler.GAPatience,
		Workers:        cfg.Scheduler.GAWorkers,
	}

	core := engine.New(logr, fitnessCache, sessionStore, gaParams)

	asyncEngine := internalhandler.NewAsyncScheduleEngine(core, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.QueueDepth,
		MaxRetries: 0,
		RetryDelay: 0,
		Logger:     logr,
	})
	queueCtx, cancelQueue := context.WithCancel(context.Background())
	asyncEngine.Start(queueCtx)
	defer func() {
		cancelQueue()
		asyncEngine.Stop()
	}()

	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	timeSlotRepo := repository.NewTimeSlotRepository(db)
	timetableRepo := repository.NewTimetableRepository(db, classRepo, subjectRepo, teacherRepo, roomRepo, timeSlotRepo)

	pdfExporter := export.NewPDFExporter()
	schedulerHandler := internalhandler.NewSchedulerHandler(asyncEngine, timetableRepo, timetableRepo, pdfExporter, logr)
	metricsHandler := internalhandler.NewMetricsHandler(m)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(m))

	r.GET("/healthz", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)

	schedules := api.Group("/schedules")
	schedules.POST("/validate", schedulerHandler.Validate)
	schedules.GET("/:id/export.pdf", schedulerHandler.ExportPDF)

	writeSchedules := schedules.Group("")
	writeSchedules.Use(internalmiddleware.JWT(cfg.JWT.Secret))
	writeSchedules.POST("/generate", schedulerHandler.Generate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
