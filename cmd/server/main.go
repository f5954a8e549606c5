package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/database"
	"github.com/cecproctor/proctor-backend/internal/handler"
	"github.com/cecproctor/proctor-backend/internal/logger"
	"github.com/cecproctor/proctor-backend/internal/repository"
	"github.com/cecproctor/proctor-backend/internal/repository/memory"
	"github.com/cecproctor/proctor-backend/internal/repository/postgres"
	"github.com/cecproctor/proctor-backend/internal/router"
	"github.com/cecproctor/proctor-backend/internal/service"
	"github.com/cecproctor/proctor-backend/internal/validator"
	"github.com/cecproctor/proctor-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("storage", cfg.StorageDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Proctor Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Storage ───────────────────────────────────────────────────────
	var (
		store  *repository.Store
		pool   *pgxpool.Pool
		pinger handler.Pinger
	)
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		store = memory.NewStore(memory.Open())
	case config.StorageDriverPostgres:
		var err error
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
		pinger = pool
	default:
		log.Fatal().Str("storage", cfg.StorageDriver).Msg("Unknown STORAGE_DRIVER")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	activityService := service.NewActivityService(store.Activity, log)
	settingService := service.NewSettingService(store.Settings, activityService, rdb, log)
	monitorService := service.NewMonitorService(store.Sessions, store.Violations, rdb, log)
	examService := service.NewExamService(store.Exams, rdb, cfg.CodeGenMaxAttempts, log)
	studentService := service.NewStudentService(store.Students, activityService, log)
	teacherService := service.NewTeacherService(store.Teachers, activityService, log)
	sessionService := service.NewSessionService(examService, store.Students, store.Sessions, activityService, monitorService, log)
	violationService := service.NewViolationService(store, settingService, activityService, monitorService, cfg.ViolationLogCap, log)
	dashboardService := service.NewDashboardService(store)
	tokenService := service.NewTokenService(cfg.SessionTokenSecret, cfg.SessionTokenExpiry)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		StudentPortal: handler.NewStudentPortalHandler(sessionService, examService, violationService, tokenService, log),
		StudentMgmt:   handler.NewStudentManagementHandler(studentService, log),
		TeacherMgmt:   handler.NewTeacherManagementHandler(teacherService, log),
		Exam:          handler.NewExamHandler(examService, sessionService, log),
		Violation:     handler.NewViolationHandler(violationService, log),
		Activity:      handler.NewActivityHandler(activityService, log),
		Setting:       handler.NewSettingHandler(settingService, log),
		Dashboard:     handler.NewDashboardHandler(dashboardService, log),
		Monitor:       handler.NewMonitorHandler(examService, monitorService, log),
		WS:            handler.NewWSHandler(rdb, sessionService, violationService, log, cfg.AllowedOrigins),
		System:        handler.NewSystemHandler(pinger, rdb, cfg.StorageDriver, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	countdownWorker := worker.NewCountdownWorker(sessionService, cfg.CountdownInterval, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		countdownWorker.Start(workerCtx)
	}()

	if rdb != nil {
		violationWorker := worker.NewViolationWorker(violationService, rdb, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			violationWorker.Start(workerCtx)
		}()
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load active access codes before accepting traffic.
	if err := examService.PrewarmCodeCache(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, sessionService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the ingest buffer to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
