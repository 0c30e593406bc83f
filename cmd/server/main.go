package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"projecttracker/internal/clickup"
	"projecttracker/internal/handler"
	"projecttracker/internal/httpserver"
	"projecttracker/internal/queue"
	"projecttracker/internal/repository"
	"projecttracker/internal/scheduler"
	"projecttracker/internal/service"
	"projecttracker/pkg/config"
	"projecttracker/pkg/db"
	"projecttracker/pkg/logger"
	"projecttracker/pkg/redisclient"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting projecttracker server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("timezone", cfg.Sync.Timezone),
	)

	loc, err := time.LoadLocation(cfg.Sync.Timezone)
	if err != nil {
		log.Fatal("Invalid sync timezone", zap.String("timezone", cfg.Sync.Timezone), zap.Error(err))
	}

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis (work queue)
	rdb := redisclient.New(cfg.Redis)
	defer rdb.Close()
	jobQueue := queue.New(rdb)

	// Repositories
	projectRepo := repository.NewProjectRepository(dbConn, log)
	taskRepo := repository.NewTaskRepository(dbConn, log)
	progressRepo := repository.NewProgressRepository(dbConn, log)

	// External task source
	cuClient := clickup.NewClient(cfg.ClickUp.BaseURL, cfg.ClickUp.Token, log)

	// Services
	scheduleSvc := service.NewScheduleService(progressRepo, log)
	progressSvc := service.NewProgressService(progressRepo, taskRepo, cfg.Sync.BatchSize, log)
	reconciler := service.NewReconciler(taskRepo, cuClient, log)
	orchestrator := service.NewSyncOrchestrator(
		progressRepo,
		taskRepo,
		reconciler,
		progressSvc,
		jobQueue,
		cfg.Sync.Workers,
		loc,
		log,
	)

	// Daily sync trigger
	daily := scheduler.NewDaily(cfg.Sync.Hour, cfg.Sync.Minute, loc, func(ctx context.Context) error {
		_, err := orchestrator.SyncDueToday(ctx)
		return err
	}, log)

	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go daily.Run(schedCtx)

	// HTTP
	healthHandler := handler.NewHealthHandler(dbConn)
	projectHandler := handler.NewProjectHandler(projectRepo, scheduleSvc, progressSvc, log)
	taskHandler := handler.NewTaskHandler(taskRepo, log)
	progressHandler := handler.NewProgressHandler(progressRepo, log)
	syncHandler := handler.NewSyncHandler(orchestrator, progressSvc, log)

	router := httpserver.NewRouter(healthHandler, projectHandler, taskHandler, progressHandler, syncHandler)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("projecttracker server is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down projecttracker server gracefully...")
	schedCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("projecttracker server shutdown complete")
}
