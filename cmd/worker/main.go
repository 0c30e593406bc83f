package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"projecttracker/internal/clickup"
	"projecttracker/internal/queue"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"
	"projecttracker/pkg/config"
	"projecttracker/pkg/db"
	"projecttracker/pkg/logger"
	"projecttracker/pkg/redisclient"
)

// The worker is the queue deployment mode of the sync engine: it pops
// serialized sync jobs pushed by the orchestrator and runs fetch+reconcile
// for each, sharing no in-memory state with the producer.
func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting projecttracker worker...",
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.Int("workers", cfg.Sync.Workers),
	)

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb := redisclient.New(cfg.Redis)
	defer rdb.Close()
	jobQueue := queue.New(rdb)

	taskRepo := repository.NewTaskRepository(dbConn, log)
	cuClient := clickup.NewClient(cfg.ClickUp.BaseURL, cfg.ClickUp.Token, log)
	reconciler := service.NewReconciler(taskRepo, cuClient, log)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < cfg.Sync.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			consume(ctx, worker, jobQueue, reconciler, log)
		}(i)
	}

	log.Info("projecttracker worker is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down projecttracker worker...")
	cancel()
	wg.Wait()
	log.Info("projecttracker worker shutdown complete")
}

func consume(ctx context.Context, worker int, jobQueue *queue.Queue, reconciler *service.Reconciler, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := jobQueue.Pop(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to pop sync job", zap.Int("worker", worker), zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		if err := reconciler.Reconcile(ctx, job.ProjectID, job.CuTaskID); err != nil {
			// Left for the next scheduled cycle; the queue is not re-fed here.
			log.Error("Sync job failed",
				zap.Int("worker", worker),
				zap.Int("project_id", job.ProjectID),
				zap.String("cu_task_id", job.CuTaskID),
				zap.Error(err),
			)
			continue
		}
		log.Info("Sync job completed",
			zap.Int("worker", worker),
			zap.String("cu_task_id", job.CuTaskID),
		)
	}
}
