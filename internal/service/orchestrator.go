package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"projecttracker/internal/model"
	"projecttracker/internal/queue"
	"projecttracker/pkg/metrics"
)

// SyncReport tallies one orchestration run. Failed tasks are retried by the
// next scheduled cycle, not mid-run.
type SyncReport struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SyncProgress is one streamed counter update of a manual project sync.
type SyncProgress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	CuTaskID  string `json:"cu_task_id"`
	Failed    bool   `json:"failed,omitempty"`
}

type dueLister interface {
	ListDueOn(ctx context.Context, date time.Time) ([]model.ProgressRecord, error)
}

type taskEnumerator interface {
	ListByProject(ctx context.Context, projectID int) ([]model.Task, error)
	ListByProjects(ctx context.Context, projectIDs []int) ([]model.Task, error)
}

type taskReconciler interface {
	Reconcile(ctx context.Context, projectID int, cuTaskID string) error
}

type metricsRecomputer interface {
	RecomputeDueToday(ctx context.Context, date time.Time) (int, error)
}

type jobPusher interface {
	Push(ctx context.Context, job queue.SyncJob) error
}

// SyncOrchestrator drives one sync cycle: find the projects whose weekly
// report falls on today, reconcile every task of those projects against the
// external source with bounded concurrency, then trigger the metrics
// recompute. One task's failure never aborts the others.
type SyncOrchestrator struct {
	progress   dueLister
	tasks      taskEnumerator
	reconciler taskReconciler
	aggregator metricsRecomputer
	jobs       jobPusher
	workers    int
	loc        *time.Location
	logger     *zap.Logger
}

func NewSyncOrchestrator(
	progress dueLister,
	tasks taskEnumerator,
	reconciler taskReconciler,
	aggregator metricsRecomputer,
	jobs jobPusher,
	workers int,
	loc *time.Location,
	logger *zap.Logger,
) *SyncOrchestrator {
	if workers <= 0 {
		workers = 10
	}
	return &SyncOrchestrator{
		progress:   progress,
		tasks:      tasks,
		reconciler: reconciler,
		aggregator: aggregator,
		jobs:       jobs,
		workers:    workers,
		loc:        loc,
		logger:     logger,
	}
}

// Today is the current calendar date in the configured reporting time zone.
func (o *SyncOrchestrator) Today() time.Time {
	now := time.Now().In(o.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// SyncDueToday runs the full in-process sync cycle for today's projects.
func (o *SyncOrchestrator) SyncDueToday(ctx context.Context) (SyncReport, error) {
	date := o.Today()
	o.logger.Info("Starting daily task sync", zap.String("date", date.Format("2006-01-02")))

	tasks, err := o.tasksDueOn(ctx, date)
	if err != nil {
		return SyncReport{}, err
	}
	if len(tasks) == 0 {
		o.logger.Info("No projects due for sync today")
		return SyncReport{}, nil
	}

	report := o.reconcileAll(ctx, tasks, nil)

	o.logger.Info("Daily task sync completed",
		zap.Int("attempted", report.Attempted),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	// The recompute pass needs the reconciled task data, so it runs only
	// after the fan-out has fully drained.
	if _, err := o.aggregator.RecomputeDueToday(ctx, date); err != nil {
		o.logger.Error("Metrics recompute after sync failed", zap.Error(err))
		return report, fmt.Errorf("metrics recompute failed: %w", err)
	}
	return report, nil
}

// SyncProject re-syncs one project's tasks, streaming completed/total
// counters onto progress as each task finishes. The channel is closed when
// the run ends. progress may be nil.
func (o *SyncOrchestrator) SyncProject(ctx context.Context, projectID int, progress chan<- SyncProgress) (SyncReport, error) {
	if progress != nil {
		defer close(progress)
	}

	tasks, err := o.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return SyncReport{}, fmt.Errorf("failed to list tasks for project %d: %w", projectID, err)
	}

	o.logger.Info("Starting manual project sync",
		zap.Int("project_id", projectID),
		zap.Int("task_count", len(tasks)),
	)
	return o.reconcileAll(ctx, tasks, progress), nil
}

// EnqueueDueToday is the queue deployment mode: instead of reconciling
// in-process it pushes one serialized job per task for the worker binary.
func (o *SyncOrchestrator) EnqueueDueToday(ctx context.Context) (int, error) {
	date := o.Today()

	tasks, err := o.tasksDueOn(ctx, date)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	var pushErrs []error
	for _, t := range tasks {
		if t.CuTaskID == nil {
			continue
		}
		job := queue.SyncJob{ProjectID: t.ProjectID, CuTaskID: *t.CuTaskID}
		if err := o.jobs.Push(ctx, job); err != nil {
			// One bad push must not strand the rest of the batch.
			o.logger.Error("Failed to enqueue sync job",
				zap.String("cu_task_id", *t.CuTaskID),
				zap.Error(err),
			)
			pushErrs = append(pushErrs, fmt.Errorf("task %s: %w", *t.CuTaskID, err))
			continue
		}
		enqueued++
	}

	o.logger.Info("Sync jobs enqueued",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("count", enqueued),
		zap.Int("failed", len(pushErrs)),
	)
	if len(pushErrs) > 0 {
		return enqueued, errors.Join(pushErrs...)
	}
	return enqueued, nil
}

func (o *SyncOrchestrator) tasksDueOn(ctx context.Context, date time.Time) ([]model.Task, error) {
	records, err := o.progress.ListDueOn(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress rows due on %s: %w", date.Format("2006-01-02"), err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	projectIDs := distinctProjects(records)
	tasks, err := o.tasks.ListByProjects(ctx, projectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for due projects: %w", err)
	}
	return tasks, nil
}

// reconcileAll fans the tasks out over a bounded worker pool, capturing
// each failure into the tally instead of aborting the run.
func (o *SyncOrchestrator) reconcileAll(ctx context.Context, tasks []model.Task, progress chan<- SyncProgress) SyncReport {
	var (
		mu     sync.Mutex
		report SyncReport
	)

	total := 0
	for _, t := range tasks {
		if t.CuTaskID != nil {
			total++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, t := range tasks {
		if t.CuTaskID == nil {
			continue
		}
		task := t
		g.Go(func() error {
			err := o.reconciler.Reconcile(gctx, task.ProjectID, *task.CuTaskID)
			metrics.RecordSyncTask(err == nil)

			mu.Lock()
			report.Attempted++
			if err != nil {
				report.Failed++
				title := ""
				if task.TaskTitle != nil {
					title = *task.TaskTitle
				}
				o.logger.Error("Task reconciliation failed",
					zap.String("cu_task_id", *task.CuTaskID),
					zap.String("task_title", title),
					zap.Error(err),
				)
			} else {
				report.Succeeded++
			}
			completed := report.Attempted
			mu.Unlock()

			// A consumer that stopped draining must not wedge the pool:
			// drop the update once the run's context is gone.
			if progress != nil {
				select {
				case progress <- SyncProgress{
					Completed: completed,
					Total:     total,
					CuTaskID:  *task.CuTaskID,
					Failed:    err != nil,
				}:
				case <-gctx.Done():
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return report
}
