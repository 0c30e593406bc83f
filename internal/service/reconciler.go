package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"projecttracker/internal/clickup"
	"projecttracker/internal/model"
	"projecttracker/internal/repository"
)

type taskSyncStore interface {
	FindByCuTaskID(ctx context.Context, cuTaskID string) (*model.Task, error)
	InsertLink(ctx context.Context, projectID int, cuTaskID string) (int, error)
	UpdateSyncFields(ctx context.Context, id int, f model.TaskSyncFields) error
}

type taskFetcher interface {
	GetTask(ctx context.Context, cuTaskID string) (*clickup.TaskState, error)
}

// Reconciler pulls one task's state from the external source and lands it
// on the local row for that external id, inserting the row first if needed.
// Re-running for the same id never duplicates: the lookup plus the unique
// constraint on cu_task_id turn the second run into an update.
type Reconciler struct {
	tasks   taskSyncStore
	fetcher taskFetcher
	logger  *zap.Logger
}

func NewReconciler(tasks taskSyncStore, fetcher taskFetcher, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		tasks:   tasks,
		fetcher: fetcher,
		logger:  logger,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, projectID int, cuTaskID string) error {
	existing, err := r.tasks.FindByCuTaskID(ctx, cuTaskID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up task %s: %w", cuTaskID, err)
	}

	state, err := r.fetcher.GetTask(ctx, cuTaskID)
	if err != nil {
		return fmt.Errorf("failed to fetch task %s: %w", cuTaskID, err)
	}

	id := 0
	if existing != nil {
		id = existing.ID
	} else {
		id, err = r.tasks.InsertLink(ctx, projectID, cuTaskID)
		if err != nil {
			return fmt.Errorf("failed to insert task %s: %w", cuTaskID, err)
		}
	}

	if err := r.tasks.UpdateSyncFields(ctx, id, state.SyncFields()); err != nil {
		return fmt.Errorf("failed to update task %s: %w", cuTaskID, err)
	}

	r.logger.Debug("Task reconciled",
		zap.Int("id", id),
		zap.String("cu_task_id", cuTaskID),
		zap.Bool("created", existing == nil),
	)
	return nil
}
