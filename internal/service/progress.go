package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"projecttracker/internal/model"
	"projecttracker/pkg/metrics"
)

type progressStore interface {
	ListDueOn(ctx context.Context, date time.Time) ([]model.ProgressRecord, error)
	ListByProject(ctx context.Context, projectID int) ([]model.ProgressRecord, error)
	UpdateMetrics(ctx context.Context, id int, spi, cpi, actualProgress float64) error
	UpdatePlanProgress(ctx context.Context, id int, planProgress float64) error
	ViewMetricsByProjects(ctx context.Context, projectIDs []int) (map[int]model.ProjectMetrics, error)
}

type taskCounter interface {
	CountByProject(ctx context.Context, projectID int) (int, error)
	CountCompletedDueBy(ctx context.Context, projectID int, date time.Time) (int, error)
}

// ProgressService recomputes the performance metrics of the weekly
// progress rows from aggregated task data.
type ProgressService struct {
	progress  progressStore
	tasks     taskCounter
	batchSize int
	logger    *zap.Logger
}

func NewProgressService(progress progressStore, tasks taskCounter, batchSize int, logger *zap.Logger) *ProgressService {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &ProgressService{
		progress:  progress,
		tasks:     tasks,
		batchSize: batchSize,
		logger:    logger,
	}
}

// RecomputeDueToday refreshes SPI, CPI and actual progress on every row
// whose report date equals the given day. Source metrics for the whole
// project set come from one batched view read; the row updates run in
// fixed-size batches. Per-row failures are logged and counted, never fatal.
// Returns how many rows were updated.
func (s *ProgressService) RecomputeDueToday(ctx context.Context, date time.Time) (int, error) {
	records, err := s.progress.ListDueOn(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to list progress rows due on %s: %w", date.Format("2006-01-02"), err)
	}
	if len(records) == 0 {
		s.logger.Info("No progress rows due today, nothing to update",
			zap.String("date", date.Format("2006-01-02")),
		)
		return 0, nil
	}

	projectIDs := distinctProjects(records)
	viewMetrics, err := s.progress.ViewMetricsByProjects(ctx, projectIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to read aggregation view: %w", err)
	}

	updated := 0
	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}

		g, gctx := errgroup.WithContext(ctx)
		results := make([]error, end-start)
		for i, rec := range records[start:end] {
			i := i
			spi, cpi, actual := resolveMetrics(viewMetrics, rec.ProjectID)
			id := rec.ID
			g.Go(func() error {
				results[i] = s.progress.UpdateMetrics(gctx, id, spi, cpi, actual)
				return nil
			})
		}
		_ = g.Wait()

		for i, uerr := range results {
			if uerr != nil {
				s.logger.Error("Failed to update progress row",
					zap.Int("id", records[start+i].ID),
					zap.Int("project_id", records[start+i].ProjectID),
					zap.Error(uerr),
				)
				continue
			}
			updated++
		}
	}

	metrics.ProgressRowsUpdated.Add(float64(updated))
	s.logger.Info("Progress metrics recompute completed",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("rows_due", len(records)),
		zap.Int("rows_updated", updated),
		zap.Int("projects", len(projectIDs)),
	)
	return updated, nil
}

// RecomputePlanProgress rewrites plan_progress on every progress row of one
// project: completed tasks due by the row's report date over the total task
// count. The ratio deliberately measures against all of the project's tasks
// regardless of start date, matching the upstream system. A project with
// zero tasks gets 0 on every row.
func (s *ProgressService) RecomputePlanProgress(ctx context.Context, projectID int) (int, error) {
	total, err := s.tasks.CountByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks for project %d: %w", projectID, err)
	}

	records, err := s.progress.ListByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to list progress rows for project %d: %w", projectID, err)
	}

	for _, rec := range records {
		planProgress := 0.0
		if total > 0 {
			completed, err := s.tasks.CountCompletedDueBy(ctx, projectID, rec.ReportDate)
			if err != nil {
				return 0, fmt.Errorf("failed to count completed tasks for project %d: %w", projectID, err)
			}
			planProgress = float64(completed) / float64(total) * 100
		}
		if err := s.progress.UpdatePlanProgress(ctx, rec.ID, planProgress); err != nil {
			return 0, fmt.Errorf("failed to update plan progress on row %d: %w", rec.ID, err)
		}
	}

	s.logger.Info("Plan progress recompute completed",
		zap.Int("project_id", projectID),
		zap.Int("rows", len(records)),
		zap.Int("task_count", total),
	)
	return len(records), nil
}

// resolveMetrics zero-fills anything the aggregation view has no value for,
// so reports never see nulls.
func resolveMetrics(view map[int]model.ProjectMetrics, projectID int) (spi, cpi, actual float64) {
	m, ok := view[projectID]
	if !ok {
		return 0, 0, 0
	}
	if m.AvgSPI != nil {
		spi = *m.AvgSPI
	}
	if m.AvgCPI != nil {
		cpi = *m.AvgCPI
	}
	if m.ActualProgress != nil {
		actual = *m.ActualProgress
	}
	return spi, cpi, actual
}

func distinctProjects(records []model.ProgressRecord) []int {
	seen := make(map[int]struct{}, len(records))
	var ids []int
	for _, rec := range records {
		if _, ok := seen[rec.ProjectID]; ok {
			continue
		}
		seen[rec.ProjectID] = struct{}{}
		ids = append(ids, rec.ProjectID)
	}
	return ids
}
