package service

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"projecttracker/internal/model"
)

// ErrInvalidRange rejects schedule generation before anything is persisted.
var ErrInvalidRange = errors.New("invalid date range: due date must be after start date")

type progressInserter interface {
	Insert(ctx context.Context, p *model.ProgressRecord) (int, error)
}

// ScheduleService materializes the weekly reporting grid of a project.
type ScheduleService struct {
	progress progressInserter
	logger   *zap.Logger
}

func NewScheduleService(progress progressInserter, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		progress: progress,
		logger:   logger,
	}
}

// WeeksBetween is the number of weekly reporting rows spanning [start, due]:
// ceil((due-start)/7 days), at least 1 once due > start.
func WeeksBetween(start, due time.Time) int {
	days := due.Sub(start).Hours() / 24
	return int(math.Ceil(days / 7))
}

// Generate inserts one progress row per calendar week of the project range
// and returns how many were created. The inserts are dispatched concurrently
// but Generate waits for all of them and surfaces the first failure.
func (s *ScheduleService) Generate(ctx context.Context, projectID int, start, due *time.Time, createdBy string) (int, error) {
	if start == nil || due == nil || !due.After(*start) {
		return 0, ErrInvalidRange
	}

	weeks := WeeksBetween(*start, *due)
	s.logger.Info("Generating progress schedule",
		zap.Int("project_id", projectID),
		zap.Int("weeks", weeks),
		zap.Time("start_date", *start),
		zap.Time("due_date", *due),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for weekNo := 1; weekNo <= weeks; weekNo++ {
		zero := 0.0
		record := &model.ProgressRecord{
			ProjectID:      projectID,
			WeekNo:         weekNo,
			ReportDate:     start.AddDate(0, 0, 7*(weekNo-1)),
			PlanProgress:   &zero,
			ActualProgress: &zero,
		}
		if createdBy != "" {
			record.CreatedBy = &createdBy
		}
		g.Go(func() error {
			_, err := s.progress.Insert(gctx, record)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Progress schedule generation failed",
			zap.Int("project_id", projectID),
			zap.Error(err),
		)
		return 0, err
	}

	s.logger.Info("Progress schedule generated",
		zap.Int("project_id", projectID),
		zap.Int("rows", weeks),
	)
	return weeks, nil
}
