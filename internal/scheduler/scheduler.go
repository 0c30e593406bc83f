package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Daily fires a job once per day at a fixed wall-clock time in a fixed
// time zone. It keeps no state between firings; each run is independent.
// The job itself is injected so tests and the manual HTTP trigger can
// invoke it directly without waiting for the calendar.
type Daily struct {
	hour   int
	minute int
	loc    *time.Location
	job    func(ctx context.Context) error
	logger *zap.Logger
}

func NewDaily(hour, minute int, loc *time.Location, job func(ctx context.Context) error, logger *zap.Logger) *Daily {
	return &Daily{
		hour:   hour,
		minute: minute,
		loc:    loc,
		job:    job,
		logger: logger,
	}
}

// Next returns the first scheduled fire time strictly after now.
func (d *Daily) Next(now time.Time) time.Time {
	local := now.In(d.loc)
	fire := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !fire.After(local) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// Run blocks, firing the job at every scheduled time until ctx is done.
func (d *Daily) Run(ctx context.Context) {
	for {
		next := d.Next(time.Now())
		d.logger.Info("Scheduler waiting for next fire",
			zap.Time("next", next),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			d.logger.Info("Scheduler stopped")
			return
		case <-timer.C:
			d.logger.Info("Scheduler firing daily job")
			if err := d.job(ctx); err != nil {
				d.logger.Error("Daily job failed", zap.Error(err))
			}
		}
	}
}
