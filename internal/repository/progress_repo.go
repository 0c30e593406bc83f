package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"projecttracker/internal/model"
	"projecttracker/pkg/metrics"
)

type ProgressRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProgressRepository(db *pgxpool.Pool, logger *zap.Logger) *ProgressRepository {
	return &ProgressRepository{
		db:     db,
		logger: logger,
	}
}

const progressColumns = `
    id, project_id, week_no, report_date, plan_progress, actual_progress,
    plan_cost, actual_cost, plan_value, actual_value, spi, cpi,
    created_by, modified_at
`

func scanProgress(row pgx.Row) (*model.ProgressRecord, error) {
	var p model.ProgressRecord
	err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.WeekNo,
		&p.ReportDate,
		&p.PlanProgress,
		&p.ActualProgress,
		&p.PlanCost,
		&p.ActualCost,
		&p.PlanValue,
		&p.ActualValue,
		&p.SPI,
		&p.CPI,
		&p.CreatedBy,
		&p.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) collect(rows pgx.Rows) ([]model.ProgressRecord, error) {
	defer rows.Close()
	var records []model.ProgressRecord
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

func (r *ProgressRepository) Insert(ctx context.Context, p *model.ProgressRecord) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "project_progress", time.Since(start)) }()

	query := `
        INSERT INTO project_progress (project_id, week_no, report_date, plan_progress,
                                      actual_progress, plan_cost, actual_cost,
                                      plan_value, actual_value, spi, cpi, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		p.ProjectID,
		p.WeekNo,
		p.ReportDate,
		p.PlanProgress,
		p.ActualProgress,
		p.PlanCost,
		p.ActualCost,
		p.PlanValue,
		p.ActualValue,
		p.SPI,
		p.CPI,
		p.CreatedBy,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert progress record",
			zap.Int("project_id", p.ProjectID),
			zap.Int("week_no", p.WeekNo),
			zap.Error(err),
		)
		return 0, err
	}
	return id, nil
}

// ListDueOn returns every progress row whose report date falls on the
// given calendar day.
func (r *ProgressRepository) ListDueOn(ctx context.Context, date time.Time) ([]model.ProgressRecord, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "project_progress", time.Since(start)) }()

	rows, err := r.db.Query(ctx,
		`SELECT `+progressColumns+` FROM project_progress WHERE report_date = $1 ORDER BY id`,
		date,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *ProgressRepository) ListByProject(ctx context.Context, projectID int) ([]model.ProgressRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+progressColumns+` FROM project_progress WHERE project_id = $1 ORDER BY week_no`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *ProgressRepository) ListByCuProjectID(ctx context.Context, cuProjectID string) ([]model.ProgressRecord, error) {
	query := `
        SELECT ` + progressColumns + `
        FROM project_progress
        WHERE project_id = (SELECT id FROM projects WHERE cu_project_id = $1)
        ORDER BY week_no
    `
	rows, err := r.db.Query(ctx, query, cuProjectID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// UpdateMetrics writes the recomputed SPI/CPI/actual-progress of one row and
// refreshes its modified timestamp.
func (r *ProgressRepository) UpdateMetrics(ctx context.Context, id int, spi, cpi, actualProgress float64) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("update", "project_progress", time.Since(start)) }()

	query := `
        UPDATE project_progress
        SET spi = $1, cpi = $2, actual_progress = $3, modified_at = NOW()
        WHERE id = $4
    `
	tag, err := r.db.Exec(ctx, query, spi, cpi, actualProgress, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProgressRepository) UpdatePlanProgress(ctx context.Context, id int, planProgress float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE project_progress SET plan_progress = $1, modified_at = NOW() WHERE id = $2`,
		planProgress, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Update overwrites a row from a manual edit through the API.
func (r *ProgressRepository) Update(ctx context.Context, p *model.ProgressRecord) error {
	query := `
        UPDATE project_progress
        SET project_id = $1, week_no = $2, report_date = $3, plan_progress = $4,
            actual_progress = $5, plan_cost = $6, actual_cost = $7,
            plan_value = $8, actual_value = $9, spi = $10, cpi = $11,
            created_by = $12, modified_at = NOW()
        WHERE id = $13
    `
	tag, err := r.db.Exec(ctx, query,
		p.ProjectID,
		p.WeekNo,
		p.ReportDate,
		p.PlanProgress,
		p.ActualProgress,
		p.PlanCost,
		p.ActualCost,
		p.PlanValue,
		p.ActualValue,
		p.SPI,
		p.CPI,
		p.CreatedBy,
		p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProgressRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_progress WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ViewMetricsByProjects reads the aggregation view for the whole project set
// in one query, keyed by project id.
func (r *ProgressRepository) ViewMetricsByProjects(ctx context.Context, projectIDs []int) (map[int]model.ProjectMetrics, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "project_progress_view", time.Since(start)) }()

	query := `
        SELECT project_id, avg_spi, avg_cpi, actual_progress
        FROM project_progress_view
        WHERE project_id = ANY($1)
    `
	rows, err := r.db.Query(ctx, query, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]model.ProjectMetrics, len(projectIDs))
	for rows.Next() {
		var m model.ProjectMetrics
		if err := rows.Scan(&m.ProjectID, &m.AvgSPI, &m.AvgCPI, &m.ActualProgress); err != nil {
			return nil, err
		}
		out[m.ProjectID] = m
	}
	return out, rows.Err()
}
