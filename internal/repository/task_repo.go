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

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

const taskColumns = `
    id, project_id, cu_task_id, task_title, start_date, due_date,
    actual_start_date, actual_end_date, rate_card, plan_cost, actual_cost,
    spi, cpi, plan_progress, actual_progress, status_label, status, created_at
`

// Statuses the external source uses for a finished task.
const completedLabels = `('complete', 'closed')`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.ProjectID,
		&t.CuTaskID,
		&t.TaskTitle,
		&t.StartDate,
		&t.DueDate,
		&t.ActualStartDate,
		&t.ActualEndDate,
		&t.RateCard,
		&t.PlanCost,
		&t.ActualCost,
		&t.SPI,
		&t.CPI,
		&t.PlanProgress,
		&t.ActualProgress,
		&t.StatusLabel,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) collect(rows pgx.Rows) ([]model.Task, error) {
	defer rows.Close()
	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID int) ([]model.Task, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY id`,
		projectID,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// ListByProjects returns the tasks of every listed project in one query.
func (r *TaskRepository) ListByProjects(ctx context.Context, projectIDs []int) ([]model.Task, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "tasks", time.Since(start)) }()

	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ANY($1) ORDER BY id`,
		projectIDs,
	)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *TaskRepository) FindByID(ctx context.Context, id int) (*model.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

func (r *TaskRepository) FindByCuTaskID(ctx context.Context, cuTaskID string) (*model.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE cu_task_id = $1`, cuTaskID))
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) (int, error) {
	query := `
        INSERT INTO tasks (project_id, cu_task_id, task_title, start_date, due_date,
                           actual_start_date, actual_end_date, rate_card, plan_cost,
                           actual_cost, spi, cpi, plan_progress, actual_progress,
                           status_label, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, true)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		t.ProjectID,
		t.CuTaskID,
		t.TaskTitle,
		t.StartDate,
		t.DueDate,
		t.ActualStartDate,
		t.ActualEndDate,
		t.RateCard,
		t.PlanCost,
		t.ActualCost,
		t.SPI,
		t.CPI,
		t.PlanProgress,
		t.ActualProgress,
		t.StatusLabel,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert task", zap.Error(err))
		return 0, err
	}
	return id, nil
}

// InsertLink creates the minimal row binding an external task to a project.
// The external fields are filled by a follow-up UpdateSyncFields.
func (r *TaskRepository) InsertLink(ctx context.Context, projectID int, cuTaskID string) (int, error) {
	var id int
	err := r.db.QueryRow(ctx,
		`INSERT INTO tasks (project_id, cu_task_id, status) VALUES ($1, $2, true) RETURNING id`,
		projectID, cuTaskID,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to link task",
			zap.Int("project_id", projectID),
			zap.String("cu_task_id", cuTaskID),
			zap.Error(err),
		)
		return 0, err
	}
	r.logger.Info("Task linked to external id",
		zap.Int("id", id),
		zap.Int("project_id", projectID),
		zap.String("cu_task_id", cuTaskID),
	)
	return id, nil
}

// UpdateSyncFields overwrites the externally-sourced columns of one task.
func (r *TaskRepository) UpdateSyncFields(ctx context.Context, id int, f model.TaskSyncFields) error {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("update", "tasks", time.Since(start)) }()

	query := `
        UPDATE tasks
        SET task_title = $1, start_date = $2, due_date = $3,
            actual_start_date = $4, actual_end_date = $5, rate_card = $6,
            plan_cost = $7, actual_cost = $8, spi = $9, cpi = $10,
            plan_progress = $11, actual_progress = $12, status_label = $13
        WHERE id = $14
    `
	tag, err := r.db.Exec(ctx, query,
		f.TaskTitle,
		f.StartDate,
		f.DueDate,
		f.ActualStartDate,
		f.ActualEndDate,
		f.RateCard,
		f.PlanCost,
		f.ActualCost,
		f.SPI,
		f.CPI,
		f.PlanProgress,
		f.ActualProgress,
		f.StatusLabel,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Update applies a partial local edit; nil fields keep their stored value.
func (r *TaskRepository) Update(ctx context.Context, id int, t *model.Task) (*model.Task, error) {
	query := `
        UPDATE tasks
        SET cu_task_id = COALESCE($1, cu_task_id),
            task_title = COALESCE($2, task_title),
            start_date = COALESCE($3, start_date),
            due_date = COALESCE($4, due_date),
            actual_start_date = COALESCE($5, actual_start_date),
            actual_end_date = COALESCE($6, actual_end_date),
            rate_card = COALESCE($7, rate_card),
            plan_cost = COALESCE($8, plan_cost),
            actual_cost = COALESCE($9, actual_cost),
            spi = COALESCE($10, spi),
            cpi = COALESCE($11, cpi),
            status_label = COALESCE($12, status_label)
        WHERE id = $13
        RETURNING ` + taskColumns
	return scanTask(r.db.QueryRow(ctx, query,
		t.CuTaskID,
		t.TaskTitle,
		t.StartDate,
		t.DueDate,
		t.ActualStartDate,
		t.ActualEndDate,
		t.RateCard,
		t.PlanCost,
		t.ActualCost,
		t.SPI,
		t.CPI,
		t.StatusLabel,
		id,
	))
}

func (r *TaskRepository) SetStatus(ctx context.Context, id int, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE tasks SET status = $1 WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) CountByProject(ctx context.Context, projectID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tasks WHERE project_id = $1`, projectID).Scan(&n)
	return n, err
}

// CountCompletedDueBy counts the project's tasks that are finished and were
// due on or before the given date. Used by the plan-progress recompute.
func (r *TaskRepository) CountCompletedDueBy(ctx context.Context, projectID int, date time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM tasks
        WHERE project_id = $1
          AND due_date IS NOT NULL
          AND due_date <= $2
          AND status_label IN ` + completedLabels
	var n int
	err := r.db.QueryRow(ctx, query, projectID, date).Scan(&n)
	return n, err
}
