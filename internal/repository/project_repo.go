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

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

const projectColumns = `
    id, project_name, cu_project_id, project_type, company_id,
    start_date, due_date, modified_by, status, created_at
`

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID,
		&p.ProjectName,
		&p.CuProjectID,
		&p.ProjectType,
		&p.CompanyID,
		&p.StartDate,
		&p.DueDate,
		&p.ModifiedBy,
		&p.Status,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]model.Project, error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "projects", time.Since(start)) }()

	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) (int, error) {
	r.logger.Debug("Inserting project", zap.String("project_name", p.ProjectName))

	query := `
        INSERT INTO projects (project_name, cu_project_id, project_type, company_id,
                              start_date, due_date, modified_by, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, true)
        RETURNING id
    `
	var id int
	err := r.db.QueryRow(ctx, query,
		p.ProjectName,
		p.CuProjectID,
		p.ProjectType,
		p.CompanyID,
		p.StartDate,
		p.DueDate,
		p.ModifiedBy,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return 0, err
	}

	r.logger.Info("Project inserted successfully",
		zap.Int("id", id),
		zap.String("project_name", p.ProjectName),
	)
	return id, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id int) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return scanProject(r.db.QueryRow(ctx, query, id))
}

func (r *ProjectRepository) FindByCuProjectID(ctx context.Context, cuProjectID string) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE cu_project_id = $1`
	return scanProject(r.db.QueryRow(ctx, query, cuProjectID))
}

// Update overwrites only the fields present in the patch; nil fields keep
// their stored value.
func (r *ProjectRepository) Update(ctx context.Context, id int, p *model.Project) (*model.Project, error) {
	query := `
        UPDATE projects
        SET project_name = COALESCE(NULLIF($1, ''), project_name),
            cu_project_id = COALESCE($2, cu_project_id),
            project_type = COALESCE($3, project_type),
            company_id = COALESCE($4, company_id),
            start_date = COALESCE($5, start_date),
            due_date = COALESCE($6, due_date),
            modified_by = COALESCE($7, modified_by)
        WHERE id = $8
        RETURNING ` + projectColumns
	return scanProject(r.db.QueryRow(ctx, query,
		p.ProjectName,
		p.CuProjectID,
		p.ProjectType,
		p.CompanyID,
		p.StartDate,
		p.DueDate,
		p.ModifiedBy,
		id,
	))
}

func (r *ProjectRepository) SetStatus(ctx context.Context, id int, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE projects SET status = $1 WHERE id = $2`, active, id)
	if err != nil {
		r.logger.Error("Failed to update project status",
			zap.Int("id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
