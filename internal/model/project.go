package model

import "time"

type Project struct {
	ID          int        `json:"id"`
	ProjectName string     `json:"project_name"`
	CuProjectID *string    `json:"cu_project_id"`
	ProjectType *string    `json:"project_type"`
	CompanyID   *int       `json:"company_id"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	ModifiedBy  *string    `json:"modified_by"`
	Status      bool       `json:"status"` // true = active
	CreatedAt   time.Time  `json:"created_at"`
}
