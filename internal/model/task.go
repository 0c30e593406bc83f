package model

import "time"

type Task struct {
	ID              int        `json:"id"`
	ProjectID       int        `json:"project_id"`
	CuTaskID        *string    `json:"cu_task_id"`
	TaskTitle       *string    `json:"task_title"`
	StartDate       *time.Time `json:"start_date"`
	DueDate         *time.Time `json:"due_date"`
	ActualStartDate *time.Time `json:"actual_start_date"`
	ActualEndDate   *time.Time `json:"actual_end_date"`
	RateCard        *float64   `json:"rate_card"`
	PlanCost        *float64   `json:"plan_cost"`
	ActualCost      *float64   `json:"actual_cost"`
	SPI             *float64   `json:"spi"`
	CPI             *float64   `json:"cpi"`
	PlanProgress    *float64   `json:"plan_progress"`
	ActualProgress  *float64   `json:"actual_progress"`
	StatusLabel     *string    `json:"status_label"`
	Status          bool       `json:"status"` // true = active; completion comes from status_label
	CreatedAt       time.Time  `json:"created_at"`
}

// TaskSyncFields are the columns owned by the external task source. A sync
// cycle writes exactly these and nothing else, so locally-set fields (the
// active flag, project link) survive reconciliation.
type TaskSyncFields struct {
	TaskTitle       *string
	StartDate       *time.Time
	DueDate         *time.Time
	ActualStartDate *time.Time
	ActualEndDate   *time.Time
	RateCard        *float64
	PlanCost        *float64
	ActualCost      *float64
	SPI             *float64
	CPI             *float64
	PlanProgress    *float64
	ActualProgress  *float64
	StatusLabel     *string
}
