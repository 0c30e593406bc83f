package model

import "time"

// ProgressRecord is one weekly row of the project_progress table.
// The rows for a project form a contiguous weekly grid from its start
// date: report_date = start_date + 7*(week_no-1) days.
type ProgressRecord struct {
	ID             int        `json:"id"`
	ProjectID      int        `json:"project_id"`
	WeekNo         int        `json:"week_no"`
	ReportDate     time.Time  `json:"report_date"`
	PlanProgress   *float64   `json:"plan_progress"`
	ActualProgress *float64   `json:"actual_progress"`
	PlanCost       *float64   `json:"plan_cost"`
	ActualCost     *float64   `json:"actual_cost"`
	PlanValue      *float64   `json:"plan_value"`
	ActualValue    *float64   `json:"actual_value"`
	SPI            *float64   `json:"spi"`
	CPI            *float64   `json:"cpi"`
	CreatedBy      *string    `json:"created_by"`
	ModifiedAt     *time.Time `json:"modified_at"`
}

// ProjectMetrics is a row of the read-only project_progress_view:
// per-project averages across that project's tasks.
type ProjectMetrics struct {
	ProjectID      int      `json:"project_id"`
	AvgSPI         *float64 `json:"avg_spi"`
	AvgCPI         *float64 `json:"avg_cpi"`
	ActualProgress *float64 `json:"actual_progress"`
}
