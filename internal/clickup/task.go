package clickup

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"projecttracker/internal/model"
)

// Display names of the custom fields carrying cost and performance data.
const (
	FieldRateCard        = "Rate Card"
	FieldPlanCost        = "Plan Cost"
	FieldActualCost      = "Actual Cost"
	FieldSPI             = "SPI"
	FieldCPI             = "CPI"
	FieldPlanProgress    = "Plan Progress"
	FieldActualProgress  = "Actual Progress"
	FieldActualStartDate = "Actual Start Date"
	FieldActualEndDate   = "Actual End Date"
)

// TaskState is the normalized form of one external task.
type TaskState struct {
	Title           *string
	StatusLabel     *string
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
}

// SyncFields maps the normalized state onto the task columns a sync cycle
// is allowed to write.
func (s *TaskState) SyncFields() model.TaskSyncFields {
	return model.TaskSyncFields{
		TaskTitle:       s.Title,
		StartDate:       s.StartDate,
		DueDate:         s.DueDate,
		ActualStartDate: s.ActualStartDate,
		ActualEndDate:   s.ActualEndDate,
		RateCard:        s.RateCard,
		PlanCost:        s.PlanCost,
		ActualCost:      s.ActualCost,
		SPI:             s.SPI,
		CPI:             s.CPI,
		PlanProgress:    s.PlanProgress,
		ActualProgress:  s.ActualProgress,
		StatusLabel:     s.StatusLabel,
	}
}

// Completed reports whether the external status label means the task is done.
func (s *TaskState) Completed() bool {
	if s.StatusLabel == nil {
		return false
	}
	switch strings.ToLower(*s.StatusLabel) {
	case "complete", "closed":
		return true
	}
	return false
}

type taskPayload struct {
	Name      string          `json:"name"`
	Status    statusPayload   `json:"status"`
	StartDate json.RawMessage `json:"start_date"`
	DueDate   json.RawMessage `json:"due_date"`
	Fields    []customField   `json:"custom_fields"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type customField struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

func (p *taskPayload) normalize() *TaskState {
	state := &TaskState{
		StartDate: epochDate(p.StartDate),
		DueDate:   epochDate(p.DueDate),
	}
	if p.Name != "" {
		name := p.Name
		state.Title = &name
	}
	if p.Status.Status != "" {
		label := p.Status.Status
		state.StatusLabel = &label
	}

	state.ActualStartDate = fieldDate(p.Fields, FieldActualStartDate)
	state.ActualEndDate = fieldDate(p.Fields, FieldActualEndDate)
	state.RateCard = fieldNumber(p.Fields, FieldRateCard)
	state.PlanCost = fieldNumber(p.Fields, FieldPlanCost)
	state.ActualCost = fieldNumber(p.Fields, FieldActualCost)
	state.SPI = fieldNumber(p.Fields, FieldSPI)
	state.CPI = fieldNumber(p.Fields, FieldCPI)
	state.PlanProgress = fieldPercent(p.Fields, FieldPlanProgress)
	state.ActualProgress = fieldPercent(p.Fields, FieldActualProgress)

	return state
}

func lookupField(fields []customField, name string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.Name == name {
			if len(f.Value) == 0 || string(f.Value) == "null" {
				return nil, false
			}
			return f.Value, true
		}
	}
	return nil, false
}

// rawNumber accepts a JSON number or a numeric string, which is how ClickUp
// serializes custom field values depending on field type.
func rawNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return &v
		}
	}
	return nil
}

func fieldNumber(fields []customField, name string) *float64 {
	raw, ok := lookupField(fields, name)
	if !ok {
		return nil
	}
	return rawNumber(raw)
}

// fieldPercent reads a progress field whose value nests the percentage
// under percent_completed; a bare number is accepted too.
func fieldPercent(fields []customField, name string) *float64 {
	raw, ok := lookupField(fields, name)
	if !ok {
		return nil
	}
	var nested struct {
		PercentCompleted *float64 `json:"percent_completed"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.PercentCompleted != nil {
		return nested.PercentCompleted
	}
	return rawNumber(raw)
}

func fieldDate(fields []customField, name string) *time.Time {
	raw, ok := lookupField(fields, name)
	if !ok {
		return nil
	}
	return epochDate(raw)
}

// epochDate converts an epoch-milliseconds value (number or string) into a
// UTC calendar date. Absent or empty values are nil, never epoch start.
func epochDate(raw json.RawMessage) *time.Time {
	ms := rawNumber(raw)
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(int64(*ms)).UTC()
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
