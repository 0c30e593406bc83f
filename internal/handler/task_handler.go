package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecttracker/internal/model"
	"projecttracker/internal/repository"
)

type TaskHandler struct {
	repo   *repository.TaskRepository
	logger *zap.Logger
}

func NewTaskHandler(repo *repository.TaskRepository, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{repo: repo, logger: logger}
}

func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Error retrieving tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) ListByProject(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	tasks, err := h.repo.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error retrieving tasks", err)
		return
	}
	if len(tasks) == 0 {
		respondError(c, http.StatusNotFound, "No tasks found for the given project_id", nil)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

type taskRequest struct {
	ProjectID       int     `json:"project_id"`
	CuTaskID        *string `json:"cu_task_id"`
	TaskTitle       *string `json:"task_title"`
	StartDate       Date    `json:"start_date"`
	DueDate         Date    `json:"due_date"`
	ActualStartDate Date    `json:"actual_start_date"`
	ActualEndDate   Date    `json:"actual_end_date"`
	RateCard        Number  `json:"rate_card"`
	PlanCost        Number  `json:"plan_cost"`
	ActualCost      Number  `json:"actual_cost"`
	SPI             Number  `json:"spi"`
	CPI             Number  `json:"cpi"`
	StatusLabel     *string `json:"status_label"`
}

func (r *taskRequest) toModel() *model.Task {
	return &model.Task{
		ProjectID:       r.ProjectID,
		CuTaskID:        r.CuTaskID,
		TaskTitle:       r.TaskTitle,
		StartDate:       r.StartDate.Time,
		DueDate:         r.DueDate.Time,
		ActualStartDate: r.ActualStartDate.Time,
		ActualEndDate:   r.ActualEndDate.Time,
		RateCard:        r.RateCard.Value,
		PlanCost:        r.PlanCost.Value,
		ActualCost:      r.ActualCost.Value,
		SPI:             r.SPI.Value,
		CPI:             r.CPI.Value,
		StatusLabel:     r.StatusLabel,
	}
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ProjectID == 0 {
		respondError(c, http.StatusBadRequest, "project_id is required", nil)
		return
	}

	task := req.toModel()
	id, err := h.repo.Insert(c.Request.Context(), task)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error creating task", err)
		return
	}
	task.ID = id
	task.Status = true
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	task, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Task not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error retrieving task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	task, err := h.repo.Update(c.Request.Context(), id, req.toModel())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Task not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error updating task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) ToggleStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	isActive := c.Param("isActive")
	if isActive != "true" && isActive != "false" {
		respondError(c, http.StatusBadRequest, "Invalid input: isActive must be a boolean", nil)
		return
	}

	if err := h.repo.SetStatus(c.Request.Context(), id, isActive == "true"); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Task not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error updating task status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task status updated"})
}

// RegisterExternal links an external task id to a project, creating the
// local row the next sync cycle fills in. Invoked by the external system's
// automation webhook.
func (h *TaskHandler) RegisterExternal(c *gin.Context) {
	projectIDRaw := c.Query("project_id")
	cuTaskID := c.Query("cu_task_id")
	if projectIDRaw == "" || cuTaskID == "" {
		respondError(c, http.StatusBadRequest, "Missing project_id or cu_task_id", nil)
		return
	}
	projectID, err := strconv.Atoi(projectIDRaw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid project_id", err)
		return
	}

	id, err := h.repo.InsertLink(c.Request.Context(), projectID, cuTaskID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error inserting task", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Data inserted successfully",
		"task_id": id,
	})
}
