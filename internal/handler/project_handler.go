package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecttracker/internal/model"
	"projecttracker/internal/repository"
	"projecttracker/internal/service"
)

type ProjectHandler struct {
	repo     *repository.ProjectRepository
	schedule *service.ScheduleService
	progress *service.ProgressService
	logger   *zap.Logger
}

func NewProjectHandler(
	repo *repository.ProjectRepository,
	schedule *service.ScheduleService,
	progress *service.ProgressService,
	logger *zap.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		repo:     repo,
		schedule: schedule,
		progress: progress,
		logger:   logger,
	}
}

func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list projects", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Error retrieving projects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

type projectRequest struct {
	ProjectName string  `json:"project_name"`
	CuProjectID *string `json:"cu_project_id"`
	ProjectType *string `json:"project_type"`
	CompanyID   *int    `json:"company_id"`
	StartDate   Date    `json:"start_date"`
	DueDate     Date    `json:"due_date"`
	ModifiedBy  *string `json:"modified_by"`
	CreatedBy   string  `json:"created_by"`
}

// Create inserts the project and, when both dates are present, materializes
// its weekly progress schedule in the same request. An inverted date range
// is rejected before anything is persisted.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ProjectName == "" {
		respondError(c, http.StatusBadRequest, "project_name is required", nil)
		return
	}
	if req.StartDate.Time != nil && req.DueDate.Time != nil &&
		!req.DueDate.Time.After(*req.StartDate.Time) {
		respondError(c, http.StatusBadRequest, "invalid date range", service.ErrInvalidRange)
		return
	}

	project := &model.Project{
		ProjectName: req.ProjectName,
		CuProjectID: req.CuProjectID,
		ProjectType: req.ProjectType,
		CompanyID:   req.CompanyID,
		StartDate:   req.StartDate.Time,
		DueDate:     req.DueDate.Time,
		ModifiedBy:  req.ModifiedBy,
	}

	id, err := h.repo.Insert(c.Request.Context(), project)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error creating project", err)
		return
	}
	project.ID = id
	project.Status = true

	weeks := 0
	if req.StartDate.Time != nil && req.DueDate.Time != nil {
		weeks, err = h.schedule.Generate(c.Request.Context(), id, req.StartDate.Time, req.DueDate.Time, req.CreatedBy)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "Error generating progress schedule", err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"project":       project,
		"weeks_created": weeks,
	})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error retrieving project", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) GetByCuProjectID(c *gin.Context) {
	project, err := h.repo.FindByCuProjectID(c.Request.Context(), c.Param("cu_project_id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error retrieving project", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	patch := &model.Project{
		ProjectName: req.ProjectName,
		CuProjectID: req.CuProjectID,
		ProjectType: req.ProjectType,
		CompanyID:   req.CompanyID,
		StartDate:   req.StartDate.Time,
		DueDate:     req.DueDate.Time,
		ModifiedBy:  req.ModifiedBy,
	}
	project, err := h.repo.Update(c.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error updating project", err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) ToggleStatus(c *gin.Context) {
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
			respondError(c, http.StatusNotFound, "Project not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error updating project status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project status updated"})
}

type scheduleRequest struct {
	StartDate Date   `json:"start_date"`
	DueDate   Date   `json:"due_date"`
	CreatedBy string `json:"created_by"`
}

// GenerateSchedule creates the weekly progress grid for an existing project,
// from the request dates or, when absent, the project's stored dates.
func (h *ProjectHandler) GenerateSchedule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error retrieving project", err)
		return
	}

	var req scheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}
	start, due := req.StartDate.Time, req.DueDate.Time
	if start == nil {
		start = project.StartDate
	}
	if due == nil {
		due = project.DueDate
	}

	weeks, err := h.schedule.Generate(c.Request.Context(), id, start, due, req.CreatedBy)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRange) {
			respondError(c, http.StatusBadRequest, "invalid date range", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error generating progress schedule", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks_created": weeks})
}

// PlanProgress recomputes the plan-progress column of every progress row of
// one project.
func (h *ProjectHandler) PlanProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.repo.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error retrieving project", err)
		return
	}

	rows, err := h.progress.RecomputePlanProgress(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error recomputing plan progress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows_updated": rows})
}
