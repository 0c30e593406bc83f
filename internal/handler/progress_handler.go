package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecttracker/internal/model"
	"projecttracker/internal/repository"
)

type ProgressHandler struct {
	repo   *repository.ProgressRepository
	logger *zap.Logger
}

func NewProgressHandler(repo *repository.ProgressRepository, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{repo: repo, logger: logger}
}

type progressRequest struct {
	ProjectID      int     `json:"project_id"`
	WeekNo         int     `json:"week_no"`
	ReportDate     Date    `json:"report_date"`
	PlanProgress   Number  `json:"plan_progress"`
	ActualProgress Number  `json:"actual_progress"`
	PlanCost       Number  `json:"plan_cost"`
	ActualCost     Number  `json:"actual_cost"`
	PlanValue      Number  `json:"plan_value"`
	ActualValue    Number  `json:"actual_value"`
	SPI            Number  `json:"spi"`
	CPI            Number  `json:"cpi"`
	CreatedBy      *string `json:"created_by"`
}

func (r *progressRequest) toModel() *model.ProgressRecord {
	rec := &model.ProgressRecord{
		ProjectID:      r.ProjectID,
		WeekNo:         r.WeekNo,
		PlanProgress:   r.PlanProgress.Value,
		ActualProgress: r.ActualProgress.Value,
		PlanCost:       r.PlanCost.Value,
		ActualCost:     r.ActualCost.Value,
		PlanValue:      r.PlanValue.Value,
		ActualValue:    r.ActualValue.Value,
		SPI:            r.SPI.Value,
		CPI:            r.CPI.Value,
		CreatedBy:      r.CreatedBy,
	}
	if r.ReportDate.Time != nil {
		rec.ReportDate = *r.ReportDate.Time
	}
	return rec
}

func (h *ProgressHandler) Create(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.ProjectID == 0 || req.WeekNo == 0 || req.ReportDate.Time == nil {
		respondError(c, http.StatusBadRequest, "project_id, week_no and report_date are required", nil)
		return
	}

	if _, err := h.repo.Insert(c.Request.Context(), req.toModel()); err != nil {
		respondError(c, http.StatusInternalServerError, "Error creating project progress", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Project progress created successfully"})
}

func (h *ProgressHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	rec := req.toModel()
	rec.ID = id
	if err := h.repo.Update(c.Request.Context(), rec); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project progress not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error updating project progress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project progress updated successfully"})
}

func (h *ProgressHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Project progress not found", nil)
			return
		}
		respondError(c, http.StatusInternalServerError, "Error deleting project progress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project progress deleted successfully"})
}

func (h *ProgressHandler) ListByCuProject(c *gin.Context) {
	records, err := h.repo.ListByCuProjectID(c.Request.Context(), c.Param("cu_project_id"))
	if err != nil {
		h.logger.Error("Failed to list progress rows",
			zap.String("cu_project_id", c.Param("cu_project_id")),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "Error retrieving project progress", err)
		return
	}
	c.JSON(http.StatusOK, records)
}
