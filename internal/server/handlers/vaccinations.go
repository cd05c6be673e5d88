package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/repository"
	"github.com/mamadbah2/farmer/internal/service/vaccination"
)

// VaccinationHandler serves vaccination and vaccine template routes.
type VaccinationHandler struct {
	base
	vaccines *vaccination.Service
}

// NewVaccinationHandler constructs the handler.
func NewVaccinationHandler(vaccines *vaccination.Service, loc *time.Location, logger *zap.Logger) *VaccinationHandler {
	return &VaccinationHandler{base: newBase(loc, logger), vaccines: vaccines}
}

type manualVaccinationRequest struct {
	BatchID     string `json:"batch_id" binding:"required"`
	VaccineName string `json:"vaccine_name" binding:"required"`
	AgeInDays   int    `json:"age_in_days" binding:"min=0"`
	Notes       string `json:"notes"`
}

type completeVaccinationRequest struct {
	CompletedDate string   `json:"completed_date"`
	ActualCost    *float64 `json:"actual_cost" binding:"omitempty,min=0"`
}

type templateRequest struct {
	Name        string  `json:"name" binding:"required"`
	DefaultCost float64 `json:"default_cost" binding:"min=0"`
	AgeInDays   int     `json:"age_in_days" binding:"min=0"`
	Description string  `json:"description"`
}

type templateUpdateRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=1"`
	DefaultCost *float64 `json:"default_cost" binding:"omitempty,min=0"`
	AgeInDays   *int     `json:"age_in_days" binding:"omitempty,min=0"`
	Description *string  `json:"description"`
	Active      *bool    `json:"active"`
}

// List handles GET /vaccinations?batch=.
func (h *VaccinationHandler) List(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		h.fail(c, err)
		return
	}
	views, err := h.vaccines.List(c.Request.Context(), userID, batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, views)
}

// Create handles POST /vaccinations.
func (h *VaccinationHandler) Create(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req manualVaccinationRequest
	if !h.bind(c, &req) {
		return
	}
	batchID, err := requiredID(req.BatchID, "batch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	v, err := h.vaccines.ScheduleManual(c.Request.Context(), userID, vaccination.ManualInput{
		BatchID:     batchID,
		VaccineName: req.VaccineName,
		AgeInDays:   req.AgeInDays,
		Notes:       req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, v)
}

// Complete handles PATCH /vaccinations/:id.
func (h *VaccinationHandler) Complete(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	var req completeVaccinationRequest
	if !h.bind(c, &req) {
		return
	}
	completed, err := h.parseDate(req.CompletedDate, "completed_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	v, err := h.vaccines.Complete(c.Request.Context(), userID, id, vaccination.CompleteInput{
		CompletedDate: completed,
		ActualCost:    req.ActualCost,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// Delete handles DELETE /vaccinations/:id.
func (h *VaccinationHandler) Delete(c *gin.Context) {
	h.deleteByID(c, h.vaccines.Delete)
}

// ListTemplates handles GET /vaccine-templates.
func (h *VaccinationHandler) ListTemplates(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	templates, err := h.vaccines.ListTemplates(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, templates)
}

// CreateTemplate handles POST /vaccine-templates.
func (h *VaccinationHandler) CreateTemplate(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req templateRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.vaccines.CreateTemplate(c.Request.Context(), userID, vaccination.TemplateInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, t)
}

// UpdateTemplate handles PATCH /vaccine-templates/:id.
func (h *VaccinationHandler) UpdateTemplate(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	var req templateUpdateRequest
	if !h.bind(c, &req) {
		return
	}
	t, err := h.vaccines.UpdateTemplate(c.Request.Context(), userID, id, repository.TemplateUpdate(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /vaccine-templates/:id.
func (h *VaccinationHandler) DeleteTemplate(c *gin.Context) {
	h.deleteByID(c, h.vaccines.DeleteTemplate)
}
