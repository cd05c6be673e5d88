package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/service/export"
	"github.com/mamadbah2/farmer/internal/service/flock"
	"github.com/mamadbah2/farmer/internal/service/vaccination"
)

// BatchHandler serves batch routes.
type BatchHandler struct {
	base
	flock    *flock.Service
	vaccines *vaccination.Service
	exporter *export.Service
}

// NewBatchHandler constructs the handler. A nil exporter disables the export route.
func NewBatchHandler(flockSvc *flock.Service, vaccines *vaccination.Service, exporter *export.Service, loc *time.Location, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{base: newBase(loc, logger), flock: flockSvc, vaccines: vaccines, exporter: exporter}
}

type createBatchRequest struct {
	BatchCode          string          `json:"batch_code"`
	Name               string          `json:"name" binding:"required"`
	Breed              string          `json:"breed" binding:"required"`
	Category           models.Category `json:"category" binding:"omitempty,oneof=chick adult"`
	InitialSize        int             `json:"initial_size" binding:"required,min=1"`
	StartDate          string          `json:"start_date" binding:"required"`
	TotalCost          *float64        `json:"total_cost" binding:"omitempty,min=0"`
	VaccineTemplateIDs []string        `json:"vaccine_template_ids"`
}

type editBatchRequest struct {
	Name        *string          `json:"name"`
	Breed       *string          `json:"breed"`
	Category    *models.Category `json:"category" binding:"omitempty,oneof=chick adult"`
	Archived    *bool            `json:"archived"`
	MaleCount   *int             `json:"male_count" binding:"omitempty,min=0"`
	FemaleCount *int             `json:"female_count" binding:"omitempty,min=0"`
}

type addVaccinesRequest struct {
	TemplateIDs []string `json:"template_ids" binding:"required,min=1"`
}

// List handles GET /batches.
func (h *BatchHandler) List(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	batches, err := h.flock.List(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, batches)
}

// Create handles POST /batches.
func (h *BatchHandler) Create(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req createBatchRequest
	if !h.bind(c, &req) {
		return
	}
	start, err := h.parseDate(req.StartDate, "start_date")
	if err != nil {
		h.fail(c, err)
		return
	}
	templateIDs, err := idList(req.VaccineTemplateIDs, "vaccine_template_ids")
	if err != nil {
		h.fail(c, err)
		return
	}

	in := flock.CreateInput{
		BatchCode:          req.BatchCode,
		Name:               req.Name,
		Breed:              req.Breed,
		Category:           req.Category,
		InitialSize:        req.InitialSize,
		TotalCost:          req.TotalCost,
		VaccineTemplateIDs: templateIDs,
	}
	if start != nil {
		in.StartDate = *start
	}

	batch, err := h.flock.Create(c.Request.Context(), userID, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, batch)
}

// Get handles GET /batches/:id.
func (h *BatchHandler) Get(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	batch, err := h.flock.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, batch)
}

// Edit handles PATCH /batches/:id.
func (h *BatchHandler) Edit(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	var req editBatchRequest
	if !h.bind(c, &req) {
		return
	}
	batch, err := h.flock.Edit(c.Request.Context(), userID, id, flock.EditInput(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, batch)
}

// Delete handles DELETE /batches/:id.
func (h *BatchHandler) Delete(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	if err := h.flock.Delete(c.Request.Context(), userID, id); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Batch and all related records deleted"})
}

// AddVaccines handles POST /batches/:id/vaccines.
func (h *BatchHandler) AddVaccines(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	var req addVaccinesRequest
	if !h.bind(c, &req) {
		return
	}
	templateIDs, err := idList(req.TemplateIDs, "template_ids")
	if err != nil {
		h.fail(c, err)
		return
	}
	scheduled, err := h.vaccines.AddVaccinesToBatch(c.Request.Context(), userID, id, templateIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, scheduled)
}

// Export handles POST /batches/:id/export.
func (h *BatchHandler) Export(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	id, valid := h.pathID(c)
	if !valid {
		return
	}
	if h.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Spreadsheet export is not configured"})
		return
	}
	res, err := h.exporter.VaccinationSchedule(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("batch exported", zap.String("batch_id", id.Hex()), zap.String("sheet", res.Sheet))
	ok(c, http.StatusOK, res)
}
