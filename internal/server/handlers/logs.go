package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/service/flock"
	"github.com/mamadbah2/farmer/internal/service/production"
)

// LogHandler serves the daily log routes: mortality, incubator, eggs and feed.
type LogHandler struct {
	base
	flock      *flock.Service
	production *production.Service
}

// NewLogHandler constructs the handler.
func NewLogHandler(flockSvc *flock.Service, productionSvc *production.Service, loc *time.Location, logger *zap.Logger) *LogHandler {
	return &LogHandler{base: newBase(loc, logger), flock: flockSvc, production: productionSvc}
}

type mortalityRequest struct {
	BatchID string `json:"batch_id" binding:"required"`
	Count   int    `json:"count" binding:"required,min=1"`
	Notes   string `json:"notes"`
	Date    string `json:"date"`
}

type incubatorRequest struct {
	BatchID    string `json:"batch_id" binding:"required"`
	Inserted   int    `json:"inserted" binding:"min=0"`
	Spoiled    int    `json:"spoiled" binding:"min=0"`
	Hatched    int    `json:"hatched" binding:"min=0"`
	NotHatched int    `json:"not_hatched" binding:"min=0"`
	Date       string `json:"date"`
}

type eggRequest struct {
	BatchID     string   `json:"batch_id" binding:"required"`
	Collected   int      `json:"collected" binding:"min=0"`
	Sold        int      `json:"sold" binding:"min=0"`
	Spoiled     int      `json:"spoiled" binding:"min=0"`
	PricePerEgg *float64 `json:"price_per_egg" binding:"omitempty,min=0"`
	Date        string   `json:"date"`
}

type feedRequest struct {
	BatchID  string  `json:"batch_id"`
	Type     string  `json:"type" binding:"required"`
	Price    float64 `json:"price" binding:"min=0"`
	Bags     int     `json:"bags" binding:"required,min=1"`
	KgPerBag float64 `json:"kg_per_bag" binding:"required,gt=0"`
	Date     string  `json:"date"`
}

// ListMortality handles GET /mortality?batch=.
func (h *LogHandler) ListMortality(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		h.fail(c, err)
		return
	}
	logs, err := h.flock.ListMortality(c.Request.Context(), userID, batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, logs)
}

// RecordMortality handles POST /mortality.
func (h *LogHandler) RecordMortality(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req mortalityRequest
	if !h.bind(c, &req) {
		return
	}
	batchID, err := requiredID(req.BatchID, "batch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	date, err := h.parseDate(req.Date, "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	record, err := h.flock.RecordMortality(c.Request.Context(), userID, batchID, flock.MortalityInput{
		Count: req.Count,
		Notes: req.Notes,
		Date:  date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, record)
}

// DeleteMortality handles DELETE /mortality/:id.
func (h *LogHandler) DeleteMortality(c *gin.Context) {
	h.deleteByID(c, h.flock.DeleteMortality)
}

// ListIncubator handles GET /incubator?batch=.
func (h *LogHandler) ListIncubator(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		h.fail(c, err)
		return
	}
	logs, err := h.flock.ListIncubator(c.Request.Context(), userID, batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, logs)
}

// RecordHatch handles POST /incubator.
func (h *LogHandler) RecordHatch(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req incubatorRequest
	if !h.bind(c, &req) {
		return
	}
	batchID, err := requiredID(req.BatchID, "batch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	date, err := h.parseDate(req.Date, "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.flock.RecordHatch(c.Request.Context(), userID, batchID, flock.HatchInput{
		Inserted:   req.Inserted,
		Spoiled:    req.Spoiled,
		Hatched:    req.Hatched,
		NotHatched: req.NotHatched,
		Date:       date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

// DeleteIncubator handles DELETE /incubator/:id.
func (h *LogHandler) DeleteIncubator(c *gin.Context) {
	h.deleteByID(c, h.flock.DeleteIncubator)
}

// ListEggs handles GET /eggs?batch=.
func (h *LogHandler) ListEggs(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		h.fail(c, err)
		return
	}
	logs, err := h.production.ListEggs(c.Request.Context(), userID, batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, logs)
}

// RecordEggs handles POST /eggs.
func (h *LogHandler) RecordEggs(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req eggRequest
	if !h.bind(c, &req) {
		return
	}
	batchID, err := requiredID(req.BatchID, "batch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	date, err := h.parseDate(req.Date, "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.production.RecordEggs(c.Request.Context(), userID, production.EggInput{
		BatchID:     batchID,
		Collected:   req.Collected,
		Sold:        req.Sold,
		Spoiled:     req.Spoiled,
		PricePerEgg: req.PricePerEgg,
		Date:        date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

// DeleteEggs handles DELETE /eggs/:id.
func (h *LogHandler) DeleteEggs(c *gin.Context) {
	h.deleteByID(c, h.production.DeleteEggs)
}

// EggStats handles GET /eggs/stats?batch=.
func (h *LogHandler) EggStats(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		h.fail(c, err)
		return
	}
	stats, err := h.production.EggStats(c.Request.Context(), userID, batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// ListFeed handles GET /feed.
func (h *LogHandler) ListFeed(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	logs, err := h.production.ListFeed(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, logs)
}

// RecordFeed handles POST /feed.
func (h *LogHandler) RecordFeed(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req feedRequest
	if !h.bind(c, &req) {
		return
	}
	batchID, err := optionalID(req.BatchID, "batch_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	date, err := h.parseDate(req.Date, "date")
	if err != nil {
		h.fail(c, err)
		return
	}
	entry, err := h.production.RecordFeed(c.Request.Context(), userID, production.FeedInput{
		BatchID:  batchID,
		Type:     req.Type,
		Price:    req.Price,
		Bags:     req.Bags,
		KgPerBag: req.KgPerBag,
		Date:     date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, entry)
}

// DeleteFeed handles DELETE /feed/:id.
func (h *LogHandler) DeleteFeed(c *gin.Context) {
	h.deleteByID(c, h.production.DeleteFeed)
}

// FeedStats handles GET /feed/stats.
func (h *LogHandler) FeedStats(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	stats, err := h.production.FeedStats(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}
