package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/domain/models"
	"github.com/mamadbah2/farmer/internal/service/finance"
)

// FinanceHandler serves the ledger and the analytics dashboard.
type FinanceHandler struct {
	base
	finance *finance.Service
}

// NewFinanceHandler constructs the handler.
func NewFinanceHandler(financeSvc *finance.Service, loc *time.Location, logger *zap.Logger) *FinanceHandler {
	return &FinanceHandler{base: newBase(loc, logger), finance: financeSvc}
}

type transactionRequest struct {
	Type        models.TransactionType `json:"type" binding:"required,oneof=income expense"`
	Category    string                 `json:"category" binding:"required"`
	Amount      float64                `json:"amount" binding:"min=0"`
	Description string                 `json:"description" binding:"required"`
	BatchID     string                 `json:"batch_id"`
	Date        string                 `json:"date"`
}

// ListTransactions handles GET /transactions?type=&category=&batch=&startDate=&endDate=.
func (h *FinanceHandler) ListTransactions(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	filter, err := h.transactionFilter(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	txs, err := h.finance.ListTransactions(c.Request.Context(), userID, filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	ok(c, http.StatusOK, txs)
}

func (h *FinanceHandler) transactionFilter(c *gin.Context) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		filter.Type = models.TransactionType(raw)
		if !filter.Type.Valid() {
			return filter, apperr.Invalid("type", "must be income or expense")
		}
	}
	filter.Category = strings.TrimSpace(c.Query("category"))

	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		return filter, err
	}
	filter.BatchID = batchID

	from, err := h.parseDate(c.Query("startDate"), "startDate")
	if err != nil {
		return filter, err
	}
	if from != nil {
		filter.From = *from
	}

	raw := strings.TrimSpace(c.Query("endDate"))
	to, err := h.parseDate(raw, "endDate")
	if err != nil {
		return filter, err
	}
	if to != nil {
		filter.To = *to
		// A bare calendar date covers the whole day.
		if len(raw) == len(dateOnly) {
			filter.To = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return filter, nil
}

// CreateTransaction handles POST /transactions.
func (h *FinanceHandler) CreateTransaction(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req transactionRequest
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
	tx, err := h.finance.CreateTransaction(c.Request.Context(), userID, finance.TransactionInput{
		Type:        req.Type,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		BatchID:     batchID,
		Date:        date,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /transactions/:id.
func (h *FinanceHandler) DeleteTransaction(c *gin.Context) {
	h.deleteByID(c, h.finance.DeleteTransaction)
}

// Categories handles GET /transactions/categories.
func (h *FinanceHandler) Categories(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"income":  models.IncomeCategories,
		"expense": models.ExpenseCategories,
	})
}

// Analytics handles GET /finances/analytics?period=&batch=.
func (h *FinanceHandler) Analytics(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	period, err := finance.ParsePeriod(strings.TrimSpace(c.Query("period")))
	if err != nil {
		h.fail(c, err)
		return
	}
	batchID, err := optionalID(c.Query("batch"), "batch")
	if err != nil {
		h.fail(c, err)
		return
	}
	report, err := h.finance.Analytics(c.Request.Context(), userID, period, batchID)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}
