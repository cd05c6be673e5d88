package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/service/reminders"
)

// NotificationHandler serves the inbox and the manual reminder sweep.
type NotificationHandler struct {
	base
	reminders *reminders.Service
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(remindersSvc *reminders.Service, loc *time.Location, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{base: newBase(loc, logger), reminders: remindersSvc}
}

type markReadRequest struct {
	NotificationID string `json:"notification_id"`
	MarkAllAsRead  bool   `json:"mark_all_as_read"`
}

// Inbox handles GET /notifications?unread=true.
func (h *NotificationHandler) Inbox(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	inbox, err := h.reminders.Inbox(c.Request.Context(), userID, c.Query("unread") == "true")
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, inbox)
}

// MarkRead handles PATCH /notifications. Either one notification or all of them are flagged.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, found := h.user(c)
	if !found {
		return
	}
	var req markReadRequest
	if !h.bind(c, &req) {
		return
	}

	if req.MarkAllAsRead {
		updated, err := h.reminders.MarkAllRead(c.Request.Context(), userID)
		if err != nil {
			h.fail(c, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"updated": updated})
		return
	}

	if req.NotificationID == "" {
		h.fail(c, apperr.Invalid("notification_id", "notification_id or mark_all_as_read is required"))
		return
	}
	id, err := requiredID(req.NotificationID, "notification_id")
	if err != nil {
		h.fail(c, err)
		return
	}
	n, err := h.reminders.MarkRead(c.Request.Context(), userID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, http.StatusOK, n)
}

// CheckReminders handles POST /reminders/check. It runs the same sweep as the daily job.
func (h *NotificationHandler) CheckReminders(c *gin.Context) {
	if _, found := h.user(c); !found {
		return
	}
	res, err := h.reminders.CheckDue(c.Request.Context())
	if err != nil {
		// Partial sweeps still report what was created.
		h.logger.Warn("reminder sweep finished with errors", zap.Error(err))
		if res.Due == 0 {
			h.fail(c, err)
			return
		}
	}
	ok(c, http.StatusOK, res)
}
