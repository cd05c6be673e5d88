// Package handlers adapts the services to gin routes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmer/internal/domain/apperr"
	"github.com/mamadbah2/farmer/internal/server/middleware"
)

const dateOnly = "2006-01-02"

// base carries what every handler needs.
type base struct {
	loc    *time.Location
	logger *zap.Logger
}

func newBase(loc *time.Location, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return base{loc: loc, logger: logger}
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error envelope. Store and unknown errors are logged and hidden from the client.
func (b base) fail(c *gin.Context, err error) {
	status := statusOf(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		b.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(status, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	message := err.Error()
	var e *apperr.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	body := gin.H{"success": false, "error": message}
	if fields := apperr.FieldsOf(err); len(fields) > 0 {
		body["details"] = fields
	}
	c.JSON(status, body)
}

// user returns the authenticated caller or writes 401.
func (b base) user(c *gin.Context) (primitive.ObjectID, bool) {
	id, found := middleware.UserID(c)
	if !found {
		b.fail(c, apperr.Unauthorized())
		return primitive.NilObjectID, false
	}
	return id, true
}

func init() {
	// Report binding failures under the JSON field names clients send.
	if v, isValidator := binding.Validator.Engine().(*validator.Validate); isValidator {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bind decodes the JSON body or writes 400. Failed binding rules are reported per field.
func (b base) bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var rules validator.ValidationErrors
	if !errors.As(err, &rules) {
		b.fail(c, apperr.Invalid("body", "invalid request body: "+err.Error()))
		return false
	}
	fields := make(map[string]string, len(rules))
	for _, fe := range rules {
		fields[fe.Field()] = ruleMessage(fe)
	}
	b.fail(c, apperr.Validation(fields))
	return false
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			return "must list at least " + fe.Param()
		case reflect.String:
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

// pathID parses the :id route parameter or writes 400.
func (b base) pathID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		b.fail(c, apperr.Invalid("id", "invalid id"))
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses an optional hex id; empty yields nil.
func optionalID(raw, field string) (*primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Invalid(field, "invalid id")
	}
	return &id, nil
}

func requiredID(raw, field string) (primitive.ObjectID, error) {
	id, err := optionalID(raw, field)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if id == nil {
		return primitive.NilObjectID, apperr.Invalid(field, "is required")
	}
	return *id, nil
}

func idList(raws []string, field string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(raws))
	for _, raw := range raws {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.Invalid(field, "invalid id "+raw)
		}
		out = append(out, id)
	}
	return out, nil
}

// parseDate accepts a calendar date (midnight in loc) or an RFC 3339 timestamp; empty yields nil.
func (b base) parseDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dateOnly, raw, b.loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperr.Invalid(field, "expected YYYY-MM-DD or RFC 3339")
	}
	return &t, nil
}

// deleteByID runs a user-scoped delete for the :id route parameter.
func (b base) deleteByID(c *gin.Context, del func(ctx context.Context, userID, id primitive.ObjectID) error) {
	userID, found := b.user(c)
	if !found {
		return
	}
	id, valid := b.pathID(c)
	if !valid {
		return
	}
	if err := del(c.Request.Context(), userID, id); err != nil {
		b.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id.Hex()})
}
