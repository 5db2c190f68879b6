package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// Base provides shared functionality for all handlers.
type Base struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewBase creates a new base handler backed by the tracker.
func NewBase(t *tracker.Tracker, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{tracker: t, logger: logger}
}

// WriteError maps a tracker error onto its status code and error body.
func (b *Base) WriteError(c *gin.Context, err error) {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		duplicateErr  *model.DuplicateServiceError
		linkedErr     *model.AlreadyLinkedError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.ValidationError(validationErr.Field, validationErr.Error()))
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, dto.NotFoundError(notFoundErr.Error()))
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, dto.ConflictError(dto.ErrCodeDuplicateService, duplicateErr.Error()))
	case errors.As(err, &linkedErr):
		c.JSON(http.StatusConflict, dto.ConflictError(dto.ErrCodeAlreadyLinked, linkedErr.Error()))
	default:
		b.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"user_id", middleware.UserID(c),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, dto.InternalError())
	}
}

// BindJSON decodes the request body, writing a 400 on malformed input.
func (b *Base) BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// IntQuery parses an integer query parameter with a default value.
// Malformed values are validation errors rather than silently defaulted.
func IntQuery(c *gin.Context, name string, defaultVal int) (int, error) {
	val := c.Query(name)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	return parsed, nil
}

// IntParam parses an integer path parameter.
func IntParam(c *gin.Context, name string) (int, error) {
	parsed, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, model.NewValidationError(name, "must be an integer")
	}
	return parsed, nil
}

// BoolQuery parses a boolean query parameter with a default value.
func BoolQuery(c *gin.Context, name string, defaultVal bool) bool {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// DateQuery parses an optional YYYY-MM-DD query parameter.
func DateQuery(c *gin.Context, name string) (*civil.Date, error) {
	val := c.Query(name)
	if val == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(val)
	if err != nil {
		return nil, model.NewValidationError(name, "must be a YYYY-MM-DD date")
	}
	return &d, nil
}
