package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/domain/detector"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// DetectionHandler handles detection and confirmation requests.
type DetectionHandler struct {
	*Base
	defaults detector.Options
}

// NewDetectionHandler creates a detection handler. defaults apply when the
// query omits min_occurrences or lookback_months.
func NewDetectionHandler(base *Base, defaults detector.Options) *DetectionHandler {
	return &DetectionHandler{Base: base, defaults: defaults}
}

// Detect scans unlinked transactions for recurring candidates.
// Nothing is persisted.
func (h *DetectionHandler) Detect(c *gin.Context) {
	minOcc, err := IntQuery(c, "min_occurrences", h.defaults.MinOccurrences)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	lookback, err := IntQuery(c, "lookback_months", h.defaults.LookbackMonths)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	candidates, err := h.tracker.Detect(c.Request.Context(), middleware.UserID(c), detector.Options{
		MinOccurrences: minOcc,
		LookbackMonths: lookback,
	})
	if err != nil {
		h.WriteError(c, err)
		return
	}
	if candidates == nil {
		candidates = []model.Candidate{}
	}

	c.JSON(http.StatusOK, dto.DetectResponse{Candidates: candidates, Count: len(candidates)})
}

// Confirm turns the chosen candidates into services.
func (h *DetectionHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.tracker.ConfirmDetected(c.Request.Context(), middleware.UserID(c), req.Candidates)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
