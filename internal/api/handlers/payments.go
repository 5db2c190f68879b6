package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
)

// PaymentsHandler handles payment ledger and calendar requests.
type PaymentsHandler struct {
	*Base
}

// NewPaymentsHandler creates a new payments handler.
func NewPaymentsHandler(base *Base) *PaymentsHandler {
	return &PaymentsHandler{Base: base}
}

// ListForService returns a service's realized payments, newest first.
// Query params:
//   - limit: max results (0 = all)
//   - include_transaction: attach the funding transaction
func (h *PaymentsHandler) ListForService(c *gin.Context) {
	limit, err := IntQuery(c, "limit", 0)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	payments, err := h.tracker.GetServicePayments(c.Request.Context(), middleware.UserID(c), c.Param("id"), limit, BoolQuery(c, "include_transaction", false))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.writePayments(c, payments)
}

// Link records a transaction as a payment of the service.
func (h *PaymentsHandler) Link(c *gin.Context) {
	var req dto.LinkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.tracker.Link(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.TransactionID, req.MatchedBy, req.MatchConfidence)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

// Unlink removes a realized payment.
func (h *PaymentsHandler) Unlink(c *gin.Context) {
	if err := h.tracker.Unlink(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Upcoming returns realized and predicted payments from today forward.
// Query params:
//   - months: window length in months (default 1)
func (h *PaymentsHandler) Upcoming(c *gin.Context) {
	months, err := IntQuery(c, "months", 1)
	if err != nil {
		h.WriteError(c, err)
		return
	}

	payments, err := h.tracker.GetUpcomingPayments(c.Request.Context(), middleware.UserID(c), months)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.writePayments(c, payments)
}

// Month returns realized and predicted payments of one calendar month.
func (h *PaymentsHandler) Month(c *gin.Context) {
	year, err := IntParam(c, "year")
	if err != nil {
		h.WriteError(c, err)
		return
	}
	month, err := IntParam(c, "month")
	if err != nil {
		h.WriteError(c, err)
		return
	}

	payments, err := h.tracker.GetMonthPayments(c.Request.Context(), middleware.UserID(c), year, month)
	if err != nil {
		h.WriteError(c, err)
		return
	}
	h.writePayments(c, payments)
}

func (h *PaymentsHandler) writePayments(c *gin.Context, payments []tracker.PaymentView) {
	if payments == nil {
		payments = []tracker.PaymentView{}
	}
	c.JSON(http.StatusOK, dto.PaymentListResponse{Payments: payments, Count: len(payments)})
}
