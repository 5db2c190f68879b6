package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/application/tracker"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// ServicesHandler handles recurring service requests.
type ServicesHandler struct {
	*Base
}

// NewServicesHandler creates a new services handler.
func NewServicesHandler(base *Base) *ServicesHandler {
	return &ServicesHandler{Base: base}
}

// List returns the user's services.
// Query params:
//   - status: comma-separated statuses to include
//   - include_payments: attach realized payments to each service
func (h *ServicesHandler) List(c *gin.Context) {
	var filter tracker.StatusFilter
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			filter = append(filter, model.ServiceStatus(s))
		}
	}

	services, err := h.tracker.GetServices(c.Request.Context(), middleware.UserID(c), filter, BoolQuery(c, "include_payments", false))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	if services == nil {
		services = []tracker.ServiceView{}
	}

	c.JSON(http.StatusOK, dto.ServiceListResponse{Services: services, Count: len(services)})
}

// Get returns a single service with its payments.
func (h *ServicesHandler) Get(c *gin.Context) {
	view, err := h.tracker.GetService(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Create adds a manually entered service.
func (h *ServicesHandler) Create(c *gin.Context) {
	var req dto.CreateServiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	svc, err := h.tracker.CreateService(c.Request.Context(), middleware.UserID(c), req.ToInput())
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// Update applies a partial update to a service.
func (h *ServicesHandler) Update(c *gin.Context) {
	var req dto.UpdateServiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	svc, err := h.tracker.UpdateService(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.ToPatch())
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// Delete removes a service and its payments.
func (h *ServicesHandler) Delete(c *gin.Context) {
	if err := h.tracker.DeleteService(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Recalculate re-derives every service of the user from its payments.
func (h *ServicesHandler) Recalculate(c *gin.Context) {
	result, err := h.tracker.RecalculateAllServices(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
