package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check returns the health status of the API.
func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewHealthResponse())
}
