package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/recurring-ledger/internal/api/dto"
	"github.com/eshaffer321/recurring-ledger/internal/api/middleware"
	"github.com/eshaffer321/recurring-ledger/internal/domain/model"
)

// CategoriesHandler handles category requests.
type CategoriesHandler struct {
	*Base
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(base *Base) *CategoriesHandler {
	return &CategoriesHandler{Base: base}
}

// Upsert creates or replaces a category.
func (h *CategoriesHandler) Upsert(c *gin.Context) {
	var req dto.CategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}

	category, err := h.tracker.UpsertCategory(c.Request.Context(), middleware.UserID(c), model.Category{
		ID:    req.ID,
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		h.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// List returns the user's categories.
func (h *CategoriesHandler) List(c *gin.Context) {
	categories, err := h.tracker.ListCategories(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.WriteError(c, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	c.JSON(http.StatusOK, dto.CategoryListResponse{Categories: categories, Count: len(categories)})
}
