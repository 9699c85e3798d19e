// internal/interfaces/http/handlers/category.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/catalog"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	categoryService *catalog.CategoryService
	logger          *logrus.Logger
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryService *catalog.CategoryService, logger *logrus.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// GetCategories handles GET /categories
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	categories, err := h.categoryService.GetCategories(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Categories retrieved successfully", categories)
}

// GetCategoryTree handles GET /categories/tree
func (h *CategoryHandler) GetCategoryTree(c *gin.Context) {
	tree, err := h.categoryService.GetCategoryTree(c.Request.Context(), false)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Category tree retrieved successfully", tree)
}

// GetCategoryBySlug handles GET /categories/:slug
func (h *CategoryHandler) GetCategoryBySlug(c *gin.Context) {
	category, err := h.categoryService.GetCategoryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !category.IsActive {
		respondError(c, h.logger, apperror.NotFound("category"))
		return
	}
	respondOK(c, "Category retrieved successfully", category)
}

// AdminGetCategories handles GET /admin/categories, inactive included
func (h *CategoryHandler) AdminGetCategories(c *gin.Context) {
	categories, err := h.categoryService.GetCategories(c.Request.Context(), true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Categories retrieved successfully", categories)
}

// AdminGetCategory handles GET /admin/categories/:id
func (h *CategoryHandler) AdminGetCategory(c *gin.Context) {
	category, err := h.categoryService.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Category retrieved successfully", category)
}

// CreateCategory handles POST /admin/categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req catalog.CategoryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Category created successfully", category)
}

// UpdateCategory handles PUT /admin/categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req catalog.CategoryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Category updated successfully", category)
}

// ActivateCategory handles PATCH /admin/categories/:id/activate
func (h *CategoryHandler) ActivateCategory(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateCategory handles PATCH /admin/categories/:id/deactivate
func (h *CategoryHandler) DeactivateCategory(c *gin.Context) {
	h.setActive(c, false)
}

func (h *CategoryHandler) setActive(c *gin.Context, active bool) {
	category, err := h.categoryService.SetActive(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Category updated successfully", category)
}

// DeleteCategory handles DELETE /admin/categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.categoryService.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Category deleted successfully",
	})
}
