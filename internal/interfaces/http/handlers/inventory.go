// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/inventory"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
)

// InventoryHandler handles stock endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	logger           *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		logger:           logger,
	}
}

// UpdateStock handles PATCH /admin/products/:id/stock
func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	var req inventory.StockUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.inventoryService.UpdateStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Stock updated successfully", catalog.NewProductResponse(*product))
}

// GetMovements handles GET /admin/products/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	page := 1
	if p, err := strconv.Atoi(c.Query("page")); err == nil && p > 0 {
		page = p
	}
	limit := pagination.DefaultLimit
	if l, err := strconv.Atoi(c.Query("per_page")); err == nil && l > 0 {
		limit = l
	}

	response, err := h.inventoryService.Movements(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Stock movements retrieved successfully", response)
}
