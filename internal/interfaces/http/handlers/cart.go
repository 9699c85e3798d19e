// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/cart"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	logger      *logrus.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// GetCart handles GET /cart, creating the active cart on first access
func (h *CartHandler) GetCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	current, err := h.cartService.GetOrCreateActive(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Cart retrieved successfully", cart.Summarize(current))
}

// AddToCart handles POST /cart/items
func (h *CartHandler) AddToCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	current, err := h.cartService.GetOrCreateActive(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	updated, err := h.cartService.AddItem(c.Request.Context(), actor, current.ID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Item added to cart successfully", cart.Summarize(updated))
}

// UpdateCartItem handles PUT /cart/items/:id
func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req cart.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.cartService.UpdateItem(c.Request.Context(), actor, c.Param("id"), req.Quantity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Cart item updated successfully", cart.Summarize(updated))
}

// RemoveCartItem handles DELETE /cart/items/:id and DELETE /admin/carts/items/:id
func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	updated, err := h.cartService.RemoveItem(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Item removed from cart successfully", cart.Summarize(updated))
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	current, err := h.cartService.GetOrCreateActive(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	cleared, err := h.cartService.Clear(c.Request.Context(), actor, current.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Cart cleared successfully", cart.Summarize(cleared))
}

// AdminGetCarts handles GET /admin/carts
func (h *CartHandler) AdminGetCarts(c *gin.Context) {
	var req cart.CartListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.cartService.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Carts retrieved successfully", response)
}

// AdminGetCart handles GET /admin/carts/:id
func (h *CartHandler) AdminGetCart(c *gin.Context) {
	found, err := h.cartService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Cart retrieved successfully", cart.Summarize(found))
}

// AdminUpdateCartStatus handles PATCH /admin/carts/:id/status
func (h *CartHandler) AdminUpdateCartStatus(c *gin.Context) {
	var req cart.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.cartService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Cart status updated successfully", cart.Summarize(updated))
}

// AdminClearCart handles DELETE /admin/carts/:id/items
func (h *CartHandler) AdminClearCart(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	cleared, err := h.cartService.Clear(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Cart cleared successfully", cart.Summarize(cleared))
}

// AdminDeleteCart handles DELETE /admin/carts/:id
func (h *CartHandler) AdminDeleteCart(c *gin.Context) {
	if err := h.cartService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart deleted successfully",
	})
}
