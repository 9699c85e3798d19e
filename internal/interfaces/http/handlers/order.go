// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/order"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	logger       *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// GetOrders handles GET /orders (user's own orders)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req order.MyOrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.orderService.ListMine(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Orders retrieved successfully", response)
}

// GetOrder handles GET /orders/:id and GET /admin/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	found, err := h.orderService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order retrieved successfully", order.NewView(found))
}

// CancelOrder handles POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	cancelled, err := h.orderService.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order cancelled successfully", order.NewView(cancelled))
}

// AdminGetOrders handles GET /admin/orders
func (h *OrderHandler) AdminGetOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.orderService.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Orders retrieved successfully", response)
}

// AdminUpdateOrder handles PUT /admin/orders/:id. A status change out of
// cancelled takes the stock back and is refused with 422 insufficient_stock
// when the units have been sold since.
func (h *OrderHandler) AdminUpdateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req order.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.orderService.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order updated successfully", order.NewView(updated))
}

// AdminUpdateOrderStatus handles PATCH /admin/orders/:id/status. Reopening a
// cancelled order can be refused like AdminUpdateOrder.
func (h *OrderHandler) AdminUpdateOrderStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req order.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.orderService.UpdateStatus(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order status updated successfully", order.NewView(updated))
}

// AdminDeleteOrder handles DELETE /admin/orders/:id
func (h *OrderHandler) AdminDeleteOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.orderService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Order deleted successfully",
	})
}

// AdminGetOrderHistory handles GET /admin/orders/:id/history
func (h *OrderHandler) AdminGetOrderHistory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	history, err := h.orderService.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order history retrieved successfully", history)
}

// AdminGetOrderItems handles GET /admin/orders/:id/items
func (h *OrderHandler) AdminGetOrderItems(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	items, err := h.orderService.ListItems(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order items retrieved successfully", items)
}

// AdminAddOrderItem handles POST /admin/orders/:id/items
func (h *OrderHandler) AdminAddOrderItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req order.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.orderService.AddItem(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Order item added successfully", order.NewView(updated))
}

// AdminUpdateOrderItem handles PUT /admin/orders/:id/items/:item_id
func (h *OrderHandler) AdminUpdateOrderItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req order.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.orderService.UpdateItem(c.Request.Context(), actor, c.Param("id"), c.Param("item_id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order item updated successfully", order.NewView(updated))
}

// AdminRemoveOrderItem handles DELETE /admin/orders/:id/items/:item_id
func (h *OrderHandler) AdminRemoveOrderItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	updated, err := h.orderService.RemoveItem(c.Request.Context(), actor, c.Param("id"), c.Param("item_id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Order item removed successfully", order.NewView(updated))
}
