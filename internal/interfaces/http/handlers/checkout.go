// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/checkout"
	"github.com/your-org/storefront-api/internal/domain/order"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	logger          *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// Checkout handles POST /cart/checkout
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req checkout.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	placed, err := h.checkoutService.Checkout(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Order placed successfully", order.NewView(placed))
}

// ValidateCheckout handles GET /cart/checkout/validate
func (h *CheckoutHandler) ValidateCheckout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	validation, err := h.checkoutService.Validate(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Checkout validated", validation)
}
