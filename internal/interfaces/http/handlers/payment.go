// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/payment"
)

// PaymentHandler handles payment endpoints
type PaymentHandler struct {
	paymentService *payment.Service
	logger         *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.Service, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// PayOrder handles POST /orders/:id/pay
func (h *PaymentHandler) PayOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req payment.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recorded, err := h.paymentService.Pay(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Payment recorded successfully", recorded)
}

// GetOrderPayments handles GET /orders/:id/payments
func (h *PaymentHandler) GetOrderPayments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	payments, err := h.paymentService.ListForOrder(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Payments retrieved successfully", payments)
}

// GetPaymentStatus handles GET /orders/:id/payment-status
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	summary, err := h.paymentService.Summary(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Payment status retrieved successfully", summary)
}

// AdminRecordPayment handles POST /admin/orders/:id/payments
func (h *PaymentHandler) AdminRecordPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req payment.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	recorded, err := h.paymentService.Record(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Payment recorded successfully", recorded)
}

// AdminGetPayment handles GET /admin/payments/:id
func (h *PaymentHandler) AdminGetPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	found, err := h.paymentService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Payment retrieved successfully", found)
}

// AdminUpdatePayment handles PUT /admin/payments/:id
func (h *PaymentHandler) AdminUpdatePayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req payment.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	updated, err := h.paymentService.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Payment updated successfully", updated)
}

// AdminDeletePayment handles DELETE /admin/payments/:id
func (h *PaymentHandler) AdminDeletePayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.paymentService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment deleted successfully",
	})
}
