// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/pkg/pdf"
)

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	logger       *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, pdfService *pdf.Service, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		pdfService:   pdfService,
		logger:       logger,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	found, ok := h.visibleOrder(c)
	if !ok {
		return
	}

	pdfBuffer, err := h.pdfService.GenerateInvoice(found)
	if err != nil {
		respondError(c, h.logger, apperror.Internal("failed to generate invoice", err))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", found.ID))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}

// PreviewInvoice handles GET /orders/:id/invoice/preview
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	found, ok := h.visibleOrder(c)
	if !ok {
		return
	}

	html, err := h.pdfService.RenderHTML(found)
	if err != nil {
		respondError(c, h.logger, apperror.Internal("failed to render invoice", err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *InvoiceHandler) visibleOrder(c *gin.Context) (*order.Order, bool) {
	actor, ok := currentActor(c)
	if !ok {
		return nil, false
	}

	found, err := h.orderService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return found, true
}
