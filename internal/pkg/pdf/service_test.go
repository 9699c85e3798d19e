package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/order"
)

func TestRenderHTML(t *testing.T) {
	svc := NewService(config.StoreConfig{Name: "Corner Shop", Email: "billing@example.com", CurrencySymbol: "$"})
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) }

	o := &order.Order{
		ID:              "0f8fad5b-d9cb-469f-a165-70867728950e",
		Status:          order.OrderStatusProcessing,
		TotalAmount:     decimal.RequireFromString("1234.50"),
		ShippingAddress: "1 Main St",
		BillingAddress:  "PO Box <7>",
		CreatedAt:       time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Items: []order.OrderItem{
			{
				ProductID: "p-1",
				Quantity:  3,
				Price:     decimal.RequireFromString("411.50"),
				Product:   &catalog.Product{Name: "Desk", SKU: "DSK-1"},
			},
		},
		Payments: []order.Payment{
			{Amount: decimal.RequireFromString("1000"), Status: order.PaymentStatusCompleted},
			{Amount: decimal.RequireFromString("999"), Status: order.PaymentStatusFailed},
		},
	}

	html, err := svc.RenderHTML(o)
	require.NoError(t, err)

	assert.Contains(t, html, "INV-20260301-0f8fad5b")
	assert.Contains(t, html, "March 2, 2026")
	assert.Contains(t, html, "Corner Shop")
	assert.Contains(t, html, "Desk")
	assert.Contains(t, html, "DSK-1")
	assert.Contains(t, html, "$411.50")
	assert.Contains(t, html, "$1,234.50")
	assert.Contains(t, html, "$1,000.00")
	assert.Contains(t, html, "$234.50")
	assert.Contains(t, html, "partially_paid")
	assert.Contains(t, html, "PO Box &lt;7&gt;")
}

func TestInvoiceLineFallsBackToProductID(t *testing.T) {
	svc := NewService(config.StoreConfig{})
	data := svc.invoiceData(&order.Order{
		ID:    "short",
		Items: []order.OrderItem{{ProductID: "gone", Quantity: 1, Price: decimal.NewFromInt(5)}},
	})

	require.Len(t, data.Lines, 1)
	assert.Equal(t, "gone", data.Lines[0].Name)
	assert.Equal(t, "$5.00", data.Lines[0].Price)
	assert.Equal(t, "INV-00010101-short", data.InvoiceNumber)
	assert.Equal(t, "pending", data.PaymentStatus)
}
