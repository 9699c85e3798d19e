// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/order"
)

var invoiceTmpl = template.Must(template.New("invoice").Parse(invoiceTemplate))

// Service renders order invoices
type Service struct {
	store config.StoreConfig
	money accounting.Accounting
	now   func() time.Time
}

// NewService creates a new PDF service
func NewService(store config.StoreConfig) *Service {
	if store.WkhtmltopdfBin != "" {
		wkhtmltopdf.SetPath(store.WkhtmltopdfBin)
	}
	symbol := store.CurrencySymbol
	if symbol == "" {
		symbol = "$"
	}
	return &Service{
		store: store,
		money: accounting.Accounting{Symbol: symbol, Precision: 2, Thousand: ",", Decimal: "."},
		now:   time.Now,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber   string
	InvoiceDate     string
	OrderID         string
	OrderDate       string
	OrderStatus     string
	PaymentStatus   string
	ShippingAddress string
	BillingAddress  string
	Store           config.StoreConfig
	Lines           []InvoiceLine
	Total           string
	TotalPaid       string
	BalanceDue      string
}

// InvoiceLine is one rendered order item
type InvoiceLine struct {
	Name     string
	SKU      string
	Quantity int
	Price    string
	Subtotal string
}

// GenerateInvoice generates a PDF invoice for an order with its items and payments loaded
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// RenderHTML renders the invoice markup that GenerateInvoice converts to PDF
func (s *Service) RenderHTML(o *order.Order) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, s.invoiceData(o)); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) invoiceData(o *order.Order) InvoiceData {
	summary := order.SummarizePayments(o.TotalAmount, o.Payments)

	lines := make([]InvoiceLine, 0, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		line := InvoiceLine{
			Name:     item.ProductID,
			Quantity: item.Quantity,
			Price:    s.format(item.Price),
			Subtotal: s.format(item.Subtotal()),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.SKU = item.Product.SKU
		}
		lines = append(lines, line)
	}

	return InvoiceData{
		InvoiceNumber:   invoiceNumber(o),
		InvoiceDate:     s.now().Format("January 2, 2006"),
		OrderID:         o.ID,
		OrderDate:       o.CreatedAt.Format("January 2, 2006"),
		OrderStatus:     string(o.Status),
		PaymentStatus:   string(summary.PaymentStatus),
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Store:           s.store,
		Lines:           lines,
		Total:           s.format(summary.TotalAmount),
		TotalPaid:       s.format(summary.TotalPaid),
		BalanceDue:      s.format(summary.BalanceDue),
	}
}

func (s *Service) format(d decimal.Decimal) string {
	return s.money.FormatMoneyDecimal(d)
}

func invoiceNumber(o *order.Order) string {
	short := o.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("INV-%s-%s", o.CreatedAt.Format("20060102"), short)
}

const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .invoice-info {
            text-align: right;
            flex: 1;
        }
        .invoice-title {
            font-size: 28px;
            font-weight: bold;
            color: #2563eb;
            margin-bottom: 10px;
        }
        .invoice-details {
            margin-bottom: 30px;
        }
        .invoice-details table {
            width: 100%;
        }
        .invoice-details td {
            padding: 5px 0;
            vertical-align: top;
        }
        .invoice-details .label {
            font-weight: bold;
            width: 150px;
        }
        .billing-shipping {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
        }
        .billing-info, .shipping-info {
            flex: 1;
            margin-right: 20px;
        }
        .section-title {
            font-size: 16px;
            font-weight: bold;
            margin-bottom: 10px;
            color: #374151;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .qty-col,
        .items-table .price-col,
        .items-table .total-col {
            text-align: right;
            width: 80px;
        }
        .totals {
            float: right;
            width: 300px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 8px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 100px;
        }
        .total-row {
            font-size: 18px;
            font-weight: bold;
            border-top: 2px solid #333 !important;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
        .status-badge {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 12px;
            font-weight: bold;
            text-transform: uppercase;
        }
        .status-paid {
            background-color: #dcfce7;
            color: #166534;
        }
        .status-pending {
            background-color: #fef3c7;
            color: #92400e;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Store.Name}}</h1>
            {{if .Store.Address}}<p>{{.Store.Address}}</p>{{end}}
            {{if .Store.Email}}<p>Email: {{.Store.Email}}</p>{{end}}
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Order #:</strong> {{.OrderID}}</p>
        </div>
    </div>

    <div class="invoice-details">
        <table>
            <tr>
                <td class="label">Order Date:</td>
                <td>{{.OrderDate}}</td>
                <td class="label" style="text-align: right;">Payment Status:</td>
                <td style="text-align: right;">
                    <span class="status-badge {{if eq .PaymentStatus "paid"}}status-paid{{else}}status-pending{{end}}">{{.PaymentStatus}}</span>
                </td>
            </tr>
            <tr>
                <td class="label">Order Status:</td>
                <td>{{.OrderStatus}}</td>
            </tr>
        </table>
    </div>

    <div class="billing-shipping">
        <div class="billing-info">
            <div class="section-title">Bill To:</div>
            <p>{{.BillingAddress}}</p>
        </div>
        <div class="shipping-info">
            <div class="section-title">Ship To:</div>
            <p>{{.ShippingAddress}}</p>
        </div>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>SKU</th>
                <th class="qty-col">Qty</th>
                <th class="price-col">Price</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Lines}}
            <tr>
                <td><strong>{{.Name}}</strong></td>
                <td>{{.SKU}}</td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="price-col">{{.Price}}</td>
                <td class="total-col">{{.Subtotal}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr class="total-row">
                <td class="label">Total:</td>
                <td class="amount">{{.Total}}</td>
            </tr>
            <tr>
                <td class="label">Paid:</td>
                <td class="amount">{{.TotalPaid}}</td>
            </tr>
            <tr>
                <td class="label">Balance Due:</td>
                <td class="amount">{{.BalanceDue}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for your business!</p>
        {{if .Store.Email}}<p>Questions about this invoice? Contact us at {{.Store.Email}}</p>{{end}}
    </div>
</body>
</html>
`
