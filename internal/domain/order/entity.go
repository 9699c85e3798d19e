// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
)

// PaymentStatus represents the status of a single payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// SettlementStatus is the payment state of an order derived from its completed payments
type SettlementStatus string

const (
	SettlementPending       SettlementStatus = "pending"
	SettlementPartiallyPaid SettlementStatus = "partially_paid"
	SettlementPaid          SettlementStatus = "paid"
)

// Order represents the order entity
type Order struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	UserID          string          `gorm:"not null;size:36;index" json:"user_id"`
	Status          OrderStatus     `gorm:"not null;size:20;index" json:"status"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	ShippingAddress string          `gorm:"not null;size:255" json:"shipping_address"`
	BillingAddress  string          `gorm:"not null;size:255" json:"billing_address"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items,omitempty"`
	Payments      []Payment            `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"payments,omitempty"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderItem represents items in an order. Price is frozen at creation.
type OrderItem struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID   string          `gorm:"not null;size:36;index" json:"order_id"`
	ProductID string          `gorm:"not null;size:36;index" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// Relationships
	Product *catalog.Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
}

// Payment represents a payment recorded against an order
type Payment struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID        string          `gorm:"not null;size:36;index" json:"order_id"`
	PaymentMethod  PaymentMethod   `gorm:"not null;size:30" json:"payment_method"`
	TransactionID  string          `gorm:"uniqueIndex;not null;size:100" json:"transaction_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status         PaymentStatus   `gorm:"not null;size:20;index" json:"status"`
	PaymentDetails datatypes.JSON  `json:"payment_details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID         string      `gorm:"primaryKey;size:36" json:"id"`
	OrderID    string      `gorm:"not null;size:36;index" json:"order_id"`
	FromStatus OrderStatus `gorm:"size:20" json:"from_status"`
	Status     OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment    string      `gorm:"type:text" json:"comment"`
	CreatedBy  string      `gorm:"size:36;index" json:"created_by"` // User ID who made the change
	CreatedAt  time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (Payment) TableName() string            { return "payments" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == "" {
		oi.ID = uuid.NewString()
	}
	return nil
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.TransactionID == "" {
		p.TransactionID = uuid.NewString()
	}
	return nil
}

func (h *OrderStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// Business methods for Order

// IsValidStatus reports whether s is one of the order statuses
func IsValidStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsValidPaymentMethod reports whether m is an accepted payment method
func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodPaypal, PaymentMethodBankTransfer, PaymentMethodCash:
		return true
	}
	return false
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// ItemsEditable reports whether admins may still change the order lines
func (o *Order) ItemsEditable() bool {
	return o.Status != OrderStatusShipped &&
		o.Status != OrderStatusDelivered &&
		o.Status != OrderStatusCancelled
}

// AcceptsPayment reports whether a client may pay for the order
func (o *Order) AcceptsPayment() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// IsFulfilled checks if the order has left the warehouse
func (o *Order) IsFulfilled() bool {
	return o.Status == OrderStatusShipped || o.Status == OrderStatusDelivered
}

// ItemsCount is the total number of units ordered
func (o *Order) ItemsCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// Subtotal is the frozen line total
func (oi *OrderItem) Subtotal() decimal.Decimal {
	return oi.Price.Mul(decimal.NewFromInt(int64(oi.Quantity)))
}

// ComputeTotal sums price times quantity over items
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}

// PaymentSummary is the derived payment state of an order
type PaymentSummary struct {
	TotalAmount   decimal.Decimal  `json:"total_amount"`
	TotalPaid     decimal.Decimal  `json:"total_paid"`
	BalanceDue    decimal.Decimal  `json:"balance_due"`
	PaymentStatus SettlementStatus `json:"payment_status"`
}

// SummarizePayments derives the payment state from the completed payments
func SummarizePayments(total decimal.Decimal, payments []Payment) PaymentSummary {
	paid := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentStatusCompleted {
			paid = paid.Add(p.Amount)
		}
	}

	status := SettlementPending
	switch {
	case paid.GreaterThanOrEqual(total) && paid.IsPositive():
		status = SettlementPaid
	case paid.IsPositive():
		status = SettlementPartiallyPaid
	}

	balance := total.Sub(paid)
	if balance.IsNegative() {
		balance = decimal.Zero
	}

	return PaymentSummary{
		TotalAmount:   total,
		TotalPaid:     paid,
		BalanceDue:    balance,
		PaymentStatus: status,
	}
}

// OrderView is an order with its read-time derived fields
type OrderView struct {
	Order
	ItemsCount    int              `json:"items_count"`
	PaymentStatus SettlementStatus `json:"payment_status"`
	TotalPaid     decimal.Decimal  `json:"total_paid"`
	BalanceDue    decimal.Decimal  `json:"balance_due"`
}

// NewView derives the presentation fields of o; Items and Payments must be loaded
func NewView(o *Order) OrderView {
	summary := SummarizePayments(o.TotalAmount, o.Payments)
	return OrderView{
		Order:         *o,
		ItemsCount:    o.ItemsCount(),
		PaymentStatus: summary.PaymentStatus,
		TotalPaid:     summary.TotalPaid,
		BalanceDue:    summary.BalanceDue,
	}
}
