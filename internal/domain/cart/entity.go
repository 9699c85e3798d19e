// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"gorm.io/gorm"
)

// CartStatus represents the lifecycle state of a cart
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

// Cart is a user's basket. A user has at most one active cart.
type Cart struct {
	ID        string     `gorm:"primaryKey;size:36" json:"id"`
	UserID    string     `gorm:"not null;size:36;index" json:"user_id"`
	Status    CartStatus `gorm:"not null;size:20;index" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem is one product line in a cart
type CartItem struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CartID    string    `gorm:"not null;size:36;uniqueIndex:idx_cart_items_cart_product" json:"cart_id"`
	ProductID string    `gorm:"not null;size:36;uniqueIndex:idx_cart_items_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Cart    *Cart            `gorm:"foreignKey:CartID" json:"-"`
	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (ci *CartItem) BeforeCreate(tx *gorm.DB) error {
	if ci.ID == "" {
		ci.ID = uuid.NewString()
	}
	return nil
}

func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}

// IsEmpty reports whether the cart holds no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// UnitPrice is the line's current effective product price
func (ci *CartItem) UnitPrice() decimal.Decimal {
	if ci.Product == nil {
		return decimal.Zero
	}
	return ci.Product.EffectivePrice()
}

func (ci *CartItem) Subtotal() decimal.Decimal {
	return ci.UnitPrice().Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// CartItemView is a cart line priced at read time
type CartItemView struct {
	ID        string           `json:"id"`
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Product   *catalog.Product `json:"product,omitempty"`
}

// CartView is a cart with derived totals
type CartView struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Status      CartStatus      `json:"status"`
	Items       []CartItemView  `json:"items"`
	ItemsCount  int             `json:"items_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Summarize prices every line with the current effective product price
func Summarize(c *Cart) CartView {
	view := CartView{
		ID:          c.ID,
		UserID:      c.UserID,
		Status:      c.Status,
		Items:       make([]CartItemView, 0, len(c.Items)),
		TotalAmount: decimal.Zero,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}

	for i := range c.Items {
		item := &c.Items[i]
		subtotal := item.Subtotal()
		view.Items = append(view.Items, CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice(),
			Subtotal:  subtotal,
			Product:   item.Product,
		})
		view.ItemsCount += item.Quantity
		view.TotalAmount = view.TotalAmount.Add(subtotal)
	}

	return view
}
