// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable catalog entry
type Product struct {
	ID            string           `gorm:"primaryKey;size:36" json:"id"`
	CategoryID    string           `gorm:"not null;size:36;index" json:"category_id"`
	Name          string           `gorm:"not null;size:255" json:"name"`
	SKU           string           `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Description   string           `gorm:"type:text" json:"description"`
	Price         decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"price"`
	SalePrice     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"sale_price"`
	StockQuantity int              `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool             `gorm:"not null" json:"is_active"`
	IsFeatured    bool             `gorm:"not null" json:"is_featured"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category,omitempty"`
}

// Category groups products in a tree
type Category struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	ParentID    *string   `gorm:"size:36;index" json:"parent_id"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string    `gorm:"size:500" json:"description"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// ProductComment is a customer's review of a product, optionally rated 1 to 5
type ProductComment struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ProductID string    `gorm:"not null;size:36;index" json:"product_id"`
	UserID    string    `gorm:"not null;size:36;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (Category) TableName() string       { return "categories" }
func (ProductComment) TableName() string { return "product_comments" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (pc *ProductComment) BeforeCreate(tx *gorm.DB) error {
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	return nil
}

// EffectivePrice returns the sale price when it undercuts the list price
func EffectivePrice(price decimal.Decimal, salePrice *decimal.Decimal) decimal.Decimal {
	if salePrice != nil && salePrice.LessThan(price) {
		return *salePrice
	}
	return price
}

// Business methods for Product

func (p *Product) EffectivePrice() decimal.Decimal {
	return EffectivePrice(p.Price, p.SalePrice)
}

func (p *Product) IsOnSale() bool {
	return p.SalePrice != nil && p.SalePrice.LessThan(p.Price)
}

func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}

// DiscountPercentage is the rounded sale discount relative to the list price
func (p *Product) DiscountPercentage() int {
	if !p.IsOnSale() || !p.Price.IsPositive() {
		return 0
	}
	discount := p.Price.Sub(*p.SalePrice).Div(p.Price).Mul(decimal.NewFromInt(100))
	return int(discount.Round(0).IntPart())
}

// ProductResponse is a product with its read-time derived fields
type ProductResponse struct {
	Product
	EffectivePrice     decimal.Decimal `json:"effective_price"`
	DiscountPercentage int             `json:"discount_percentage"`
	InStock            bool            `json:"in_stock"`
}

// NewProductResponse derives the presentation fields of p
func NewProductResponse(p Product) ProductResponse {
	return ProductResponse{
		Product:            p,
		EffectivePrice:     p.EffectivePrice(),
		DiscountPercentage: p.DiscountPercentage(),
		InStock:            p.InStock(),
	}
}
