// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeInbound    MovementType = "inbound"    // Restitution, restock
	MovementTypeOutbound   MovementType = "outbound"   // Checkout, admin item add, manual subtract
	MovementTypeAdjustment MovementType = "adjustment" // Manual set
)

// MovementReason represents the business event behind a stock movement
type MovementReason string

const (
	ReasonCheckout         MovementReason = "checkout"
	ReasonCancellation     MovementReason = "cancellation"
	ReasonReinstated       MovementReason = "reinstated"
	ReasonOrderDeleted     MovementReason = "order_deleted"
	ReasonOrderItemAdded   MovementReason = "order_item_added"
	ReasonOrderItemUpdated MovementReason = "order_item_updated"
	ReasonOrderItemRemoved MovementReason = "order_item_removed"
	ReasonManual           MovementReason = "manual"
)

// StockMovement is an append-only record of one stock change
type StockMovement struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	ProductID        string         `gorm:"not null;size:36;index" json:"product_id"`
	MovementType     MovementType   `gorm:"not null;size:20" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:30" json:"reason"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	PreviousQuantity int            `gorm:"not null" json:"previous_quantity"`
	NewQuantity      int            `gorm:"not null" json:"new_quantity"`
	ReferenceType    string         `gorm:"size:50" json:"reference_type"` // "order", "order_item", "manual"
	ReferenceID      string         `gorm:"size:36;index" json:"reference_id"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movements" }

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Reference ties a stock change to the business record that caused it
type Reference struct {
	Reason MovementReason
	Type   string
	ID     string
	Notes  string
}

// OrderRef references an order-level event such as checkout or cancellation
func OrderRef(reason MovementReason, orderID string) Reference {
	return Reference{Reason: reason, Type: "order", ID: orderID}
}

// OrderItemRef references a single order line edited by an admin
func OrderItemRef(reason MovementReason, itemID string) Reference {
	return Reference{Reason: reason, Type: "order_item", ID: itemID}
}
