// internal/domain/order/lifecycle.go
package order

import (
	"errors"

	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/inventory"
	"github.com/your-org/storefront-api/internal/pkg/dblock"
	"gorm.io/gorm"
)

// Transactional helpers shared with checkout and the payment ledger.

// Lock loads and row-locks an order inside tx
func Lock(tx *gorm.DB, orderID string) (*Order, error) {
	var order Order
	if err := dblock.ForUpdate(tx).Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order")
		}
		return nil, apperror.Internal("failed to retrieve order", err)
	}
	return &order, nil
}

// Transition moves a locked order to status, appending a history row.
// Entering cancelled returns every item to stock and leaving it takes the
// stock back, so an order holds its units exactly while it is not cancelled.
func Transition(tx *gorm.DB, order *Order, status OrderStatus, comment, changedBy string) error {
	if !IsValidStatus(status) {
		return apperror.Validation("invalid order status: %s", status)
	}

	previous := order.Status
	if previous == status {
		return nil
	}

	switch {
	case status == OrderStatusCancelled:
		if err := restitute(tx, order.ID, inventory.ReasonCancellation); err != nil {
			return err
		}
	case previous == OrderStatusCancelled:
		if err := reinstate(tx, order.ID); err != nil {
			return err
		}
	}

	result := tx.Model(&Order{}).
		Where("id = ? AND status = ?", order.ID, previous).
		Update("status", status)
	if result.Error != nil {
		return apperror.Internal("failed to update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict("order status changed concurrently")
	}

	history := OrderStatusHistory{
		OrderID:    order.ID,
		FromStatus: previous,
		Status:     status,
		Comment:    comment,
		CreatedBy:  changedBy,
	}
	if err := tx.Create(&history).Error; err != nil {
		return apperror.Internal("failed to create status history", err)
	}

	order.Status = status
	return nil
}

// RecomputeTotal sets total_amount to the sum of the order's frozen lines
func RecomputeTotal(tx *gorm.DB, orderID string) (*Order, error) {
	var items []OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve order items", err)
	}

	total := ComputeTotal(items)
	if err := tx.Model(&Order{}).Where("id = ?", orderID).Update("total_amount", total).Error; err != nil {
		return nil, apperror.Internal("failed to update order total", err)
	}

	var order Order
	if err := tx.Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve order", err)
	}
	order.Items = items
	return &order, nil
}

// restitute returns every item of the order to stock
func restitute(tx *gorm.DB, orderID string, reason inventory.MovementReason) error {
	var items []OrderItem
	if err := tx.Where("order_id = ?", orderID).Order("product_id").Find(&items).Error; err != nil {
		return apperror.Internal("failed to retrieve order items", err)
	}

	ref := inventory.OrderRef(reason, orderID)
	for _, item := range items {
		if err := inventory.Restore(tx, item.ProductID, item.Quantity, ref); err != nil {
			return err
		}
	}
	return nil
}

// reinstate takes the stock of a cancelled order back, failing with
// InsufficientStock when any line can no longer be covered
func reinstate(tx *gorm.DB, orderID string) error {
	var items []OrderItem
	if err := tx.Where("order_id = ?", orderID).Order("product_id").Find(&items).Error; err != nil {
		return apperror.Internal("failed to retrieve order items", err)
	}

	ref := inventory.OrderRef(inventory.ReasonReinstated, orderID)
	for _, item := range items {
		if err := inventory.Decrement(tx, item.ProductID, item.Quantity, ref); err != nil {
			return err
		}
	}
	return nil
}
