// internal/domain/inventory/ledger.go
package inventory

import (
	"errors"
	"sort"

	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/pkg/dblock"
	"gorm.io/gorm"
)

// Ledger functions take the caller's transaction so that stock changes commit
// or roll back together with the order rows that caused them.

// LockProducts loads and row-locks the given products in id order
func LockProducts(tx *gorm.DB, productIDs []string) (map[string]catalog.Product, error) {
	ids := uniqueSorted(productIDs)
	products := make(map[string]catalog.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	var rows []catalog.Product
	if err := dblock.ForUpdate(tx).Where("id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, apperror.Internal("failed to lock products", err)
	}
	for _, p := range rows {
		products[p.ID] = p
	}
	return products, nil
}

// LockProduct loads and row-locks a single product
func LockProduct(tx *gorm.DB, productID string) (*catalog.Product, error) {
	var product catalog.Product
	if err := dblock.ForUpdate(tx).Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, apperror.Internal("failed to retrieve product", err)
	}
	return &product, nil
}

// Decrement removes quantity units from a product's stock. The check and the
// write are a single conditional UPDATE, so concurrent callers can never drive
// stock below zero.
func Decrement(tx *gorm.DB, productID string, quantity int, ref Reference) error {
	if quantity <= 0 {
		return apperror.Validation("quantity must be at least 1")
	}

	result := tx.Model(&catalog.Product{}).
		Where("id = ? AND stock_quantity >= ?", productID, quantity).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", quantity))
	if result.Error != nil {
		return apperror.Internal("failed to decrement stock", result.Error)
	}
	if result.RowsAffected == 0 {
		var product catalog.Product
		if err := tx.Select("id", "name").Where("id = ?", productID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product")
			}
			return apperror.Internal("failed to retrieve product", err)
		}
		return apperror.InsufficientStock(product.Name)
	}

	return record(tx, productID, MovementTypeOutbound, quantity, -quantity, ref)
}

// Restore returns quantity units to a product's stock. A product that no
// longer exists has nothing to restore.
func Restore(tx *gorm.DB, productID string, quantity int, ref Reference) error {
	if quantity <= 0 {
		return nil
	}

	result := tx.Model(&catalog.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", gorm.Expr("stock_quantity + ?", quantity))
	if result.Error != nil {
		return apperror.Internal("failed to restore stock", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil
	}

	return record(tx, productID, MovementTypeInbound, quantity, quantity, ref)
}

// Adjust moves stock by delta, decrementing when delta is negative
func Adjust(tx *gorm.DB, productID string, delta int, ref Reference) error {
	switch {
	case delta > 0:
		return Restore(tx, productID, delta, ref)
	case delta < 0:
		return Decrement(tx, productID, -delta, ref)
	default:
		return nil
	}
}

// record appends a movement row; delta is the signed change already applied
func record(tx *gorm.DB, productID string, movementType MovementType, quantity, delta int, ref Reference) error {
	var current catalog.Product
	if err := tx.Select("id", "stock_quantity").Where("id = ?", productID).First(&current).Error; err != nil {
		return apperror.Internal("failed to read stock level", err)
	}

	movement := StockMovement{
		ProductID:        productID,
		MovementType:     movementType,
		Reason:           ref.Reason,
		Quantity:         quantity,
		PreviousQuantity: current.StockQuantity - delta,
		NewQuantity:      current.StockQuantity,
		ReferenceType:    ref.Type,
		ReferenceID:      ref.ID,
		Notes:            ref.Notes,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return apperror.Internal("failed to record stock movement", err)
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
