// internal/domain/inventory/service.go
package inventory

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
	"gorm.io/gorm"
)

// StockOperation selects how a manual stock update is applied
type StockOperation string

const (
	OperationAdd      StockOperation = "add"
	OperationSubtract StockOperation = "subtract"
	OperationSet      StockOperation = "set"
)

// Service handles manual stock administration
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// StockUpdateRequest represents a manual stock change
type StockUpdateRequest struct {
	Operation StockOperation `json:"operation" binding:"required,oneof=add subtract set"`
	Quantity  int            `json:"quantity" binding:"gte=0"`
	Notes     string         `json:"notes" binding:"max=500"`
}

// MovementListResponse represents a page of stock movements
type MovementListResponse struct {
	Movements  []StockMovement       `json:"movements"`
	Pagination pagination.Pagination `json:"pagination"`
}

// UpdateStock applies an add, subtract or set operation. Subtract floors at zero.
func (s *Service) UpdateStock(ctx context.Context, productID string, req *StockUpdateRequest) (*catalog.Product, error) {
	if req.Quantity < 0 {
		return nil, apperror.Validation("quantity cannot be negative")
	}

	var updated catalog.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := LockProduct(tx, productID)
		if err != nil {
			return err
		}

		previous := product.StockQuantity
		var next int
		var movementType MovementType

		switch req.Operation {
		case OperationAdd:
			next = previous + req.Quantity
			movementType = MovementTypeInbound
		case OperationSubtract:
			next = previous - req.Quantity
			if next < 0 {
				next = 0
			}
			movementType = MovementTypeOutbound
		case OperationSet:
			next = req.Quantity
			movementType = MovementTypeAdjustment
		default:
			return apperror.Validation("invalid stock operation: %s", req.Operation)
		}

		if err := tx.Model(&catalog.Product{}).Where("id = ?", productID).
			Update("stock_quantity", next).Error; err != nil {
			return apperror.Internal("failed to update stock", err)
		}

		quantity := next - previous
		if quantity < 0 {
			quantity = -quantity
		}
		movement := StockMovement{
			ProductID:        productID,
			MovementType:     movementType,
			Reason:           ReasonManual,
			Quantity:         quantity,
			PreviousQuantity: previous,
			NewQuantity:      next,
			ReferenceType:    "manual",
			Notes:            req.Notes,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return apperror.Internal("failed to record stock movement", err)
		}

		product.StockQuantity = next
		updated = *product
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"operation":  req.Operation,
		"quantity":   req.Quantity,
		"stock":      updated.StockQuantity,
	}).Info("Stock updated")

	return &updated, nil
}

// Movements lists the stock history of a product, newest first
func (s *Service) Movements(ctx context.Context, productID string, page, limit int) (*MovementListResponse, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&catalog.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, apperror.Internal("failed to check product", err)
	}
	if count == 0 {
		return nil, apperror.NotFound("product")
	}

	var total int64
	query := db.Model(&StockMovement{}).Where("product_id = ?", productID)
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count stock movements", err)
	}

	var movements []StockMovement
	if err := query.Order("created_at DESC, id DESC").
		Scopes(pagination.Scope(page, limit)).
		Find(&movements).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve stock movements", err)
	}

	return &MovementListResponse{
		Movements:  movements,
		Pagination: pagination.New(page, limit, total),
	}, nil
}
