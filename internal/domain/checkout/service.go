// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/inventory"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/pkg/webhook"
	"gorm.io/gorm"
)

const maxAddressLength = 255

// Service turns an active cart into an order
type Service struct {
	db        *gorm.DB
	publisher webhook.Publisher
	logger    *logrus.Logger
}

// NewService creates a new checkout service
func NewService(db *gorm.DB, publisher webhook.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

// CheckoutRequest represents checkout data. Billing defaults to shipping.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required,max=255"`
	BillingAddress  string `json:"billing_address" binding:"omitempty,max=255"`
}

// CheckoutValidation represents a dry run of checkout against current stock
type CheckoutValidation struct {
	IsValid  bool          `json:"is_valid"`
	Errors   []string      `json:"errors,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Cart     cart.CartView `json:"cart"`
}

// Checkout converts the actor's active cart into a pending order in one transaction.
// Stock is checked for every line before anything is written, and each decrement
// is itself conditional, so the order either takes all of its stock or none.
func (s *Service) Checkout(ctx context.Context, actor identity.Actor, req *CheckoutRequest) (*order.Order, error) {
	if actor.UserID == "" {
		return nil, apperror.Forbidden("an authenticated user is required")
	}
	shipping, billing, err := normalizeAddresses(req)
	if err != nil {
		return nil, err
	}

	var created order.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		active, err := cart.LoadActive(tx, actor.UserID)
		if err != nil {
			if apperror.Is(err, apperror.KindNotFound) {
				return apperror.EmptyCart()
			}
			return err
		}
		if active.IsEmpty() {
			return apperror.EmptyCart()
		}

		productIDs := make([]string, len(active.Items))
		for i, item := range active.Items {
			productIDs[i] = item.ProductID
		}
		products, err := inventory.LockProducts(tx, productIDs)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, item := range active.Items {
			product, ok := products[item.ProductID]
			if !ok {
				return apperror.NotFound("product")
			}
			if item.Quantity > product.StockQuantity {
				return apperror.InsufficientStock(product.Name)
			}
			total = total.Add(product.EffectivePrice().Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		created = order.Order{
			UserID:          actor.UserID,
			Status:          order.OrderStatusPending,
			TotalAmount:     total,
			ShippingAddress: shipping,
			BillingAddress:  billing,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperror.Internal("failed to create order", err)
		}

		ref := inventory.OrderRef(inventory.ReasonCheckout, created.ID)
		for _, item := range active.Items {
			product := products[item.ProductID]
			orderItem := order.OrderItem{
				OrderID:   created.ID,
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.EffectivePrice(),
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return apperror.Internal("failed to create order item", err)
			}
			if err := inventory.Decrement(tx, product.ID, item.Quantity, ref); err != nil {
				return err
			}
		}

		history := order.OrderStatusHistory{
			OrderID:   created.ID,
			Status:    order.OrderStatusPending,
			Comment:   "Order placed",
			CreatedBy: actor.UserID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperror.Internal("failed to create status history", err)
		}

		return cart.MarkConverted(tx, active.ID)
	})
	if err != nil {
		return nil, err
	}

	result, err := s.load(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     result.ID,
		"user_id":      result.UserID,
		"total_amount": result.TotalAmount.StringFixed(2),
		"items":        result.ItemsCount(),
	}).Info("Order placed")

	s.publisher.Publish(ctx, webhook.EventOrderCreated, map[string]interface{}{
		"order_id":     result.ID,
		"user_id":      result.UserID,
		"total_amount": result.TotalAmount,
		"items_count":  result.ItemsCount(),
	})

	return result, nil
}

// Validate reports what would stop the actor's cart from checking out right now
func (s *Service) Validate(ctx context.Context, actor identity.Actor) (*CheckoutValidation, error) {
	if actor.UserID == "" {
		return nil, apperror.Forbidden("an authenticated user is required")
	}

	db := s.db.WithContext(ctx)
	active, err := cart.LoadActive(db, actor.UserID)
	if err != nil {
		if !apperror.Is(err, apperror.KindNotFound) {
			return nil, err
		}
		active = &cart.Cart{UserID: actor.UserID, Status: cart.CartStatusActive}
	}

	productIDs := make([]string, len(active.Items))
	for i, item := range active.Items {
		productIDs[i] = item.ProductID
	}
	var products []catalog.Product
	if len(productIDs) > 0 {
		if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
			return nil, apperror.Internal("failed to retrieve products", err)
		}
	}
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	validation := &CheckoutValidation{}
	if active.IsEmpty() {
		validation.Errors = append(validation.Errors, "cart is empty")
	}

	for i := range active.Items {
		item := &active.Items[i]
		product, ok := byID[item.ProductID]
		if !ok {
			validation.Errors = append(validation.Errors, fmt.Sprintf("product %s no longer exists", item.ProductID))
			continue
		}
		item.Product = product

		if item.Quantity > product.StockQuantity {
			validation.Errors = append(validation.Errors,
				fmt.Sprintf("insufficient stock for: %s (%d available)", product.Name, product.StockQuantity))
		}
		if !product.IsActive {
			validation.Warnings = append(validation.Warnings, fmt.Sprintf("%s is no longer listed", product.Name))
		}
		if product.IsOnSale() {
			validation.Warnings = append(validation.Warnings, fmt.Sprintf("%s is on sale", product.Name))
		}
	}

	validation.IsValid = len(validation.Errors) == 0
	validation.Cart = cart.Summarize(active)
	return validation, nil
}

func (s *Service) load(ctx context.Context, id string) (*order.Order, error) {
	var o order.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Preload("Payments").
		Where("id = ?", id).
		First(&o).Error
	if err != nil {
		return nil, apperror.Internal("failed to retrieve order", err)
	}
	return &o, nil
}

func normalizeAddresses(req *CheckoutRequest) (string, string, error) {
	shipping := strings.TrimSpace(req.ShippingAddress)
	billing := strings.TrimSpace(req.BillingAddress)

	if shipping == "" {
		return "", "", apperror.Validation("shipping_address is required")
	}
	if billing == "" {
		billing = shipping
	}
	if len(shipping) > maxAddressLength || len(billing) > maxAddressLength {
		return "", "", apperror.Validation("addresses must not exceed %d characters", maxAddressLength)
	}
	return shipping, billing, nil
}
