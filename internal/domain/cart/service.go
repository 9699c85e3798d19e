// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Service handles cart business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Replace   bool   `json:"replace"`
}

// UpdateItemRequest represents update cart item request
type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// CartListRequest represents admin cart list query parameters
type CartListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=active converted abandoned"`
	UserID string `form:"user_id"`
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"per_page,default=15"`
}

// CartListResponse represents cart list with pagination
type CartListResponse struct {
	Carts      []CartView            `json:"carts"`
	Pagination pagination.Pagination `json:"pagination"`
}

// UpdateStatusRequest represents an admin cart status change
type UpdateStatusRequest struct {
	Status CartStatus `json:"status" binding:"required,oneof=active converted abandoned"`
}

// GetOrCreateActive returns the user's active cart, creating it on first access
func (s *Service) GetOrCreateActive(ctx context.Context, userID string) (*Cart, error) {
	if userID == "" {
		return nil, apperror.Forbidden("an authenticated user is required")
	}

	var cart Cart
	err := s.db.WithContext(ctx).
		Where(Cart{UserID: userID, Status: CartStatusActive}).
		Order("created_at ASC").
		FirstOrCreate(&cart).Error
	if err != nil {
		return nil, apperror.Internal("failed to load cart", err)
	}

	return s.Get(ctx, cart.ID)
}

// AddItem adds a product to a cart, merging with an existing line unless Replace is set
func (s *Service) AddItem(ctx context.Context, actor identity.Actor, cartID string, req *AddItemRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadOwnedCart(tx, actor, cartID)
		if err != nil {
			return err
		}
		if !cart.IsActive() {
			return apperror.InvalidState(string(cart.Status), "cannot modify a %s cart", cart.Status)
		}

		var product catalog.Product
		if err := tx.Where("id = ?", req.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product")
			}
			return apperror.Internal("failed to retrieve product", err)
		}
		if !product.IsActive {
			return apperror.Validation("product '%s' is not available", product.Name)
		}

		var existing CartItem
		err = tx.Where("cart_id = ? AND product_id = ?", cart.ID, product.ID).First(&existing).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Internal("failed to check cart item", err)
		}

		newQuantity := req.Quantity
		if found && !req.Replace {
			newQuantity += existing.Quantity
		}
		if newQuantity > product.StockQuantity {
			return apperror.StockExceeded(product.StockQuantity)
		}

		if found {
			if err := tx.Model(&existing).Update("quantity", newQuantity).Error; err != nil {
				return apperror.Internal("failed to update cart item", err)
			}
		} else {
			item := CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: newQuantity}
			if err := tx.Create(&item).Error; err != nil {
				return apperror.Internal("failed to add cart item", err)
			}
		}

		return touch(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, cartID)
}

// UpdateItem overwrites the quantity of a cart line
func (s *Service) UpdateItem(ctx context.Context, actor identity.Actor, itemID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}

	var cartID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadOwnedItem(tx, actor, itemID)
		if err != nil {
			return err
		}
		if !item.Cart.IsActive() {
			return apperror.InvalidState(string(item.Cart.Status), "cannot modify a %s cart", item.Cart.Status)
		}
		cartID = item.CartID

		var product catalog.Product
		if err := tx.Where("id = ?", item.ProductID).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product")
			}
			return apperror.Internal("failed to retrieve product", err)
		}
		if quantity > product.StockQuantity {
			return apperror.StockExceeded(product.StockQuantity)
		}

		if err := tx.Model(&CartItem{}).Where("id = ?", item.ID).Update("quantity", quantity).Error; err != nil {
			return apperror.Internal("failed to update cart item", err)
		}
		return touch(tx, item.CartID)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, cartID)
}

// RemoveItem deletes a cart line
func (s *Service) RemoveItem(ctx context.Context, actor identity.Actor, itemID string) (*Cart, error) {
	var cartID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadOwnedItem(tx, actor, itemID)
		if err != nil {
			return err
		}
		if !item.Cart.IsActive() {
			return apperror.InvalidState(string(item.Cart.Status), "cannot modify a %s cart", item.Cart.Status)
		}
		cartID = item.CartID

		if err := tx.Delete(&CartItem{}, "id = ?", item.ID).Error; err != nil {
			return apperror.Internal("failed to remove cart item", err)
		}
		return touch(tx, item.CartID)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, cartID)
}

// Clear removes every line of a cart
func (s *Service) Clear(ctx context.Context, actor identity.Actor, cartID string) (*Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadOwnedCart(tx, actor, cartID)
		if err != nil {
			return err
		}
		if !cart.IsActive() {
			return apperror.InvalidState(string(cart.Status), "cannot modify a %s cart", cart.Status)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&CartItem{}).Error; err != nil {
			return apperror.Internal("failed to clear cart", err)
		}
		return touch(tx, cart.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, cartID)
}

// Get retrieves a cart with its items and products
func (s *Service) Get(ctx context.Context, id string) (*Cart, error) {
	var cart Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart")
		}
		return nil, apperror.Internal("failed to retrieve cart", err)
	}
	return &cart, nil
}

// List retrieves carts for administration
func (s *Service) List(ctx context.Context, req *CartListRequest) (*CartListResponse, error) {
	var carts []Cart
	var total int64

	query := s.db.WithContext(ctx).Model(&Cart{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count carts", err)
	}

	err := query.Preload("Items.Product").
		Order("updated_at DESC").
		Scopes(pagination.Scope(req.Page, req.Limit)).
		Find(&carts).Error
	if err != nil {
		return nil, apperror.Internal("failed to retrieve carts", err)
	}

	views := make([]CartView, len(carts))
	for i := range carts {
		views[i] = Summarize(&carts[i])
	}

	return &CartListResponse{
		Carts:      views,
		Pagination: pagination.New(req.Page, req.Limit, total),
	}, nil
}

// UpdateStatus moves an active cart to a terminal status
func (s *Service) UpdateStatus(ctx context.Context, id string, status CartStatus) (*Cart, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart Cart
		if err := tx.Where("id = ?", id).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("cart")
			}
			return apperror.Internal("failed to retrieve cart", err)
		}

		if cart.Status == status {
			return nil
		}
		if !cart.IsActive() {
			return apperror.InvalidState(string(cart.Status), "cannot move a %s cart to %s", cart.Status, status)
		}
		if status != CartStatusAbandoned && status != CartStatusConverted {
			return apperror.Validation("invalid cart status: %s", status)
		}

		if err := tx.Model(&cart).Update("status", status).Error; err != nil {
			return apperror.Internal("failed to update cart status", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes a cart and its lines
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart Cart
		if err := tx.Where("id = ?", id).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("cart")
			}
			return apperror.Internal("failed to retrieve cart", err)
		}

		if err := tx.Where("cart_id = ?", id).Delete(&CartItem{}).Error; err != nil {
			return apperror.Internal("failed to delete cart items", err)
		}
		if err := tx.Delete(&cart).Error; err != nil {
			return apperror.Internal("failed to delete cart", err)
		}
		return nil
	})
}

// AbandonStale marks active carts untouched for longer than olderThan as abandoned
func (s *Service) AbandonStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, apperror.Validation("older-than must be positive")
	}

	cutoff := time.Now().Add(-olderThan)
	result := s.db.WithContext(ctx).Model(&Cart{}).
		Where("status = ? AND updated_at < ?", CartStatusActive, cutoff).
		Update("status", CartStatusAbandoned)
	if result.Error != nil {
		return 0, apperror.Internal("failed to abandon carts", result.Error)
	}

	s.logger.WithFields(logrus.Fields{
		"cutoff":    cutoff.Format(time.RFC3339),
		"abandoned": result.RowsAffected,
	}).Info("Stale carts abandoned")

	return result.RowsAffected, nil
}

// LoadActive loads the user's active cart with items inside tx
func LoadActive(tx *gorm.DB, userID string) (*Cart, error) {
	var cart Cart
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).
		Where("user_id = ? AND status = ?", userID, CartStatusActive).
		Order("created_at ASC").
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart")
		}
		return nil, apperror.Internal("failed to retrieve cart", err)
	}
	return &cart, nil
}

// MarkConverted closes a cart after a successful checkout
func MarkConverted(tx *gorm.DB, cartID string) error {
	result := tx.Model(&Cart{}).
		Where("id = ? AND status = ?", cartID, CartStatusActive).
		Update("status", CartStatusConverted)
	if result.Error != nil {
		return apperror.Internal("failed to convert cart", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.Conflict("cart was modified concurrently")
	}
	return nil
}

func loadOwnedCart(tx *gorm.DB, actor identity.Actor, cartID string) (*Cart, error) {
	var cart Cart
	if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart")
		}
		return nil, apperror.Internal("failed to retrieve cart", err)
	}
	if !actor.Owns(cart.UserID) {
		return nil, apperror.Forbidden("you do not have access to this cart")
	}
	return &cart, nil
}

func loadOwnedItem(tx *gorm.DB, actor identity.Actor, itemID string) (*CartItem, error) {
	var item CartItem
	if err := tx.Preload("Cart").Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart item")
		}
		return nil, apperror.Internal("failed to retrieve cart item", err)
	}
	if item.Cart == nil {
		return nil, apperror.NotFound("cart")
	}
	if !actor.Owns(item.Cart.UserID) {
		return nil, apperror.Forbidden("you do not have access to this cart")
	}
	return &item, nil
}

func touch(tx *gorm.DB, cartID string) error {
	if err := tx.Model(&Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now()).Error; err != nil {
		return apperror.Internal("failed to update cart", err)
	}
	return nil
}
