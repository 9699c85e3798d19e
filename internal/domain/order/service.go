// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/inventory"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
	"github.com/your-org/storefront-api/internal/pkg/webhook"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Service handles order business logic
type Service struct {
	db        *gorm.DB
	publisher webhook.Publisher
	logger    *logrus.Logger
}

// NewService creates a new order service
func NewService(db *gorm.DB, publisher webhook.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

// OrderListRequest represents admin order list query parameters
type OrderListRequest struct {
	Page      int              `form:"page,default=1"`
	Limit     int              `form:"per_page,default=15"`
	Status    string           `form:"status"`
	UserID    string           `form:"user_id"`
	MinAmount *decimal.Decimal `form:"min_amount"`
	MaxAmount *decimal.Decimal `form:"max_amount"`
	DateFrom  string           `form:"date_from"`
	DateTo    string           `form:"date_to"`
	OrderBy   string           `form:"order_by,default=created_at"`
	Direction string           `form:"direction,default=desc"`
}

// MyOrderListRequest represents the customer's own order list query parameters
type MyOrderListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"per_page,default=15"`
	Status    string `form:"status"`
	OrderBy   string `form:"order_by,default=created_at"`
	Direction string `form:"direction,default=desc"`
}

// OrderListResponse represents order list with pagination
type OrderListResponse struct {
	Orders     []OrderView           `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	Comment string      `json:"comment" binding:"max=500"`
}

// UpdateOrderRequest represents an admin order edit
type UpdateOrderRequest struct {
	Status          *OrderStatus `json:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
	ShippingAddress *string      `json:"shipping_address" binding:"omitempty,min=1,max=255"`
	BillingAddress  *string      `json:"billing_address" binding:"omitempty,min=1,max=255"`
	Comment         string       `json:"comment" binding:"max=500"`
}

// AddItemRequest represents an admin order line addition
type AddItemRequest struct {
	ProductID string           `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	Price     *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
}

// UpdateItemRequest represents an admin order line edit
type UpdateItemRequest struct {
	Quantity *int             `json:"quantity" binding:"omitempty,min=1"`
	Price    *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
}

// Cancel cancels a pending or processing order and returns its items to stock
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, id string) (*Order, error) {
	var previous OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := Lock(tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(order.UserID) {
			return apperror.Forbidden("you do not have access to this order")
		}
		if !order.CanBeCancelled() {
			return apperror.InvalidState(string(order.Status), "order cannot be cancelled in current status: %s", order.Status)
		}

		previous = order.Status
		return Transition(tx, order, OrderStatusCancelled, "Order cancelled", actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.statusChanged(ctx, id, previous, OrderStatusCancelled)
	return s.load(ctx, id)
}

// UpdateStatus sets any order status. Entering cancelled restitutes stock.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Actor, id string, req *UpdateStatusRequest) (*Order, error) {
	return s.Update(ctx, actor, id, &UpdateOrderRequest{Status: &req.Status, Comment: req.Comment})
}

// Update edits the status and addresses of an order
func (s *Service) Update(ctx context.Context, actor identity.Actor, id string, req *UpdateOrderRequest) (*Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}

	var previous, next OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := Lock(tx, id)
		if err != nil {
			return err
		}
		previous = order.Status
		next = order.Status

		updates := make(map[string]interface{})
		if req.ShippingAddress != nil {
			updates["shipping_address"] = *req.ShippingAddress
		}
		if req.BillingAddress != nil {
			updates["billing_address"] = *req.BillingAddress
		}
		if len(updates) > 0 {
			if err := tx.Model(&Order{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return apperror.Internal("failed to update order", err)
			}
		}

		if req.Status != nil {
			comment := req.Comment
			if comment == "" {
				comment = fmt.Sprintf("Status changed to %s", *req.Status)
			}
			if err := Transition(tx, order, *req.Status, comment, actor.UserID); err != nil {
				return err
			}
			next = order.Status
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != next {
		s.statusChanged(ctx, id, previous, next)
	}
	return s.load(ctx, id)
}

// Delete removes an order without payments, returning stock unless it was cancelled
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id string) error {
	if !actor.IsAdmin {
		return apperror.Forbidden("admin access required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := Lock(tx, id)
		if err != nil {
			return err
		}

		var paymentCount int64
		if err := tx.Model(&Payment{}).Where("order_id = ?", id).Count(&paymentCount).Error; err != nil {
			return apperror.Internal("failed to count payments", err)
		}
		if paymentCount > 0 {
			return apperror.Conflict("cannot delete order with %d payment(s)", paymentCount)
		}

		if order.Status != OrderStatusCancelled {
			if err := restitute(tx, id, inventory.ReasonOrderDeleted); err != nil {
				return err
			}
		}

		if err := tx.Where("order_id = ?", id).Delete(&OrderStatusHistory{}).Error; err != nil {
			return apperror.Internal("failed to delete order history", err)
		}
		if err := tx.Where("order_id = ?", id).Delete(&OrderItem{}).Error; err != nil {
			return apperror.Internal("failed to delete order items", err)
		}
		if err := tx.Delete(&Order{}, "id = ?", id).Error; err != nil {
			return apperror.Internal("failed to delete order", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"order_id": id, "deleted_by": actor.UserID}).Info("Order deleted")
	s.publisher.Publish(ctx, webhook.EventOrderDeleted, map[string]string{"order_id": id})
	return nil
}

// AddItem appends a line to an editable order and takes the stock for it
func (s *Service) AddItem(ctx context.Context, actor identity.Actor, orderID string, req *AddItemRequest) (*Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}
	if req.Quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, apperror.Validation("price cannot be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockEditable(tx, orderID)
		if err != nil {
			return err
		}

		product, err := inventory.LockProduct(tx, req.ProductID)
		if err != nil {
			return err
		}

		price := product.EffectivePrice()
		if req.Price != nil {
			price = *req.Price
		}

		item := OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  req.Quantity,
			Price:     price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return apperror.Internal("failed to create order item", err)
		}

		ref := inventory.OrderItemRef(inventory.ReasonOrderItemAdded, item.ID)
		if err := inventory.Decrement(tx, product.ID, req.Quantity, ref); err != nil {
			return err
		}

		_, err = RecomputeTotal(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.load(ctx, orderID)
}

// UpdateItem changes a line's quantity and/or price, moving stock by the quantity delta
func (s *Service) UpdateItem(ctx context.Context, actor identity.Actor, orderID, itemID string, req *UpdateItemRequest) (*Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}
	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, apperror.Validation("price cannot be negative")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockEditable(tx, orderID)
		if err != nil {
			return err
		}

		item, err := findItem(tx, order.ID, itemID)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if req.Quantity != nil && *req.Quantity != item.Quantity {
			ref := inventory.OrderItemRef(inventory.ReasonOrderItemUpdated, item.ID)
			if err := inventory.Adjust(tx, item.ProductID, item.Quantity-*req.Quantity, ref); err != nil {
				return err
			}
			updates["quantity"] = *req.Quantity
		}
		if req.Price != nil {
			updates["price"] = *req.Price
		}
		if len(updates) > 0 {
			if err := tx.Model(&OrderItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
				return apperror.Internal("failed to update order item", err)
			}
		}

		_, err = RecomputeTotal(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.load(ctx, orderID)
}

// RemoveItem deletes a line and returns its quantity to stock
func (s *Service) RemoveItem(ctx context.Context, actor identity.Actor, orderID, itemID string) (*Order, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockEditable(tx, orderID)
		if err != nil {
			return err
		}

		item, err := findItem(tx, order.ID, itemID)
		if err != nil {
			return err
		}

		ref := inventory.OrderItemRef(inventory.ReasonOrderItemRemoved, item.ID)
		if err := inventory.Restore(tx, item.ProductID, item.Quantity, ref); err != nil {
			return err
		}
		if err := tx.Delete(&OrderItem{}, "id = ?", item.ID).Error; err != nil {
			return apperror.Internal("failed to delete order item", err)
		}

		_, err = RecomputeTotal(tx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.load(ctx, orderID)
}

// ListMine retrieves the actor's own orders
func (s *Service) ListMine(ctx context.Context, actor identity.Actor, req *MyOrderListRequest) (*OrderListResponse, error) {
	if actor.UserID == "" {
		return nil, apperror.Forbidden("an authenticated user is required")
	}

	query := s.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", actor.UserID)
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	order := buildOrderClause(req.OrderBy, req.Direction, map[string]bool{
		"created_at":   true,
		"total_amount": true,
	})
	return s.list(query, order, req.Page, req.Limit)
}

// List retrieves orders with admin filters
func (s *Service) List(ctx context.Context, req *OrderListRequest) (*OrderListResponse, error) {
	query := s.db.WithContext(ctx).Model(&Order{})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.MinAmount != nil {
		query = query.Where("total_amount >= ?", *req.MinAmount)
	}
	if req.MaxAmount != nil {
		query = query.Where("total_amount <= ?", *req.MaxAmount)
	}
	if req.DateFrom != "" {
		from, err := time.ParseInLocation(dateLayout, req.DateFrom, time.Local)
		if err != nil {
			return nil, apperror.Validation("date_from must be formatted as YYYY-MM-DD")
		}
		query = query.Where("created_at >= ?", from)
	}
	if req.DateTo != "" {
		to, err := time.ParseInLocation(dateLayout, req.DateTo, time.Local)
		if err != nil {
			return nil, apperror.Validation("date_to must be formatted as YYYY-MM-DD")
		}
		query = query.Where("created_at < ?", to.AddDate(0, 0, 1))
	}

	order := buildOrderClause(req.OrderBy, req.Direction, map[string]bool{
		"created_at":   true,
		"total_amount": true,
		"status":       true,
	})
	return s.list(query, order, req.Page, req.Limit)
}

// Get retrieves an order the actor may see
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (*Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.UserID) {
		return nil, apperror.Forbidden("you do not have access to this order")
	}
	return order, nil
}

// ListItems retrieves the lines of an order the actor may see
func (s *Service) ListItems(ctx context.Context, actor identity.Actor, orderID string) ([]OrderItem, error) {
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return order.Items, nil
}

// History retrieves the status changes of an order, oldest first
func (s *Service) History(ctx context.Context, actor identity.Actor, orderID string) ([]OrderStatusHistory, error) {
	if _, err := s.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}

	var history []OrderStatusHistory
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve order history", err)
	}
	return history, nil
}

func (s *Service) list(query *gorm.DB, order string, page, limit int) (*OrderListResponse, error) {
	var orders []Order
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count orders", err)
	}

	if err := query.
		Preload("Items").
		Preload("Payments").
		Order(order).
		Scopes(pagination.Scope(page, limit)).
		Find(&orders).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve orders", err)
	}

	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = NewView(&orders[i])
	}

	return &OrderListResponse{
		Orders:     views,
		Pagination: pagination.New(page, limit, total),
	}, nil
}

func (s *Service) load(ctx context.Context, id string) (*Order, error) {
	var order Order
	result := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order")
		}
		return nil, apperror.Internal("failed to retrieve order", result.Error)
	}
	return &order, nil
}

func (s *Service) statusChanged(ctx context.Context, orderID string, from, to OrderStatus) {
	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"from":     from,
		"to":       to,
	}).Info("Order status changed")

	s.publisher.Publish(ctx, webhook.EventOrderStatusChanged, map[string]interface{}{
		"order_id": orderID,
		"from":     from,
		"to":       to,
	})
}

func lockEditable(tx *gorm.DB, orderID string) (*Order, error) {
	order, err := Lock(tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.ItemsEditable() {
		return nil, apperror.InvalidState(string(order.Status), "items of a %s order cannot be modified", order.Status)
	}
	return order, nil
}

func findItem(tx *gorm.DB, orderID, itemID string) (*OrderItem, error) {
	var item OrderItem
	if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order item")
		}
		return nil, apperror.Internal("failed to retrieve order item", err)
	}
	return &item, nil
}

func buildOrderClause(orderBy, direction string, allowed map[string]bool) string {
	if !allowed[orderBy] {
		orderBy = "created_at"
	}
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}
	return fmt.Sprintf("%s %s", orderBy, direction)
}
