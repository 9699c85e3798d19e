// internal/domain/payment/service.go
package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/pkg/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service records payments against orders and keeps the order status in step
type Service struct {
	db        *gorm.DB
	publisher webhook.Publisher
	logger    *logrus.Logger
}

// NewService creates a new payment service
func NewService(db *gorm.DB, publisher webhook.Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:        db,
		publisher: publisher,
		logger:    logger,
	}
}

// PayRequest represents a customer paying for their own order
type PayRequest struct {
	PaymentMethod  order.PaymentMethod    `json:"payment_method" binding:"required,oneof=credit_card paypal bank_transfer cash"`
	Amount         decimal.Decimal        `json:"amount" binding:"gt=0"`
	PaymentDetails map[string]interface{} `json:"payment_details"`
}

// RecordRequest represents an admin-recorded payment
type RecordRequest struct {
	PaymentMethod  order.PaymentMethod    `json:"payment_method" binding:"required,oneof=credit_card paypal bank_transfer cash"`
	TransactionID  string                 `json:"transaction_id" binding:"max=100"`
	Amount         decimal.Decimal        `json:"amount" binding:"gt=0"`
	Status         order.PaymentStatus    `json:"status" binding:"omitempty,oneof=pending completed failed"`
	PaymentDetails map[string]interface{} `json:"payment_details"`
}

// UpdatePaymentRequest represents an admin payment edit
type UpdatePaymentRequest struct {
	PaymentMethod  *order.PaymentMethod   `json:"payment_method" binding:"omitempty,oneof=credit_card paypal bank_transfer cash"`
	TransactionID  *string                `json:"transaction_id" binding:"omitempty,min=1,max=100"`
	Amount         *decimal.Decimal       `json:"amount" binding:"omitempty,gt=0"`
	Status         *order.PaymentStatus   `json:"status" binding:"omitempty,oneof=pending completed failed"`
	PaymentDetails map[string]interface{} `json:"payment_details"`
}

// Pay records a completed payment for the full order total on behalf of its owner
func (s *Service) Pay(ctx context.Context, actor identity.Actor, orderID string, req *PayRequest) (*order.Payment, error) {
	if !order.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, apperror.Validation("invalid payment method: %s", req.PaymentMethod)
	}

	details, err := encodeDetails(req.PaymentDetails)
	if err != nil {
		return nil, err
	}

	var payment order.Payment
	var advanced bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := order.Lock(tx, orderID)
		if err != nil {
			return err
		}
		if actor.UserID == "" || o.UserID != actor.UserID {
			return apperror.Forbidden("you do not have access to this order")
		}
		if !o.AcceptsPayment() {
			return apperror.InvalidState(string(o.Status), "order cannot be paid in current status: %s", o.Status)
		}
		if !req.Amount.Equal(o.TotalAmount) {
			return apperror.Validation("payment amount does not match the order total").
				WithDetail("expected_amount", o.TotalAmount.StringFixed(2))
		}

		payment = order.Payment{
			OrderID:        o.ID,
			PaymentMethod:  req.PaymentMethod,
			Amount:         req.Amount,
			Status:         order.PaymentStatusCompleted,
			PaymentDetails: details,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperror.Internal("failed to create payment", err)
		}

		advanced, err = advance(tx, o, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, &payment, advanced)
	return &payment, nil
}

// Record stores a payment of any positive amount entered by an admin
func (s *Service) Record(ctx context.Context, actor identity.Actor, orderID string, req *RecordRequest) (*order.Payment, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}
	if !order.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, apperror.Validation("invalid payment method: %s", req.PaymentMethod)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}

	status := req.Status
	if status == "" {
		status = order.PaymentStatusCompleted
	}
	if !isValidPaymentStatus(status) {
		return nil, apperror.Validation("invalid payment status: %s", status)
	}

	details, err := encodeDetails(req.PaymentDetails)
	if err != nil {
		return nil, err
	}

	var payment order.Payment
	var advanced bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o, err := order.Lock(tx, orderID)
		if err != nil {
			return err
		}

		if req.TransactionID != "" {
			if err := ensureUniqueTransaction(tx, req.TransactionID, ""); err != nil {
				return err
			}
		}

		payment = order.Payment{
			OrderID:        o.ID,
			PaymentMethod:  req.PaymentMethod,
			TransactionID:  req.TransactionID,
			Amount:         req.Amount,
			Status:         status,
			PaymentDetails: details,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return apperror.Internal("failed to create payment", err)
		}

		if payment.Status == order.PaymentStatusCompleted {
			advanced, err = advance(tx, o, actor.UserID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, &payment, advanced)
	return &payment, nil
}

// Update edits a payment. Completing it advances a pending order to processing.
func (s *Service) Update(ctx context.Context, actor identity.Actor, paymentID string, req *UpdatePaymentRequest) (*order.Payment, error) {
	if !actor.IsAdmin {
		return nil, apperror.Forbidden("admin access required")
	}
	if req.PaymentMethod != nil && !order.IsValidPaymentMethod(*req.PaymentMethod) {
		return nil, apperror.Validation("invalid payment method: %s", *req.PaymentMethod)
	}
	if req.Amount != nil && !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than zero")
	}
	if req.Status != nil && !isValidPaymentStatus(*req.Status) {
		return nil, apperror.Validation("invalid payment status: %s", *req.Status)
	}

	var payment order.Payment
	var advanced bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findPayment(tx, paymentID)
		if err != nil {
			return err
		}
		o, err := order.Lock(tx, current.OrderID)
		if err != nil {
			return err
		}

		updates := make(map[string]interface{})
		if req.PaymentMethod != nil {
			updates["payment_method"] = *req.PaymentMethod
		}
		if req.TransactionID != nil && *req.TransactionID != current.TransactionID {
			if err := ensureUniqueTransaction(tx, *req.TransactionID, current.ID); err != nil {
				return err
			}
			updates["transaction_id"] = *req.TransactionID
		}
		if req.Amount != nil {
			updates["amount"] = *req.Amount
		}
		if req.Status != nil {
			updates["status"] = *req.Status
		}
		if req.PaymentDetails != nil {
			details, err := encodeDetails(req.PaymentDetails)
			if err != nil {
				return err
			}
			updates["payment_details"] = details
		}

		if len(updates) > 0 {
			if err := tx.Model(&order.Payment{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
				return apperror.Internal("failed to update payment", err)
			}
		}

		if current.Status != order.PaymentStatusCompleted && req.Status != nil && *req.Status == order.PaymentStatusCompleted {
			if advanced, err = advance(tx, o, actor.UserID); err != nil {
				return err
			}
		}

		updated, err := findPayment(tx, current.ID)
		if err != nil {
			return err
		}
		payment = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	if advanced {
		s.statusChanged(ctx, payment.OrderID, order.OrderStatusPending, order.OrderStatusProcessing)
	}
	return &payment, nil
}

// Delete removes a payment. A processing order left without completed payments goes back to pending.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, paymentID string) error {
	if !actor.IsAdmin {
		return apperror.Forbidden("admin access required")
	}

	var orderID string
	var reverted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := findPayment(tx, paymentID)
		if err != nil {
			return err
		}
		o, err := order.Lock(tx, payment.OrderID)
		if err != nil {
			return err
		}
		orderID = o.ID

		if o.IsFulfilled() {
			return apperror.Conflict("cannot delete a payment of a %s order", o.Status)
		}

		var remaining int64
		if err := tx.Model(&order.Payment{}).
			Where("order_id = ? AND status = ? AND id <> ?", o.ID, order.PaymentStatusCompleted, payment.ID).
			Count(&remaining).Error; err != nil {
			return apperror.Internal("failed to count payments", err)
		}

		if err := tx.Delete(&order.Payment{}, "id = ?", payment.ID).Error; err != nil {
			return apperror.Internal("failed to delete payment", err)
		}

		if remaining == 0 && o.Status == order.OrderStatusProcessing {
			if err := order.Transition(tx, o, order.OrderStatusPending, "Payment removed", actor.UserID); err != nil {
				return err
			}
			reverted = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{"payment_id": paymentID, "order_id": orderID}).Info("Payment deleted")
	s.publisher.Publish(ctx, webhook.EventPaymentDeleted, map[string]string{
		"payment_id": paymentID,
		"order_id":   orderID,
	})
	if reverted {
		s.statusChanged(ctx, orderID, order.OrderStatusProcessing, order.OrderStatusPending)
	}
	return nil
}

// ListForOrder retrieves the payments of an order the actor may see, newest first
func (s *Service) ListForOrder(ctx context.Context, actor identity.Actor, orderID string) ([]order.Payment, error) {
	o, err := s.visibleOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	var payments []order.Payment
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", o.ID).
		Order("created_at DESC").
		Find(&payments).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve payments", err)
	}
	return payments, nil
}

// Get retrieves a single payment
func (s *Service) Get(ctx context.Context, actor identity.Actor, paymentID string) (*order.Payment, error) {
	payment, err := findPayment(s.db.WithContext(ctx), paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleOrder(ctx, actor, payment.OrderID); err != nil {
		return nil, err
	}
	return payment, nil
}

// Summary derives the payment state of an order from its live payments
func (s *Service) Summary(ctx context.Context, actor identity.Actor, orderID string) (*order.PaymentSummary, error) {
	o, err := s.visibleOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	var payments []order.Payment
	if err := s.db.WithContext(ctx).Where("order_id = ?", o.ID).Find(&payments).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve payments", err)
	}

	summary := order.SummarizePayments(o.TotalAmount, payments)
	return &summary, nil
}

func (s *Service) visibleOrder(ctx context.Context, actor identity.Actor, orderID string) (*order.Order, error) {
	var o order.Order
	if err := s.db.WithContext(ctx).Where("id = ?", orderID).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order")
		}
		return nil, apperror.Internal("failed to retrieve order", err)
	}
	if !actor.Owns(o.UserID) {
		return nil, apperror.Forbidden("you do not have access to this order")
	}
	return &o, nil
}

func (s *Service) recorded(ctx context.Context, payment *order.Payment, advanced bool) {
	s.logger.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"amount":     payment.Amount.StringFixed(2),
		"status":     payment.Status,
	}).Info("Payment recorded")

	s.publisher.Publish(ctx, webhook.EventPaymentRecorded, map[string]interface{}{
		"payment_id":     payment.ID,
		"order_id":       payment.OrderID,
		"amount":         payment.Amount,
		"status":         payment.Status,
		"payment_method": payment.PaymentMethod,
	})

	if advanced {
		s.statusChanged(ctx, payment.OrderID, order.OrderStatusPending, order.OrderStatusProcessing)
	}
}

func (s *Service) statusChanged(ctx context.Context, orderID string, from, to order.OrderStatus) {
	s.publisher.Publish(ctx, webhook.EventOrderStatusChanged, map[string]interface{}{
		"order_id": orderID,
		"from":     from,
		"to":       to,
	})
}

// advance moves a pending order to processing after a completed payment
func advance(tx *gorm.DB, o *order.Order, changedBy string) (bool, error) {
	if o.Status != order.OrderStatusPending {
		return false, nil
	}
	if err := order.Transition(tx, o, order.OrderStatusProcessing, "Payment received", changedBy); err != nil {
		return false, err
	}
	return true, nil
}

func findPayment(db *gorm.DB, id string) (*order.Payment, error) {
	var payment order.Payment
	if err := db.Where("id = ?", id).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("payment")
		}
		return nil, apperror.Internal("failed to retrieve payment", err)
	}
	return &payment, nil
}

func ensureUniqueTransaction(tx *gorm.DB, transactionID, exceptID string) error {
	query := tx.Model(&order.Payment{}).Where("transaction_id = ?", transactionID)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperror.Internal("failed to check transaction id", err)
	}
	if count > 0 {
		return apperror.Conflict("payment with transaction id '%s' already exists", transactionID)
	}
	return nil
}

func isValidPaymentStatus(status order.PaymentStatus) bool {
	switch status {
	case order.PaymentStatusPending, order.PaymentStatusCompleted, order.PaymentStatusFailed:
		return true
	}
	return false
}

func encodeDetails(details map[string]interface{}) (datatypes.JSON, error) {
	if len(details) == 0 {
		return datatypes.JSON("{}"), nil
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, apperror.Validation("payment_details must be a JSON object")
	}
	return datatypes.JSON(raw), nil
}
