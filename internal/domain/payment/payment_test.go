package payment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/testdb"
	"github.com/your-org/storefront-api/internal/pkg/webhook"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (r *recorder) Publish(_ context.Context, event webhook.Event, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	events *recorder
	ctx    context.Context
	owner  identity.Actor
	admin  identity.Actor
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t, &order.Order{}, &order.OrderItem{}, &order.Payment{}, &order.OrderStatusHistory{})
	events := &recorder{}
	return &fixture{
		db:     db,
		svc:    NewService(db, events, logger.Discard()),
		events: events,
		ctx:    context.Background(),
		owner:  identity.User("user-1"),
		admin:  identity.Admin("admin-1"),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) order(t *testing.T, total string, status order.OrderStatus) *order.Order {
	t.Helper()
	o := &order.Order{
		UserID:          f.owner.UserID,
		Status:          status,
		TotalAmount:     dec(total),
		ShippingAddress: "1 Main St",
		BillingAddress:  "1 Main St",
	}
	require.NoError(t, f.db.Create(o).Error)
	return o
}

func (f *fixture) status(t *testing.T, orderID string) order.OrderStatus {
	t.Helper()
	var o order.Order
	require.NoError(t, f.db.First(&o, "id = ?", orderID).Error)
	return o.Status
}

func TestPay(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "100.00", order.OrderStatusPending)

	_, err := f.svc.Pay(f.ctx, f.owner, o.ID, &PayRequest{PaymentMethod: order.PaymentMethodCreditCard, Amount: dec("99.99")})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, "100.00", apperror.Details(err)["expected_amount"])

	_, err = f.svc.Pay(f.ctx, identity.User("user-2"), o.ID, &PayRequest{PaymentMethod: order.PaymentMethodCreditCard, Amount: dec("100")})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.svc.Pay(f.ctx, f.owner, o.ID, &PayRequest{PaymentMethod: "bitcoin", Amount: dec("100")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	payment, err := f.svc.Pay(f.ctx, f.owner, o.ID, &PayRequest{
		PaymentMethod:  order.PaymentMethodPaypal,
		Amount:         dec("100"),
		PaymentDetails: map[string]interface{}{"payer": "buyer@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusCompleted, payment.Status)
	assert.Len(t, payment.TransactionID, 36)
	assert.Equal(t, order.OrderStatusProcessing, f.status(t, o.ID))

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(payment.PaymentDetails, &details))
	assert.Equal(t, "buyer@example.com", details["payer"])

	assert.Equal(t, []webhook.Event{webhook.EventPaymentRecorded, webhook.EventOrderStatusChanged}, f.events.events)
}

func TestPayRejectsClosedOrders(t *testing.T) {
	f := newFixture(t)

	for _, status := range []order.OrderStatus{order.OrderStatusShipped, order.OrderStatusDelivered, order.OrderStatusCancelled} {
		o := f.order(t, "10.00", status)
		_, err := f.svc.Pay(f.ctx, f.owner, o.ID, &PayRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("10")})
		require.Error(t, err)
		assert.True(t, apperror.Is(err, apperror.KindInvalidState))
		assert.Equal(t, string(status), apperror.Details(err)["status"])
	}

	processing := f.order(t, "10.00", order.OrderStatusProcessing)
	_, err := f.svc.Pay(f.ctx, f.owner, processing.ID, &PayRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("10")})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusProcessing, f.status(t, processing.ID))
}

func TestRecordAndSummary(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "100.00", order.OrderStatusPending)

	summary, err := f.svc.Summary(f.ctx, f.owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.SettlementPending, summary.PaymentStatus)

	pending := order.PaymentStatusPending
	_, err = f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodBankTransfer, Amount: dec("500"), Status: pending})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPending, f.status(t, o.ID), "a pending payment does not advance the order")

	_, err = f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("40"), TransactionID: "TX-1"})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusProcessing, f.status(t, o.ID))

	summary, err = f.svc.Summary(f.ctx, f.owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.SettlementPartiallyPaid, summary.PaymentStatus)
	assert.True(t, dec("60").Equal(summary.BalanceDue))

	_, err = f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("10"), TransactionID: "TX-1"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("110")})
	require.NoError(t, err)

	summary, err = f.svc.Summary(f.ctx, f.owner, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.SettlementPaid, summary.PaymentStatus)
	assert.True(t, dec("150").Equal(summary.TotalPaid))
	assert.True(t, summary.BalanceDue.IsZero())

	_, err = f.svc.Record(f.ctx, f.owner, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("1")})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("0")})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Summary(f.ctx, identity.User("user-2"), o.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestUpdateCompletesPayment(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "50.00", order.OrderStatusPending)

	payment, err := f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{
		PaymentMethod: order.PaymentMethodBankTransfer, Amount: dec("50"), Status: order.PaymentStatusPending,
	})
	require.NoError(t, err)

	completed := order.PaymentStatusCompleted
	txID := "BANK-42"
	updated, err := f.svc.Update(f.ctx, f.admin, payment.ID, &UpdatePaymentRequest{Status: &completed, TransactionID: &txID})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentStatusCompleted, updated.Status)
	assert.Equal(t, "BANK-42", updated.TransactionID)
	assert.Equal(t, order.OrderStatusProcessing, f.status(t, o.ID))

	other, err := f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("1")})
	require.NoError(t, err)
	_, err = f.svc.Update(f.ctx, f.admin, other.ID, &UpdatePaymentRequest{TransactionID: &txID})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = f.svc.Update(f.ctx, f.admin, "missing", &UpdatePaymentRequest{Status: &completed})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDeleteRevertsProcessingOrder(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "100.00", order.OrderStatusPending)

	first, err := f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("40")})
	require.NoError(t, err)
	second, err := f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("60")})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusProcessing, f.status(t, o.ID))

	require.NoError(t, f.svc.Delete(f.ctx, f.admin, first.ID))
	assert.Equal(t, order.OrderStatusProcessing, f.status(t, o.ID), "another completed payment remains")

	require.NoError(t, f.svc.Delete(f.ctx, f.admin, second.ID))
	assert.Equal(t, order.OrderStatusPending, f.status(t, o.ID))

	payments, err := f.svc.ListForOrder(f.ctx, f.owner, o.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	assert.True(t, apperror.Is(f.svc.Delete(f.ctx, f.admin, first.ID), apperror.KindNotFound))
}

func TestDeleteBlockedOnFulfilledOrders(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "20.00", order.OrderStatusPending)

	payment, err := f.svc.Record(f.ctx, f.admin, o.ID, &RecordRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("20")})
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&order.Order{}).Where("id = ?", o.ID).Update("status", order.OrderStatusShipped).Error)

	err = f.svc.Delete(f.ctx, f.admin, payment.ID)
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	assert.True(t, apperror.Is(f.svc.Delete(f.ctx, f.owner, payment.ID), apperror.KindForbidden))
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, "20.00", order.OrderStatusPending)

	payment, err := f.svc.Pay(f.ctx, f.owner, o.ID, &PayRequest{PaymentMethod: order.PaymentMethodCash, Amount: dec("20")})
	require.NoError(t, err)

	got, err := f.svc.Get(f.ctx, f.admin, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.TransactionID, got.TransactionID)

	_, err = f.svc.Get(f.ctx, identity.User("user-2"), payment.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	payments, err := f.svc.ListForOrder(f.ctx, f.owner, o.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)

	_, err = f.svc.ListForOrder(f.ctx, f.owner, "missing")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
