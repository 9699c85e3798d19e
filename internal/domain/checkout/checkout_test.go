package checkout

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/domain/inventory"
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
	carts  *cart.Service
	events *recorder
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t,
		&catalog.Category{}, &catalog.Product{}, &inventory.StockMovement{},
		&cart.Cart{}, &cart.CartItem{},
		&order.Order{}, &order.OrderItem{}, &order.Payment{}, &order.OrderStatusHistory{},
	)
	events := &recorder{}
	return &fixture{
		db:     db,
		svc:    NewService(db, events, logger.Discard()),
		carts:  cart.NewService(db, logger.Discard()),
		events: events,
		ctx:    context.Background(),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) product(t *testing.T, sku, price string, sale *string, stock int) catalog.Product {
	t.Helper()
	category := catalog.Category{Name: "Cat " + sku, Slug: "cat-" + sku, IsActive: true}
	require.NoError(t, f.db.Create(&category).Error)
	p := catalog.Product{
		CategoryID:    category.ID,
		Name:          "Product " + sku,
		SKU:           sku,
		Price:         dec(price),
		StockQuantity: stock,
		IsActive:      true,
	}
	if sale != nil {
		d := dec(*sale)
		p.SalePrice = &d
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) fill(t *testing.T, actor identity.Actor, lines map[string]int) *cart.Cart {
	t.Helper()
	c, err := f.carts.GetOrCreateActive(f.ctx, actor.UserID)
	require.NoError(t, err)
	for productID, qty := range lines {
		c, err = f.carts.AddItem(f.ctx, actor, c.ID, &cart.AddItemRequest{ProductID: productID, Quantity: qty})
		require.NoError(t, err)
	}
	return c
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	var p catalog.Product
	require.NoError(t, f.db.First(&p, "id = ?", id).Error)
	return p.StockQuantity
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

func TestCheckoutCreatesOrderAndTakesStock(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")
	a := f.product(t, "A", "10.00", nil, 5)
	b := f.product(t, "B", "80.00", strPtr("60.00"), 1)

	c := f.fill(t, actor, map[string]int{a.ID: 3, b.ID: 1})

	o, err := f.svc.Checkout(f.ctx, actor, &CheckoutRequest{ShippingAddress: "  1 Main St  "})
	require.NoError(t, err)

	assert.Equal(t, order.OrderStatusPending, o.Status)
	assert.Equal(t, "1 Main St", o.ShippingAddress)
	assert.Equal(t, "1 Main St", o.BillingAddress, "billing defaults to shipping")
	assert.True(t, dec("90").Equal(o.TotalAmount), "got %s", o.TotalAmount)
	assert.True(t, order.ComputeTotal(o.Items).Equal(o.TotalAmount))
	require.Len(t, o.Items, 2)

	prices := map[string]decimal.Decimal{}
	for _, item := range o.Items {
		prices[item.ProductID] = item.Price
	}
	assert.True(t, dec("10").Equal(prices[a.ID]))
	assert.True(t, dec("60").Equal(prices[b.ID]), "items are frozen at the effective price")

	assert.Equal(t, 2, f.stock(t, a.ID))
	assert.Equal(t, 0, f.stock(t, b.ID))

	converted, err := f.carts.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.CartStatusConverted, converted.Status)

	var movements []inventory.StockMovement
	require.NoError(t, f.db.Where("reference_id = ?", o.ID).Find(&movements).Error)
	assert.Len(t, movements, 2)

	assert.Equal(t, []webhook.Event{webhook.EventOrderCreated}, f.events.events)

	fresh, err := f.carts.GetOrCreateActive(f.ctx, actor.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, fresh.ID)
	assert.True(t, fresh.IsEmpty())
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")

	_, err := f.svc.Checkout(f.ctx, actor, &CheckoutRequest{ShippingAddress: "1 Main St"})
	assert.True(t, apperror.Is(err, apperror.KindEmptyCart), "no cart at all")

	_, err = f.carts.GetOrCreateActive(f.ctx, actor.UserID)
	require.NoError(t, err)
	_, err = f.svc.Checkout(f.ctx, actor, &CheckoutRequest{ShippingAddress: "1 Main St"})
	assert.True(t, apperror.Is(err, apperror.KindEmptyCart), "cart without items")

	assert.Zero(t, f.count(t, &order.Order{}))
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")
	a := f.product(t, "A", "10.00", nil, 5)
	b := f.product(t, "B", "5.00", nil, 3)

	c := f.fill(t, actor, map[string]int{a.ID: 3, b.ID: 3})

	// Stock drops after the item was added to the cart
	require.NoError(t, f.db.Model(&catalog.Product{}).Where("id = ?", b.ID).Update("stock_quantity", 2).Error)

	_, err := f.svc.Checkout(f.ctx, actor, &CheckoutRequest{ShippingAddress: "1 Main St"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInsufficientStock))
	assert.Equal(t, "Product B", apperror.Details(err)["product"])

	assert.Equal(t, 5, f.stock(t, a.ID))
	assert.Equal(t, 2, f.stock(t, b.ID))
	assert.Zero(t, f.count(t, &order.Order{}))
	assert.Zero(t, f.count(t, &order.OrderItem{}))
	assert.Zero(t, f.count(t, &inventory.StockMovement{}))

	still, err := f.carts.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.CartStatusActive, still.Status)
	assert.Len(t, still.Items, 2)
	assert.Empty(t, f.events.events)
}

func TestCheckoutLastUnitGoesToOneBuyer(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "LAST", "10.00", nil, 1)

	buyers := []identity.Actor{identity.User("user-1"), identity.User("user-2")}
	for _, buyer := range buyers {
		f.fill(t, buyer, map[string]int{p.ID: 1})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(buyers))
	for i, buyer := range buyers {
		wg.Add(1)
		go func(i int, buyer identity.Actor) {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(f.ctx, buyer, &CheckoutRequest{ShippingAddress: "1 Main St"})
		}(i, buyer)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.Is(err, apperror.KindInsufficientStock), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.Equal(t, int64(1), f.count(t, &order.Order{}))
}

func TestCheckoutAddressValidation(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")

	_, err := f.svc.Checkout(f.ctx, actor, &CheckoutRequest{ShippingAddress: "   "})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Checkout(f.ctx, actor, &CheckoutRequest{ShippingAddress: "1 Main St", BillingAddress: strings.Repeat("x", 256)})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Checkout(f.ctx, identity.Actor{}, &CheckoutRequest{ShippingAddress: "1 Main St"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")

	empty, err := f.svc.Validate(f.ctx, actor)
	require.NoError(t, err)
	assert.False(t, empty.IsValid)
	assert.Contains(t, empty.Errors, "cart is empty")

	a := f.product(t, "A", "10.00", strPtr("8.00"), 4)
	f.fill(t, actor, map[string]int{a.ID: 4})

	ok, err := f.svc.Validate(f.ctx, actor)
	require.NoError(t, err)
	assert.True(t, ok.IsValid)
	assert.NotEmpty(t, ok.Warnings)
	assert.True(t, dec("32").Equal(ok.Cart.TotalAmount))

	require.NoError(t, f.db.Model(&catalog.Product{}).Where("id = ?", a.ID).Update("stock_quantity", 1).Error)
	short, err := f.svc.Validate(f.ctx, actor)
	require.NoError(t, err)
	assert.False(t, short.IsValid)
	require.Len(t, short.Errors, 1)
	assert.Contains(t, short.Errors[0], "Product A")
	assert.Equal(t, 1, f.stock(t, a.ID))
	assert.Zero(t, f.count(t, &order.Order{}))
}
