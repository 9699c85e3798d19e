package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/pkg/logger"
	"github.com/your-org/storefront-api/internal/pkg/testdb"
	"gorm.io/gorm"
)

type fixture struct {
	db  *gorm.DB
	svc *Service
	ctx context.Context
}

func newFixture(t *testing.T) *fixture {
	db := testdb.Open(t, &catalog.Category{}, &catalog.Product{}, &Cart{}, &CartItem{})
	return &fixture{db: db, svc: NewService(db, logger.Discard()), ctx: context.Background()}
}

func (f *fixture) product(t *testing.T, sku string, price string, sale *string, stock int, active bool) catalog.Product {
	t.Helper()
	category := catalog.Category{Name: "Cat " + sku, Slug: "cat-" + sku, IsActive: true}
	require.NoError(t, f.db.Create(&category).Error)
	p := catalog.Product{
		CategoryID:    category.ID,
		Name:          "Product " + sku,
		SKU:           sku,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      active,
	}
	if sale != nil {
		d := decimal.RequireFromString(*sale)
		p.SalePrice = &d
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func strPtr(s string) *string { return &s }

func TestGetOrCreateActiveIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.GetOrCreateActive(f.ctx, "user-1")
	require.NoError(t, err)
	second, err := f.svc.GetOrCreateActive(f.ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, CartStatusActive, second.Status)

	var count int64
	require.NoError(t, f.db.Model(&Cart{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = f.svc.GetOrCreateActive(f.ctx, "")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestAddItemMergesAndReplaces(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")
	p := f.product(t, "A", "10.00", nil, 5, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, actor.UserID)
	require.NoError(t, err)

	c, err = f.svc.AddItem(f.ctx, actor, c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	c, err = f.svc.AddItem(f.ctx, actor, c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = f.svc.AddItem(f.ctx, actor, c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 1, Replace: true})
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestAddItemStockExceededLeavesCartUnchanged(t *testing.T) {
	f := newFixture(t)
	actor := identity.User("user-1")
	p := f.product(t, "A", "10.00", nil, 3, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, actor.UserID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(f.ctx, actor, c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.svc.AddItem(f.ctx, actor, c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 2})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindStockExceeded))
	assert.Equal(t, 3, apperror.Details(err)["available"])

	reloaded, err := f.svc.Get(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 2, reloaded.Items[0].Quantity)

	var stock catalog.Product
	require.NoError(t, f.db.First(&stock, "id = ?", p.ID).Error)
	assert.Equal(t, 3, stock.StockQuantity, "adding to a cart never touches stock")
}

func TestAddItemRejections(t *testing.T) {
	f := newFixture(t)
	owner := identity.User("user-1")
	inactive := f.product(t, "OFF", "10.00", nil, 5, false)
	active := f.product(t, "ON", "10.00", nil, 5, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, owner.UserID)
	require.NoError(t, err)

	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: "missing", Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: inactive.ID, Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: active.ID, Quantity: 0})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.AddItem(f.ctx, identity.User("user-2"), c.ID, &AddItemRequest{ProductID: active.ID, Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = f.svc.AddItem(f.ctx, identity.Admin("admin-1"), c.ID, &AddItemRequest{ProductID: active.ID, Quantity: 1})
	assert.NoError(t, err)

	_, err = f.svc.UpdateStatus(f.ctx, c.ID, CartStatusAbandoned)
	require.NoError(t, err)
	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: active.ID, Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestUpdateAndRemoveItem(t *testing.T) {
	f := newFixture(t)
	owner := identity.User("user-1")
	p := f.product(t, "A", "10.00", nil, 4, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, owner.UserID)
	require.NoError(t, err)
	c, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := c.Items[0].ID

	_, err = f.svc.UpdateItem(f.ctx, owner, itemID, 5)
	assert.True(t, apperror.Is(err, apperror.KindStockExceeded))

	_, err = f.svc.UpdateItem(f.ctx, identity.User("user-2"), itemID, 2)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	c, err = f.svc.UpdateItem(f.ctx, owner, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	_, err = f.svc.RemoveItem(f.ctx, identity.User("user-2"), itemID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	c, err = f.svc.RemoveItem(f.ctx, owner, itemID)
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = f.svc.RemoveItem(f.ctx, owner, itemID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	owner := identity.User("user-1")
	a := f.product(t, "A", "10.00", nil, 4, true)
	b := f.product(t, "B", "5.00", nil, 4, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, owner.UserID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: a.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = f.svc.Clear(f.ctx, identity.User("user-2"), c.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	c, err = f.svc.Clear(f.ctx, owner, c.ID)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestTerminalCartIsFrozen(t *testing.T) {
	f := newFixture(t)
	owner := identity.User("user-1")
	a := f.product(t, "A", "10.00", nil, 4, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, owner.UserID)
	require.NoError(t, err)
	c, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	itemID := c.Items[0].ID

	require.NoError(t, MarkConverted(f.db, c.ID))

	_, err = f.svc.RemoveItem(f.ctx, owner, itemID)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
	assert.Equal(t, "converted", apperror.Details(err)["status"])

	_, err = f.svc.Clear(f.ctx, owner, c.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	_, err = f.svc.Clear(f.ctx, identity.Admin("admin-1"), c.ID)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	converted, err := f.svc.Get(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, CartStatusConverted, converted.Status)
	require.Len(t, converted.Items, 1)
	assert.Equal(t, 2, converted.Items[0].Quantity)
}

func TestSummarize(t *testing.T) {
	f := newFixture(t)
	owner := identity.User("user-1")
	a := f.product(t, "A", "80.00", strPtr("60.00"), 10, true)
	b := f.product(t, "B", "20.00", strPtr("25.00"), 10, true)

	c, err := f.svc.GetOrCreateActive(f.ctx, owner.UserID)
	require.NoError(t, err)
	_, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	c, err = f.svc.AddItem(f.ctx, owner, c.ID, &AddItemRequest{ProductID: b.ID, Quantity: 3})
	require.NoError(t, err)

	view := Summarize(c)
	assert.Equal(t, 5, view.ItemsCount)
	assert.True(t, decimal.RequireFromString("180").Equal(view.TotalAmount), "got %s", view.TotalAmount)

	byProduct := map[string]CartItemView{}
	for _, item := range view.Items {
		byProduct[item.ProductID] = item
	}
	assert.True(t, decimal.RequireFromString("60").Equal(byProduct[a.ID].UnitPrice))
	assert.True(t, decimal.RequireFromString("20").Equal(byProduct[b.ID].UnitPrice), "a sale price above the list price is ignored")
	assert.True(t, decimal.RequireFromString("60").Equal(byProduct[b.ID].Subtotal))
}

func TestUpdateStatusTerminal(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.GetOrCreateActive(f.ctx, "user-1")
	require.NoError(t, err)

	c, err = f.svc.UpdateStatus(f.ctx, c.ID, CartStatusConverted)
	require.NoError(t, err)
	assert.Equal(t, CartStatusConverted, c.Status)

	_, err = f.svc.UpdateStatus(f.ctx, c.ID, CartStatusActive)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	fresh, err := f.svc.GetOrCreateActive(f.ctx, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, fresh.ID)
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "A", "10.00", nil, 4, true)

	for _, user := range []string{"user-1", "user-2"} {
		c, err := f.svc.GetOrCreateActive(f.ctx, user)
		require.NoError(t, err)
		_, err = f.svc.AddItem(f.ctx, identity.User(user), c.ID, &AddItemRequest{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(f.ctx, &CartListRequest{Status: "active"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Pagination.Total)

	resp, err = f.svc.List(f.ctx, &CartListRequest{UserID: "user-2"})
	require.NoError(t, err)
	require.Len(t, resp.Carts, 1)
	assert.Equal(t, 1, resp.Carts[0].ItemsCount)

	require.NoError(t, f.svc.Delete(f.ctx, resp.Carts[0].ID))
	var items int64
	require.NoError(t, f.db.Model(&CartItem{}).Where("cart_id = ?", resp.Carts[0].ID).Count(&items).Error)
	assert.Zero(t, items)

	assert.True(t, apperror.Is(f.svc.Delete(f.ctx, resp.Carts[0].ID), apperror.KindNotFound))
}

func TestAbandonStale(t *testing.T) {
	f := newFixture(t)

	stale, err := f.svc.GetOrCreateActive(f.ctx, "user-1")
	require.NoError(t, err)
	fresh, err := f.svc.GetOrCreateActive(f.ctx, "user-2")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&Cart{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", time.Now().Add(-48*time.Hour)).Error)

	n, err := f.svc.AbandonStale(f.ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.Get(f.ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, CartStatusAbandoned, got.Status)

	got, err = f.svc.Get(f.ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, CartStatusActive, got.Status)

	_, err = f.svc.AbandonStale(f.ctx, 0)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
