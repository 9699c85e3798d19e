package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	redisstore "github.com/your-org/storefront-api/internal/infrastructure/database/redis"
	"gorm.io/gorm"
)

type storefront struct {
	db       *gorm.DB
	products *Service

	outdoor, tents, books *Category

	tent, tent2, stove, lamp, novel, hidden *Product
}

func newStorefront(t *testing.T) *storefront {
	ctx := context.Background()
	db, products, categories := setup(t)
	f := &storefront{db: db, products: products}

	var err error
	f.outdoor, err = categories.CreateCategory(ctx, &CategoryCreateRequest{Name: "Outdoor"})
	require.NoError(t, err)
	f.tents, err = categories.CreateCategory(ctx, &CategoryCreateRequest{Name: "Tents", ParentID: &f.outdoor.ID})
	require.NoError(t, err)
	f.books, err = categories.CreateCategory(ctx, &CategoryCreateRequest{Name: "Books"})
	require.NoError(t, err)

	create := func(req ProductCreateRequest) *Product {
		p, err := products.CreateProduct(ctx, &req)
		require.NoError(t, err)
		return p
	}
	inactive := false

	f.tent = create(ProductCreateRequest{CategoryID: f.tents.ID, Name: "Dome Tent", SKU: "TENT-1", Price: dec("100"), SalePrice: decPtr("70"), StockQuantity: 3, IsFeatured: true})
	f.tent2 = create(ProductCreateRequest{CategoryID: f.tents.ID, Name: "Tunnel Tent", SKU: "TENT-2", Price: dec("150"), StockQuantity: 1})
	f.stove = create(ProductCreateRequest{CategoryID: f.outdoor.ID, Name: "Camp Stove", SKU: "STOVE-1", Price: dec("50"), IsFeatured: true})
	f.lamp = create(ProductCreateRequest{CategoryID: f.outdoor.ID, Name: "Camp Lamp", SKU: "LAMP-1", Price: dec("40"), SalePrice: decPtr("38"), StockQuantity: 2})
	f.novel = create(ProductCreateRequest{CategoryID: f.books.ID, Name: "Trail Novel", SKU: "BOOK-1", Price: dec("10"), SalePrice: decPtr("9.80"), StockQuantity: 5, IsFeatured: true})
	f.hidden = create(ProductCreateRequest{CategoryID: f.books.ID, Name: "Draft Atlas", SKU: "BOOK-2", Price: dec("20"), StockQuantity: 5, IsFeatured: true, IsActive: &inactive})

	return f
}

func ids(products []ProductResponse) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestFeaturedProducts(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	featured, err := f.products.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.tent.ID, f.novel.ID}, ids(featured), "out of stock and inactive products are left out")

	outdoor, err := f.products.FeaturedProducts(ctx, &ShelfRequest{CategoryID: f.outdoor.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent.ID}, ids(outdoor), "subcategories are included")

	cheap, err := f.products.FeaturedProducts(ctx, &ShelfRequest{MaxPrice: decPtr("75")})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.tent.ID, f.novel.ID}, ids(cheap), "sale price counts against the ceiling")

	cheaper, err := f.products.FeaturedProducts(ctx, &ShelfRequest{MaxPrice: decPtr("50")})
	require.NoError(t, err)
	assert.Equal(t, []string{f.novel.ID}, ids(cheaper))

	one, err := f.products.FeaturedProducts(ctx, &ShelfRequest{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestNewProducts(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	require.NoError(t, f.db.Model(&Product{}).Where("id = ?", f.lamp.ID).
		UpdateColumn("created_at", time.Now().AddDate(0, 0, -60)).Error)

	recent, err := f.products.NewProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.tent.ID, f.tent2.ID, f.novel.ID}, ids(recent))

	wider, err := f.products.NewProducts(ctx, &ShelfRequest{Days: 90})
	require.NoError(t, err)
	assert.Contains(t, ids(wider), f.lamp.ID)
}

func TestProductsOnSale(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	sale, err := f.products.ProductsOnSale(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent.ID, f.lamp.ID}, ids(sale), "deepest discount first, below five percent left out")
	assert.Equal(t, 30, sale[0].DiscountPercentage)
	assert.True(t, dec("70").Equal(sale[0].EffectivePrice))

	deep, err := f.products.ProductsOnSale(ctx, &ShelfRequest{MinDiscount: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent.ID}, ids(deep))

	shallow, err := f.products.ProductsOnSale(ctx, &ShelfRequest{MinDiscount: 1, CategoryID: f.books.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{f.novel.ID}, ids(shallow))
}

func TestRelatedProducts(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	related, err := f.products.RelatedProducts(ctx, f.tent.ID, 0)
	require.NoError(t, err)
	require.Len(t, related, 3)
	assert.Equal(t, f.tent2.ID, related[0].ID, "same category comes first")
	assert.ElementsMatch(t, []string{f.lamp.ID, f.novel.ID}, ids(related[1:]))
	assert.NotContains(t, ids(related), f.tent.ID)

	one, err := f.products.RelatedProducts(ctx, f.tent.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent2.ID}, ids(one))

	_, err = f.products.RelatedProducts(ctx, f.hidden.ID, 0)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = f.products.RelatedProducts(ctx, "missing", 0)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestProductsByIDs(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	found, err := f.products.ProductsByIDs(ctx, []string{f.novel.ID, "missing", f.hidden.ID, f.stove.ID, f.novel.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{f.novel.ID, f.stove.ID}, ids(found))

	_, err = f.products.ProductsByIDs(ctx, nil)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	tooMany := make([]string, maxLookupIDs+1)
	_, err = f.products.ProductsByIDs(ctx, tooMany)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestProductsByCategorySlug(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	all, err := f.products.ProductsByCategorySlug(ctx, "outdoor", &CategoryProductsRequest{Page: 1, Limit: 10, OrderBy: "price", Direction: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{f.lamp.ID, f.tent.ID, f.tent2.ID}, ids(all.Products))
	assert.Equal(t, int64(3), all.Pagination.Total)

	withoutChildren := false
	own, err := f.products.ProductsByCategorySlug(ctx, "outdoor", &CategoryProductsRequest{Page: 1, Limit: 10, WithChildren: &withoutChildren})
	require.NoError(t, err)
	assert.Equal(t, []string{f.lamp.ID}, ids(own.Products))

	discounted, err := f.products.ProductsByCategorySlug(ctx, "outdoor", &CategoryProductsRequest{Page: 1, Limit: 10, WithDiscount: true, MinPrice: decPtr("50")})
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent.ID}, ids(discounted.Products))

	require.NoError(t, f.db.Model(&Category{}).Where("id = ?", f.tents.ID).Update("is_active", false).Error)
	pruned, err := f.products.ProductsByCategorySlug(ctx, "outdoor", &CategoryProductsRequest{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{f.lamp.ID}, ids(pruned.Products), "inactive subcategories are skipped")

	_, err = f.products.ProductsByCategorySlug(ctx, "tents", &CategoryProductsRequest{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = f.products.ProductsByCategorySlug(ctx, "missing", &CategoryProductsRequest{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestStorefrontCache(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)

	mr := miniredis.RunT(t)
	client := redisstore.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	cached := NewService(f.db).WithCache(client, time.Minute)

	first, err := cached.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.tent.ID, f.novel.ID}, ids(first))
	require.Len(t, mr.Keys(), 1)
	assert.Contains(t, mr.Keys()[0], "catalog:featured:")
	assert.Equal(t, time.Minute, mr.TTL(mr.Keys()[0]))

	// Changes made behind the service are not seen until the entry expires
	require.NoError(t, f.db.Model(&Product{}).Where("id = ?", f.novel.ID).Update("is_featured", false).Error)
	again, err := cached.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.tent.ID, f.novel.ID}, ids(again))
	for _, p := range again {
		assert.NotEmpty(t, p.Name, "cached entries keep their fields")
		assert.True(t, p.InStock)
	}

	mr.FastForward(2 * time.Minute)
	expired, err := cached.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent.ID}, ids(expired))

	// Catalog writes through the service drop the cached lists
	_, err = cached.SetFeatured(ctx, f.lamp.ID, true)
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
	fresh, err := cached.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.tent.ID, f.lamp.ID}, ids(fresh))
}

func TestStorefrontWithoutCache(t *testing.T) {
	ctx := context.Background()
	f := newStorefront(t)
	uncached := NewService(f.db).WithCache(nil, time.Minute)

	_, err := uncached.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&Product{}).Where("id = ?", f.novel.ID).Update("is_featured", false).Error)
	after, err := uncached.FeaturedProducts(ctx, &ShelfRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{f.tent.ID}, ids(after))
}
