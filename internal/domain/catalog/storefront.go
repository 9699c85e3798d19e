// internal/domain/catalog/storefront.go
package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
	"gorm.io/gorm"
)

const (
	cachePrefix = "catalog:"

	defaultShelfLimit   = 10
	maxShelfLimit       = 50
	defaultNewDays      = 30
	maxNewDays          = 90
	defaultMinDiscount  = 5
	defaultRelatedLimit = 8
	maxRelatedLimit     = 12
	maxLookupIDs        = 100
)

// effectivePriceSQL mirrors EffectivePrice for query filters
const effectivePriceSQL = "(CASE WHEN sale_price IS NOT NULL AND sale_price < price THEN sale_price ELSE price END)"

// Cache stores storefront product lists between requests
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// WithCache enables caching of storefront lists for ttl. A nil cache leaves caching off.
func (s *Service) WithCache(cache Cache, ttl time.Duration) *Service {
	if cache == nil || ttl <= 0 {
		return s
	}
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// ShelfRequest represents the filters shared by the storefront product shelves
type ShelfRequest struct {
	Limit        int              `form:"limit" binding:"omitempty,min=1,max=50" json:"limit"`
	CategoryID   string           `form:"category_id" json:"category_id"`
	WithDiscount bool             `form:"with_discount" json:"with_discount"`
	MinPrice     *decimal.Decimal `form:"price_min" json:"price_min"`
	MaxPrice     *decimal.Decimal `form:"price_max" json:"price_max"`
	Days         int              `form:"days" binding:"omitempty,min=1,max=90" json:"days"`
	MinDiscount  int              `form:"discount_min" binding:"omitempty,min=1,max=100" json:"discount_min"`
}

// CategoryProductsRequest represents the query of a category page
type CategoryProductsRequest struct {
	Page         int              `form:"page,default=1"`
	Limit        int              `form:"per_page,default=15"`
	WithChildren *bool            `form:"with_subcategories"`
	WithDiscount bool             `form:"with_discount"`
	MinPrice     *decimal.Decimal `form:"price_min"`
	MaxPrice     *decimal.Decimal `form:"price_max"`
	OrderBy      string           `form:"order_by,default=created_at"`
	Direction    string           `form:"direction,default=desc"`
}

// FeaturedProducts returns the newest featured products that can be bought
func (s *Service) FeaturedProducts(ctx context.Context, req *ShelfRequest) ([]ProductResponse, error) {
	return s.cached(ctx, shelfKey("featured", req), func() ([]ProductResponse, error) {
		query, err := s.shelfQuery(ctx, req)
		if err != nil {
			return nil, err
		}
		query = query.Where("is_featured = ?", true).Order("created_at desc")
		return findResponses(query.Limit(clamp(req.Limit, defaultShelfLimit, maxShelfLimit)))
	})
}

// NewProducts returns products created within the last req.Days days
func (s *Service) NewProducts(ctx context.Context, req *ShelfRequest) ([]ProductResponse, error) {
	return s.cached(ctx, shelfKey("new", req), func() ([]ProductResponse, error) {
		query, err := s.shelfQuery(ctx, req)
		if err != nil {
			return nil, err
		}
		days := clamp(req.Days, defaultNewDays, maxNewDays)
		since := time.Now().AddDate(0, 0, -days)
		query = query.Where("created_at >= ?", since).Order("created_at desc")
		return findResponses(query.Limit(clamp(req.Limit, defaultShelfLimit, maxShelfLimit)))
	})
}

// ProductsOnSale returns discounted products, deepest discount first
func (s *Service) ProductsOnSale(ctx context.Context, req *ShelfRequest) ([]ProductResponse, error) {
	return s.cached(ctx, shelfKey("on-sale", req), func() ([]ProductResponse, error) {
		query, err := s.shelfQuery(ctx, req)
		if err != nil {
			return nil, err
		}
		minDiscount := clamp(req.MinDiscount, defaultMinDiscount, 100)
		query = query.
			Where("sale_price IS NOT NULL AND sale_price < price").
			Where("(price - sale_price) * 100 >= ? * price", minDiscount).
			Order("(price - sale_price) * 1.0 / price desc").
			Order("created_at desc")
		return findResponses(query.Limit(clamp(req.Limit, defaultShelfLimit, maxShelfLimit)))
	})
}

// RelatedProducts returns products from the same category, topped up with the newest others
func (s *Service) RelatedProducts(ctx context.Context, productID string, limit int) ([]ProductResponse, error) {
	limit = clamp(limit, defaultRelatedLimit, maxRelatedLimit)
	key := fmt.Sprintf("%srelated:%s:%d", cachePrefix, productID, limit)

	return s.cached(ctx, key, func() ([]ProductResponse, error) {
		product, err := s.GetProduct(ctx, productID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, apperror.NotFound("product")
		}

		var related []Product
		if err := s.buyable(ctx).
			Where("category_id = ? AND id <> ?", product.CategoryID, product.ID).
			Order("created_at desc").
			Limit(limit).
			Find(&related).Error; err != nil {
			return nil, apperror.Internal("failed to retrieve related products", err)
		}

		if len(related) < limit {
			exclude := []string{product.ID}
			for _, p := range related {
				exclude = append(exclude, p.ID)
			}
			var extra []Product
			if err := s.buyable(ctx).
				Where("id NOT IN ?", exclude).
				Order("created_at desc").
				Limit(limit - len(related)).
				Find(&extra).Error; err != nil {
				return nil, apperror.Internal("failed to retrieve related products", err)
			}
			related = append(related, extra...)
		}

		return toResponses(related), nil
	})
}

// ProductsByIDs returns the active products among ids in the order given
func (s *Service) ProductsByIDs(ctx context.Context, ids []string) ([]ProductResponse, error) {
	if len(ids) == 0 {
		return nil, apperror.Validation("at least one product id is required")
	}
	if len(ids) > maxLookupIDs {
		return nil, apperror.Validation("at most %d product ids may be requested", maxLookupIDs)
	}

	var products []Product
	if err := s.db.WithContext(ctx).Preload("Category").
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve products", err)
	}

	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]ProductResponse, 0, len(products))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, NewProductResponse(p))
	}
	return ordered, nil
}

// ProductsByCategorySlug lists the buyable products of an active category and, unless disabled, its subcategories
func (s *Service) ProductsByCategorySlug(ctx context.Context, slug string, req *CategoryProductsRequest) (*ProductListResponse, error) {
	db := s.db.WithContext(ctx)

	var category Category
	if err := db.Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("category")
		}
		return nil, apperror.Internal("failed to retrieve category", err)
	}
	if !category.IsActive {
		return nil, apperror.NotFound("category")
	}

	categoryIDs := []string{category.ID}
	if req.WithChildren == nil || *req.WithChildren {
		ids, err := s.categoryAndDescendants(db, category.ID)
		if err != nil {
			return nil, err
		}
		categoryIDs = ids
	}

	query := s.buyable(ctx).Where("category_id IN ?", categoryIDs)
	query = applyPriceFilters(query, req.WithDiscount, req.MinPrice, req.MaxPrice)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count products", err)
	}

	query = query.Order(buildOrderClause(req.OrderBy, req.Direction, map[string]bool{
		"created_at": true,
		"name":       true,
		"price":      true,
	}))

	var products []Product
	if err := query.Scopes(pagination.Scope(req.Page, req.Limit)).Find(&products).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve products", err)
	}

	return &ProductListResponse{
		Products:   toResponses(products),
		Pagination: pagination.New(req.Page, req.Limit, total),
	}, nil
}

// invalidate drops every cached storefront list
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.DeletePrefix(ctx, cachePrefix)
}

// cached serves key from the cache, filling it from load on a miss. Cache failures fall through to load.
func (s *Service) cached(ctx context.Context, key string, load func() ([]ProductResponse, error)) ([]ProductResponse, error) {
	if s.cache != nil {
		var hit []ProductResponse
		if err := s.cache.GetJSON(ctx, key, &hit); err == nil {
			return hit, nil
		}
	}

	products, err := load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetJSON(ctx, key, products, s.cacheTTL)
	}
	return products, nil
}

// buyable selects active products with stock on hand
func (s *Service) buyable(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&Product{}).Preload("Category").
		Where("is_active = ? AND stock_quantity > 0", true)
}

func (s *Service) shelfQuery(ctx context.Context, req *ShelfRequest) (*gorm.DB, error) {
	query := s.buyable(ctx)
	if req.CategoryID != "" {
		ids, err := s.categoryAndDescendants(s.db.WithContext(ctx), req.CategoryID)
		if err != nil {
			return nil, err
		}
		query = query.Where("category_id IN ?", ids)
	}
	return applyPriceFilters(query, req.WithDiscount, req.MinPrice, req.MaxPrice), nil
}

// categoryAndDescendants walks the category tree below rootID, skipping inactive branches
func (s *Service) categoryAndDescendants(db *gorm.DB, rootID string) ([]string, error) {
	ids := []string{rootID}
	seen := map[string]bool{rootID: true}
	frontier := []string{rootID}

	for len(frontier) > 0 {
		var children []string
		if err := db.Model(&Category{}).
			Where("parent_id IN ? AND is_active = ?", frontier, true).
			Pluck("id", &children).Error; err != nil {
			return nil, apperror.Internal("failed to retrieve subcategories", err)
		}
		frontier = frontier[:0]
		for _, id := range children {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
				frontier = append(frontier, id)
			}
		}
	}
	return ids, nil
}

func applyPriceFilters(query *gorm.DB, withDiscount bool, minPrice, maxPrice *decimal.Decimal) *gorm.DB {
	if withDiscount {
		query = query.Where("sale_price IS NOT NULL AND sale_price < price")
	}
	if minPrice != nil {
		query = query.Where(effectivePriceSQL+" >= ?", *minPrice)
	}
	if maxPrice != nil {
		query = query.Where(effectivePriceSQL+" <= ?", *maxPrice)
	}
	return query
}

func findResponses(query *gorm.DB) ([]ProductResponse, error) {
	var products []Product
	if err := query.Find(&products).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve products", err)
	}
	return toResponses(products), nil
}

func toResponses(products []Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i, p := range products {
		responses[i] = NewProductResponse(p)
	}
	return responses
}

func shelfKey(shelf string, req *ShelfRequest) string {
	params, _ := json.Marshal(req)
	sum := sha1.Sum(params)
	return cachePrefix + shelf + ":" + hex.EncodeToString(sum[:])
}

func clamp(value, fallback, ceiling int) int {
	if value < 1 {
		return fallback
	}
	if value > ceiling {
		return ceiling
	}
	return value
}
