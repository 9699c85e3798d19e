// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Service handles product business logic
type Service struct {
	db       *gorm.DB
	cache    Cache
	cacheTTL time.Duration
}

// NewService creates a new product service
func NewService(db *gorm.DB) *Service {
	return &Service{
		db: db,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page       int              `form:"page,default=1"`
	Limit      int              `form:"per_page,default=15"`
	CategoryID string           `form:"category_id"`
	Search     string           `form:"search"`
	IsActive   *bool            `form:"is_active"`
	IsFeatured *bool            `form:"is_featured"`
	InStock    *bool            `form:"in_stock"`
	MinPrice   *decimal.Decimal `form:"min_price"`
	MaxPrice   *decimal.Decimal `form:"max_price"`
	OrderBy    string           `form:"order_by,default=created_at"`
	Direction  string           `form:"direction,default=desc"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	CategoryID    string           `json:"category_id" binding:"required"`
	Name          string           `json:"name" binding:"required,max=255"`
	SKU           string           `json:"sku" binding:"required,max=100"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price" binding:"gte=0"`
	SalePrice     *decimal.Decimal `json:"sale_price" binding:"omitempty,gte=0"`
	StockQuantity int              `json:"stock_quantity" binding:"gte=0"`
	IsActive      *bool            `json:"is_active"`
	IsFeatured    bool             `json:"is_featured"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	CategoryID     *string          `json:"category_id"`
	Name           *string          `json:"name" binding:"omitempty,max=255"`
	SKU            *string          `json:"sku" binding:"omitempty,max=100"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price" binding:"omitempty,gte=0"`
	SalePrice      *decimal.Decimal `json:"sale_price" binding:"omitempty,gte=0"`
	ClearSalePrice bool             `json:"clear_sale_price"`
	IsActive       *bool            `json:"is_active"`
	IsFeatured     *bool            `json:"is_featured"`
}

// ProductListResponse represents product list with pagination
type ProductListResponse struct {
	Products   []ProductResponse     `json:"products"`
	Pagination pagination.Pagination `json:"pagination"`
}

// GetProducts retrieves products with filtering and pagination
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest) (*ProductListResponse, error) {
	var products []Product
	var total int64

	query := s.db.WithContext(ctx).Model(&Product{}).Preload("Category")

	if req.CategoryID != "" {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.Search != "" {
		like := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}
	if req.IsActive != nil {
		query = query.Where("is_active = ?", *req.IsActive)
	}
	if req.IsFeatured != nil {
		query = query.Where("is_featured = ?", *req.IsFeatured)
	}
	if req.InStock != nil {
		if *req.InStock {
			query = query.Where("stock_quantity > 0")
		} else {
			query = query.Where("stock_quantity = 0")
		}
	}
	if req.MinPrice != nil {
		query = query.Where("price >= ?", *req.MinPrice)
	}
	if req.MaxPrice != nil {
		query = query.Where("price <= ?", *req.MaxPrice)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count products", err)
	}

	query = query.Order(buildOrderClause(req.OrderBy, req.Direction, map[string]bool{
		"created_at":     true,
		"name":           true,
		"price":          true,
		"stock_quantity": true,
	}))

	if err := query.Scopes(pagination.Scope(req.Page, req.Limit)).Find(&products).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve products", err)
	}

	responses := make([]ProductResponse, len(products))
	for i, p := range products {
		responses[i] = NewProductResponse(p)
	}

	return &ProductListResponse{
		Products:   responses,
		Pagination: pagination.New(req.Page, req.Limit, total),
	}, nil
}

// GetProduct retrieves a single product by ID
func (s *Service) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	result := s.db.WithContext(ctx).Preload("Category").Where("id = ?", id).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, apperror.Internal("failed to retrieve product", result.Error)
	}
	return &product, nil
}

// GetProductBySKU retrieves a single product by SKU
func (s *Service) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var product Product
	result := s.db.WithContext(ctx).Preload("Category").Where("sku = ?", sku).First(&product)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, apperror.Internal("failed to retrieve product", result.Error)
	}
	return &product, nil
}

// CreateProduct creates a new product
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	if err := validatePricing(req.Price, req.SalePrice); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.ensureCategory(db, req.CategoryID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSKU(db, req.SKU, ""); err != nil {
		return nil, err
	}

	product := Product{
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		SKU:           req.SKU,
		Description:   req.Description,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		IsActive:      req.IsActive == nil || *req.IsActive,
		IsFeatured:    req.IsFeatured,
	}

	if err := db.Create(&product).Error; err != nil {
		return nil, apperror.Internal("failed to create product", err)
	}
	s.invalidate(ctx)

	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct updates an existing product. Stock is changed through the inventory ledger only.
func (s *Service) UpdateProduct(ctx context.Context, id string, req *ProductUpdateRequest) (*Product, error) {
	db := s.db.WithContext(ctx)

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	price := product.Price
	if req.Price != nil {
		price = *req.Price
	}
	salePrice := product.SalePrice
	if req.ClearSalePrice {
		salePrice = nil
	} else if req.SalePrice != nil {
		salePrice = req.SalePrice
	}
	if err := validatePricing(price, salePrice); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.CategoryID != nil {
		if err := s.ensureCategory(db, *req.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.SKU != nil {
		if err := s.ensureUniqueSKU(db, *req.SKU, id); err != nil {
			return nil, err
		}
		updates["sku"] = *req.SKU
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.ClearSalePrice {
		updates["sale_price"] = gorm.Expr("NULL")
	} else if req.SalePrice != nil {
		updates["sale_price"] = *req.SalePrice
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.IsFeatured != nil {
		updates["is_featured"] = *req.IsFeatured
	}

	if len(updates) > 0 {
		if err := db.Model(&Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, apperror.Internal("failed to update product", err)
		}
		s.invalidate(ctx)
	}

	return s.GetProduct(ctx, id)
}

// SetFeatured marks a product as featured or not
func (s *Service) SetFeatured(ctx context.Context, id string, featured bool) (*Product, error) {
	result := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("is_featured", featured)
	if result.Error != nil {
		return nil, apperror.Internal("failed to update product", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound("product")
	}
	s.invalidate(ctx)
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product that no order references. Cart lines and comments pointing at it go with it.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	defer s.invalidate(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product Product
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("product")
			}
			return apperror.Internal("failed to retrieve product", err)
		}

		var orderItemCount int64
		if err := tx.Table("order_items").Where("product_id = ?", id).Count(&orderItemCount).Error; err != nil {
			return apperror.Internal("failed to count order items", err)
		}
		if orderItemCount > 0 {
			return apperror.Conflict("cannot delete product referenced by %d order item(s)", orderItemCount)
		}

		if err := tx.Exec("DELETE FROM cart_items WHERE product_id = ?", id).Error; err != nil {
			return apperror.Internal("failed to remove cart lines", err)
		}
		if err := tx.Where("product_id = ?", id).Delete(&ProductComment{}).Error; err != nil {
			return apperror.Internal("failed to remove comments", err)
		}
		if err := tx.Delete(&product).Error; err != nil {
			return apperror.Internal("failed to delete product", err)
		}
		return nil
	})
}

func (s *Service) ensureCategory(db *gorm.DB, categoryID string) error {
	var count int64
	if err := db.Model(&Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return apperror.Internal("failed to check category", err)
	}
	if count == 0 {
		return apperror.NotFound("category")
	}
	return nil
}

func (s *Service) ensureUniqueSKU(db *gorm.DB, sku, exceptID string) error {
	query := db.Model(&Product{}).Where("sku = ?", sku)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperror.Internal("failed to check sku", err)
	}
	if count > 0 {
		return apperror.Conflict("product with sku '%s' already exists", sku)
	}
	return nil
}

func validatePricing(price decimal.Decimal, salePrice *decimal.Decimal) error {
	if price.IsNegative() {
		return apperror.Validation("price cannot be negative")
	}
	if salePrice != nil {
		if salePrice.IsNegative() {
			return apperror.Validation("sale price cannot be negative")
		}
		if salePrice.GreaterThan(price) {
			return apperror.Validation("sale price must not exceed price")
		}
	}
	return nil
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
