// internal/interfaces/http/handlers/product.go
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/catalog"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	productService *catalog.Service
	logger         *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *catalog.Service, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// GetProducts handles GET /products. Inactive products are hidden from customers.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req catalog.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}
	active := true
	req.IsActive = &active

	h.list(c, &req)
}

// AdminGetProducts handles GET /admin/products
func (h *ProductHandler) AdminGetProducts(c *gin.Context) {
	var req catalog.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	h.list(c, &req)
}

func (h *ProductHandler) list(c *gin.Context, req *catalog.ProductListRequest) {
	response, err := h.productService.GetProducts(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Products retrieved successfully", response)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	h.respondListed(c, product, err)
}

// GetProductBySKU handles GET /products/sku/:sku
func (h *ProductHandler) GetProductBySKU(c *gin.Context) {
	product, err := h.productService.GetProductBySKU(c.Request.Context(), c.Param("sku"))
	h.respondListed(c, product, err)
}

// GetFeaturedProducts handles GET /products/featured
func (h *ProductHandler) GetFeaturedProducts(c *gin.Context) {
	h.shelf(c, "Featured products retrieved successfully", h.productService.FeaturedProducts)
}

// GetNewProducts handles GET /products/new
func (h *ProductHandler) GetNewProducts(c *gin.Context) {
	h.shelf(c, "New products retrieved successfully", h.productService.NewProducts)
}

// GetProductsOnSale handles GET /products/on-sale
func (h *ProductHandler) GetProductsOnSale(c *gin.Context) {
	h.shelf(c, "Products on sale retrieved successfully", h.productService.ProductsOnSale)
}

func (h *ProductHandler) shelf(c *gin.Context, message string, load func(context.Context, *catalog.ShelfRequest) ([]catalog.ProductResponse, error)) {
	var req catalog.ShelfRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	products, err := load(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, message, products)
}

// GetRelatedProducts handles GET /products/:id/related
func (h *ProductHandler) GetRelatedProducts(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, h.logger, apperror.Validation("limit must be a positive integer"))
			return
		}
		limit = n
	}

	products, err := h.productService.RelatedProducts(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Related products retrieved successfully", products)
}

// GetProductsByIDs handles GET /products/lookup?ids=a,b
func (h *ProductHandler) GetProductsByIDs(c *gin.Context) {
	var ids []string
	for _, raw := range c.QueryArray("ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}

	products, err := h.productService.ProductsByIDs(c.Request.Context(), ids)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Products retrieved successfully", products)
}

// GetCategoryProducts handles GET /categories/:slug/products
func (h *ProductHandler) GetCategoryProducts(c *gin.Context) {
	var req catalog.CategoryProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	response, err := h.productService.ProductsByCategorySlug(c.Request.Context(), c.Param("slug"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Products retrieved successfully", response)
}

// AdminGetProduct handles GET /admin/products/:id
func (h *ProductHandler) AdminGetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Product retrieved successfully", catalog.NewProductResponse(*product))
}

func (h *ProductHandler) respondListed(c *gin.Context, product *catalog.Product, err error) {
	if err == nil && !product.IsActive {
		err = apperror.NotFound("product")
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Product retrieved successfully", catalog.NewProductResponse(*product))
}

// CreateProduct handles POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req catalog.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondCreated(c, "Product created successfully", catalog.NewProductResponse(*product))
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req catalog.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Product updated successfully", catalog.NewProductResponse(*product))
}

// FeatureProduct handles PATCH /admin/products/:id/feature
func (h *ProductHandler) FeatureProduct(c *gin.Context) {
	h.setFeatured(c, true)
}

// UnfeatureProduct handles PATCH /admin/products/:id/unfeature
func (h *ProductHandler) UnfeatureProduct(c *gin.Context) {
	h.setFeatured(c, false)
}

func (h *ProductHandler) setFeatured(c *gin.Context, featured bool) {
	product, err := h.productService.SetFeatured(c.Request.Context(), c.Param("id"), featured)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, "Product updated successfully", catalog.NewProductResponse(*product))
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}
