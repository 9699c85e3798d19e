// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/checkout"
	"github.com/your-org/storefront-api/internal/domain/inventory"
	"github.com/your-org/storefront-api/internal/domain/order"
	"github.com/your-org/storefront-api/internal/domain/payment"
	"github.com/your-org/storefront-api/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-api/internal/pkg/auth"
	"github.com/your-org/storefront-api/internal/pkg/pdf"
	"github.com/your-org/storefront-api/internal/pkg/webhook"
	"gorm.io/gorm"
)

// Handlers groups every HTTP handler of the API
type Handlers struct {
	Product   *handlers.ProductHandler
	Category  *handlers.CategoryHandler
	Comment   *handlers.CommentHandler
	Cart      *handlers.CartHandler
	Checkout  *handlers.CheckoutHandler
	Order     *handlers.OrderHandler
	Payment   *handlers.PaymentHandler
	Invoice   *handlers.InvoiceHandler
	Inventory *handlers.InventoryHandler
}

// NewHandlers wires the domain services into their handlers.
// catalogCache may be nil, in which case storefront lists are read from the database every time.
func NewHandlers(db *gorm.DB, catalogCache catalog.Cache, cacheTTL time.Duration, publisher webhook.Publisher, pdfService *pdf.Service, logger *logrus.Logger) *Handlers {
	orderService := order.NewService(db, publisher, logger)

	return &Handlers{
		Product:   handlers.NewProductHandler(catalog.NewService(db).WithCache(catalogCache, cacheTTL), logger),
		Category:  handlers.NewCategoryHandler(catalog.NewCategoryService(db), logger),
		Comment:   handlers.NewCommentHandler(catalog.NewCommentService(db), logger),
		Cart:      handlers.NewCartHandler(cart.NewService(db, logger), logger),
		Checkout:  handlers.NewCheckoutHandler(checkout.NewService(db, publisher, logger), logger),
		Order:     handlers.NewOrderHandler(orderService, logger),
		Payment:   handlers.NewPaymentHandler(payment.NewService(db, publisher, logger), logger),
		Invoice:   handlers.NewInvoiceHandler(orderService, pdfService, logger),
		Inventory: handlers.NewInventoryHandler(inventory.NewService(db, logger), logger),
	}
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	handlers.RegisterValidators()

	SetupCatalogRoutes(rg, h, jwtManager)
	SetupCartRoutes(rg, h, jwtManager)
	SetupOrderRoutes(rg, h, jwtManager)
	SetupAdminRoutes(rg, h, jwtManager)
}

// SetupCatalogRoutes sets up the public catalog routes. Writing comments requires a token.
func SetupCatalogRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	authenticated := middleware.AuthMiddleware(jwtManager)

	categories := rg.Group("/categories")
	{
		categories.GET("", h.Category.GetCategories)
		categories.GET("/tree", h.Category.GetCategoryTree)
		categories.GET("/:slug", h.Category.GetCategoryBySlug)
		categories.GET("/:slug/products", h.Product.GetCategoryProducts)
	}

	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/featured", h.Product.GetFeaturedProducts)
		products.GET("/new", h.Product.GetNewProducts)
		products.GET("/on-sale", h.Product.GetProductsOnSale)
		products.GET("/lookup", h.Product.GetProductsByIDs)
		products.GET("/:id", h.Product.GetProduct)
		products.GET("/:id/related", h.Product.GetRelatedProducts)
		products.GET("/sku/:sku", h.Product.GetProductBySKU)
		products.GET("/:id/comments", h.Comment.GetProductComments)
		products.GET("/:id/comments/stats", h.Comment.GetCommentStats)
		products.POST("/:id/comments", authenticated, h.Comment.CreateComment)
	}

	comments := rg.Group("/comments")
	{
		comments.GET("/:id", h.Comment.GetComment)
		comments.PUT("/:id", authenticated, h.Comment.UpdateComment)
		comments.DELETE("/:id", authenticated, h.Comment.DeleteComment)
	}
}

// SetupCartRoutes sets up the shopper's cart and checkout routes
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.AuthMiddleware(jwtManager))
	{
		cartGroup.GET("", h.Cart.GetCart)
		cartGroup.DELETE("", h.Cart.ClearCart)
		cartGroup.POST("/items", h.Cart.AddToCart)
		cartGroup.PUT("/items/:id", h.Cart.UpdateCartItem)
		cartGroup.DELETE("/items/:id", h.Cart.RemoveCartItem)
		cartGroup.GET("/checkout/validate", h.Checkout.ValidateCheckout)
		cartGroup.POST("/checkout", h.Checkout.Checkout)
	}
}

// SetupOrderRoutes sets up the shopper's order and payment routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(jwtManager))
	{
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
		orders.GET("/:id/invoice", h.Invoice.GenerateInvoice)
		orders.GET("/:id/invoice/preview", h.Invoice.PreviewInvoice)
		orders.GET("/:id/payments", h.Payment.GetOrderPayments)
		orders.GET("/:id/payment-status", h.Payment.GetPaymentStatus)
		orders.POST("/:id/pay", h.Payment.PayOrder)
	}
}

// SetupAdminRoutes sets up admin routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager))
	admin.Use(middleware.AdminMiddleware())

	categories := admin.Group("/categories")
	{
		categories.GET("", h.Category.AdminGetCategories)
		categories.POST("", h.Category.CreateCategory)
		categories.GET("/:id", h.Category.AdminGetCategory)
		categories.PUT("/:id", h.Category.UpdateCategory)
		categories.PATCH("/:id/activate", h.Category.ActivateCategory)
		categories.PATCH("/:id/deactivate", h.Category.DeactivateCategory)
		categories.DELETE("/:id", h.Category.DeleteCategory)
	}

	products := admin.Group("/products")
	{
		products.GET("", h.Product.AdminGetProducts)
		products.POST("", h.Product.CreateProduct)
		products.GET("/:id", h.Product.AdminGetProduct)
		products.PUT("/:id", h.Product.UpdateProduct)
		products.DELETE("/:id", h.Product.DeleteProduct)
		products.PATCH("/:id/stock", h.Inventory.UpdateStock)
		products.PATCH("/:id/feature", h.Product.FeatureProduct)
		products.PATCH("/:id/unfeature", h.Product.UnfeatureProduct)
		products.GET("/:id/movements", h.Inventory.GetMovements)
	}

	admin.GET("/comments", h.Comment.AdminGetComments)

	carts := admin.Group("/carts")
	{
		carts.GET("", h.Cart.AdminGetCarts)
		carts.GET("/:id", h.Cart.AdminGetCart)
		carts.PATCH("/:id/status", h.Cart.AdminUpdateCartStatus)
		carts.DELETE("/:id/items", h.Cart.AdminClearCart)
		carts.DELETE("/:id", h.Cart.AdminDeleteCart)
		carts.DELETE("/items/:id", h.Cart.RemoveCartItem)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("", h.Order.AdminGetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("/:id", h.Order.AdminUpdateOrder)
		orders.PATCH("/:id/status", h.Order.AdminUpdateOrderStatus)
		orders.DELETE("/:id", h.Order.AdminDeleteOrder)
		orders.GET("/:id/history", h.Order.AdminGetOrderHistory)
		orders.GET("/:id/items", h.Order.AdminGetOrderItems)
		orders.POST("/:id/items", h.Order.AdminAddOrderItem)
		orders.PUT("/:id/items/:item_id", h.Order.AdminUpdateOrderItem)
		orders.DELETE("/:id/items/:item_id", h.Order.AdminRemoveOrderItem)
		orders.POST("/:id/payments", h.Payment.AdminRecordPayment)
	}

	payments := admin.Group("/payments")
	{
		payments.GET("/:id", h.Payment.AdminGetPayment)
		payments.PUT("/:id", h.Payment.AdminUpdatePayment)
		payments.DELETE("/:id", h.Payment.AdminDeletePayment)
	}
}
