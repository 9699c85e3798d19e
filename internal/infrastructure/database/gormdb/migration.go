// internal/infrastructure/database/gormdb/migration.go
package gormdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/cart"
	"github.com/your-org/storefront-api/internal/domain/catalog"
	"github.com/your-org/storefront-api/internal/domain/inventory"
	"github.com/your-org/storefront-api/internal/domain/order"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		&catalog.Category{},
		&catalog.Product{},
		&catalog.ProductComment{},
		&inventory.StockMovement{},
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&order.Payment{},
		&order.OrderStatusHistory{},
	}
}

type extraIndex struct {
	model   interface{}
	name    string
	table   string
	columns string
}

var extraIndexes = []extraIndex{
	{&catalog.Product{}, "idx_products_category_active", "products", "category_id, is_active"},
	{&catalog.Product{}, "idx_products_price", "products", "price"},
	{&catalog.Category{}, "idx_categories_parent_active", "categories", "parent_id, is_active"},
	{&catalog.ProductComment{}, "idx_product_comments_product_created", "product_comments", "product_id, created_at"},
	{&cart.Cart{}, "idx_carts_user_status", "carts", "user_id, status"},
	{&order.Order{}, "idx_orders_user_status", "orders", "user_id, status"},
	{&order.Order{}, "idx_orders_status_created", "orders", "status, created_at"},
	{&order.Payment{}, "idx_payments_order_status", "payments", "order_id, status"},
	{&order.OrderStatusHistory{}, "idx_order_status_history_order_created", "order_status_history", "order_id, created_at"},
	{&inventory.StockMovement{}, "idx_stock_movements_product_created", "stock_movements", "product_id, created_at"},
}

// Migration handles schema migrations and development seed data
type Migration struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger *logrus.Logger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// RunAutoMigrations creates or updates every table
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes adds composite indexes the struct tags do not declare.
// Failures are logged and skipped.
func (m *Migration) CreateIndexes() error {
	migrator := m.db.Migrator()
	created, failed := 0, 0

	for _, idx := range extraIndexes {
		if migrator.HasIndex(idx.model, idx.name) {
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := m.db.Exec(stmt).Error; err != nil {
			m.logger.WithError(err).WithField("index", idx.name).Warn("Failed to create index")
			failed++
			continue
		}
		created++
	}

	m.logger.WithFields(logrus.Fields{"created": created, "failed": failed}).Info("Index creation finished")
	return nil
}

type seedProduct struct {
	category string
	name     string
	sku      string
	price    string
	sale     string
	stock    int
	featured bool
}

var seedCategories = []string{"Electronics", "Home & Garden", "Books"}

var seedProducts = []seedProduct{
	{"Electronics", "Wireless Headphones", "ELEC-HEAD-001", "199.99", "149.99", 25, true},
	{"Electronics", "USB-C Charger", "ELEC-CHRG-002", "29.99", "", 100, false},
	{"Home & Garden", "Ceramic Planter", "HOME-PLNT-001", "24.50", "", 40, false},
	{"Books", "Practical Go", "BOOK-GO-001", "39.00", "35.00", 12, true},
}

// SeedInitialData inserts development categories and products. It is idempotent.
func (m *Migration) SeedInitialData(ctx context.Context) error {
	m.logger.Info("Seeding initial data")

	categories := catalog.NewCategoryService(m.db)
	products := catalog.NewService(m.db)

	ids := make(map[string]string, len(seedCategories))
	for _, name := range seedCategories {
		var existing catalog.Category
		err := m.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error
		if err == nil {
			ids[name] = existing.ID
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up category %q: %w", name, err)
		}

		created, err := categories.CreateCategory(ctx, &catalog.CategoryCreateRequest{Name: name})
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", name, err)
		}
		ids[name] = created.ID
		m.logger.WithField("slug", created.Slug).Info("Created category")
	}

	for _, p := range seedProducts {
		var count int64
		if err := m.db.WithContext(ctx).Model(&catalog.Product{}).Where("sku = ?", p.sku).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to look up product %q: %w", p.sku, err)
		}
		if count > 0 {
			continue
		}

		req := &catalog.ProductCreateRequest{
			CategoryID:    ids[p.category],
			Name:          p.name,
			SKU:           p.sku,
			Price:         decimal.RequireFromString(p.price),
			StockQuantity: p.stock,
			IsFeatured:    p.featured,
		}
		if p.sale != "" {
			sale := decimal.RequireFromString(p.sale)
			req.SalePrice = &sale
		}
		if _, err := products.CreateProduct(ctx, req); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.sku, err)
		}
		m.logger.WithField("sku", p.sku).Info("Created product")
	}

	m.logger.Info("Initial data seeded")
	return nil
}
