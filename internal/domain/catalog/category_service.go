// internal/domain/catalog/category_service.go
package catalog

import (
	"context"
	"errors"

	"github.com/gosimple/slug"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"gorm.io/gorm"
)

// CategoryService handles category business logic
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new category service
func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{
		db: db,
	}
}

// CategoryCreateRequest represents category creation data
type CategoryCreateRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Slug        string  `json:"slug" binding:"omitempty,max=255"`
	Description string  `json:"description" binding:"max=500"`
	ParentID    *string `json:"parent_id"`
	SortOrder   int     `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryUpdateRequest represents category update data
type CategoryUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Slug        *string `json:"slug" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	ParentID    *string `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryTree represents hierarchical category structure
type CategoryTree struct {
	Category
	Children []CategoryTree `json:"children"`
}

// GetCategories retrieves all categories ordered for display
func (s *CategoryService) GetCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	var categories []Category

	query := s.db.WithContext(ctx).Model(&Category{}).Order("sort_order ASC, name ASC")
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	if err := query.Find(&categories).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve categories", err)
	}
	return categories, nil
}

// GetCategoryTree retrieves categories in hierarchical tree structure
func (s *CategoryService) GetCategoryTree(ctx context.Context, includeInactive bool) ([]CategoryTree, error) {
	categories, err := s.GetCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}

	childrenOf := make(map[string][]Category)
	var roots []Category
	for _, cat := range categories {
		if cat.ParentID == nil {
			roots = append(roots, cat)
			continue
		}
		childrenOf[*cat.ParentID] = append(childrenOf[*cat.ParentID], cat)
	}

	var build func(cats []Category) []CategoryTree
	build = func(cats []Category) []CategoryTree {
		nodes := make([]CategoryTree, 0, len(cats))
		for _, cat := range cats {
			nodes = append(nodes, CategoryTree{
				Category: cat,
				Children: build(childrenOf[cat.ID]),
			})
		}
		return nodes
	}

	return build(roots), nil
}

// GetCategory retrieves a single category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*Category, error) {
	return s.findCategory(ctx, "id = ?", id)
}

// GetCategoryBySlug retrieves a single category by slug
func (s *CategoryService) GetCategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	return s.findCategory(ctx, "slug = ?", slug)
}

func (s *CategoryService) findCategory(ctx context.Context, cond string, arg interface{}) (*Category, error) {
	var category Category
	result := s.db.WithContext(ctx).
		Preload("Parent").
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		}).
		Where(cond, arg).
		First(&category)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("category")
		}
		return nil, apperror.Internal("failed to retrieve category", result.Error)
	}
	return &category, nil
}

// CreateCategory creates a new category
func (s *CategoryService) CreateCategory(ctx context.Context, req *CategoryCreateRequest) (*Category, error) {
	db := s.db.WithContext(ctx)

	if req.ParentID != nil {
		if _, err := s.GetCategory(ctx, *req.ParentID); err != nil {
			return nil, err
		}
	}

	categorySlug := slug.Make(req.Name)
	if req.Slug != "" {
		categorySlug = slug.Make(req.Slug)
	}
	if err := s.ensureUniqueSlug(db, categorySlug, ""); err != nil {
		return nil, err
	}

	category := Category{
		Name:        req.Name,
		Slug:        categorySlug,
		Description: req.Description,
		ParentID:    req.ParentID,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}

	if err := db.Create(&category).Error; err != nil {
		return nil, apperror.Internal("failed to create category", err)
	}

	return s.GetCategory(ctx, category.ID)
}

// UpdateCategory updates an existing category
func (s *CategoryService) UpdateCategory(ctx context.Context, id string, req *CategoryUpdateRequest) (*Category, error) {
	db := s.db.WithContext(ctx)

	if _, err := s.GetCategory(ctx, id); err != nil {
		return nil, err
	}

	if req.ParentID != nil {
		if *req.ParentID == id {
			return nil, apperror.Validation("category cannot be its own parent")
		}
		if _, err := s.GetCategory(ctx, *req.ParentID); err != nil {
			return nil, err
		}
		circular, err := s.isCircularReference(db, id, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if circular {
			return nil, apperror.Validation("circular category reference detected")
		}
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Slug != nil {
		newSlug := slug.Make(*req.Slug)
		if err := s.ensureUniqueSlug(db, newSlug, id); err != nil {
			return nil, err
		}
		updates["slug"] = newSlug
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := db.Model(&Category{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, apperror.Internal("failed to update category", err)
		}
	}

	return s.GetCategory(ctx, id)
}

// SetActive activates or deactivates a category
func (s *CategoryService) SetActive(ctx context.Context, id string, active bool) (*Category, error) {
	result := s.db.WithContext(ctx).Model(&Category{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return nil, apperror.Internal("failed to update category", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound("category")
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory deletes a category without products or subcategories
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("category")
			}
			return apperror.Internal("failed to retrieve category", err)
		}

		var productCount int64
		if err := tx.Model(&Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
			return apperror.Internal("failed to count products", err)
		}
		if productCount > 0 {
			return apperror.Conflict("cannot delete category with existing products")
		}

		var childCount int64
		if err := tx.Model(&Category{}).Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return apperror.Internal("failed to count subcategories", err)
		}
		if childCount > 0 {
			return apperror.Conflict("cannot delete category with subcategories")
		}

		if err := tx.Delete(&category).Error; err != nil {
			return apperror.Internal("failed to delete category", err)
		}
		return nil
	})
}

func (s *CategoryService) ensureUniqueSlug(db *gorm.DB, categorySlug, exceptID string) error {
	if categorySlug == "" {
		return apperror.Validation("category slug cannot be empty")
	}
	query := db.Model(&Category{}).Where("slug = ?", categorySlug)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperror.Internal("failed to check slug", err)
	}
	if count > 0 {
		return apperror.Conflict("category with slug '%s' already exists", categorySlug)
	}
	return nil
}

// isCircularReference walks the ancestry of parentID looking for categoryID
func (s *CategoryService) isCircularReference(db *gorm.DB, categoryID, parentID string) (bool, error) {
	currentID := parentID
	seen := map[string]bool{}

	for currentID != "" && !seen[currentID] {
		seen[currentID] = true

		var category Category
		if err := db.Select("id", "parent_id").Where("id = ?", currentID).First(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, apperror.Internal("failed to walk category ancestry", err)
		}
		if category.ParentID == nil {
			return false, nil
		}
		if *category.ParentID == categoryID {
			return true, nil
		}
		currentID = *category.ParentID
	}
	return false, nil
}
