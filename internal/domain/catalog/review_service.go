// internal/domain/catalog/review_service.go
package catalog

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/pkg/pagination"
	"gorm.io/gorm"
)

const (
	minCommentLength = 3
	maxCommentLength = 1000
	recentComments   = 5
)

// CommentService handles product comments and ratings
type CommentService struct {
	db *gorm.DB
}

// NewCommentService creates a new comment service
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{
		db: db,
	}
}

// CommentCreateRequest represents comment creation data
type CommentCreateRequest struct {
	Content string `json:"content" binding:"required,min=3,max=1000"`
	Rating  *int   `json:"rating" binding:"omitempty,min=1,max=5"`
}

// CommentUpdateRequest represents comment update data
type CommentUpdateRequest struct {
	Content     *string `json:"content" binding:"omitempty,min=3,max=1000"`
	Rating      *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	ClearRating bool    `json:"clear_rating"`
}

// CommentListRequest represents comment list query parameters
type CommentListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"per_page,default=15"`
	ProductID string `form:"product_id"`
	UserID    string `form:"user_id"`
	Search    string `form:"search"`
	MinRating *int   `form:"min_rating" binding:"omitempty,min=1,max=5"`
	MaxRating *int   `form:"max_rating" binding:"omitempty,min=1,max=5"`
	OrderBy   string `form:"order_by,default=created_at"`
	Direction string `form:"direction,default=desc"`
}

// CommentListResponse represents a comment page
type CommentListResponse struct {
	Comments   []ProductComment      `json:"comments"`
	Pagination pagination.Pagination `json:"pagination"`
}

// CommentStats summarises the comments of one product
type CommentStats struct {
	ProductID          string           `json:"product_id"`
	TotalComments      int64            `json:"total_comments"`
	RatedComments      int64            `json:"rated_comments"`
	AverageRating      float64          `json:"average_rating"`
	RatingDistribution map[string]int64 `json:"rating_distribution"`
	RecentComments     []ProductComment `json:"recent_comments"`
}

// Create adds a comment from actor to an active product
func (s *CommentService) Create(ctx context.Context, actor identity.Actor, productID string, req *CommentCreateRequest) (*ProductComment, error) {
	if actor.UserID == "" {
		return nil, apperror.Forbidden("authentication required to comment")
	}

	content, err := normalizeContent(req.Content)
	if err != nil {
		return nil, err
	}
	if err := validateRating(req.Rating); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var product Product
	if err := db.Where("id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product")
		}
		return nil, apperror.Internal("failed to retrieve product", err)
	}
	if !product.IsActive {
		return nil, apperror.NotFound("product")
	}

	comment := ProductComment{
		ProductID: productID,
		UserID:    actor.UserID,
		Content:   content,
		Rating:    req.Rating,
	}
	if err := db.Create(&comment).Error; err != nil {
		return nil, apperror.Internal("failed to create comment", err)
	}

	return &comment, nil
}

// ListForProduct returns the comments of one product
func (s *CommentService) ListForProduct(ctx context.Context, productID string, req *CommentListRequest) (*CommentListResponse, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, apperror.Internal("failed to check product", err)
	}
	if count == 0 {
		return nil, apperror.NotFound("product")
	}

	scoped := *req
	scoped.ProductID = productID
	scoped.UserID = ""
	return s.List(ctx, &scoped)
}

// List returns comments matching the request filters
func (s *CommentService) List(ctx context.Context, req *CommentListRequest) (*CommentListResponse, error) {
	var comments []ProductComment
	var total int64

	query := s.db.WithContext(ctx).Model(&ProductComment{})

	if req.ProductID != "" {
		query = query.Where("product_id = ?", req.ProductID)
	}
	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}
	if req.Search != "" {
		query = query.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(req.Search)+"%")
	}
	if req.MinRating != nil {
		query = query.Where("rating >= ?", *req.MinRating)
	}
	if req.MaxRating != nil {
		query = query.Where("rating <= ?", *req.MaxRating)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count comments", err)
	}

	query = query.Order(buildOrderClause(req.OrderBy, req.Direction, map[string]bool{
		"created_at": true,
		"rating":     true,
	}))

	if err := query.Scopes(pagination.Scope(req.Page, req.Limit)).Find(&comments).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve comments", err)
	}

	return &CommentListResponse{
		Comments:   comments,
		Pagination: pagination.New(req.Page, req.Limit, total),
	}, nil
}

// Get retrieves a single comment by ID
func (s *CommentService) Get(ctx context.Context, id string) (*ProductComment, error) {
	var comment ProductComment
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("comment")
		}
		return nil, apperror.Internal("failed to retrieve comment", err)
	}
	return &comment, nil
}

// Update changes a comment. Only its author or an admin may edit it.
func (s *CommentService) Update(ctx context.Context, actor identity.Actor, id string, req *CommentUpdateRequest) (*ProductComment, error) {
	comment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(comment.UserID) {
		return nil, apperror.Forbidden("you can only edit your own comments")
	}

	updates := make(map[string]interface{})
	if req.Content != nil {
		content, err := normalizeContent(*req.Content)
		if err != nil {
			return nil, err
		}
		updates["content"] = content
	}
	if req.ClearRating {
		updates["rating"] = gorm.Expr("NULL")
	} else if req.Rating != nil {
		if err := validateRating(req.Rating); err != nil {
			return nil, err
		}
		updates["rating"] = *req.Rating
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&ProductComment{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, apperror.Internal("failed to update comment", err)
		}
	}

	return s.Get(ctx, id)
}

// Delete removes a comment. Only its author or an admin may delete it.
func (s *CommentService) Delete(ctx context.Context, actor identity.Actor, id string) error {
	comment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(comment.UserID) {
		return apperror.Forbidden("you can only delete your own comments")
	}

	if err := s.db.WithContext(ctx).Delete(comment).Error; err != nil {
		return apperror.Internal("failed to delete comment", err)
	}
	return nil
}

// Stats returns the comment count, average rating and rating breakdown of a product
func (s *CommentService) Stats(ctx context.Context, productID string) (*CommentStats, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return nil, apperror.Internal("failed to check product", err)
	}
	if count == 0 {
		return nil, apperror.NotFound("product")
	}

	stats := &CommentStats{
		ProductID:          productID,
		RatingDistribution: map[string]int64{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0},
	}

	if err := db.Model(&ProductComment{}).Where("product_id = ?", productID).Count(&stats.TotalComments).Error; err != nil {
		return nil, apperror.Internal("failed to count comments", err)
	}

	var buckets []struct {
		Rating int
		Count  int64
	}
	if err := db.Model(&ProductComment{}).
		Select("rating, COUNT(*) as count").
		Where("product_id = ? AND rating IS NOT NULL", productID).
		Group("rating").
		Scan(&buckets).Error; err != nil {
		return nil, apperror.Internal("failed to aggregate ratings", err)
	}

	var sum int64
	for _, b := range buckets {
		stats.RatingDistribution[strconv.Itoa(b.Rating)] = b.Count
		stats.RatedComments += b.Count
		sum += int64(b.Rating) * b.Count
	}
	if stats.RatedComments > 0 {
		avg := float64(sum) / float64(stats.RatedComments)
		stats.AverageRating = math.Round(avg*10) / 10
	}

	if err := db.Where("product_id = ?", productID).
		Order("created_at desc").
		Limit(recentComments).
		Find(&stats.RecentComments).Error; err != nil {
		return nil, apperror.Internal("failed to retrieve recent comments", err)
	}

	return stats, nil
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	n := utf8.RuneCountInString(content)
	if n < minCommentLength || n > maxCommentLength {
		return "", apperror.Validation("comment must be between %d and %d characters", minCommentLength, maxCommentLength)
	}
	return content, nil
}

func validateRating(rating *int) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return apperror.Validation("rating must be between 1 and 5")
	}
	return nil
}
