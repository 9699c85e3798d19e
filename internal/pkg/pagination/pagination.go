// internal/pkg/pagination/pagination.go
package pagination

import "gorm.io/gorm"

const (
	DefaultLimit = 15
	MaxLimit     = 100
)

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Normalize clamps page and limit into a usable window
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// New builds the pagination block for a result set
func New(page, limit int, total int64) Pagination {
	page, limit = Normalize(page, limit)
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Scope applies offset and limit to a query
func Scope(page, limit int) func(db *gorm.DB) *gorm.DB {
	page, limit = Normalize(page, limit)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset((page - 1) * limit).Limit(limit)
	}
}
