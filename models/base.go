package models

import "time"

type PaginationQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

type PaginationResult struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	Pages    int64 `json:"pages"`
	PageSize int   `json:"page_size"`
}

type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPaginationResult creates a pagination result for a query
func NewPaginationResult(total int64, page, pageSize int) PaginationResult {
	pages := (total + int64(pageSize) - 1) / int64(pageSize)
	return PaginationResult{
		Total:    total,
		Page:     page,
		Pages:    pages,
		PageSize: pageSize,
	}
}

// Normalize clamps pagination parameters to sane bounds
func (q *PaginationQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
}

// Offset returns the query offset for the current page
func (q PaginationQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}
