package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Pagination bounds for list endpoints.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PageRequest represents limit/offset pagination parameters
type PageRequest struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// DefaultPageRequest returns a PageRequest with default values
func DefaultPageRequest() PageRequest {
	return PageRequest{Limit: DefaultLimit, Offset: 0}
}

// ParsePagination parses and clamps pagination parameters from Gin context
func ParsePagination(c *gin.Context) PageRequest {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	return PageRequest{Limit: limit, Offset: offset}
}

// PageResponse represents a paginated response
type PageResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewPageResponse creates a new paginated response
func NewPageResponse[T any](items []T, total int64, page PageRequest) PageResponse[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return PageResponse[T]{
		Items:  items,
		Total:  total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}
