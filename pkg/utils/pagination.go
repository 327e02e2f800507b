package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// PaginationParams represents pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

type PageInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Total    int  `json:"total"`
	HasMore  bool `json:"has_more"`
}

// GetPaginationParams extracts pagination parameters from request
func GetPaginationParams(c echo.Context) PaginationParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))

	if page <= 0 {
		page = 1
	}

	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// Paginate slices one page out of items.
func Paginate[T any](items []T, p PaginationParams) ([]T, PageInfo) {
	info := PageInfo{Page: p.Page, PageSize: p.PageSize, Total: len(items)}
	if p.Offset >= len(items) {
		return []T{}, info
	}
	end := p.Offset + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	info.HasMore = end < len(items)
	return items[p.Offset:end], info
}
