package service

import "github.com/cecproctor/proctor-backend/internal/response"

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// normalizePage clamps page/perPage and returns the matching limit and offset.
func normalizePage(page, perPage int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage, perPage, (page - 1) * perPage
}

func buildPagination(page, perPage, total int) *response.Pagination {
	return response.NewPagination(page, perPage, total)
}

// pageSlice applies offset/limit to an already filtered slice.
func pageSlice[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
