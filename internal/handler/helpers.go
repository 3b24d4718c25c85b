package handler

import (
	"github.com/gofiber/fiber/v2"

	"task-notify/internal/domain"
)

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()
	if page := c.QueryInt("page", 0); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 0); pageSize > 0 {
		params.PageSize = pageSize
	}
	params.Validate()
	return params
}
