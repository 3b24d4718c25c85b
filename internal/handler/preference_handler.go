package handler

import (
	"github.com/gofiber/fiber/v2"

	"task-notify/internal/domain"
	"task-notify/internal/middleware"
	"task-notify/internal/service/preference"
)

type PreferenceHandler struct {
	prefService preference.Service
}

func NewPreferenceHandler(prefService preference.Service) *PreferenceHandler {
	return &PreferenceHandler{prefService: prefService}
}

func (h *PreferenceHandler) Get(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	pref, err := h.prefService.Resolve(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(pref)
}

func (h *PreferenceHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var input domain.UpdatePreferenceInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	pref, err := h.prefService.Update(c.Context(), userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(pref)
}
