package handler

import (
	"github.com/gofiber/fiber/v2"

	"task-notify/internal/domain"
	"task-notify/internal/middleware"
	"task-notify/internal/service/notification"
)

// EventHandler takes task events from other services.
type EventHandler struct {
	notifService notification.Service
}

func NewEventHandler(notifService notification.Service) *EventHandler {
	return &EventHandler{notifService: notifService}
}

// Submit queues the event and answers 202. With ?sync=true it runs the
// decision path inline and returns the outcome.
func (h *EventHandler) Submit(c *fiber.Ctx) error {
	var req domain.NotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	if c.QueryBool("sync") {
		outcome, err := h.notifService.Notify(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusOK).JSON(outcome)
	}

	if err := h.notifService.NotifyAsync(req); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "accepted",
	})
}
