package handler

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	"task-notify/internal/middleware"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/service/livefeed"
	"task-notify/internal/service/notification"
)

// LiveFeed streams a user's new notifications until ctx ends.
type LiveFeed interface {
	Stream(ctx context.Context, userID uuid.UUID, w livefeed.EventWriter) error
}

type NotificationHandler struct {
	notifService notification.Service
	feed         LiveFeed
	// streams outlive the request context, so they hang off the server's.
	baseCtx context.Context
}

func NewNotificationHandler(baseCtx context.Context, notifService notification.Service, feed LiveFeed) *NotificationHandler {
	return &NotificationHandler{notifService: notifService, feed: feed, baseCtx: baseCtx}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	filter := domain.NotificationFilter{
		UnreadOnly:       c.Query("unread_only") == "true",
		Type:             domain.EventType(c.Query("type")),
		PaginationParams: getPaginationParams(c),
	}

	result, err := h.notifService.List(c.Context(), userID, filter)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	count, err := h.notifService.GetUnreadCount(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": count,
	})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	notifID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return middleware.BadRequest("Invalid notification ID")
	}

	if err := h.notifService.MarkAsRead(c.Context(), notifID, userID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	updated, err := h.notifService.MarkAllAsRead(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"updated": updated,
	})
}

// Stream serves the live feed as Server-Sent Events.
func (h *NotificationHandler) Stream(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := h.baseCtx
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		if err := h.feed.Stream(ctx, userID, livefeed.NewSSEWriter(w)); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("live feed stream ended",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}))

	return nil
}
