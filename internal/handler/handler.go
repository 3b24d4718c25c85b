package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"task-notify/internal/domain"
	"task-notify/internal/middleware"
	"task-notify/internal/service"
)

type Handlers struct {
	Notification *NotificationHandler
	Preference   *PreferenceHandler
	Event        *EventHandler
	Reminder     *ReminderHandler
}

// NewHandlers builds the HTTP handlers. baseCtx is cancelled on shutdown and
// ends open live feed streams.
func NewHandlers(baseCtx context.Context, services *service.Services) *Handlers {
	return &Handlers{
		Notification: NewNotificationHandler(baseCtx, services.Notification, services.LiveFeed),
		Preference:   NewPreferenceHandler(services.Preference),
		Event:        NewEventHandler(services.Notification),
		Reminder:     NewReminderHandler(services.Reminder),
	}
}

func SetupRoutes(app *fiber.App, h *Handlers, jwtSecret string) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/api/v1")
	protected := v1.Group("", middleware.AuthRequired(jwtSecret))

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Get("/stream", h.Notification.Stream)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)

	preferences := protected.Group("/preferences")
	preferences.Get("/", h.Preference.Get)
	preferences.Put("/", h.Preference.Update)

	protected.Post("/events", middleware.RequireRole(domain.RoleService), h.Event.Submit)

	reminders := protected.Group("/tasks/:taskId/reminders")
	reminders.Get("/", h.Reminder.List)
	reminders.Post("/", middleware.RequireRole(domain.RoleService), h.Reminder.Schedule)
	reminders.Post("/custom", h.Reminder.CreateCustom)
	reminders.Delete("/", middleware.RequireRole(domain.RoleService), h.Reminder.Cancel)

	admin := protected.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.Post("/reminders/sweep", h.Reminder.Sweep)
}
