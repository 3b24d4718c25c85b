package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"task-notify/internal/domain"
	"task-notify/internal/middleware"
	"task-notify/internal/service/reminder"
)

type ReminderHandler struct {
	reminderService reminder.Service
	now             func() time.Time
}

func NewReminderHandler(reminderService reminder.Service) *ReminderHandler {
	return &ReminderHandler{reminderService: reminderService, now: time.Now}
}

type scheduleRequest struct {
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

// List returns every reminder on the task to services and admins, and only
// the caller's own reminders to members.
func (h *ReminderHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var reminders []domain.Reminder
	if domain.HasRole(middleware.GetRole(c), domain.RoleService) {
		reminders, err = h.reminderService.ListForTask(c.Context(), taskID)
	} else {
		reminders, err = h.reminderService.ListForTaskAndUser(c.Context(), taskID, userID)
	}
	if err != nil {
		return err
	}
	if reminders == nil {
		reminders = []domain.Reminder{}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": reminders,
	})
}

// Schedule replaces the unsent reminders of the task with ones derived from
// its stored deadline.
func (h *ReminderHandler) Schedule(c *fiber.Ctx) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var req scheduleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return middleware.BadRequest("Invalid request body")
		}
	}

	reminders, err := h.reminderService.ScheduleTask(c.Context(), taskID, req.UserID)
	if err != nil {
		return err
	}
	if reminders == nil {
		reminders = []domain.Reminder{}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": reminders,
	})
}

// CreateCustom adds a reminder for the caller on a task assigned to them.
func (h *ReminderHandler) CreateCustom(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var input domain.CreateReminderInput
	if err := c.BodyParser(&input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}

	rem, err := h.reminderService.CreateCustom(c.Context(), taskID, userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(rem)
}

func (h *ReminderHandler) Cancel(c *fiber.Ctx) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	deleted, err := h.reminderService.CancelForTask(c.Context(), taskID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted": deleted,
	})
}

// Sweep runs one sweep immediately.
func (h *ReminderHandler) Sweep(c *fiber.Ctx) error {
	sent, err := h.reminderService.SweepDue(c.Context(), h.now().UTC())
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sent": sent,
	})
}

func parseTaskID(c *fiber.Ctx) (uuid.UUID, error) {
	taskID, err := uuid.Parse(c.Params("taskId"))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid task ID")
	}
	return taskID, nil
}
