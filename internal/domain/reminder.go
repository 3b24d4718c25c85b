package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReminderType string

const (
	ReminderWeekBefore ReminderType = "week_before"
	ReminderDayBefore  ReminderType = "day_before"
	ReminderHourBefore ReminderType = "hour_before"
	ReminderRecurring  ReminderType = "recurring"
	ReminderDeadline   ReminderType = "deadline"
	ReminderOverdue    ReminderType = "overdue"
)

func (t ReminderType) IsValid() bool {
	switch t {
	case ReminderWeekBefore, ReminderDayBefore, ReminderHourBefore,
		ReminderRecurring, ReminderDeadline, ReminderOverdue:
		return true
	}
	return false
}

// Reminder is a scheduled deadline notification. Once IsSent is true the row
// is a historical record and is never modified again.
type Reminder struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	TaskID        uuid.UUID    `json:"task_id" db:"task_id"`
	UserID        uuid.UUID    `json:"user_id" db:"user_id"`
	ScheduledFor  time.Time    `json:"scheduled_for" db:"scheduled_for"`
	Type          ReminderType `json:"type" db:"type"`
	Message       string       `json:"message" db:"message"`
	IsSent        bool         `json:"is_sent" db:"is_sent"`
	SentAt        *time.Time   `json:"sent_at,omitempty" db:"sent_at"`
	AttemptCount  int          `json:"attempt_count" db:"attempt_count"`
	LastAttemptAt *time.Time   `json:"last_attempt_at,omitempty" db:"last_attempt_at"`
	LastError     *string      `json:"last_error,omitempty" db:"last_error"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

type CreateReminderInput struct {
	ScheduledFor time.Time    `json:"scheduled_for" validate:"required"`
	Type         ReminderType `json:"type" validate:"required,oneof=recurring deadline overdue"`
	Message      string       `json:"message" validate:"max=500"`
}
