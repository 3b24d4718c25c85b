package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTaskAssigned        EventType = "task_assigned"
	EventTaskCompleted       EventType = "task_completed"
	EventTaskOverdue         EventType = "task_overdue"
	EventDeadlineApproaching EventType = "deadline_approaching"
	EventCommentAdded        EventType = "comment_added"
	EventMentioned           EventType = "mentioned"
	EventTaskUpdated         EventType = "task_updated"
	EventDependencySatisfied EventType = "dependency_satisfied"
	EventReminder            EventType = "reminder"
)

// EventTypes lists every known event type in display order.
var EventTypes = []EventType{
	EventTaskAssigned,
	EventTaskCompleted,
	EventTaskOverdue,
	EventDeadlineApproaching,
	EventCommentAdded,
	EventMentioned,
	EventTaskUpdated,
	EventDependencySatisfied,
	EventReminder,
}

func (e EventType) IsValid() bool {
	switch e {
	case EventTaskAssigned, EventTaskCompleted, EventTaskOverdue, EventDeadlineApproaching,
		EventCommentAdded, EventMentioned, EventTaskUpdated, EventDependencySatisfied, EventReminder:
		return true
	}
	return false
}

// Payload carries the interpolation values of a domain event.
type Payload map[string]any

// String renders the value under key for template interpolation. Absent keys
// and nil values render as "".
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; keep integral values free of ".0".
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// NotificationRequest is raised by an event source for one target user.
type NotificationRequest struct {
	EventType EventType  `json:"event_type" validate:"required"`
	UserID    uuid.UUID  `json:"user_id" validate:"required"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	Payload   Payload    `json:"payload"`
}
