package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task is the read-only view of a task owned by the task service.
type Task struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Title      string     `json:"title" db:"title"`
	Deadline   *time.Time `json:"deadline,omitempty" db:"deadline"`
	AssigneeID *uuid.UUID `json:"assignee_id,omitempty" db:"assignee_id"`
}
