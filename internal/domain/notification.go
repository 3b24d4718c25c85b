package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
	ChannelChat  Channel = "chat"
)

func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelPush, ChannelChat:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// BuiltNotification is the rendered form of an event, independent of channel.
type BuiltNotification struct {
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Icon      string   `json:"icon"`
	Priority  Priority `json:"priority"`
	ActionURL *string  `json:"action_url,omitempty"`
}

type Notification struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	TaskID    *uuid.UUID      `json:"task_id,omitempty" db:"task_id"`
	Type      EventType       `json:"type" db:"type"`
	Channel   Channel         `json:"channel" db:"channel"`
	Title     string          `json:"title" db:"title"`
	Message   string          `json:"message" db:"message"`
	Icon      string          `json:"icon" db:"icon"`
	Priority  Priority        `json:"priority" db:"priority"`
	ActionURL *string         `json:"action_url,omitempty" db:"action_url"`
	Data      json.RawMessage `json:"data,omitempty" db:"data"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// NotificationFilter narrows an inbox listing.
type NotificationFilter struct {
	UnreadOnly bool
	Type       EventType
	PaginationParams
}
