package channel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/repository"
)

// Publisher pushes freshly stored in-app notifications to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, notif *domain.Notification) error
}

type inApp struct {
	repo      repository.NotificationRepository
	publisher Publisher
}

// NewInApp stores notifications in the inbox. publisher may be nil.
func NewInApp(repo repository.NotificationRepository, publisher Publisher) Sender {
	return &inApp{repo: repo, publisher: publisher}
}

func (c *inApp) Channel() domain.Channel { return domain.ChannelInApp }

func (c *inApp) Send(ctx context.Context, user *domain.User, built domain.BuiltNotification, meta Meta) error {
	var data json.RawMessage
	if len(meta.Payload) > 0 {
		encoded, err := json.Marshal(meta.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		data = encoded
	}

	notif := &domain.Notification{
		ID:        uuid.New(),
		UserID:    user.ID,
		TaskID:    meta.TaskID,
		Type:      meta.EventType,
		Channel:   domain.ChannelInApp,
		Title:     built.Title,
		Message:   built.Message,
		Icon:      built.Icon,
		Priority:  built.Priority,
		ActionURL: built.ActionURL,
		Data:      data,
	}
	if err := c.repo.Create(ctx, notif); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	// The row is the delivery; the live feed poll picks it up if publishing fails.
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, notif); err != nil {
			logger.Warn("failed to publish notification",
				zap.String("notification_id", notif.ID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// EmailSender is implemented by the email service.
type EmailSender interface {
	SendNotification(ctx context.Context, toEmail, recipientName string, built domain.BuiltNotification) error
}

type emailChannel struct {
	sender EmailSender
}

func NewEmail(sender EmailSender) Sender {
	return &emailChannel{sender: sender}
}

func (c *emailChannel) Channel() domain.Channel { return domain.ChannelEmail }

func (c *emailChannel) Send(ctx context.Context, user *domain.User, built domain.BuiltNotification, _ Meta) error {
	return c.sender.SendNotification(ctx, user.Email, user.FullName, built)
}

type unavailable struct {
	channel domain.Channel
}

// NewUnavailable registers a channel that has no transport yet; every send
// fails with ErrChannelUnavailable.
func NewUnavailable(ch domain.Channel) Sender {
	return unavailable{channel: ch}
}

func (c unavailable) Channel() domain.Channel { return c.channel }

func (c unavailable) Send(context.Context, *domain.User, domain.BuiltNotification, Meta) error {
	return fmt.Errorf("%w: %s", apperrors.ErrChannelUnavailable, c.channel)
}
