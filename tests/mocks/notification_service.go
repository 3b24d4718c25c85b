package mocks

import (
	"context"

	"task-notify/internal/domain"
	"task-notify/internal/service/channel"
	"task-notify/internal/service/notification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) Notify(ctx context.Context, req domain.NotificationRequest) (*notification.Outcome, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Outcome), args.Error(1)
}

func (m *NotificationService) NotifyAsync(req domain.NotificationRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *NotificationService) Deliver(ctx context.Context, userID uuid.UUID, built domain.BuiltNotification, meta channel.Meta) (channel.Result, error) {
	args := m.Called(ctx, userID, built, meta)
	return args.Get(0).(channel.Result), args.Error(1)
}

func (m *NotificationService) List(ctx context.Context, userID uuid.UUID, filter domain.NotificationFilter) (domain.PaginatedResponse[domain.Notification], error) {
	args := m.Called(ctx, userID, filter)
	return args.Get(0).(domain.PaginatedResponse[domain.Notification]), args.Error(1)
}

func (m *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
