package mocks

import (
	"context"
	"time"

	"task-notify/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type ReminderRepository struct {
	mock.Mock
}

func (m *ReminderRepository) CreateBatch(ctx context.Context, reminders []domain.Reminder) error {
	args := m.Called(ctx, reminders)
	return args.Error(0)
}

func (m *ReminderRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderRepository) ListByTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, taskID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderRepository) ClaimDue(ctx context.Context, now time.Time, limit, maxAttempts int) ([]domain.Reminder, error) {
	args := m.Called(ctx, now, limit, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderRepository) Release(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *ReminderRepository) Skip(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *ReminderRepository) DeleteUnsentByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReminderRepository) CountPending(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
