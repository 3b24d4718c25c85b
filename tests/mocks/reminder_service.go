package mocks

import (
	"context"
	"time"

	"task-notify/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type ReminderService struct {
	mock.Mock
}

func (m *ReminderService) ScheduleForDeadline(ctx context.Context, task *domain.Task, userID uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, task, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderService) Reschedule(ctx context.Context, task *domain.Task, userID uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, task, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderService) ScheduleTask(ctx context.Context, taskID uuid.UUID, userID *uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, taskID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderService) CreateCustom(ctx context.Context, taskID, userID uuid.UUID, input domain.CreateReminderInput) (*domain.Reminder, error) {
	args := m.Called(ctx, taskID, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reminder), args.Error(1)
}

func (m *ReminderService) ListForTask(ctx context.Context, taskID uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderService) ListForTaskAndUser(ctx context.Context, taskID, userID uuid.UUID) ([]domain.Reminder, error) {
	args := m.Called(ctx, taskID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reminder), args.Error(1)
}

func (m *ReminderService) CancelForTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ReminderService) SweepDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
