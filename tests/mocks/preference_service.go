package mocks

import (
	"context"

	"task-notify/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type PreferenceService struct {
	mock.Mock
}

func (m *PreferenceService) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Preference, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preference), args.Error(1)
}

func (m *PreferenceService) Update(ctx context.Context, userID uuid.UUID, input domain.UpdatePreferenceInput) (*domain.Preference, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Preference), args.Error(1)
}

func (m *PreferenceService) Defaults() *domain.Preference {
	args := m.Called()
	return args.Get(0).(*domain.Preference)
}
