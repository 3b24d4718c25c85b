package mocks

import (
	"context"

	"task-notify/internal/domain"

	"github.com/stretchr/testify/mock"
)

type EmailService struct {
	mock.Mock
}

func (m *EmailService) SendNotification(ctx context.Context, toEmail, recipientName string, built domain.BuiltNotification) error {
	args := m.Called(ctx, toEmail, recipientName, built)
	return args.Error(0)
}
