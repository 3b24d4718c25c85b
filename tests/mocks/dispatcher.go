package mocks

import (
	"context"

	"task-notify/internal/domain"
	"task-notify/internal/service/channel"

	"github.com/stretchr/testify/mock"
)

type Dispatcher struct {
	mock.Mock
}

func (m *Dispatcher) Dispatch(ctx context.Context, user *domain.User, built domain.BuiltNotification, pref *domain.Preference, meta channel.Meta) channel.Result {
	args := m.Called(ctx, user, built, pref, meta)
	return args.Get(0).(channel.Result)
}
