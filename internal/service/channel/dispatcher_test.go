package channel_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/service/channel"
	"task-notify/tests/mocks"
)

type recordingPublisher struct {
	published []*domain.Notification
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, n *domain.Notification) error {
	p.published = append(p.published, n)
	return p.err
}

type panickingSender struct{}

func (panickingSender) Channel() domain.Channel { return domain.ChannelChat }

func (panickingSender) Send(context.Context, *domain.User, domain.BuiltNotification, channel.Meta) error {
	panic("boom")
}

func testUser() *domain.User {
	return &domain.User{ID: uuid.New(), Email: "ivan@example.com", FullName: "Иван", IsActive: true}
}

func testBuilt() domain.BuiltNotification {
	url := "/tasks/1"
	return domain.BuiltNotification{Title: "T", Message: "M", Icon: "bell", Priority: domain.PriorityNormal, ActionURL: &url}
}

func TestDispatch_AllChannels(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	emailSvc := new(mocks.EmailService)
	pub := &recordingPublisher{}
	d := channel.NewDispatcher(
		channel.NewInApp(repo, pub),
		channel.NewEmail(emailSvc),
		channel.NewUnavailable(domain.ChannelPush),
		channel.NewUnavailable(domain.ChannelChat),
	)

	ctx := context.Background()
	user := testUser()
	built := testBuilt()
	taskID := uuid.New()
	meta := channel.Meta{EventType: domain.EventTaskAssigned, TaskID: &taskID, Payload: domain.Payload{"task_title": "X"}}
	pref := &domain.Preference{Channels: []domain.Channel{domain.ChannelInApp, domain.ChannelEmail, domain.ChannelPush}}

	repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == user.ID && n.TaskID != nil && *n.TaskID == taskID && n.Type == domain.EventTaskAssigned &&
			n.Channel == domain.ChannelInApp && n.Title == "T" && !n.IsRead &&
			string(n.Data) == `{"task_title":"X"}`
	})).Return(nil).Once()
	emailSvc.On("SendNotification", ctx, "ivan@example.com", "Иван", built).Return(nil).Once()

	res := d.Dispatch(ctx, user, built, pref, meta)

	assert.Equal(t, []domain.Channel{domain.ChannelInApp, domain.ChannelEmail}, res.Delivered)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Failed[domain.ChannelPush], apperrors.ErrChannelUnavailable)
	assert.NoError(t, res.Err())
	assert.Equal(t, 3, res.Attempted())
	assert.Len(t, pub.published, 1)
	repo.AssertExpectations(t)
	emailSvc.AssertExpectations(t)
}

func TestDispatch_FailureIsolation(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	emailSvc := new(mocks.EmailService)
	d := channel.NewDispatcher(channel.NewInApp(repo, nil), channel.NewEmail(emailSvc))

	ctx := context.Background()
	pref := &domain.Preference{Channels: []domain.Channel{domain.ChannelInApp, domain.ChannelEmail}}

	repo.On("Create", ctx, mock.Anything).Return(errors.New("db down")).Once()
	emailSvc.On("SendNotification", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	res := d.Dispatch(ctx, testUser(), testBuilt(), pref, channel.Meta{EventType: domain.EventMentioned})

	assert.Equal(t, []domain.Channel{domain.ChannelEmail}, res.Delivered)
	assert.Contains(t, res.Failed[domain.ChannelInApp].Error(), "db down")
	assert.NoError(t, res.Err())
	emailSvc.AssertExpectations(t)
}

func TestDispatch_AllFailed(t *testing.T) {
	emailSvc := new(mocks.EmailService)
	d := channel.NewDispatcher(channel.NewEmail(emailSvc), panickingSender{})

	ctx := context.Background()
	pref := &domain.Preference{Channels: []domain.Channel{domain.ChannelEmail, domain.ChannelChat, domain.ChannelPush}}
	emailSvc.On("SendNotification", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp")).Once()

	res := d.Dispatch(ctx, testUser(), testBuilt(), pref, channel.Meta{})

	assert.Empty(t, res.Delivered)
	assert.Len(t, res.Failed, 3)
	assert.Contains(t, res.Failed[domain.ChannelChat].Error(), "panicked")
	// push has no registered sender
	assert.ErrorIs(t, res.Failed[domain.ChannelPush], apperrors.ErrChannelUnavailable)
	require.Error(t, res.Err())
	assert.Contains(t, res.Err().Error(), "all channels failed")
}

func TestDispatch_NoChannels(t *testing.T) {
	d := channel.NewDispatcher()

	res := d.Dispatch(context.Background(), testUser(), testBuilt(), &domain.Preference{}, channel.Meta{})

	assert.Zero(t, res.Attempted())
	assert.NoError(t, res.Err())
}

func TestInApp_PublishFailureStillDelivers(t *testing.T) {
	repo := new(mocks.NotificationRepository)
	pub := &recordingPublisher{err: errors.New("redis down")}
	sender := channel.NewInApp(repo, pub)

	ctx := context.Background()
	repo.On("Create", ctx, mock.Anything).Return(nil).Once()

	err := sender.Send(ctx, testUser(), testBuilt(), channel.Meta{EventType: domain.EventTaskCompleted})

	assert.NoError(t, err)
	assert.Len(t, pub.published, 1)
	assert.Nil(t, pub.published[0].Data)
}
