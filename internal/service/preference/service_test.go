package preference_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"task-notify/internal/config"
	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/repository"
	"task-notify/internal/service/preference"
	"task-notify/tests/mocks"
)

func testDefaults() config.NotificationDefaults {
	return config.NotificationDefaults{
		Channels:          []string{"in_app", "email"},
		DisabledTypes:     []string{"task_updated"},
		QuietHoursEnabled: true,
		QuietHoursStart:   22,
		QuietHoursEnd:     8,
		FrequencyLimits:   map[string]int{"deadline_approaching": 10},
		FrequencyPeriod:   "day",
		Timezone:          "UTC",
	}
}

func TestPreferenceService_ResolveDefaults(t *testing.T) {
	mockRepo := new(mocks.PreferenceRepository)
	svc := preference.NewService(mockRepo, nil, testDefaults())

	ctx := context.Background()
	userID := uuid.New()

	mockRepo.On("GetByUser", ctx, userID).Return(nil, nil).Once()

	pref, err := svc.Resolve(ctx, userID)

	require.NoError(t, err)
	assert.True(t, pref.IsDefault)
	assert.Equal(t, userID, pref.UserID)
	assert.Equal(t, []domain.Channel{domain.ChannelInApp, domain.ChannelEmail}, pref.Channels)
	assert.False(t, pref.TypeEnabled(domain.EventTaskUpdated))
	assert.True(t, pref.TypeEnabled(domain.EventTaskAssigned))
	assert.True(t, pref.TypeEnabled(domain.EventDependencySatisfied))
	assert.Equal(t, domain.QuietHours{Enabled: true, Start: 22, End: 8}, pref.QuietHours)
	assert.Equal(t, 10, pref.Limit(domain.EventDeadlineApproaching))
	assert.Equal(t, domain.PeriodDay, pref.FrequencyPeriod)

	mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestPreferenceService_ResolveDoesNotLeakDefaults(t *testing.T) {
	mockRepo := new(mocks.PreferenceRepository)
	svc := preference.NewService(mockRepo, nil, testDefaults())
	ctx := context.Background()

	mockRepo.On("GetByUser", ctx, mock.AnythingOfType("uuid.UUID")).Return(nil, nil)

	first, err := svc.Resolve(ctx, uuid.New())
	require.NoError(t, err)
	first.EnabledTypes[domain.EventTaskAssigned] = false
	first.Channels[0] = domain.ChannelChat

	second, err := svc.Resolve(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, second.TypeEnabled(domain.EventTaskAssigned))
	assert.Equal(t, domain.ChannelInApp, second.Channels[0])
}

func TestPreferenceService_ResolveStored(t *testing.T) {
	mockRepo := new(mocks.PreferenceRepository)
	svc := preference.NewService(mockRepo, nil, testDefaults())

	ctx := context.Background()
	userID := uuid.New()
	stored := &domain.Preference{
		UserID:          userID,
		Channels:        []domain.Channel{domain.ChannelInApp},
		QuietHours:      domain.QuietHours{Enabled: false},
		FrequencyPeriod: domain.PeriodHour,
	}
	mockRepo.On("GetByUser", ctx, userID).Return(stored, nil).Once()

	pref, err := svc.Resolve(ctx, userID)

	require.NoError(t, err)
	assert.Same(t, stored, pref)
	assert.False(t, pref.IsDefault)
}

func TestPreferenceService_ResolveMalformedFallsBack(t *testing.T) {
	mockRepo := new(mocks.PreferenceRepository)
	svc := preference.NewService(mockRepo, nil, testDefaults())

	ctx := context.Background()
	userID := uuid.New()
	malformed := fmt.Errorf("%w: frequency period \"week\"", repository.ErrMalformedPreference)
	mockRepo.On("GetByUser", ctx, userID).Return(nil, malformed).Once()

	pref, err := svc.Resolve(ctx, userID)

	require.NoError(t, err)
	assert.True(t, pref.IsDefault)
	assert.Equal(t, userID, pref.UserID)
}

func TestPreferenceService_ResolveRepositoryError(t *testing.T) {
	mockRepo := new(mocks.PreferenceRepository)
	svc := preference.NewService(mockRepo, nil, testDefaults())

	ctx := context.Background()
	userID := uuid.New()
	mockRepo.On("GetByUser", ctx, userID).Return(nil, errors.New("connection refused")).Once()

	pref, err := svc.Resolve(ctx, userID)

	assert.Error(t, err)
	assert.Nil(t, pref)
}

func TestPreferenceService_Update(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Merges onto defaults", func(t *testing.T) {
		mockRepo := new(mocks.PreferenceRepository)
		svc := preference.NewService(mockRepo, nil, testDefaults())

		start := 23
		period := domain.PeriodHour
		input := domain.UpdatePreferenceInput{
			EnabledTypes:    map[domain.EventType]bool{domain.EventTaskUpdated: true},
			QuietHours:      &domain.QuietHoursInput{Start: &start},
			FrequencyPeriod: &period,
		}

		mockRepo.On("GetByUser", ctx, userID).Return(nil, nil).Once()
		mockRepo.On("Upsert", ctx, mock.MatchedBy(func(p *domain.Preference) bool {
			return p.UserID == userID &&
				p.TypeEnabled(domain.EventTaskUpdated) &&
				p.QuietHours.Start == 23 && p.QuietHours.End == 8 && p.QuietHours.Enabled &&
				p.FrequencyPeriod == domain.PeriodHour &&
				len(p.Channels) == 2
		})).Return(nil).Once()

		pref, err := svc.Update(ctx, userID, input)

		require.NoError(t, err)
		assert.False(t, pref.IsDefault)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Rejects invalid hour", func(t *testing.T) {
		mockRepo := new(mocks.PreferenceRepository)
		svc := preference.NewService(mockRepo, nil, testDefaults())

		end := 24
		_, err := svc.Update(ctx, userID, domain.UpdatePreferenceInput{
			QuietHours: &domain.QuietHoursInput{End: &end},
		})

		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
		require.Len(t, appErr.FieldErrors, 1)
		assert.Equal(t, "quiet_hours.end", appErr.FieldErrors[0].Field)
		mockRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Rejects unknown channel", func(t *testing.T) {
		mockRepo := new(mocks.PreferenceRepository)
		svc := preference.NewService(mockRepo, nil, testDefaults())

		channels := []domain.Channel{"sms"}
		_, err := svc.Update(ctx, userID, domain.UpdatePreferenceInput{Channels: &channels})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Rejects unknown event type", func(t *testing.T) {
		mockRepo := new(mocks.PreferenceRepository)
		svc := preference.NewService(mockRepo, nil, testDefaults())

		_, err := svc.Update(ctx, userID, domain.UpdatePreferenceInput{
			FrequencyLimits: map[domain.EventType]int{"deal_closed": 3},
		})

		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeUnknownEventType, appErr.Code)
	})
}

func TestMerge(t *testing.T) {
	base := preference.DefaultsFromConfig(testDefaults())
	channels := []domain.Channel{domain.ChannelEmail, domain.ChannelEmail, domain.ChannelPush}
	disabled := false

	out := preference.Merge(base, domain.UpdatePreferenceInput{
		Channels:        &channels,
		QuietHours:      &domain.QuietHoursInput{Enabled: &disabled},
		FrequencyLimits: map[domain.EventType]int{domain.EventMentioned: 0},
	})

	assert.Equal(t, []domain.Channel{domain.ChannelEmail, domain.ChannelPush}, out.Channels)
	assert.False(t, out.QuietHours.Enabled)
	assert.Equal(t, 22, out.QuietHours.Start)
	assert.Equal(t, 0, out.Limit(domain.EventMentioned))
	assert.Equal(t, 10, out.Limit(domain.EventDeadlineApproaching))

	// base is untouched
	assert.True(t, base.QuietHours.Enabled)
	assert.Len(t, base.Channels, 2)
}
