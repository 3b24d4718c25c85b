package service

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"task-notify/internal/config"
	"task-notify/internal/domain"
	"task-notify/internal/pkg/i18n"
	"task-notify/internal/repository"
	"task-notify/internal/service/channel"
	"task-notify/internal/service/email"
	"task-notify/internal/service/gate"
	"task-notify/internal/service/livefeed"
	"task-notify/internal/service/message"
	"task-notify/internal/service/notification"
	"task-notify/internal/service/preference"
	"task-notify/internal/service/reminder"
)

type Services struct {
	Preference   preference.Service
	Gate         gate.Service
	Notification notification.Service
	Reminder     reminder.Service
	Email        email.Service
	Broker       livefeed.Broker
	LiveFeed     *livefeed.Streamer
}

// NewServices wires the engine. A nil redisClient switches the frequency
// window and the live feed fan-out to their single-process variants.
func NewServices(repos *repository.Repositories, redisClient *redis.Client, pool notification.Submitter, cfg *config.Config) (*Services, error) {
	emailService, err := email.NewService(cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("init email service: %w", err)
	}

	var (
		counter gate.FrequencyCounter
		broker  livefeed.Broker
	)
	if redisClient != nil {
		counter = gate.NewRedisCounter(redisClient)
		broker = livefeed.NewRedisBroker(redisClient)
	} else {
		counter = gate.NewRepositoryCounter(repos.Notification)
		broker = livefeed.NewMemoryBroker()
	}

	preferenceService := preference.NewService(repos.Preference, redisClient, cfg.Notification)
	gateService := gate.NewService(preferenceService, counter)
	builder := message.NewBuilder(i18n.DefaultLocale)

	dispatcher := channel.NewDispatcher(
		channel.NewInApp(repos.Notification, broker),
		channel.NewEmail(emailService),
		channel.NewUnavailable(domain.ChannelPush),
		channel.NewUnavailable(domain.ChannelChat),
	)

	notificationService := notification.NewService(
		repos.Notification,
		repos.User,
		preferenceService,
		gateService,
		builder,
		dispatcher,
		pool,
	)

	reminderService := reminder.NewService(
		repos.Reminder,
		repos.Task,
		notificationService,
		builder,
		reminder.Config{BatchSize: cfg.Reminder.BatchSize, MaxAttempts: cfg.Reminder.MaxAttempts},
	)

	streamer := livefeed.NewStreamer(repos.Notification, broker, livefeed.Config{
		PollInterval:      cfg.LiveFeed.PollInterval,
		HeartbeatInterval: cfg.LiveFeed.HeartbeatInterval,
		MaxDuration:       cfg.LiveFeed.MaxDuration,
	})

	return &Services{
		Preference:   preferenceService,
		Gate:         gateService,
		Notification: notificationService,
		Reminder:     reminderService,
		Email:        emailService,
		Broker:       broker,
		LiveFeed:     streamer,
	}, nil
}
