package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"task-notify/internal/config"
	"task-notify/internal/pkg/logger"
)

// Deps are the services the periodic jobs call into.
type Deps struct {
	Sweeper ReminderSweeper
	Purger  ReadNotificationPurger
}

// Migrate creates or upgrades River's own tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed", zap.Int("versions_applied", len(res.Versions)))
	} else {
		logger.Info("River migration: already up-to-date")
	}
	return nil
}

// NewWorkers registers every worker of this package.
func NewWorkers(deps Deps, reminderCfg config.ReminderConfig) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewReminderSweepWorker(deps.Sweeper))
	river.AddWorker(workers, NewNotificationCleanupWorker(deps.Purger, reminderCfg.NotificationRetention))
	return workers
}

// PeriodicJobs returns the sweep on the configured interval and the daily
// retention cleanup. Both run once on start.
func PeriodicJobs(reminderCfg config.ReminderConfig) []*river.PeriodicJob {
	interval := reminderCfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return ReminderSweepArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return NotificationCleanupArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// NewClient creates the River client with the workers and periodic jobs wired.
func NewClient(pool *pgxpool.Pool, deps Deps, cfg *config.Config) (*river.Client[pgx.Tx], error) {
	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.River.MaxWorkers},
		},
		Workers:                     NewWorkers(deps, cfg.Reminder),
		PeriodicJobs:                PeriodicJobs(cfg.Reminder),
		CompletedJobRetentionPeriod: cfg.River.CompletedJobRetentionPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	logger.Info("River client initialized",
		zap.Int("max_workers", cfg.River.MaxWorkers),
		zap.Duration("sweep_interval", cfg.Reminder.SweepInterval),
	)
	return client, nil
}
