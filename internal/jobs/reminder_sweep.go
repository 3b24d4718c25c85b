// Package jobs holds the River workers that drive the notification engine's
// periodic maintenance.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"task-notify/internal/pkg/logger"
)

// ReminderSweeper delivers reminders that are due at now.
type ReminderSweeper interface {
	SweepDue(ctx context.Context, now time.Time) (int, error)
}

// ReminderSweepArgs triggers one pass over due reminders.
type ReminderSweepArgs struct{}

func (ReminderSweepArgs) Kind() string { return "reminder_sweep" }

// InsertOpts keeps at most one pending sweep; a sweep that fails is simply
// picked up by the next interval.
func (ReminderSweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByQueue: true,
			ByArgs:  true,
			ByState: []rivertype.JobState{rivertype.JobStateAvailable, rivertype.JobStatePending, rivertype.JobStateRunning, rivertype.JobStateScheduled},
		},
	}
}

type ReminderSweepWorker struct {
	river.WorkerDefaults[ReminderSweepArgs]
	sweeper ReminderSweeper
	now     func() time.Time
}

func NewReminderSweepWorker(sweeper ReminderSweeper) *ReminderSweepWorker {
	return &ReminderSweepWorker{sweeper: sweeper, now: time.Now}
}

func (w *ReminderSweepWorker) Work(ctx context.Context, _ *river.Job[ReminderSweepArgs]) error {
	if w == nil || w.sweeper == nil {
		return fmt.Errorf("reminder sweep worker is not initialized")
	}

	sent, err := w.sweeper.SweepDue(ctx, w.now().UTC())
	if err != nil {
		return fmt.Errorf("sweep due reminders: %w", err)
	}
	if sent > 0 {
		logger.Info("reminder sweep completed", zap.Int("sent", sent))
	}
	return nil
}

// Timeout bounds a single sweep so a stuck channel cannot hold the job slot.
func (w *ReminderSweepWorker) Timeout(*river.Job[ReminderSweepArgs]) time.Duration {
	return 5 * time.Minute
}
