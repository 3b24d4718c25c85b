package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-notify/internal/config"
)

type fakeSweeper struct {
	calls []time.Time
	sent  int
	err   error
}

func (f *fakeSweeper) SweepDue(_ context.Context, now time.Time) (int, error) {
	f.calls = append(f.calls, now)
	return f.sent, f.err
}

type fakePurger struct {
	cutoff time.Time
	err    error
}

func (f *fakePurger) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, f.err
}

func TestKinds(t *testing.T) {
	assert.Equal(t, "reminder_sweep", ReminderSweepArgs{}.Kind())
	assert.Equal(t, "notification_cleanup", NotificationCleanupArgs{}.Kind())
}

func TestInsertOpts(t *testing.T) {
	sweep := ReminderSweepArgs{}.InsertOpts()
	assert.Equal(t, river.QueueDefault, sweep.Queue)
	assert.Equal(t, 1, sweep.MaxAttempts)
	assert.True(t, sweep.UniqueOpts.ByArgs)

	cleanup := NotificationCleanupArgs{}.InsertOpts()
	assert.Equal(t, 24*time.Hour, cleanup.UniqueOpts.ByPeriod)
	assert.Equal(t, 1, cleanup.MaxAttempts)
}

func TestReminderSweepWorker(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("sweeps at the current instant", func(t *testing.T) {
		sweeper := &fakeSweeper{sent: 2}
		w := NewReminderSweepWorker(sweeper)
		w.now = func() time.Time { return now }

		require.NoError(t, w.Work(context.Background(), nil))
		require.Len(t, sweeper.calls, 1)
		assert.Equal(t, now, sweeper.calls[0])
	})

	t.Run("propagates sweep errors", func(t *testing.T) {
		w := NewReminderSweepWorker(&fakeSweeper{err: errors.New("db down")})
		err := w.Work(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})

	t.Run("uninitialized", func(t *testing.T) {
		var w *ReminderSweepWorker
		assert.ErrorContains(t, w.Work(context.Background(), nil), "not initialized")
		assert.ErrorContains(t, (&ReminderSweepWorker{}).Work(context.Background(), nil), "not initialized")
	})
}

func TestNotificationCleanupWorker(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("defaults retention when non-positive", func(t *testing.T) {
		assert.Equal(t, DefaultNotificationRetention, NewNotificationCleanupWorker(nil, 0).retention)
		assert.Equal(t, time.Hour, NewNotificationCleanupWorker(nil, time.Hour).retention)
	})

	t.Run("deletes before now minus retention", func(t *testing.T) {
		purger := &fakePurger{}
		w := NewNotificationCleanupWorker(purger, 48*time.Hour)
		w.now = func() time.Time { return now }

		require.NoError(t, w.Work(context.Background(), nil))
		assert.Equal(t, now.Add(-48*time.Hour), purger.cutoff)
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		w := NewNotificationCleanupWorker(&fakePurger{err: errors.New("boom")}, time.Hour)
		assert.ErrorContains(t, w.Work(context.Background(), nil), "boom")
	})

	t.Run("uninitialized", func(t *testing.T) {
		assert.ErrorContains(t, (&NotificationCleanupWorker{}).Work(context.Background(), nil), "not initialized")
	})
}

func TestPeriodicJobs(t *testing.T) {
	jobs := PeriodicJobs(config.ReminderConfig{SweepInterval: 30 * time.Second})
	assert.Len(t, jobs, 2)

	assert.Len(t, PeriodicJobs(config.ReminderConfig{}), 2)
}

func TestNewWorkers(t *testing.T) {
	workers := NewWorkers(Deps{Sweeper: &fakeSweeper{}, Purger: &fakePurger{}}, config.ReminderConfig{})
	assert.NotNil(t, workers)
}
