package gate

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-notify/internal/domain"
)

type stubCounter struct {
	count    int64
	err      error
	calls    int
	since    time.Time
	recorded int
}

func (c *stubCounter) Count(_ context.Context, _ uuid.UUID, _ domain.EventType, since time.Time) (int64, error) {
	c.calls++
	c.since = since
	return c.count, c.err
}

func (c *stubCounter) Record(context.Context, uuid.UUID, domain.EventType, time.Time) error {
	c.recorded++
	return nil
}

type stubPrefs struct {
	pref *domain.Preference
	err  error
}

func (s stubPrefs) Resolve(context.Context, uuid.UUID) (*domain.Preference, error) {
	return s.pref, s.err
}

func basePref() *domain.Preference {
	return &domain.Preference{
		UserID:          uuid.New(),
		Channels:        []domain.Channel{domain.ChannelInApp, domain.ChannelEmail},
		EnabledTypes:    map[domain.EventType]bool{domain.EventTaskUpdated: false},
		QuietHours:      domain.QuietHours{Enabled: true, Start: 22, End: 8},
		FrequencyLimits: map[domain.EventType]int{domain.EventTaskAssigned: 5},
		FrequencyPeriod: domain.PeriodDay,
		Timezone:        "UTC",
	}
}

func at(hour int) time.Time {
	return time.Date(2026, 3, 10, hour, 15, 0, 0, time.UTC)
}

func TestInQuietHours(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
		hour       int
		want       bool
	}{
		{"wrapping late evening", 22, 8, 23, true},
		{"wrapping at start", 22, 8, 22, true},
		{"wrapping after end", 22, 8, 9, false},
		{"wrapping early morning", 22, 8, 7, true},
		{"wrapping at end", 22, 8, 8, false},
		{"wrapping midnight", 22, 8, 0, true},
		{"wrapping afternoon", 22, 8, 14, false},
		{"plain inside", 13, 15, 14, true},
		{"plain at start", 13, 15, 13, true},
		{"plain at end", 13, 15, 15, false},
		{"plain before", 13, 15, 12, false},
		{"equal bounds covers whole day", 5, 5, 17, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InQuietHours(tt.start, tt.end, tt.hour); got != tt.want {
				t.Fatalf("InQuietHours(%d, %d, %d) = %v, want %v", tt.start, tt.end, tt.hour, got, tt.want)
			}
		})
	}
}

func TestInQuietHours_Exhaustive(t *testing.T) {
	t.Parallel()

	for start := 0; start < 24; start++ {
		for end := 0; end < 24; end++ {
			for hour := 0; hour < 24; hour++ {
				var want bool
				if start < end {
					want = start <= hour && hour < end
				} else {
					want = hour >= start || hour < end
				}
				if got := InQuietHours(start, end, hour); got != want {
					t.Fatalf("InQuietHours(%d, %d, %d) = %v, want %v", start, end, hour, got, want)
				}
			}
		}
	}
}

func TestEvaluate_TypeDisabledWins(t *testing.T) {
	pref := basePref()
	counter := &stubCounter{}

	// Outside quiet hours and under the cap, still suppressed.
	d := Evaluate(context.Background(), pref, domain.EventTaskUpdated, at(14), counter)

	assert.Equal(t, Decision{Allowed: false, Reason: ReasonTypeDisabled}, d)
	assert.Zero(t, counter.calls)
}

func TestEvaluate_QuietHours(t *testing.T) {
	pref := basePref()
	counter := &stubCounter{}

	assert.Equal(t, ReasonQuietHours, Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(23), counter).Reason)
	assert.True(t, Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(9), counter).Allowed)
	assert.Equal(t, ReasonQuietHours, Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(7), counter).Reason)

	pref.QuietHours.Enabled = false
	assert.True(t, Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(23), counter).Allowed)
}

func TestEvaluate_QuietHoursUsesPreferenceTimezone(t *testing.T) {
	pref := basePref()
	pref.Timezone = "Europe/Moscow"

	// 20:15 UTC is 23:15 in Moscow.
	d := Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(20), &stubCounter{})
	assert.Equal(t, ReasonQuietHours, d.Reason)

	// 05:15 UTC is 08:15 in Moscow.
	d = Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(5), &stubCounter{})
	assert.True(t, d.Allowed)
}

func TestEvaluate_FrequencyBoundary(t *testing.T) {
	pref := basePref()

	atLimit := &stubCounter{count: 5}
	d := Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(14), atLimit)
	assert.Equal(t, Decision{Allowed: false, Reason: ReasonFrequency}, d)
	assert.Equal(t, at(14).Add(-24*time.Hour), atLimit.since)

	belowLimit := &stubCounter{count: 4}
	d = Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(14), belowLimit)
	assert.True(t, d.Allowed)
}

func TestEvaluate_HourlyWindow(t *testing.T) {
	pref := basePref()
	pref.FrequencyPeriod = domain.PeriodHour
	counter := &stubCounter{}

	Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(14), counter)

	assert.Equal(t, at(13), counter.since)
}

func TestEvaluate_NoLimitSkipsCounter(t *testing.T) {
	pref := basePref()
	counter := &stubCounter{count: 1000}

	d := Evaluate(context.Background(), pref, domain.EventCommentAdded, at(14), counter)

	assert.True(t, d.Allowed)
	assert.Zero(t, counter.calls)
}

func TestEvaluate_CounterErrorFailsOpen(t *testing.T) {
	pref := basePref()
	counter := &stubCounter{err: errors.New("redis down")}

	d := Evaluate(context.Background(), pref, domain.EventTaskAssigned, at(14), counter)

	assert.True(t, d.Allowed)
}

func TestService_ShouldDeliver(t *testing.T) {
	pref := basePref()
	counter := &stubCounter{count: 1}
	svc := NewService(stubPrefs{pref: pref}, counter)

	d, err := svc.ShouldDeliver(context.Background(), pref.UserID, domain.EventTaskAssigned, at(14))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	svc.RecordDelivery(context.Background(), pref.UserID, domain.EventTaskAssigned, at(14))
	assert.Equal(t, 1, counter.recorded)
}

func TestService_ShouldDeliverPreferenceError(t *testing.T) {
	svc := NewService(stubPrefs{err: errors.New("db down")}, nil)

	_, err := svc.ShouldDeliver(context.Background(), uuid.New(), domain.EventTaskAssigned, at(14))

	assert.Error(t, err)
}

func TestWindowKey(t *testing.T) {
	id := uuid.MustParse("6f1c7c7e-3f5b-4c1a-9a54-0b8f1d2e3a4b")
	assert.Equal(t, "freq:6f1c7c7e-3f5b-4c1a-9a54-0b8f1d2e3a4b:mentioned", windowKey(id, domain.EventMentioned))
}
