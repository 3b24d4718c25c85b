// Package gate decides whether a notification may be delivered to a user.
package gate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"task-notify/internal/domain"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/metrics"
)

type Reason string

const (
	ReasonTypeDisabled Reason = "type_disabled"
	ReasonQuietHours   Reason = "quiet_hours"
	ReasonFrequency    Reason = "frequency_limit"
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

var allow = Decision{Allowed: true}

func suppress(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// InQuietHours reports whether hour falls in the [start, end) window. A
// window with start >= end wraps past midnight.
func InQuietHours(start, end, hour int) bool {
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// Evaluate applies the type, quiet-hours and frequency checks in that order
// and stops at the first that suppresses. A counter error lets the
// notification through.
func Evaluate(ctx context.Context, pref *domain.Preference, eventType domain.EventType, now time.Time, counter FrequencyCounter) Decision {
	if !pref.TypeEnabled(eventType) {
		return suppress(ReasonTypeDisabled)
	}

	if pref.QuietHours.Enabled {
		hour := now.In(pref.Location()).Hour()
		if InQuietHours(pref.QuietHours.Start, pref.QuietHours.End, hour) {
			return suppress(ReasonQuietHours)
		}
	}

	limit := pref.Limit(eventType)
	if limit == 0 || counter == nil {
		return allow
	}

	since := now.Add(-pref.FrequencyPeriod.Duration())
	count, err := counter.Count(ctx, pref.UserID, eventType, since)
	if err != nil {
		logger.Warn("frequency count failed, allowing notification",
			zap.String("user_id", pref.UserID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
		return allow
	}
	if count >= int64(limit) {
		return suppress(ReasonFrequency)
	}
	return allow
}

// PreferenceSource resolves the preference a decision is taken against.
type PreferenceSource interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*domain.Preference, error)
}

type Service interface {
	ShouldDeliver(ctx context.Context, userID uuid.UUID, eventType domain.EventType, now time.Time) (Decision, error)
	// Check evaluates an already resolved preference.
	Check(ctx context.Context, pref *domain.Preference, eventType domain.EventType, now time.Time) Decision
	// RecordDelivery feeds the frequency window after a successful dispatch.
	RecordDelivery(ctx context.Context, userID uuid.UUID, eventType domain.EventType, at time.Time)
}

type service struct {
	prefs   PreferenceSource
	counter FrequencyCounter
}

func NewService(prefs PreferenceSource, counter FrequencyCounter) Service {
	return &service{prefs: prefs, counter: counter}
}

func (s *service) ShouldDeliver(ctx context.Context, userID uuid.UUID, eventType domain.EventType, now time.Time) (Decision, error) {
	pref, err := s.prefs.Resolve(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	return s.Check(ctx, pref, eventType, now), nil
}

func (s *service) Check(ctx context.Context, pref *domain.Preference, eventType domain.EventType, now time.Time) Decision {
	d := Evaluate(ctx, pref, eventType, now, s.counter)
	if !d.Allowed {
		metrics.SuppressedTotal.WithLabelValues(string(d.Reason)).Inc()
	}
	return d
}

func (s *service) RecordDelivery(ctx context.Context, userID uuid.UUID, eventType domain.EventType, at time.Time) {
	if s.counter == nil {
		return
	}
	if err := s.counter.Record(ctx, userID, eventType, at); err != nil {
		logger.Warn("failed to record delivery in frequency window",
			zap.String("user_id", userID.String()),
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
