package preference

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"task-notify/internal/config"
	"task-notify/internal/domain"
	apperrors "task-notify/internal/pkg/errors"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/repository"
)

type Service interface {
	// Resolve never writes; users without a stored row get the defaults.
	Resolve(ctx context.Context, userID uuid.UUID) (*domain.Preference, error)
	Update(ctx context.Context, userID uuid.UUID, input domain.UpdatePreferenceInput) (*domain.Preference, error)
	Defaults() *domain.Preference
}

type service struct {
	prefRepo repository.PreferenceRepository
	redis    *redis.Client
	defaults *domain.Preference
	cacheTTL time.Duration
}

func NewService(prefRepo repository.PreferenceRepository, redis *redis.Client, cfg config.NotificationDefaults) Service {
	return &service{
		prefRepo: prefRepo,
		redis:    redis,
		defaults: DefaultsFromConfig(cfg),
		cacheTTL: cfg.CacheTTL,
	}
}

// DefaultsFromConfig builds the preference served to users without a stored row.
func DefaultsFromConfig(cfg config.NotificationDefaults) *domain.Preference {
	pref := &domain.Preference{
		EnabledTypes:    make(map[domain.EventType]bool, len(domain.EventTypes)),
		FrequencyLimits: make(map[domain.EventType]int, len(cfg.FrequencyLimits)),
		QuietHours: domain.QuietHours{
			Enabled: cfg.QuietHoursEnabled,
			Start:   cfg.QuietHoursStart,
			End:     cfg.QuietHoursEnd,
		},
		FrequencyPeriod: domain.FrequencyPeriod(cfg.FrequencyPeriod),
		Timezone:        cfg.Timezone,
		IsDefault:       true,
	}
	for _, ch := range cfg.Channels {
		pref.Channels = append(pref.Channels, domain.Channel(ch))
	}
	for _, t := range domain.EventTypes {
		pref.EnabledTypes[t] = true
	}
	for _, t := range cfg.DisabledTypes {
		pref.EnabledTypes[domain.EventType(t)] = false
	}
	for t, limit := range cfg.FrequencyLimits {
		pref.FrequencyLimits[domain.EventType(t)] = limit
	}
	if pref.FrequencyPeriod == "" {
		pref.FrequencyPeriod = domain.PeriodDay
	}
	return pref
}

func cacheKey(userID uuid.UUID) string {
	return "pref:" + userID.String()
}

func (s *service) Defaults() *domain.Preference {
	return s.defaults.Clone()
}

func (s *service) Resolve(ctx context.Context, userID uuid.UUID) (*domain.Preference, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey(userID)).Result(); err == nil {
			var pref domain.Preference
			if json.Unmarshal([]byte(cached), &pref) == nil {
				return &pref, nil
			}
		}
	}

	pref, err := s.prefRepo.GetByUser(ctx, userID)
	if err != nil {
		if errorsIsMalformed(err) {
			logger.Warn("stored preference is malformed, using defaults",
				zap.String("user_id", userID.String()), zap.Error(err))
			return s.defaultsFor(userID), nil
		}
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	if pref == nil {
		return s.defaultsFor(userID), nil
	}

	s.store(ctx, pref)
	return pref, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, input domain.UpdatePreferenceInput) (*domain.Preference, error) {
	if err := validate.Struct(input); err != nil {
		return nil, validationError(err)
	}
	for t := range input.EnabledTypes {
		if !t.IsValid() {
			return nil, apperrors.BadRequest(apperrors.CodeUnknownEventType, fmt.Sprintf("unknown event type %q", t))
		}
	}
	for t := range input.FrequencyLimits {
		if !t.IsValid() {
			return nil, apperrors.BadRequest(apperrors.CodeUnknownEventType, fmt.Sprintf("unknown event type %q", t))
		}
	}

	current, err := s.prefRepo.GetByUser(ctx, userID)
	if err != nil && !errorsIsMalformed(err) {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	if current == nil {
		current = s.defaultsFor(userID)
	}

	merged := Merge(current, input)
	merged.UserID = userID
	if err := s.prefRepo.Upsert(ctx, merged); err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}

	s.invalidate(ctx, userID)
	return merged, nil
}

// Merge applies the non-nil fields of input on a copy of base. Map fields are
// merged key by key.
func Merge(base *domain.Preference, input domain.UpdatePreferenceInput) *domain.Preference {
	out := base.Clone()
	if input.Channels != nil {
		out.Channels = dedupeChannels(*input.Channels)
	}
	for t, enabled := range input.EnabledTypes {
		out.EnabledTypes[t] = enabled
	}
	if qh := input.QuietHours; qh != nil {
		if qh.Enabled != nil {
			out.QuietHours.Enabled = *qh.Enabled
		}
		if qh.Start != nil {
			out.QuietHours.Start = *qh.Start
		}
		if qh.End != nil {
			out.QuietHours.End = *qh.End
		}
	}
	for t, limit := range input.FrequencyLimits {
		out.FrequencyLimits[t] = limit
	}
	if input.FrequencyPeriod != nil {
		out.FrequencyPeriod = *input.FrequencyPeriod
	}
	if input.Timezone != nil {
		out.Timezone = *input.Timezone
	}
	out.IsDefault = false
	return out
}

func dedupeChannels(channels []domain.Channel) []domain.Channel {
	seen := make(map[domain.Channel]bool, len(channels))
	out := make([]domain.Channel, 0, len(channels))
	for _, ch := range channels {
		if seen[ch] {
			continue
		}
		seen[ch] = true
		out = append(out, ch)
	}
	return out
}

func (s *service) defaultsFor(userID uuid.UUID) *domain.Preference {
	pref := s.defaults.Clone()
	pref.UserID = userID
	return pref
}

func (s *service) store(ctx context.Context, pref *domain.Preference) {
	if s.redis == nil || s.cacheTTL <= 0 {
		return
	}
	if data, err := json.Marshal(pref); err == nil {
		_ = s.redis.Set(ctx, cacheKey(pref.UserID), data, s.cacheTTL).Err()
	}
}

func (s *service) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(userID)).Err(); err != nil {
		logger.Warn("failed to invalidate preference cache", zap.String("user_id", userID.String()), zap.Error(err))
	}
}
