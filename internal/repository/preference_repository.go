package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"task-notify/internal/domain"
)

// ErrMalformedPreference is returned when a stored row cannot be decoded.
var ErrMalformedPreference = errors.New("malformed notification preference")

type PreferenceRepository interface {
	// GetByUser returns nil, nil when the user has no stored preference.
	GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Preference, error)
	Upsert(ctx context.Context, pref *domain.Preference) error
}

type preferenceRow struct {
	UserID            uuid.UUID      `db:"user_id"`
	Channels          pq.StringArray `db:"channels"`
	EnabledTypes      []byte         `db:"enabled_types"`
	QuietHoursEnabled bool           `db:"quiet_hours_enabled"`
	QuietHoursStart   int            `db:"quiet_hours_start"`
	QuietHoursEnd     int            `db:"quiet_hours_end"`
	FrequencyLimits   []byte         `db:"frequency_limits"`
	FrequencyPeriod   string         `db:"frequency_period"`
	Timezone          string         `db:"timezone"`
	UpdatedAt         time.Time      `db:"updated_at"`
}

func (row *preferenceRow) toDomain() (*domain.Preference, error) {
	pref := &domain.Preference{
		UserID: row.UserID,
		QuietHours: domain.QuietHours{
			Enabled: row.QuietHoursEnabled,
			Start:   row.QuietHoursStart,
			End:     row.QuietHoursEnd,
		},
		FrequencyPeriod: domain.FrequencyPeriod(row.FrequencyPeriod),
		Timezone:        row.Timezone,
		UpdatedAt:       &row.UpdatedAt,
	}

	for _, ch := range row.Channels {
		c := domain.Channel(ch)
		if !c.IsValid() {
			return nil, fmt.Errorf("%w: unknown channel %q", ErrMalformedPreference, ch)
		}
		pref.Channels = append(pref.Channels, c)
	}
	if err := json.Unmarshal(row.EnabledTypes, &pref.EnabledTypes); err != nil {
		return nil, fmt.Errorf("%w: enabled_types: %v", ErrMalformedPreference, err)
	}
	if err := json.Unmarshal(row.FrequencyLimits, &pref.FrequencyLimits); err != nil {
		return nil, fmt.Errorf("%w: frequency_limits: %v", ErrMalformedPreference, err)
	}
	if pref.QuietHours.Start < 0 || pref.QuietHours.Start > 23 || pref.QuietHours.End < 0 || pref.QuietHours.End > 23 {
		return nil, fmt.Errorf("%w: quiet hours %d..%d", ErrMalformedPreference, pref.QuietHours.Start, pref.QuietHours.End)
	}
	if pref.FrequencyPeriod != domain.PeriodHour && pref.FrequencyPeriod != domain.PeriodDay {
		return nil, fmt.Errorf("%w: frequency period %q", ErrMalformedPreference, row.FrequencyPeriod)
	}
	return pref, nil
}

type preferenceRepository struct {
	db *sqlx.DB
}

func NewPreferenceRepository(db *sqlx.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*domain.Preference, error) {
	var row preferenceRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM notification_preferences WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *domain.Preference) error {
	channels := make([]string, len(pref.Channels))
	for i, ch := range pref.Channels {
		channels[i] = string(ch)
	}
	enabledTypes, err := json.Marshal(nonNilBoolMap(pref.EnabledTypes))
	if err != nil {
		return fmt.Errorf("encode enabled types: %w", err)
	}
	limits, err := json.Marshal(nonNilIntMap(pref.FrequencyLimits))
	if err != nil {
		return fmt.Errorf("encode frequency limits: %w", err)
	}

	query := `
		INSERT INTO notification_preferences
			(user_id, channels, enabled_types, quiet_hours_enabled, quiet_hours_start, quiet_hours_end,
			 frequency_limits, frequency_period, timezone, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			channels = EXCLUDED.channels,
			enabled_types = EXCLUDED.enabled_types,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			frequency_limits = EXCLUDED.frequency_limits,
			frequency_period = EXCLUDED.frequency_period,
			timezone = EXCLUDED.timezone,
			updated_at = NOW()
		RETURNING updated_at`

	var updatedAt time.Time
	err = r.db.QueryRowxContext(ctx, query,
		pref.UserID, pq.Array(channels), enabledTypes, pref.QuietHours.Enabled,
		pref.QuietHours.Start, pref.QuietHours.End, limits, pref.FrequencyPeriod, pref.Timezone,
	).Scan(&updatedAt)
	if err != nil {
		return err
	}
	pref.UpdatedAt = &updatedAt
	pref.IsDefault = false
	return nil
}

func nonNilBoolMap(m map[domain.EventType]bool) map[domain.EventType]bool {
	if m == nil {
		return map[domain.EventType]bool{}
	}
	return m
}

func nonNilIntMap(m map[domain.EventType]int) map[domain.EventType]int {
	if m == nil {
		return map[domain.EventType]int{}
	}
	return m
}
