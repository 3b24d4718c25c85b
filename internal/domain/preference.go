package domain

import (
	"time"

	"github.com/google/uuid"
)

type FrequencyPeriod string

const (
	PeriodHour FrequencyPeriod = "hour"
	PeriodDay  FrequencyPeriod = "day"
)

// Duration returns the trailing window length. Unknown periods count as a day.
func (p FrequencyPeriod) Duration() time.Duration {
	if p == PeriodHour {
		return time.Hour
	}
	return 24 * time.Hour
}

type QuietHours struct {
	Enabled bool `json:"enabled"`
	Start   int  `json:"start"`
	End     int  `json:"end"`
}

// Preference is a user's notification configuration.
type Preference struct {
	UserID          uuid.UUID          `json:"user_id"`
	Channels        []Channel          `json:"channels"`
	EnabledTypes    map[EventType]bool `json:"enabled_types"`
	QuietHours      QuietHours         `json:"quiet_hours"`
	FrequencyLimits map[EventType]int  `json:"frequency_limits"`
	FrequencyPeriod FrequencyPeriod    `json:"frequency_period"`
	Timezone        string             `json:"timezone"`
	IsDefault       bool               `json:"is_default"`
	UpdatedAt       *time.Time         `json:"updated_at,omitempty"`
}

func (p *Preference) HasChannel(c Channel) bool {
	for _, ch := range p.Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// TypeEnabled treats an absent key as enabled.
func (p *Preference) TypeEnabled(t EventType) bool {
	enabled, ok := p.EnabledTypes[t]
	return !ok || enabled
}

// Limit returns the frequency cap for t; 0 means unlimited.
func (p *Preference) Limit(t EventType) int {
	limit := p.FrequencyLimits[t]
	if limit < 0 {
		return 0
	}
	return limit
}

// Location resolves Timezone, falling back to UTC.
func (p *Preference) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Clone returns a deep copy so cached defaults are never mutated by callers.
func (p *Preference) Clone() *Preference {
	out := *p
	out.Channels = append([]Channel(nil), p.Channels...)
	out.EnabledTypes = make(map[EventType]bool, len(p.EnabledTypes))
	for k, v := range p.EnabledTypes {
		out.EnabledTypes[k] = v
	}
	out.FrequencyLimits = make(map[EventType]int, len(p.FrequencyLimits))
	for k, v := range p.FrequencyLimits {
		out.FrequencyLimits[k] = v
	}
	return &out
}

type QuietHoursInput struct {
	Enabled *bool `json:"enabled,omitempty"`
	Start   *int  `json:"start,omitempty" validate:"omitempty,min=0,max=23"`
	End     *int  `json:"end,omitempty" validate:"omitempty,min=0,max=23"`
}

// UpdatePreferenceInput is a partial update; nil fields keep their current value.
type UpdatePreferenceInput struct {
	Channels        *[]Channel         `json:"channels,omitempty" validate:"omitempty,dive,oneof=in_app email push chat"`
	EnabledTypes    map[EventType]bool `json:"enabled_types,omitempty"`
	QuietHours      *QuietHoursInput   `json:"quiet_hours,omitempty"`
	FrequencyLimits map[EventType]int  `json:"frequency_limits,omitempty" validate:"omitempty,dive,min=0"`
	FrequencyPeriod *FrequencyPeriod   `json:"frequency_period,omitempty" validate:"omitempty,oneof=hour day"`
	Timezone        *string            `json:"timezone,omitempty" validate:"omitempty,timezone"`
}
