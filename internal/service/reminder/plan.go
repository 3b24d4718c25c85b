package reminder

import (
	"time"

	"task-notify/internal/domain"
)

// Planned is a reminder slot computed from a deadline.
type Planned struct {
	Type domain.ReminderType
	At   time.Time
}

var leadTimes = []struct {
	typ       domain.ReminderType
	offset    time.Duration
	threshold time.Duration
}{
	{domain.ReminderWeekBefore, 7 * 24 * time.Hour, 168 * time.Hour},
	{domain.ReminderDayBefore, 24 * time.Hour, 24 * time.Hour},
	{domain.ReminderHourBefore, time.Hour, time.Hour},
}

// Plan returns the lead-time reminders for deadline as seen from now. A slot
// is produced only when the deadline is strictly further away than its
// threshold.
func Plan(deadline, now time.Time) []Planned {
	until := deadline.Sub(now)

	var out []Planned
	for _, lt := range leadTimes {
		if until > lt.threshold {
			out = append(out, Planned{Type: lt.typ, At: deadline.Add(-lt.offset)})
		}
	}
	return out
}
