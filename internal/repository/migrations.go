package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	sql     string
}

// migrations must stay ordered; versions are sequential from 1. The users and
// tasks tables belong to the main application and are only created here so
// the service can run standalone.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	full_name  TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT 'member',
	is_active  BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS tasks (
	id          UUID PRIMARY KEY,
	title       TEXT NOT NULL,
	deadline    TIMESTAMPTZ,
	assignee_id UUID
);

CREATE TABLE IF NOT EXISTS notifications (
	id          UUID PRIMARY KEY,
	user_id     UUID NOT NULL,
	task_id     UUID,
	type        TEXT NOT NULL,
	channel     TEXT NOT NULL DEFAULT 'in_app',
	title       TEXT NOT NULL,
	message     TEXT NOT NULL,
	icon        TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT 'normal',
	action_url  TEXT,
	data        JSONB,
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	read_at     TIMESTAMPTZ,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_user_type_created ON notifications(user_id, type, created_at);

CREATE TABLE IF NOT EXISTS notification_preferences (
	user_id              UUID PRIMARY KEY,
	channels             TEXT[] NOT NULL,
	enabled_types        JSONB NOT NULL DEFAULT '{}',
	quiet_hours_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
	quiet_hours_start    SMALLINT NOT NULL DEFAULT 22,
	quiet_hours_end      SMALLINT NOT NULL DEFAULT 8,
	frequency_limits     JSONB NOT NULL DEFAULT '{}',
	frequency_period     TEXT NOT NULL DEFAULT 'day',
	timezone             TEXT NOT NULL DEFAULT 'UTC',
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reminders (
	id             UUID PRIMARY KEY,
	task_id        UUID NOT NULL,
	user_id        UUID NOT NULL,
	scheduled_for  TIMESTAMPTZ NOT NULL,
	type           TEXT NOT NULL,
	message        TEXT NOT NULL,
	is_sent        BOOLEAN NOT NULL DEFAULT FALSE,
	sent_at        TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT reminders_sent_at_check CHECK (is_sent OR sent_at IS NULL)
);

CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders(scheduled_for) WHERE is_sent = FALSE;
CREATE INDEX IF NOT EXISTS idx_reminders_task ON reminders(task_id);
`,
	},
	{
		version: 2,
		sql: `
ALTER TABLE reminders ADD COLUMN IF NOT EXISTS attempt_count INTEGER NOT NULL DEFAULT 0;
ALTER TABLE reminders ADD COLUMN IF NOT EXISTS last_attempt_at TIMESTAMPTZ;
ALTER TABLE reminders ADD COLUMN IF NOT EXISTS last_error TEXT;
`,
	},
}

// Migrate applies pending migrations, each in its own transaction.
func Migrate(ctx context.Context, db *sqlx.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return applied, err
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.version); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		applied++
	}

	return applied, nil
}
