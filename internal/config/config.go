// Package config loads service configuration from an optional config.yaml,
// environment variables and built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig         `mapstructure:"server"`
	Database     DatabaseConfig       `mapstructure:"database"`
	Redis        RedisConfig          `mapstructure:"redis"`
	Log          LogConfig            `mapstructure:"log"`
	JWT          JWTConfig            `mapstructure:"jwt"`
	Email        EmailConfig          `mapstructure:"email"`
	River        RiverConfig          `mapstructure:"river"`
	Worker       WorkerConfig         `mapstructure:"worker"`
	Notification NotificationDefaults `mapstructure:"notification"`
	LiveFeed     LiveFeedConfig       `mapstructure:"livefeed"`
	Reminder     ReminderConfig       `mapstructure:"reminder"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	CORSOrigins     string        `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// RedisConfig: an empty URL disables caching, the Redis frequency window and
// pub/sub; in-process fallbacks are used instead.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type EmailConfig struct {
	ResendAPIKey string  `mapstructure:"resend_api_key"`
	FromEmail    string  `mapstructure:"from_email"`
	FromName     string  `mapstructure:"from_name"`
	AppURL       string  `mapstructure:"app_url"`
	RatePerSec   float64 `mapstructure:"rate_per_sec"`
	Burst        int     `mapstructure:"burst"`
}

type RiverConfig struct {
	MaxWorkers                  int           `mapstructure:"max_workers"`
	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

type WorkerConfig struct {
	PoolSize int `mapstructure:"pool_size"`
}

// NotificationDefaults is the single source of the preference used for users
// who never saved their own.
type NotificationDefaults struct {
	Channels          []string       `mapstructure:"channels"`
	DisabledTypes     []string       `mapstructure:"disabled_types"`
	QuietHoursEnabled bool           `mapstructure:"quiet_hours_enabled"`
	QuietHoursStart   int            `mapstructure:"quiet_hours_start"`
	QuietHoursEnd     int            `mapstructure:"quiet_hours_end"`
	FrequencyLimits   map[string]int `mapstructure:"frequency_limits"`
	FrequencyPeriod   string         `mapstructure:"frequency_period"`
	Timezone          string         `mapstructure:"timezone"`
	CacheTTL          time.Duration  `mapstructure:"cache_ttl"`
}

type LiveFeedConfig struct {
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxDuration       time.Duration `mapstructure:"max_duration"`
}

type ReminderConfig struct {
	SweepInterval         time.Duration `mapstructure:"sweep_interval"`
	BatchSize             int           `mapstructure:"batch_size"`
	MaxAttempts           int           `mapstructure:"max_attempts"`
	NotificationRetention time.Duration `mapstructure:"notification_retention"`
}

// envAliases keeps the flat variable names used by existing deployments.
var envAliases = map[string]string{
	"server.port":          "PORT",
	"server.environment":   "ENVIRONMENT",
	"server.cors_origins":  "CORS_ORIGINS",
	"database.url":         "DATABASE_URL",
	"redis.url":            "REDIS_URL",
	"jwt.secret":           "JWT_SECRET",
	"email.resend_api_key": "RESEND_API_KEY",
	"email.from_email":     "FROM_EMAIL",
	"email.app_url":        "APP_URL",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
}

// Load reads configuration. The config file is optional.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/task-notify")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.cors_origins", "http://localhost:5173")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("email.from_email", "noreply@example.com")
	v.SetDefault("email.from_name", "Task Manager")
	v.SetDefault("email.app_url", "http://localhost:5173")
	v.SetDefault("email.rate_per_sec", 2.0)
	v.SetDefault("email.burst", 2)

	v.SetDefault("river.max_workers", 5)
	v.SetDefault("river.completed_job_retention_period", "24h")

	v.SetDefault("worker.pool_size", 32)

	v.SetDefault("notification.channels", []string{"in_app", "email"})
	v.SetDefault("notification.disabled_types", []string{"task_updated"})
	v.SetDefault("notification.quiet_hours_enabled", true)
	v.SetDefault("notification.quiet_hours_start", 22)
	v.SetDefault("notification.quiet_hours_end", 8)
	v.SetDefault("notification.frequency_limits", map[string]int{
		"task_assigned":        20,
		"task_completed":       20,
		"task_overdue":         10,
		"deadline_approaching": 10,
		"comment_added":        30,
		"mentioned":            30,
		"task_updated":         10,
		"dependency_satisfied": 20,
	})
	v.SetDefault("notification.frequency_period", "day")
	v.SetDefault("notification.timezone", "UTC")
	v.SetDefault("notification.cache_ttl", "10m")

	v.SetDefault("livefeed.poll_interval", "10s")
	v.SetDefault("livefeed.heartbeat_interval", "30s")
	v.SetDefault("livefeed.max_duration", "30m")

	v.SetDefault("reminder.sweep_interval", "1m")
	v.SetDefault("reminder.batch_size", 100)
	v.SetDefault("reminder.max_attempts", 3)
	v.SetDefault("reminder.notification_retention", "2160h")
}

// Validate checks for configuration errors that would otherwise surface as
// silent misbehaviour at runtime.
func (c *Config) Validate() error {
	if c.Server.Environment == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret must be set in production")
	}
	n := c.Notification
	if n.QuietHoursStart < 0 || n.QuietHoursStart > 23 || n.QuietHoursEnd < 0 || n.QuietHoursEnd > 23 {
		return fmt.Errorf("notification quiet hours must be within 0..23, got %d..%d", n.QuietHoursStart, n.QuietHoursEnd)
	}
	switch n.FrequencyPeriod {
	case "hour", "day":
	default:
		return fmt.Errorf("notification.frequency_period must be hour or day, got %q", n.FrequencyPeriod)
	}
	for _, ch := range n.Channels {
		switch ch {
		case "in_app", "email", "push", "chat":
		default:
			return fmt.Errorf("unknown notification channel %q", ch)
		}
	}
	if _, err := time.LoadLocation(n.Timezone); err != nil {
		return fmt.Errorf("notification.timezone: %w", err)
	}
	if c.LiveFeed.PollInterval <= 0 || c.LiveFeed.HeartbeatInterval <= 0 || c.LiveFeed.MaxDuration <= 0 {
		return fmt.Errorf("livefeed intervals must be positive")
	}
	if c.Reminder.BatchSize <= 0 {
		return fmt.Errorf("reminder.batch_size must be positive")
	}
	return nil
}
