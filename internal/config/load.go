package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. TASKWATCH_DATABASE_URL for database.url.
const EnvPrefix = "TASKWATCH"

// keys without defaults still have to be known to viper for Unmarshal to
// pick them up from the environment.
var envOnlyKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"redis.addr",
	"redis.password",
	"telegram.bot_token",
	"telegram.chat_id",
	"telegram.results_topic_id",
	"telegram.bills_topic_id",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory, when present, is loaded into the
// process environment first without overriding variables that are already set.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment key %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return nil, fmt.Errorf("configuration validation failed: unknown timezone %q: %w",
			cfg.Scheduler.Timezone, err)
	}
	if _, err := time.Parse("15:04", cfg.Scheduler.DailyReportTime); err != nil {
		return nil, fmt.Errorf("configuration validation failed: daily_report_time %q: %w",
			cfg.Scheduler.DailyReportTime, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.attribution_ttl_min", 24*60)
	v.SetDefault("redis.idempotency_ttl_min", 60)

	v.SetDefault("scheduler.poll_interval_seconds", 30)
	v.SetDefault("scheduler.response_window_minutes", 40)
	v.SetDefault("scheduler.clock_skew_seconds", 120)
	v.SetDefault("scheduler.timezone", "Asia/Tashkent")
	v.SetDefault("scheduler.daily_report_time", "22:00")

	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")

	v.SetDefault("jobs.worker_count", 2)
	v.SetDefault("jobs.queue_size", 16)
}

// Location returns the configured time zone. Load has already verified it.
func (c SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PollInterval returns the reminder polling cadence.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ResponseWindow returns W.
func (c SchedulerConfig) ResponseWindow() time.Duration {
	return time.Duration(c.ResponseWindowMinutes) * time.Minute
}

// ClockSkew returns the tolerance for completion arrival times.
func (c SchedulerConfig) ClockSkew() time.Duration {
	return time.Duration(c.ClockSkewSeconds) * time.Second
}

// AttributionTTL is how long unattributed evidence is held per conversation.
func (c RedisConfig) AttributionTTL() time.Duration {
	return time.Duration(c.AttributionTTLMin) * time.Minute
}

// IdempotencyTTL is how long a processed completion key is remembered.
func (c RedisConfig) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempotencyTTLMin) * time.Minute
}
