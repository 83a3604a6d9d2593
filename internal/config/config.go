package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Jobs      JobsConfig      `mapstructure:"jobs"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the shared secret used to verify bearer tokens
// presented by the chat transport.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// RedisConfig configures the optional Redis backend for the pending-attribution
// table and completion idempotency keys. An empty Addr keeps both in memory.
type RedisConfig struct {
	Addr              string `mapstructure:"addr"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"                  validate:"gte=0"`
	AttributionTTLMin int    `mapstructure:"attribution_ttl_min" validate:"gte=0"`
	IdempotencyTTLMin int    `mapstructure:"idempotency_ttl_min" validate:"gte=0"`
}

// SchedulerConfig controls the lifecycle engine timing.
type SchedulerConfig struct {
	// PollIntervalSeconds is the reminder polling cadence.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" validate:"required,gt=0,lte=60"`

	// ResponseWindowMinutes is the fixed window W after a reminder within
	// which a completion is accepted.
	ResponseWindowMinutes int `mapstructure:"response_window_minutes" validate:"required,gt=0"`

	// ClockSkewSeconds is how far ahead of the server clock a client-supplied
	// completion arrival time may be. Zero uses the engine default.
	ClockSkewSeconds int `mapstructure:"clock_skew_seconds" validate:"gte=0,lte=600"`

	// Timezone is the IANA zone in which scheduled times of day are evaluated.
	Timezone string `mapstructure:"timezone" validate:"required"`

	// DailyReportTime is the HH:MM at which the bills digest is sent.
	DailyReportTime string `mapstructure:"daily_report_time" validate:"required,len=5"`
}

// TelegramConfig configures the outbound notification sink.
// When BotToken is empty, notifications are only logged.
type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	ChatID         int64  `mapstructure:"chat_id"`
	ResultsTopicID int    `mapstructure:"results_topic_id"`
	BillsTopicID   int    `mapstructure:"bills_topic_id"`
	APIBaseURL     string `mapstructure:"api_base_url" validate:"omitempty,url"`
}

// JobsConfig sizes the background report job pool.
type JobsConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
}
