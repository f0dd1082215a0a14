package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Store    StoreConfig    `mapstructure:"store"    validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Dispatch DispatchConfig `mapstructure:"dispatch" validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// ShutdownTimeout returns the graceful shutdown budget as a duration.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Supported task store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverRedis    = "redis"
	StoreDriverMemory   = "memory"
)

// StoreConfig selects the backing store for tasks.
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres redis memory"`
}

// DatabaseConfig contains all database-related configuration settings.
// Only consulted when the store driver is postgres.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                       validate:"omitempty,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"            validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"            validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// RedisConfig contains the Redis connection settings used by the redis store driver.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// Supported generation providers.
const (
	LLMProviderGemini = "gemini"
	LLMProviderStatic = "static"
)

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	Provider     string `mapstructure:"provider"       validate:"required,oneof=gemini static"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	// PromptTemplatePath overrides the embedded prompt template when set.
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
	MaxRetries         int    `mapstructure:"max_retries"          validate:"gte=0,lte=10"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds"  validate:"gte=1"`
}

// DispatchConfig controls the background generation dispatcher.
type DispatchConfig struct {
	WorkerCount               int `mapstructure:"worker_count"                 validate:"gte=1"`
	QueueSize                 int `mapstructure:"queue_size"                   validate:"gte=1"`
	EngineTimeoutSeconds      int `mapstructure:"engine_timeout_seconds"       validate:"gte=1"`
	StaleAfterMinutes         int `mapstructure:"stale_after_minutes"          validate:"gte=1"`
	StaleCheckIntervalMinutes int `mapstructure:"stale_check_interval_minutes" validate:"gte=1"`
}

// EngineTimeout returns the bounded wait applied to each generation call.
func (c DispatchConfig) EngineTimeout() time.Duration {
	return time.Duration(c.EngineTimeoutSeconds) * time.Second
}

// StaleAfter returns the age after which an unattended pending task is failed.
func (c DispatchConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}

// StaleCheckInterval returns how often pending tasks are swept.
func (c DispatchConfig) StaleCheckInterval() time.Duration {
	return time.Duration(c.StaleCheckIntervalMinutes) * time.Minute
}

// TaskConfig holds task service tunables.
type TaskConfig struct {
	SlugAttempts     int `mapstructure:"slug_attempts"      validate:"gte=1,lte=10"`
	ListDefaultLimit int `mapstructure:"list_default_limit" validate:"gte=1"`
	ListMaxLimit     int `mapstructure:"list_max_limit"     validate:"gtefield=ListDefaultLimit"`
}
