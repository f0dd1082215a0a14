package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
const EnvPrefix = "NAMEGEN"

// keys without defaults still need to be bound so that Unmarshal sees them
var boundEnvKeys = []string{
	"database.url",
	"redis.addr",
	"redis.password",
	"llm.gemini_api_key",
	"llm.prompt_template_path",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("store.driver", StoreDriverPostgres)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "namegen")

	v.SetDefault("llm.provider", LLMProviderGemini)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("dispatch.worker_count", 2)
	v.SetDefault("dispatch.queue_size", 100)
	v.SetDefault("dispatch.engine_timeout_seconds", 60)
	v.SetDefault("dispatch.stale_after_minutes", 30)
	v.SetDefault("dispatch.stale_check_interval_minutes", 5)

	v.SetDefault("task.slug_attempts", 3)
	v.SetDefault("task.list_default_limit", 20)
	v.SetDefault("task.list_max_limit", 100)
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// An empty configFile skips file loading entirely.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnvKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.validateDriverSettings(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validateDriverSettings checks settings that depend on the selected store driver.
func (c *Config) validateDriverSettings() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres store driver")
		}
	case StoreDriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis store driver")
		}
	}

	if c.Dispatch.StaleAfter() <= c.Dispatch.EngineTimeout() {
		return errors.New("dispatch.stale_after_minutes must exceed the engine timeout")
	}
	return nil
}
