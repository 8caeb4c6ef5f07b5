package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "AIORCH"

// keys lists every configuration key so each one can be bound to its environment variable.
// Viper's AutomaticEnv only resolves keys it already knows about, which is why
// Unmarshal would otherwise miss values that exist only in the environment.
var keys = []string{
	"server.port",
	"server.log_level",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"queue.max_concurrent",
	"queue.max_retries",
	"cache.max_size",
	"cache.ttl",
	"cache.accept_threshold",
	"cache.consume_threshold",
	"monitor.max_metrics",
	"monitor.retention",
	"monitor.window",
	"monitor.sweep_interval",
	"monitor.response_time_threshold_ms",
	"monitor.error_rate_threshold",
	"monitor.cache_hit_rate_threshold",
	"monitor.export_interval",
	"enrich.cache_ttl",
	"enrich.history_size",
	"enrich.lookup_timeout",
	"llm.gemini_api_key",
	"llm.model_name",
	"catalog.path",
	"orchestrator.disable_deadline",
}

// setDefaults registers the default value of every setting that has one.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("queue.max_concurrent", 5)
	v.SetDefault("queue.max_retries", 3)

	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.accept_threshold", 0.9)
	v.SetDefault("cache.consume_threshold", 0.95)

	v.SetDefault("monitor.max_metrics", 10000)
	v.SetDefault("monitor.retention", "24h")
	v.SetDefault("monitor.window", "1h")
	v.SetDefault("monitor.sweep_interval", "1h")
	v.SetDefault("monitor.response_time_threshold_ms", 5000)
	v.SetDefault("monitor.error_rate_threshold", 0.1)
	v.SetDefault("monitor.cache_hit_rate_threshold", 0.3)
	v.SetDefault("monitor.export_interval", "1m")

	v.SetDefault("enrich.cache_ttl", "5m")
	v.SetDefault("enrich.history_size", 10)
	v.SetDefault("enrich.lookup_timeout", "500ms")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
}

// Load configuration from environment variables and the config.yaml file in the
// working directory, if one exists.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given YAML file instead of searching the
// working directory. A missing explicit file is an error; a missing implicit one is not.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range keys {
		envVar := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", envVar, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
