package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Auth         AuthConfig         `mapstructure:"auth" validate:"required"`
	Queue        QueueConfig        `mapstructure:"queue" validate:"required"`
	Cache        CacheConfig        `mapstructure:"cache" validate:"required"`
	Monitor      MonitorConfig      `mapstructure:"monitor" validate:"required"`
	Enrich       EnrichConfig       `mapstructure:"enrich" validate:"required"`
	LLM          LLMConfig          `mapstructure:"llm"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"`
}

// QueueConfig controls the bounded priority executor.
type QueueConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"required,gt=0,lte=1024"`
	MaxRetries    int `mapstructure:"max_retries" validate:"gte=0,lte=20"`
}

// CacheConfig controls the semantic result cache.
type CacheConfig struct {
	MaxSize          int           `mapstructure:"max_size" validate:"required,gt=0"`
	TTL              time.Duration `mapstructure:"ttl" validate:"required,gt=0"`
	AcceptThreshold  float64       `mapstructure:"accept_threshold" validate:"gte=0,lte=1"`
	ConsumeThreshold float64       `mapstructure:"consume_threshold" validate:"gte=0,lte=1,gtefield=AcceptThreshold"`
}

// MonitorConfig controls metric retention and report thresholds.
type MonitorConfig struct {
	MaxMetrics              int           `mapstructure:"max_metrics" validate:"required,gt=0"`
	Retention               time.Duration `mapstructure:"retention" validate:"required,gt=0"`
	Window                  time.Duration `mapstructure:"window" validate:"required,gt=0"`
	SweepInterval           time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
	ResponseTimeThresholdMs float64       `mapstructure:"response_time_threshold_ms" validate:"gt=0"`
	ErrorRateThreshold      float64       `mapstructure:"error_rate_threshold" validate:"gte=0,lte=1"`
	CacheHitRateThreshold   float64       `mapstructure:"cache_hit_rate_threshold" validate:"gte=0,lte=1"`
	ExportInterval          time.Duration `mapstructure:"export_interval" validate:"required,gt=0"`
}

// EnrichConfig controls how task context is resolved from collaborators.
type EnrichConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"required,gt=0"`
	HistorySize   int           `mapstructure:"history_size" validate:"required,gt=0"`
	LookupTimeout time.Duration `mapstructure:"lookup_timeout" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
// GeminiAPIKey is optional; without it only local catalog providers are registered.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// CatalogConfig points at the YAML model catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// OrchestratorConfig holds facade-level switches.
type OrchestratorConfig struct {
	// DisableDeadline stops MaxLatencyMs from being applied as a context deadline.
	DisableDeadline bool `mapstructure:"disable_deadline"`
}
