// Package config provides environment-driven configuration for archiplaned,
// with an optional YAML overlay file for knobs operators want to tune
// without touching the environment. It follows the same shape as most of
// the control plane's own config: struct-tag validation, per-section
// loaders, environment-specific defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ============================================================================
// MAIN CONFIGURATION STRUCTURE
// ============================================================================

// Config represents the complete process configuration.
type Config struct {
	Environment Environment `yaml:"environment" json:"environment" validate:"required,oneof=development staging production"`
	Server      Server      `yaml:"server" json:"server" validate:"required,dive"`
	Apply       Apply       `yaml:"apply" json:"apply" validate:"required,dive"`
	Queue       Queue       `yaml:"queue" json:"queue" validate:"required,dive"`
	Layout      Layout      `yaml:"layout" json:"layout" validate:"required,dive"`
	Render      Render      `yaml:"render" json:"render" validate:"dive"`
	RateLimit   RateLimit   `yaml:"rate_limit" json:"rate_limit" validate:"dive"`
	CORS        CORS        `yaml:"cors" json:"cors" validate:"dive"`
	Logging     Logging     `yaml:"logging" json:"logging" validate:"dive"`
	Metrics     Metrics     `yaml:"metrics" json:"metrics" validate:"dive"`
	Tracing     Tracing     `yaml:"tracing" json:"tracing" validate:"dive"`
	Breaker     Breaker     `yaml:"breaker" json:"breaker" validate:"dive"`

	// Metadata
	Version    string   `yaml:"version" json:"version"`
	LoadedFrom []string `yaml:"-" json:"-"`

	// ConfigFilePath is the optional YAML overlay, hot-reloaded when set
	// and running in development.
	ConfigFilePath string `yaml:"-" json:"config_file_path"`
}

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ============================================================================
// SERVER
// ============================================================================

// Server contains HTTP server configuration.
type Server struct {
	BindAddress     string        `yaml:"bind_address" json:"bind_address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout" validate:"required,min=1s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout" validate:"required,min=1s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" json:"idle_timeout" validate:"required,min=1s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"required,min=1s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" json:"max_body_bytes" validate:"required,min=1024"`
	RequestTimeout  time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"required,min=1s"`
}

// ============================================================================
// APPLY ENGINE
// ============================================================================

// Apply contains Apply Engine defaults, overridable per-submission by the
// BOM's own `options` block.
type Apply struct {
	DefaultChunkSize       int  `yaml:"default_chunk_size" json:"default_chunk_size" validate:"min=1,max=50"`
	FastChunkSize          int  `yaml:"fast_chunk_size" json:"fast_chunk_size" validate:"min=1,max=50"`
	DefaultContinueOnError bool `yaml:"default_continue_on_error" json:"default_continue_on_error"`
	DefaultResolveNames    bool `yaml:"default_resolve_names" json:"default_resolve_names"`
	MaxChangesPerBOM       int  `yaml:"max_changes_per_bom" json:"max_changes_per_bom" validate:"min=1"`
}

// ============================================================================
// OPERATION QUEUE
// ============================================================================

// Queue contains Operation Queue retention and worker settings.
type Queue struct {
	OperationTTL    time.Duration `yaml:"operation_ttl" json:"operation_ttl" validate:"min=1s"`
	GCInterval      time.Duration `yaml:"gc_interval" json:"gc_interval" validate:"min=1s"`
	MaxWorkers      int           `yaml:"max_workers" json:"max_workers" validate:"min=1,max=64"`
	OutcomePageSize int           `yaml:"outcome_page_size" json:"outcome_page_size" validate:"min=1,max=1000"`
}

// ============================================================================
// LAYOUT
// ============================================================================

// Layout contains default layout engine parameters.
type Layout struct {
	Padding          float64 `yaml:"padding" json:"padding" validate:"min=0"`
	DefaultNodeSep   float64 `yaml:"default_node_sep" json:"default_node_sep" validate:"min=0"`
	DefaultRankSep   float64 `yaml:"default_rank_sep" json:"default_rank_sep" validate:"min=0"`
	DefaultDirection string  `yaml:"default_direction" json:"default_direction" validate:"oneof=TB BT LR RL"`
}

// ============================================================================
// RENDER / EXPORT
// ============================================================================

// Render contains raster export limits.
type Render struct {
	MaxWidth  int `yaml:"max_width" json:"max_width" validate:"min=1"`
	MaxHeight int `yaml:"max_height" json:"max_height" validate:"min=1"`
}

// ============================================================================
// RATE LIMITING
// ============================================================================

// RateLimit contains submission-rate throttle configuration.
type RateLimit struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute" json:"requests_per_minute" validate:"min=1"`
	Burst             int  `yaml:"burst" json:"burst" validate:"min=1"`
}

// ============================================================================
// CORS
// ============================================================================

// CORS contains CORS middleware configuration.
type CORS struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" json:"max_age"`
}

// ============================================================================
// LOGGING
// ============================================================================

// Logging contains structured logging configuration.
type Logging struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" json:"format" validate:"oneof=json console"`
}

// ============================================================================
// METRICS
// ============================================================================

// Metrics contains Prometheus exposition configuration.
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Path      string `yaml:"path" json:"path" validate:"omitempty,startswith=/"`
}

// ============================================================================
// TRACING
// ============================================================================

// Tracing contains OpenTelemetry configuration.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate" validate:"min=0,max=1"`
}

// ============================================================================
// CIRCUIT BREAKER
// ============================================================================

// Breaker contains the model-actor dispatch circuit breaker configuration.
type Breaker struct {
	MaxRequests uint32        `yaml:"max_requests" json:"max_requests" validate:"min=1"`
	Interval    time.Duration `yaml:"interval" json:"interval"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout" validate:"min=1s"`
	FailureRate float64       `yaml:"failure_rate" json:"failure_rate" validate:"min=0,max=1"`
}

// ============================================================================
// LOADING
// ============================================================================

// Load reads configuration from the environment, applying the documented
// defaults for every field spec.md leaves to server policy, then overlays
// an optional YAML file if ARCHIPLANE_CONFIG_FILE is set.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvironment(),
		Server:      loadServerConfig(),
		Apply:       loadApplyConfig(),
		Queue:       loadQueueConfig(),
		Layout:      loadLayoutConfig(),
		Render:      loadRenderConfig(),
		RateLimit:   loadRateLimitConfig(),
		CORS:        loadCORSConfig(),
		Logging:     loadLoggingConfig(),
		Metrics:     loadMetricsConfig(),
		Tracing:     loadTracingConfig(),
		Breaker:     loadBreakerConfig(),
		Version:     "1.0.0",
		LoadedFrom:  []string{"defaults", "environment"},
	}

	cfg.ConfigFilePath = getEnvString("ARCHIPLANE_CONFIG_FILE", "")
	if cfg.ConfigFilePath != "" {
		if err := mergeYAMLFile(cfg.ConfigFilePath, cfg); err != nil {
			return nil, fmt.Errorf("loading config overlay %s: %w", cfg.ConfigFilePath, err)
		}
		cfg.LoadedFrom = append(cfg.LoadedFrom, cfg.ConfigFilePath)
	}

	cfg.applyEnvironmentDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration using struct tags and business rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, e := range verrs {
				msgs = append(msgs, formatValidationError(e))
			}
			return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return c.validateBusinessRules()
}

func (c *Config) validateBusinessRules() error {
	if c.Apply.FastChunkSize < c.Apply.DefaultChunkSize {
		return fmt.Errorf("apply.fast_chunk_size must be >= apply.default_chunk_size")
	}
	if c.Queue.GCInterval > c.Queue.OperationTTL {
		return fmt.Errorf("queue.gc_interval must not exceed queue.operation_ttl")
	}
	return nil
}

func (c *Config) applyEnvironmentDefaults() {
	switch c.Environment {
	case Production:
		c.Logging.Level = "info"
		c.Metrics.Enabled = true
	case Development:
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func formatValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()
	param := e.Param()
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// ============================================================================
// PER-SECTION LOADERS
// ============================================================================

func getEnvironment() Environment {
	env := getEnvString("ARCHIPLANE_ENV", "development")
	switch strings.ToLower(env) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

func loadServerConfig() Server {
	return Server{
		BindAddress:     getEnvString("ARCHIPLANE_BIND_ADDRESS", "127.0.0.1:8765"),
		ReadTimeout:     getEnvDuration("ARCHIPLANE_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:    getEnvDuration("ARCHIPLANE_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     getEnvDuration("ARCHIPLANE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("ARCHIPLANE_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxBodyBytes:    getEnvInt64("ARCHIPLANE_MAX_BODY_BYTES", 1<<20),
		RequestTimeout:  getEnvDuration("ARCHIPLANE_REQUEST_TIMEOUT", 30*time.Second),
	}
}

func loadApplyConfig() Apply {
	return Apply{
		DefaultChunkSize:       getEnvInt("ARCHIPLANE_CHUNK_SIZE", 1),
		FastChunkSize:          getEnvInt("ARCHIPLANE_FAST_CHUNK_SIZE", 20),
		DefaultContinueOnError: getEnvBool("ARCHIPLANE_CONTINUE_ON_ERROR", false),
		DefaultResolveNames:    getEnvBool("ARCHIPLANE_RESOLVE_NAMES", false),
		MaxChangesPerBOM:       getEnvInt("ARCHIPLANE_MAX_CHANGES_PER_BOM", 5000),
	}
}

func loadQueueConfig() Queue {
	return Queue{
		OperationTTL:    getEnvDuration("ARCHIPLANE_OPERATION_TTL", 10*time.Minute),
		GCInterval:      getEnvDuration("ARCHIPLANE_GC_INTERVAL", 1*time.Minute),
		MaxWorkers:      getEnvInt("ARCHIPLANE_QUEUE_WORKERS", 4),
		OutcomePageSize: getEnvInt("ARCHIPLANE_OUTCOME_PAGE_SIZE", 100),
	}
}

func loadLayoutConfig() Layout {
	return Layout{
		Padding:          getEnvFloat("ARCHIPLANE_LAYOUT_PADDING", 20.0),
		DefaultNodeSep:   getEnvFloat("ARCHIPLANE_LAYOUT_NODE_SEP", 50.0),
		DefaultRankSep:   getEnvFloat("ARCHIPLANE_LAYOUT_RANK_SEP", 75.0),
		DefaultDirection: getEnvString("ARCHIPLANE_LAYOUT_DIRECTION", "TB"),
	}
}

func loadRenderConfig() Render {
	return Render{
		MaxWidth:  getEnvInt("ARCHIPLANE_RENDER_MAX_WIDTH", 8192),
		MaxHeight: getEnvInt("ARCHIPLANE_RENDER_MAX_HEIGHT", 8192),
	}
}

func loadRateLimitConfig() RateLimit {
	return RateLimit{
		Enabled:           getEnvBool("ARCHIPLANE_RATE_LIMIT_ENABLED", true),
		RequestsPerMinute: getEnvInt("ARCHIPLANE_RATE_LIMIT_RPM", 200),
		Burst:             getEnvInt("ARCHIPLANE_RATE_LIMIT_BURST", 20),
	}
}

func loadCORSConfig() CORS {
	return CORS{
		Enabled:          getEnvBool("ARCHIPLANE_CORS_ENABLED", true),
		AllowedOrigins:   getEnvStringSlice("ARCHIPLANE_CORS_ALLOWED_ORIGINS", []string{"*"}),
		AllowedMethods:   getEnvStringSlice("ARCHIPLANE_CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders:   getEnvStringSlice("ARCHIPLANE_CORS_ALLOWED_HEADERS", []string{"*"}),
		AllowCredentials: getEnvBool("ARCHIPLANE_CORS_ALLOW_CREDENTIALS", false),
		MaxAge:           getEnvInt("ARCHIPLANE_CORS_MAX_AGE", 300),
	}
}

func loadLoggingConfig() Logging {
	return Logging{
		Level:  getEnvString("ARCHIPLANE_LOG_LEVEL", ""),
		Format: getEnvString("ARCHIPLANE_LOG_FORMAT", "json"),
	}
}

func loadMetricsConfig() Metrics {
	return Metrics{
		Enabled:   getEnvBool("ARCHIPLANE_METRICS_ENABLED", true),
		Namespace: getEnvString("ARCHIPLANE_METRICS_NAMESPACE", "archiplane"),
		Path:      getEnvString("ARCHIPLANE_METRICS_PATH", "/metrics"),
	}
}

func loadTracingConfig() Tracing {
	return Tracing{
		Enabled:     getEnvBool("ARCHIPLANE_TRACING_ENABLED", false),
		ServiceName: getEnvString("ARCHIPLANE_TRACING_SERVICE_NAME", "archiplaned"),
		Endpoint:    getEnvString("ARCHIPLANE_TRACING_ENDPOINT", ""),
		SampleRate:  getEnvFloat("ARCHIPLANE_TRACING_SAMPLE_RATE", 0.1),
	}
}

func loadBreakerConfig() Breaker {
	return Breaker{
		MaxRequests: uint32(getEnvInt("ARCHIPLANE_BREAKER_MAX_REQUESTS", 5)),
		Interval:    getEnvDuration("ARCHIPLANE_BREAKER_INTERVAL", 30*time.Second),
		Timeout:     getEnvDuration("ARCHIPLANE_BREAKER_TIMEOUT", 15*time.Second),
		FailureRate: getEnvFloat("ARCHIPLANE_BREAKER_FAILURE_RATE", 0.5),
	}
}

// ============================================================================
// ENV HELPERS
// ============================================================================

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvStringSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}
