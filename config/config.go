// Package config provides configuration management for slotbus.
package config

import (
	"fmt"
	"time"

	"github.com/goclaw/slotbus/pkg/logger"
	"github.com/goclaw/slotbus/pkg/metrics"
	"github.com/goclaw/slotbus/pkg/signal"
	"github.com/goclaw/slotbus/pkg/workerpool"
)

// Config is the global configuration for slotbus.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Dispatch is the signal dispatch and worker pool configuration.
	Dispatch DispatchConfig `mapstructure:"dispatch"`

	// Diagnostics configures where slot failures are reported.
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Tracing is the distributed tracing configuration.
	Tracing TracingConfig `mapstructure:"tracing"`

	// Admin is the read-only admin HTTP server configuration.
	Admin AdminConfig `mapstructure:"admin"`
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"env"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the output format (json, text).
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is the output destination (stdout, stderr, or file path).
	Output string `mapstructure:"output"`

	// Rotation applies when Output is a file path.
	Rotation LogRotationConfig `mapstructure:"rotation"`
}

// LogRotationConfig holds log file rotation settings.
type LogRotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" validate:"min=0"`
	MaxBackups int  `mapstructure:"max_backups" validate:"min=0"`
	MaxAgeDays int  `mapstructure:"max_age_days" validate:"min=0"`
	Compress   bool `mapstructure:"compress"`
}

// DispatchConfig holds the dispatch policy and worker pool settings.
type DispatchConfig struct {
	// AsyncEnabled allows void signals with several slots to be dispatched
	// on the worker pool.
	AsyncEnabled bool `mapstructure:"async_enabled"`

	// MinWorkers is the number of pool workers kept alive.
	MinWorkers int `mapstructure:"min_workers" validate:"min=0,ltefield=MaxWorkers"`

	// MaxWorkers bounds concurrently running pool workers.
	MaxWorkers int `mapstructure:"max_workers" validate:"min=1"`

	// IdleTimeout retires workers above MinWorkers after this long without work.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gt=0"`

	// QueueCapacity bounds queued slot invocations. Zero means unbounded.
	QueueCapacity int `mapstructure:"queue_capacity" validate:"min=0"`

	// DrainOnShutdown runs queued invocations during shutdown.
	DrainOnShutdown bool `mapstructure:"drain_on_shutdown"`

	// ShutdownTimeout bounds how long shutdown waits for the pool.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DiagnosticsConfig holds slot failure reporting settings.
type DiagnosticsConfig struct {
	// Sink selects the reporting backend (log, redis, both, none).
	Sink string `mapstructure:"sink" validate:"oneof=log redis both none"`

	// Rate is the number of failures logged per second. Zero disables limiting.
	Rate float64 `mapstructure:"rate" validate:"min=0"`

	// Burst is the number of failures logged before rate limiting starts.
	Burst int `mapstructure:"burst" validate:"min=0"`

	// StreamBuffer is the per-subscriber buffer of the websocket stream.
	StreamBuffer int `mapstructure:"stream_buffer" validate:"min=1"`

	// Redis is the Redis publisher configuration.
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	// Address is the Redis server address.
	Address string `mapstructure:"address"`

	// Password is the Redis password.
	Password string `mapstructure:"password"`

	// DB is the Redis database number.
	DB int `mapstructure:"db" validate:"min=0"`

	// Channel is the pub/sub channel reports are published on.
	Channel string `mapstructure:"channel"`

	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"gt=0"`
}

// MetricsConfig holds observability settings.
type MetricsConfig struct {
	// Enabled enables metrics collection.
	Enabled bool `mapstructure:"enabled"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path" validate:"startswith=/"`

	// Port is the metrics server port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// TracingConfig holds distributed tracing settings.
type TracingConfig struct {
	// Enabled enables distributed tracing.
	Enabled bool `mapstructure:"enabled"`

	// Exporter is the span exporter (otlpgrpc).
	Exporter string `mapstructure:"exporter" validate:"oneof=otlpgrpc"`

	// Endpoint is the collector endpoint.
	Endpoint string `mapstructure:"endpoint" validate:"required_if=Enabled true"`

	// Headers are sent with every export request.
	Headers map[string]string `mapstructure:"headers"`

	// Timeout bounds a single export.
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`

	// Sampler is the sampling strategy (always_on, always_off, parentbased_traceidratio).
	Sampler string `mapstructure:"sampler" validate:"oneof=always_on always_off parentbased_traceidratio"`

	// SampleRate is the fraction of traces to sample (0.0-1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

// AdminConfig holds the admin HTTP server settings.
type AdminConfig struct {
	// Enabled enables the admin server.
	Enabled bool `mapstructure:"enabled"`

	// Host is the bind address.
	Host string `mapstructure:"host" validate:"host"`

	// Port is the admin API port.
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RequestTimeout bounds request handling. Websocket streams are exempt.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// MaxStreamClients bounds concurrent diagnostics websocket clients.
	MaxStreamClients int `mapstructure:"max_stream_clients" validate:"min=1"`

	// CORS is the CORS configuration. AllowedOrigins also gates websocket
	// upgrades from other origins.
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	// Enabled enables CORS support.
	Enabled bool `mapstructure:"enabled"`

	// AllowedOrigins is the list of allowed origins.
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// AllowedMethods is the list of allowed HTTP methods.
	AllowedMethods []string `mapstructure:"allowed_methods"`

	// AllowedHeaders is the list of allowed headers.
	AllowedHeaders []string `mapstructure:"allowed_headers"`

	// MaxAge is the maximum age of CORS preflight cache in seconds.
	MaxAge int `mapstructure:"max_age" validate:"min=0"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, Env: %s, Async: %t, Workers: %d-%d, Diagnostics: %s}",
		c.App.Name, c.App.Environment, c.Dispatch.AsyncEnabled,
		c.Dispatch.MinWorkers, c.Dispatch.MaxWorkers, c.Diagnostics.Sink)
}

// LoggerConfig converts the log section into a logger configuration.
func (c *Config) LoggerConfig() *logger.Config {
	level := logger.ParseLevel(c.Log.Level)
	if c.App.Debug {
		level = logger.DebugLevel
	}
	return &logger.Config{
		Level:  level,
		Format: c.Log.Format,
		Output: c.Log.Output,
		Rotation: logger.Rotation{
			MaxSizeMB:  c.Log.Rotation.MaxSizeMB,
			MaxBackups: c.Log.Rotation.MaxBackups,
			MaxAgeDays: c.Log.Rotation.MaxAgeDays,
			Compress:   c.Log.Rotation.Compress,
		},
	}
}

// PoolConfig converts the dispatch section into a worker pool configuration.
func (c *Config) PoolConfig() workerpool.Config {
	return workerpool.Config{
		MinWorkers:      c.Dispatch.MinWorkers,
		MaxWorkers:      c.Dispatch.MaxWorkers,
		IdleTimeout:     c.Dispatch.IdleTimeout,
		QueueCapacity:   c.Dispatch.QueueCapacity,
		DrainOnShutdown: c.Dispatch.DrainOnShutdown,
	}
}

// DispatchOptions returns the registry options described by the dispatch
// section. Logger, metrics, diagnostics and tracer are wired by the caller.
func (c *Config) DispatchOptions() []signal.Option {
	return []signal.Option{
		signal.WithPoolConfig(c.PoolConfig()),
		signal.WithAsyncDispatch(c.Dispatch.AsyncEnabled),
	}
}

// MetricsManagerConfig converts the metrics section into a metrics manager
// configuration, keeping the default histogram buckets.
func (c *Config) MetricsManagerConfig() metrics.Config {
	cfg := metrics.DefaultConfig()
	cfg.Enabled = c.Metrics.Enabled
	cfg.Port = c.Metrics.Port
	cfg.Path = c.Metrics.Path
	return cfg
}
