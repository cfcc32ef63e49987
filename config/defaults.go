package config

import (
	"time"

	"github.com/goclaw/slotbus/pkg/diagnostics"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "slotbus",
			Version:     "dev",
			Environment: "development",
			Debug:       false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			Rotation: LogRotationConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 28,
				Compress:   false,
			},
		},
		Dispatch: DispatchConfig{
			AsyncEnabled:    true,
			MinWorkers:      5,
			MaxWorkers:      10,
			IdleTimeout:     500 * time.Millisecond,
			QueueCapacity:   0,
			DrainOnShutdown: true,
			ShutdownTimeout: 10 * time.Second,
		},
		Diagnostics: DiagnosticsConfig{
			Sink:         "log",
			Rate:         diagnostics.DefaultLogRate,
			Burst:        diagnostics.DefaultLogBurst,
			StreamBuffer: 64,
			Redis: RedisConfig{
				Address:        "localhost:6379",
				Password:       "",
				DB:             0,
				Channel:        diagnostics.DefaultRedisChannel,
				PublishTimeout: 2 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9091,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "otlpgrpc",
			Endpoint:   "localhost:4317",
			Timeout:    5 * time.Second,
			Sampler:    "parentbased_traceidratio",
			SampleRate: 0.1,
		},
		Admin: AdminConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  15 * time.Second,

			MaxStreamClients: 100,

			CORS: CORSConfig{
				Enabled:        false,
				AllowedOrigins: []string{},
				AllowedMethods: []string{"GET", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
				MaxAge:         300,
			},
		},
	}
}
