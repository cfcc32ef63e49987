package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/slotbus/config"
	"github.com/goclaw/slotbus/pkg/api"
	"github.com/goclaw/slotbus/pkg/api/handlers"
	"github.com/goclaw/slotbus/pkg/diagnostics"
	"github.com/goclaw/slotbus/pkg/logger"
	"github.com/goclaw/slotbus/pkg/metrics"
	"github.com/goclaw/slotbus/pkg/signal"
	"github.com/goclaw/slotbus/pkg/telemetry/tracing"
	"github.com/goclaw/slotbus/pkg/version"
)

// signalConfigReloaded is emitted with the new HotReloadableConfig whenever
// the watched config file changes.
const signalConfigReloaded = "slotbus.config.reloaded"

// app owns the default registry and everything hosted around it.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	metrics  *metrics.Manager
	registry *signal.Registry
	stream   *diagnostics.ChannelSink
	redis    *redis.Client
	redisOut *diagnostics.RedisSink
	ws       *handlers.WebSocketHandler
	server   *api.HTTPServer

	shutdownTracing tracing.ShutdownFunc

	mu  sync.Mutex
	hot config.HotReloadableConfig
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewManager(cfg.MetricsManagerConfig()),
		hot:     config.ExtractHotReloadable(cfg),
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.App.Name, version.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.shutdownTracing = shutdownTracing

	a.stream = diagnostics.NewChannelSink(a.metrics)
	sink, err := a.buildDiagnosticsSink()
	if err != nil {
		a.closeDependencies(ctx)
		return nil, err
	}

	opts := append(cfg.DispatchOptions(),
		signal.WithLogger(logger.Named(log, "signal")),
		signal.WithMetrics(a.metrics),
		signal.WithDiagnostics(diagnostics.Multi(sink, a.stream)),
	)
	a.registry, err = signal.Init(opts...)
	if err != nil {
		a.closeDependencies(ctx)
		return nil, fmt.Errorf("failed to initialize signal registry: %w", err)
	}

	if err := a.registerReloadSignal(); err != nil {
		_ = signal.Shutdown(ctx)
		a.closeDependencies(ctx)
		return nil, err
	}

	health := handlers.NewHealthHandler(a.registry)
	if a.redis != nil {
		health.AddCheck("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	a.ws = handlers.NewWebSocketHandler(log, handlers.WebSocketConfig{
		AllowedOrigins: cfg.Admin.CORS.AllowedOrigins,
		MaxConnections: cfg.Admin.MaxStreamClients,
		StreamBuffer:   cfg.Diagnostics.StreamBuffer,
	})
	a.server = api.NewHTTPServer(cfg.Admin, log, &api.Handlers{
		Health:      health,
		Registry:    handlers.NewRegistryHandler(a.registry),
		WebSocket:   a.ws,
		Metrics:     a.metrics,
		MetricsPath: cfg.Metrics.Path,
	})

	return a, nil
}

// buildDiagnosticsSink creates the configured failure sink. The websocket
// stream is attached separately and always receives reports.
func (a *app) buildDiagnosticsSink() (diagnostics.Sink, error) {
	dc := a.cfg.Diagnostics
	logSink := func() diagnostics.Sink {
		return diagnostics.NewLogSink(logger.Named(a.log, "diagnostics"), dc.Rate, dc.Burst,
			diagnostics.WithLogDropRecorder(a.metrics))
	}
	redisSink := func() (diagnostics.Sink, error) {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     dc.Redis.Address,
			Password: dc.Redis.Password,
			DB:       dc.Redis.DB,
		})
		sink, err := diagnostics.NewRedisSink(a.redis, dc.Redis.Channel,
			diagnostics.WithRedisLogger(logger.Named(a.log, "diagnostics.redis")),
			diagnostics.WithRedisDropRecorder(a.metrics),
			diagnostics.WithPublishTimeout(dc.Redis.PublishTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis diagnostics sink: %w", err)
		}
		a.redisOut = sink
		return sink, nil
	}

	switch dc.Sink {
	case "none":
		return diagnostics.Discard, nil
	case "redis":
		return redisSink()
	case "both":
		rs, err := redisSink()
		if err != nil {
			return nil, err
		}
		return diagnostics.Multi(logSink(), rs), nil
	default:
		return logSink(), nil
	}
}

// registerReloadSignal declares the reload signal and connects the slot
// applying hot-reloadable settings.
func (a *app) registerReloadSignal() error {
	params := signal.Params(signal.TypeOf[config.HotReloadableConfig]())
	if _, err := a.registry.RegisterSignal(signalConfigReloaded, params, signal.Void); err != nil {
		return fmt.Errorf("failed to register %s: %w", signalConfigReloaded, err)
	}

	// One slot keeps dispatch synchronous, so each reload is applied as a
	// unit and in the order the watcher reports them.
	apply := signal.Func(func(_ context.Context, args []any) (any, error) {
		hot := args[0].(config.HotReloadableConfig)
		a.log.SetLevel(hot.Level())
		a.registry.SetAsyncDispatch(hot.AsyncEnabled)
		return nil, nil
	})
	if _, err := a.registry.RegisterSlot(apply, signalConfigReloaded, params, signal.Void, signal.WithSerialized()); err != nil {
		return fmt.Errorf("failed to connect reload slot: %w", err)
	}
	return nil
}

// onConfigChange emits the reload signal when a hot-reloadable setting
// changed. Other settings need a restart.
func (a *app) onConfigChange(cfg *config.Config) {
	next := config.ExtractHotReloadable(cfg)

	a.mu.Lock()
	changed := a.hot.Changed(next)
	a.hot = next
	a.mu.Unlock()

	if !changed {
		a.log.Info("Config changed without hot-reloadable differences; restart to apply")
		return
	}
	if _, err := a.registry.Invoke(context.Background(), signalConfigReloaded, next); err != nil {
		a.log.Error("Failed to apply reloaded config", "error", err)
		return
	}
	a.log.Info("Applied reloaded config",
		"log_level", next.Level().String(),
		"async_enabled", next.AsyncEnabled,
	)
}

// run serves until ctx is done or a server fails, then shuts everything down.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.ws.Stream(ctx, a.stream)

	errCh := make(chan error, 2)
	if a.metrics.Enabled() {
		go func() {
			a.log.Info("Starting metrics server", "port", a.cfg.Metrics.Port, "path", a.cfg.Metrics.Path)
			if err := a.metrics.StartServer(ctx, a.cfg.Metrics.Port, a.cfg.Metrics.Path); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}
	if a.cfg.Admin.Enabled {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("admin server: %w", err)
			}
		}()
	}

	a.log.Info("slotbus is running",
		"admin_enabled", a.cfg.Admin.Enabled,
		"admin_port", a.cfg.Admin.Port,
		"metrics_port", a.cfg.Metrics.Port,
		"async_enabled", a.registry.AsyncDispatch(),
	)

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("Received shutdown signal")
	case runErr = <-errCh:
		a.log.Error("Server error", "error", runErr)
	}
	cancel()

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops the admin server first, then drains the registry, then
// releases the diagnostics and tracing backends.
func (a *app) shutdown() error {
	var errs []error

	adminCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Admin.ShutdownTimeout)
	defer cancel()
	if a.cfg.Admin.Enabled {
		if err := a.server.Shutdown(adminCtx); err != nil {
			errs = append(errs, err)
		}
	} else {
		a.ws.Close()
	}

	dispatchCtx, cancelDispatch := context.WithTimeout(context.Background(), a.cfg.Dispatch.ShutdownTimeout)
	defer cancelDispatch()
	a.log.Info("Stopping signal registry")
	if err := signal.Shutdown(dispatchCtx); err != nil {
		errs = append(errs, fmt.Errorf("signal registry: %w", err))
	}

	a.closeDependencies(dispatchCtx)
	return errors.Join(errs...)
}

func (a *app) closeDependencies(ctx context.Context) {
	a.stream.Close()
	if a.redisOut != nil {
		if err := a.redisOut.Close(ctx); err != nil {
			a.log.Warn("Error flushing redis diagnostics", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Error closing redis client", "error", err)
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Warn("Error shutting down tracing", "error", err)
		}
	}
}
