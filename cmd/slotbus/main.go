package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goclaw/slotbus/config"
	"github.com/goclaw/slotbus/pkg/logger"
	"github.com/goclaw/slotbus/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version information")
	helpFlag    = flag.Bool("help", false, "Print help information")
	watchFlag   = flag.Bool("watch", true, "Reload hot-reloadable settings when the config file changes")

	// CLI overrides
	appName   = flag.String("app-name", "", "Override app name")
	adminPort = flag.Int("port", 0, "Override admin server port")
	logLevel  = flag.String("log-level", "", "Override log level")
	debugMode = flag.Bool("debug", false, "Enable debug mode")
)

func main() {
	flag.Parse()

	if *helpFlag {
		printHelp()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Println(version.Get().String())
		os.Exit(0)
	}

	overrides := buildOverrides()

	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration:\n%s\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LoggerConfig())
	logger.SetGlobal(log)
	defer func() { _ = log.Close() }()

	build := version.Get()
	log.Info("Starting slotbus",
		"version", build.Version,
		"buildTime", build.BuildTime,
		"gitCommit", build.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize slotbus", "error", err)
		os.Exit(1)
	}

	if *watchFlag && *configPath != "" {
		watcher, err := config.NewWatcher(*configPath, config.NewLoader(),
			config.WithOverrides(overrides),
			config.WithWatcherLogger(logger.Named(log, "config")),
		)
		if err != nil {
			log.Warn("Config watching disabled", "error", err)
		} else {
			watcher.OnChange(a.onConfigChange)
			go func() {
				if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
					log.Warn("Config watcher stopped", "error", err)
				}
			}()
			defer func() { _ = watcher.Stop() }()
		}
	}

	log.Info("Press Ctrl+C to stop")
	if err := a.run(ctx); err != nil {
		log.Error("slotbus stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("slotbus stopped gracefully")
}

func buildOverrides() map[string]interface{} {
	overrides := make(map[string]interface{})

	if *appName != "" {
		overrides["app.name"] = *appName
	}
	if *adminPort != 0 {
		overrides["admin.port"] = *adminPort
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}
	if *debugMode {
		overrides["app.debug"] = true
	}

	return overrides
}

func printHelp() {
	fmt.Printf("slotbus - in-process signal/slot dispatch with a read-only admin API\n\n")
	fmt.Printf("Usage: slotbus [options]\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
	fmt.Printf("\nExamples:\n")
	fmt.Printf("  slotbus                                   # Run with default config\n")
	fmt.Printf("  slotbus -config slotbus.yaml              # Use specific config file\n")
	fmt.Printf("  slotbus -port 9090 -log-level debug       # Override specific options\n")
	fmt.Printf("  slotbus -version                          # Print version info\n")
}
