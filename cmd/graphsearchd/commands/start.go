package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/graphsearch/graphsearchd/internal/logger"
	"github.com/graphsearch/graphsearchd/internal/telemetry"
	"github.com/graphsearch/graphsearchd/pkg/api"
	"github.com/graphsearch/graphsearchd/pkg/api/auth"
	"github.com/graphsearch/graphsearchd/pkg/config"
	"github.com/graphsearch/graphsearchd/pkg/index"
	"github.com/graphsearch/graphsearchd/pkg/metrics"
	prommetrics "github.com/graphsearch/graphsearchd/pkg/metrics/prometheus"
	"github.com/graphsearch/graphsearchd/pkg/service/health"
	"github.com/graphsearch/graphsearchd/pkg/service/lifecycle"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the graphsearchd server",
	Long: `Start the graphsearchd server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/graphsearchd/config.yaml.

Examples:
  # Start in background (default)
  graphsearchd start

  # Start in foreground
  graphsearchd start --foreground

  # Start with custom config file
  graphsearchd start --config /etc/graphsearchd/config.yaml

  # Start with environment variable overrides
  GRAPHSEARCHD_LOGGING_LEVEL=DEBUG graphsearchd start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/graphsearchd/graphsearchd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/graphsearchd/graphsearchd.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	// Handle daemon mode (background)
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "graphsearchd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	// Initialize Pyroscope profiling (if enabled)
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "graphsearchd",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	// Initialize metrics registry (if enabled)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	// Build the subsystem services and their registry
	registry, subs, err := config.InitializeServices(cfg)
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	// Start all subsystems; a single failure aborts startup
	orchestrator := lifecycle.NewOrchestrator(registry)
	if err := orchestrator.Startup(ctx); err != nil {
		// Best-effort cleanup of whatever did initialize before the failure
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cleanupCancel()
		if cleanupErr := orchestrator.Shutdown(cleanupCtx); cleanupErr != nil {
			logger.Error("Cleanup after failed startup reported errors", "error", cleanupErr)
		}
		return fmt.Errorf("startup failed: %w", err)
	}
	logger.Info("All services started", "count", registry.Len())

	aggregator := health.NewAggregator(registry, health.DefaultTimeout)
	rebuilds := index.NewRebuildManager(subs.FuzzyMatch, subs.GraphIndex, subs.QueryOpt)

	// Optional JWT authentication for mutating routes
	var jwtService *auth.JWTService
	if cfg.API.Auth.JWTSecret != "" {
		jwtService, err = auth.NewJWTService(auth.JWTConfig{
			Secret: cfg.API.Auth.JWTSecret,
			Issuer: cfg.API.Auth.Issuer,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize JWT auth: %w", err)
		}
		logger.Info("API authentication enabled", "issuer", cfg.API.Auth.Issuer)
	}

	apiServer := api.NewServer(cfg.API, api.Deps{
		Version:      Version,
		Orchestrator: orchestrator,
		Health:       aggregator,
		FuzzyMatch:   subs.FuzzyMatch,
		GraphIndex:   subs.GraphIndex,
		QueryOpt:     subs.QueryOpt,
		Rebuilds:     rebuilds,
		JWT:          jwtService,

		HTTPMetrics:     prommetrics.NewHTTPMetrics(),
		SearchMetrics:   prommetrics.NewSearchMetrics(),
		GraphMetrics:    prommetrics.NewGraphMetrics(),
		QueryOptMetrics: prommetrics.NewQueryOptMetrics(),
	})
	logger.Info("API server configured", "port", apiServer.Port())

	serverDone := make(chan error, 2)
	serverCtx, stopServers := context.WithCancel(ctx)
	defer stopServers()

	go func() {
		serverDone <- apiServer.Start(serverCtx)
	}()

	if cfg.Metrics.Enabled {
		metricsServer, err := metrics.NewServer(cfg.Metrics)
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		logger.Info("Metrics enabled", "port", metricsServer.Port())
		go func() {
			serverDone <- metricsServer.Start(serverCtx)
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Write PID file if specified
	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	var serveErr error
	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")

	case serveErr = <-serverDone:
		signal.Stop(sigChan)
		if serveErr != nil {
			logger.Error("Server error", "error", serveErr)
		}
	}

	// Stop HTTP servers, then clean up the subsystems
	stopServers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown error", "error", err)
		if serveErr == nil {
			serveErr = err
		}
	}

	if serveErr != nil {
		return serveErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()

	// Create state directory if it doesn't exist
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Set default PID file if not specified
	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "graphsearchd.pid")
	}

	// Check if already running
	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				// Check if process is still running
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("graphsearchd is already running (PID %d)\nUse 'graphsearchd stop' to stop the running instance", pid)
					}
				}
			}
		}
		// Stale PID file, remove it
		_ = os.Remove(pidPath)
	}

	// Set default log file if not specified
	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "graphsearchd.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Build arguments for the daemon process
	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	daemon := exec.Command(executable, daemonArgs...)

	// Open log file for stdout/stderr
	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	daemon.Stdout = logFileHandle
	daemon.Stderr = logFileHandle

	// Detach from parent process
	daemon.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := daemon.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("graphsearchd started in background (PID %d)\n", daemon.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'graphsearchd stop' to stop the server")
	fmt.Println("Use 'graphsearchd status' to check server status")

	return nil
}
