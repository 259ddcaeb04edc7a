package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/genzj/warpconnect/pkg/capcheck"
	"github.com/genzj/warpconnect/pkg/classifier"
	"github.com/genzj/warpconnect/pkg/config"
	"github.com/genzj/warpconnect/pkg/events"
	"github.com/genzj/warpconnect/pkg/log"
	"github.com/genzj/warpconnect/pkg/metrics"
	"github.com/genzj/warpconnect/pkg/netns"
	"github.com/genzj/warpconnect/pkg/reconciler"
	"github.com/genzj/warpconnect/pkg/routes"
	"github.com/genzj/warpconnect/pkg/runtime"
	"github.com/genzj/warpconnect/pkg/store"
	"github.com/genzj/warpconnect/pkg/worker"
)

// Exit codes, per SPEC_FULL.md §6.
const (
	exitOK             = 0
	exitInvalidConfig  = 1
	exitMissingCap     = 2
	exitRuntimeFailure = 3
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitInvalidConfig)
	}
}

var rootCmd = &cobra.Command{
	Use:     "warpconnectd",
	Short:   "Routes container egress traffic through a designated warp peer",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("warpconnectd version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config file and WARPCONNECT_LOG_LEVEL")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig implements the CLI > env > file > defaults precedence chain
// (spec §6): config.Load already folds in file and environment, so only the
// CLI flag overrides remain to apply here.
func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.AppConfig{}, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = log.Level(level)
	}
	if json, _ := cmd.Flags().GetBool("log-json"); json {
		cfg.LogJSON = true
	}

	if err := config.Validate(cfg); err != nil {
		return config.AppConfig{}, err
	}
	return cfg, nil
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate configuration without starting the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(exitInvalidConfig)
		}
		fmt.Printf("configuration OK: warp pattern %q, target label %q, %d routing rule(s)\n",
			cfg.WarpNamePattern, cfg.TargetLabel, len(cfg.RoutingRules))
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the warpconnectd daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd)
	},
}

func runDaemon(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(exitInvalidConfig)
	}

	log.Init(log.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	logger := log.WithComponent("main")

	if err := capcheck.Check(); err != nil {
		logger.Error().Err(err).Msg("missing required capability")
		os.Exit(exitMissingCap)
	}

	rt, err := runtime.NewDockerClient()
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to container runtime")
		os.Exit(exitRuntimeFailure)
	}
	defer rt.Close()

	st := store.New()
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	pool := worker.NewPool(cfg.WorkerPoolSize)
	defer pool.Close()

	collector := metrics.NewCollector(st, 0)
	collector.Start()
	defer collector.Stop()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("runtime", true, "connected")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	defer httpServer.Close()
	logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint listening")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rc := reconciler.New(rt, netns.NewProvider(), routes.NewProgrammer(), pool, st, broker,
		func(err error) {
			logger.Error().Err(err).Msg("fatal route error, shutting down")
			stop()
		},
		reconciler.Config{
			Classifier: classifier.Config{
				WarpNamePattern:        cfg.WarpNamePattern,
				TargetLabel:            cfg.TargetLabel,
				NetworkPreferenceLabel: cfg.NetworkPreferenceLabel,
			},
			Rules:                cfg.RoutingRules,
			JobTimeout:           time.Duration(cfg.JobTimeoutSeconds) * time.Second,
			ShutdownDrainTimeout: time.Duration(cfg.ShutdownDrainTimeoutSeconds) * time.Second,
		},
	)

	logger.Info().Msg("warpconnectd starting")
	err = rc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("reconciler exited with error")
		return err
	}
	logger.Info().Msg("warpconnectd stopped")
	return nil
}
