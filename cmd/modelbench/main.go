package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/modelbench/internal/app"
	"github.com/ternarybob/modelbench/internal/common"
)

var (
	configPath   = flag.String("config", "", "Configuration file path (.toml or .yaml)")
	configPathC  = flag.String("c", "", "Configuration file path (shorthand)")
	outputDir    = flag.String("output", "", "Output directory (overrides config)")
	workers      = flag.Int("workers", 0, "Worker pool size (overrides config)")
	watch        = flag.Bool("watch", false, "Keep running, re-evaluating on the configured cron schedule")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Modelbench version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	path := *configPath
	if path == "" {
		path = *configPathC
	}
	if path == "" {
		if _, err := os.Stat("modelbench.toml"); err == nil {
			path = "modelbench.toml"
		}
	}

	config, err := common.LoadFromFile(path)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *outputDir, *workers, *watch)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config", path).
		Int("models", len(config.Models)).
		Int("workers", config.Workers.Count).
		Str("output", config.Storage.OutputDir).
		Msg("Configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	// An operator interrupt cancels the run context: the scheduler stops
	// admitting tasks, drains in-flight work and flushes completed results
	// before the process exits cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.RunRound(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Benchmark round failed")
		os.Exit(1)
	}

	if config.WatchEnabled() {
		runWatch(ctx, application, config, logger)
	}

	logger.Info().Msg("Done")
}

// runWatch re-runs the benchmark round on the configured cron schedule
// until interrupted. Rounds are serialized: a tick that arrives while a
// round is still running is skipped.
func runWatch(ctx context.Context, application *app.App, config *common.Config, logger arbor.ILogger) {
	var running sync.Mutex

	c := cron.New()
	_, err := c.AddFunc(config.Schedule.Cron, func() {
		common.SafeGo(logger, "scheduledRound", func() {
			if !running.TryLock() {
				logger.Warn().Msg("Previous round still running, skipping scheduled run")
				return
			}
			defer running.Unlock()

			if err := application.RunRound(ctx); err != nil {
				logger.Error().Err(err).Msg("Scheduled round failed")
			}
		})
	})
	if err != nil {
		logger.Error().Err(err).Str("cron", config.Schedule.Cron).Msg("Invalid cron expression, watch mode disabled")
		return
	}

	c.Start()
	logger.Info().Str("cron", config.Schedule.Cron).Msg("Watch mode - press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt received, stopping schedule")

	// Wait for a possibly in-flight scheduled round to flush.
	stopCtx := c.Stop()
	<-stopCtx.Done()
	running.Lock()
	running.Unlock()
}
