package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"BriefCast/internal/app"
	"BriefCast/internal/config"
	"BriefCast/internal/logging"
)

func main() {
	var (
		configPath     = flag.String("config", "", "path to the YAML config (overrides BRIEFCAST_CONFIG)")
		threadID       = flag.String("thread-id", "", "run id to start or resume; empty generates a fresh one")
		output         = flag.String("output", "-", "artifact destination file, - for stdout")
		hoursFilter    = flag.Int("hours-filter", 0, "drop stories older than this many hours (0 = config value)")
		selectionLimit = flag.Int("selection-limit", 0, "number of stories to select (0 = config value)")
		maxAttempts    = flag.Int("max-attempts", -1, "generation attempts before manual review (-1 = config value)")
		daemon         = flag.Bool("daemon", false, "keep running on the configured schedule instead of a single run")
	)
	flag.Parse()

	if *configPath != "" {
		os.Setenv("BRIEFCAST_CONFIG", *configPath)
	}
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := app.RunOptions{
		RunID:          *threadID,
		HoursFilter:    *hoursFilter,
		SelectionLimit: *selectionLimit,
		MaxAttempts:    *maxAttempts,
		Output:         *output,
	}

	if *daemon {
		err = application.RunDaemon(ctx, opts)
	} else {
		err = application.Run(ctx, opts)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
