// Package app wires configuration to the pipeline runner and owns the
// process lifecycle for both single-shot and daemon modes.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"BriefCast/internal/checkpoint"
	"BriefCast/internal/config"
	"BriefCast/internal/domain"
	"BriefCast/internal/infrastructure/enrich"
	"BriefCast/internal/infrastructure/llm"
	"BriefCast/internal/infrastructure/scheduler"
	"BriefCast/internal/infrastructure/sources"
	"BriefCast/internal/infrastructure/telegram"
	"BriefCast/internal/ingest"
	"BriefCast/internal/logging"
	"BriefCast/internal/pipeline"
	"BriefCast/internal/ports"
)

// Application holds the assembled pipeline and its collaborators.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	runner     *pipeline.Runner
	sched      ports.Scheduler
	closeStore func() error
}

// RunOptions are per-invocation overrides on top of the configuration.
// Zero values defer to config; MaxAttempts uses -1 for "not set" so that
// an explicit zero still means immediate escalation.
type RunOptions struct {
	RunID          string
	HoursFilter    int
	SelectionLimit int
	MaxAttempts    int
	Output         string
}

// Artifact is the JSON document a finished run emits.
type Artifact struct {
	RunID        string               `json:"run_id"`
	GeneratedAt  time.Time            `json:"generated_at"`
	ManualReview bool                 `json:"manual_review"`
	Attempts     int                  `json:"attempts"`
	Script       *domain.Draft        `json:"script,omitempty"`
	Stories      []domain.ScoredStory `json:"stories,omitempty"`
	Diagnostics  domain.Diagnostics   `json:"diagnostics,omitempty"`
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}

	var (
		store      checkpoint.Store
		closeStore func() error
	)
	if cfg.Checkpoints.Path == "" {
		store = checkpoint.NewMemoryStore()
	} else {
		sqlStore, err := checkpoint.OpenSQLite(cfg.Checkpoints.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open checkpoint store: %w", err)
		}
		store = sqlStore
		closeStore = sqlStore.Close
	}

	fetcher := ingest.NewFetcher(nil, ingest.Options{
		MaxItemsPerSource: cfg.Fetch.MaxItemsPerSource,
		Timeout:           cfg.Fetch.Timeout(),
		Concurrency:       cfg.Fetch.Concurrency,
		Attempts:          cfg.Fetch.Attempts,
	}, logger.With("component", "ingest"))

	var enricher ports.Enricher
	if cfg.Enrichment.InferenceURL != "" {
		enricher = enrich.NewClient(cfg.Enrichment.InferenceURL, cfg.Enrichment.APIKey)
	} else {
		enricher = enrich.NewHeuristic(fetcher, logger.With("component", "enrich"))
	}

	var generator ports.Generator
	if cfg.Generation.APIKey != "" {
		generator = llm.NewChatGenerator(cfg.Generation)
	} else {
		logger.Warn("no generation API key configured, using the offline template generator")
		generator = &llm.TemplateGenerator{}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	runner, err := pipeline.NewRunner(
		pipeline.ResearchDeps{
			Sources:        sources.NewStaticProvider(cfg.DomainSources()),
			Trends:         sources.NewStaticTrends(cfg.Trends),
			Fetcher:        fetcher,
			Enricher:       enricher,
			Logger:         logger.With("component", "research"),
			DefaultSources: cfg.DomainSources(),
		},
		pipeline.ScriptDeps{
			Generator: generator,
			Notifier:  notifier,
			Logger:    logger.With("component", "script"),
		},
		store,
		logger.With("component", "runner"),
	)
	if err != nil {
		if closeStore != nil {
			closeStore()
		}
		return nil, err
	}

	return &Application{
		cfg:        cfg,
		logger:     logger,
		runner:     runner,
		sched:      scheduler.NewDailyScheduler(cfg.Scheduler.Interval()),
		closeStore: closeStore,
	}, nil
}

// Run executes one pipeline run and writes the artifact. A run flagged
// for manual review is still a successful run from the process's point of
// view; only transport-level failures return an error.
func (a *Application) Run(ctx context.Context, opts RunOptions) error {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	params := pipeline.RunParams{
		HoursFilter:    a.cfg.Fetch.HoursFilter,
		SelectionLimit: a.cfg.Scoring.SelectionLimit,
		MaxAttempts:    a.cfg.Generation.MaxAttempts,
		Weights:        a.cfg.Scoring.Weights,
	}
	if opts.HoursFilter > 0 {
		params.HoursFilter = opts.HoursFilter
	}
	if opts.SelectionLimit > 0 {
		params.SelectionLimit = opts.SelectionLimit
	}
	if opts.MaxAttempts >= 0 {
		params.MaxAttempts = opts.MaxAttempts
	}

	a.logger.Info("run starting", "run_id", runID)
	state, err := a.runner.Run(ctx, runID, params)
	if err != nil {
		return err
	}
	if state.ManualReview {
		a.logger.Warn("run needs manual review", "run_id", runID, "attempts", state.Attempts)
	}

	artifact := Artifact{
		RunID:        runID,
		GeneratedAt:  time.Now().UTC(),
		ManualReview: state.ManualReview,
		Attempts:     state.Attempts,
		Script:       state.Final,
		Stories:      state.Candidates,
		Diagnostics:  state.Diagnostics,
	}
	return a.writeArtifact(artifact, opts.Output)
}

func (a *Application) writeArtifact(artifact Artifact, output string) error {
	raw, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("app: encode artifact: %w", err)
	}
	raw = append(raw, '\n')

	if output == "" || output == "-" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	if err := os.WriteFile(output, raw, 0o644); err != nil {
		return fmt.Errorf("app: write artifact: %w", err)
	}
	a.logger.Info("artifact written", "path", output)
	return nil
}

// RunDaemon executes the pipeline on the configured interval until the
// context is cancelled. Each tick gets a fresh run id; a failing run is
// logged and the daemon keeps going.
func (a *Application) RunDaemon(ctx context.Context, opts RunOptions) error {
	err := a.sched.Start(ctx, func(time.Time) {
		tick := opts
		tick.RunID = uuid.NewString()
		if err := a.Run(ctx, tick); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("app: start scheduler: %w", err)
	}

	<-ctx.Done()
	return a.sched.Stop(context.Background())
}

// Close releases the checkpoint store.
func (a *Application) Close() error {
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}
