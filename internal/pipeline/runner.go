package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"BriefCast/internal/checkpoint"
	"BriefCast/internal/graph"
)

// Runner executes the research and script graphs back to back under one
// run id. Both graphs checkpoint into the same store, scoped by workflow
// name, so a crash anywhere in the chain resumes inside the graph that
// was interrupted.
type Runner struct {
	research *graph.Graph[ResearchState]
	script   *graph.Graph[ScriptState]
	store    checkpoint.Store
	logger   *slog.Logger
}

// NewRunner compiles both graphs from their dependencies.
func NewRunner(researchDeps ResearchDeps, scriptDeps ScriptDeps, store checkpoint.Store, logger *slog.Logger) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("pipeline: runner needs a checkpoint store")
	}
	if logger == nil {
		logger = slog.Default()
	}

	research, err := NewResearchGraph(researchDeps)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compile research graph: %w", err)
	}
	script, err := NewScriptGraph(scriptDeps)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compile script graph: %w", err)
	}

	return &Runner{research: research, script: script, store: store, logger: logger}, nil
}

// Run drives one end-to-end pipeline run. The research selection feeds
// the script graph's candidate list; when resuming a run whose research
// phase already finished, the checkpointed selection is reused and no
// feed is re-fetched.
func (r *Runner) Run(ctx context.Context, runID string, params RunParams) (ScriptState, error) {
	params = params.withDefaults()

	researchState, err := r.research.Invoke(ctx, r.store, runID, ResearchState{
		RunID:          runID,
		HoursFilter:    params.HoursFilter,
		SelectionLimit: params.SelectionLimit,
		Weights:        params.Weights,
	})
	if err != nil {
		return ScriptState{}, fmt.Errorf("pipeline: research phase for run %s: %w", runID, err)
	}
	r.logger.Info("research phase complete",
		"run_id", runID,
		"selected", len(researchState.Selected),
		"warnings", len(researchState.Diagnostics.Warnings),
		"errors", len(researchState.Diagnostics.Errors))

	scriptState, err := r.script.Invoke(ctx, r.store, runID, ScriptState{
		RunID:       runID,
		Candidates:  researchState.Selected,
		MaxAttempts: params.MaxAttempts,
	})
	if err != nil {
		return scriptState, fmt.Errorf("pipeline: script phase for run %s: %w", runID, err)
	}
	r.logger.Info("script phase complete",
		"run_id", runID,
		"attempts", scriptState.Attempts,
		"manual_review", scriptState.ManualReview,
		"has_artifact", scriptState.Final != nil)
	return scriptState, nil
}
