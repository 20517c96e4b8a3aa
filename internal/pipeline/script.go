package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"BriefCast/internal/domain"
	"BriefCast/internal/graph"
	"BriefCast/internal/ports"
)

// Script graph node names.
const (
	nodePrepare      = "prepare"
	nodeGenerate     = "generate"
	nodeManualReview = "manual_review"
	nodeFinalize     = "finalize"
)

// Routes returned by the script graph's decision points.
const (
	routeGenerate graph.Route = "generate"
	routeAbort    graph.Route = "abort"
	routeAccept   graph.Route = "accept"
	routeRetry    graph.Route = "retry"
	routeManual   graph.Route = "manual"
)

// ScriptDeps are the collaborators wired into the script graph. Notifier
// is optional; a nil notifier turns the manual-review alert into a log
// line.
type ScriptDeps struct {
	Generator ports.Generator
	Notifier  ports.Notifier
	Logger    *slog.Logger
}

// NewScriptGraph compiles the generation controller:
//
//	prepare -+-> generate -+-> finalize -> end    (draft accepted)
//	         |             +-> generate           (failed, attempts left)
//	         |             +-> manual_review -> finalize -> end
//	         +-> manual_review                    (attempt budget is zero)
//	         +-> finalize                         (nothing to write about)
func NewScriptGraph(deps ScriptDeps) (*graph.Graph[ScriptState], error) {
	if deps.Generator == nil {
		return nil, fmt.Errorf("pipeline: script graph needs a generator")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	spec := graph.NewSpec[ScriptState](ScriptWorkflow).
		AddNode(nodePrepare, deps.prepare).
		AddNode(nodeGenerate, deps.generate).
		AddNode(nodeManualReview, deps.manualReview).
		AddNode(nodeFinalize, deps.finalize).
		AddRouter(nodePrepare, routeAfterPrepare, map[graph.Route]string{
			routeGenerate: nodeGenerate,
			routeManual:   nodeManualReview,
			routeAbort:    nodeFinalize,
		}).
		AddRouter(nodeGenerate, routeAfterGenerate, map[graph.Route]string{
			routeAccept: nodeFinalize,
			routeRetry:  nodeGenerate,
			routeManual: nodeManualReview,
		}).
		AddEdge(nodeManualReview, nodeFinalize).
		AddEdge(nodeFinalize, graph.End).
		SetEntry(nodePrepare)

	return spec.Compile()
}

// prepare checks the run has anything to write about. An empty candidate
// list is flagged for manual review immediately; generation is never
// attempted against it.
func (d ScriptDeps) prepare(ctx context.Context, state ScriptState) (ScriptState, error) {
	if len(state.Candidates) == 0 {
		state.ManualReview = true
		state.Diagnostics.Record("error", "no candidate stories, skipping generation")
		return state, nil
	}
	state.Diagnostics.Record("info", "generation prepared",
		"candidates", fmt.Sprint(len(state.Candidates)),
		"max_attempts", fmt.Sprint(state.MaxAttempts))
	return state, nil
}

// routeAfterPrepare sends empty runs straight to finalize and a zero
// attempt budget straight to escalation.
func routeAfterPrepare(state ScriptState) graph.Route {
	if len(state.Candidates) == 0 {
		return routeAbort
	}
	if state.MaxAttempts <= 0 {
		return routeManual
	}
	return routeGenerate
}

// generate runs one attempt. The draft and its validation report land in
// the state; pass/fail routing happens in routeAfterGenerate. A transport
// or decode failure from the generator aborts the run so a resume retries
// this same attempt.
func (d ScriptDeps) generate(ctx context.Context, state ScriptState) (ScriptState, error) {
	state.Attempts++
	draft, err := d.Generator.Generate(ctx, state.Candidates)
	if err != nil {
		return state, domain.NewStageError("generate", err, map[string]string{
			"run_id":  state.RunID,
			"attempt": fmt.Sprint(state.Attempts),
		})
	}

	state.Draft = &draft
	level := "info"
	if !draft.Validation.Passed {
		level = "warning"
	}
	state.Diagnostics.Record(level, "draft generated",
		"attempt", fmt.Sprint(state.Attempts),
		"passed", fmt.Sprint(draft.Validation.Passed),
		"validation_score", fmt.Sprintf("%.3f", draft.Validation.Score))
	d.Logger.Info("draft generated",
		"attempt", state.Attempts,
		"passed", draft.Validation.Passed,
		"missing", draft.Validation.Missing)
	return state, nil
}

// routeAfterGenerate implements the accept/retry/escalate decision. It
// only reads the state, so replaying the checkpointed snapshot yields the
// same route.
func routeAfterGenerate(state ScriptState) graph.Route {
	if state.Draft != nil && state.Draft.Validation.Passed {
		return routeAccept
	}
	if state.Attempts < state.MaxAttempts {
		return routeRetry
	}
	return routeManual
}

// manualReview marks the run for human attention, keeps the best draft
// produced so far, and emits an alert record onto the checkpoint before
// notifying the configured channel.
func (d ScriptDeps) manualReview(ctx context.Context, state ScriptState) (ScriptState, error) {
	state.ManualReview = true
	state.Diagnostics.Record("warning", "escalated to manual review",
		"attempts", fmt.Sprint(state.Attempts))

	var report map[string]any
	if state.Draft != nil {
		report = map[string]any{
			"run_id":   state.RunID,
			"attempts": state.Attempts,
			"passed":   state.Draft.Validation.Passed,
			"missing":  state.Draft.Validation.Missing,
		}
	} else {
		report = map[string]any{"run_id": state.RunID, "attempts": state.Attempts}
	}
	if err := graph.Emit(ctx, "manual_review", report); err != nil {
		d.Logger.Warn("manual review record not emitted", "error", err)
	}

	if d.Notifier != nil && state.Draft != nil {
		if err := d.Notifier.NotifyManualReview(ctx, state.RunID, state.Draft.Validation); err != nil {
			d.Logger.Warn("manual review notification failed", "error", err)
			state.Diagnostics.Record("warning", "manual review notification failed", "error", err.Error())
		}
	} else if d.Notifier == nil {
		d.Logger.Warn("manual review required", "run_id", state.RunID, "attempts", state.Attempts)
	}
	return state, nil
}

// finalize promotes the last draft to the run artifact. Re-running it
// against an already finalized snapshot changes nothing.
func (d ScriptDeps) finalize(ctx context.Context, state ScriptState) (ScriptState, error) {
	if state.Final == nil && state.Draft != nil {
		final := *state.Draft
		if final.Metadata == nil {
			final.Metadata = map[string]string{}
		}
		final.Metadata["attempts"] = fmt.Sprint(state.Attempts)
		if state.ManualReview {
			final.Metadata["manual_review"] = "true"
		}
		state.Final = &final
	}
	state.Diagnostics.Record("info", "run finalized",
		"manual_review", fmt.Sprint(state.ManualReview),
		"has_artifact", fmt.Sprint(state.Final != nil))
	return state, nil
}
