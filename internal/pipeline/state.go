// Package pipeline assembles the two production graphs: research, which
// turns configured feeds into a ranked story selection, and script, which
// turns that selection into a validated draft through a bounded
// generate/validate/retry loop with manual-review escalation.
package pipeline

import (
	"BriefCast/internal/domain"
)

// Workflow names scope the checkpoint collections.
const (
	ResearchWorkflow = "research"
	ScriptWorkflow   = "script"
)

// ResearchState is the full snapshot carried through the research graph.
// Every field serializes to JSON so a run can be resumed from any
// checkpoint; nodes replace fields wholesale rather than mutating shared
// slices in place.
type ResearchState struct {
	RunID string `json:"run_id"`

	// Run parameters, fixed at start.
	HoursFilter    int                `json:"hours_filter,omitempty"`
	SelectionLimit int                `json:"selection_limit,omitempty"`
	Weights        map[string]float64 `json:"weights,omitempty"`

	// Populated by successive nodes.
	Sources  []domain.Source        `json:"sources,omitempty"`
	Boosts   map[string]float64     `json:"boosts,omitempty"`
	Raw      []domain.Story         `json:"raw,omitempty"`
	Merged   []domain.Story         `json:"merged,omitempty"`
	Enriched []domain.EnrichedStory `json:"enriched,omitempty"`
	Scored   []domain.ScoredStory   `json:"scored,omitempty"`
	Selected []domain.ScoredStory   `json:"selected,omitempty"`

	Diagnostics domain.Diagnostics `json:"diagnostics,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

// ScriptState is the snapshot carried through the script graph.
type ScriptState struct {
	RunID string `json:"run_id"`

	Candidates  []domain.ScoredStory `json:"candidates,omitempty"`
	MaxAttempts int                  `json:"max_attempts"`
	Attempts    int                  `json:"attempts"`

	Draft        *domain.Draft `json:"draft,omitempty"`
	Final        *domain.Draft `json:"final,omitempty"`
	ManualReview bool          `json:"manual_review"`

	Diagnostics domain.Diagnostics `json:"diagnostics,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

// RunParams carry the per-run knobs from the CLI or scheduler into both
// graphs.
type RunParams struct {
	HoursFilter    int
	SelectionLimit int
	MaxAttempts    int
	Weights        map[string]float64
}

const defaultSelectionLimit = 6

func (p RunParams) withDefaults() RunParams {
	if p.SelectionLimit <= 0 {
		p.SelectionLimit = defaultSelectionLimit
	}
	return p
}
