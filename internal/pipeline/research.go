package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"BriefCast/internal/domain"
	"BriefCast/internal/graph"
	"BriefCast/internal/ingest"
	"BriefCast/internal/ports"
	"BriefCast/internal/rank"
)

// Research graph node names. They are part of the checkpoint format:
// renaming one makes older in-flight runs unresumable.
const (
	nodeLoadMetadata = "load_metadata"
	nodeFetchFeeds   = "fetch_feeds"
	nodeMerge        = "merge"
	nodeEnrich       = "enrich"
	nodeScore        = "score"
	nodeSelect       = "select"
)

// FeedFetcher is the slice of ingest.Fetcher the research graph needs.
type FeedFetcher interface {
	Fetch(ctx context.Context, sources []domain.Source) ([]domain.Story, []*ingest.SourceError)
}

// ResearchDeps are the collaborators wired into the research graph.
type ResearchDeps struct {
	Sources  ports.SourceProvider
	Trends   ports.TrendProvider
	Fetcher  FeedFetcher
	Enricher ports.Enricher
	Logger   *slog.Logger

	// DefaultSources replace the provider's result when it fails or
	// returns nothing, so a broken source registry degrades instead of
	// aborting the run.
	DefaultSources []domain.Source

	// Now anchors recency scoring and the hours filter; nil means time.Now.
	Now func() time.Time
}

func (d ResearchDeps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

// NewResearchGraph compiles the linear research pipeline:
// load_metadata -> fetch_feeds -> merge -> enrich -> score -> select.
func NewResearchGraph(deps ResearchDeps) (*graph.Graph[ResearchState], error) {
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("pipeline: research graph needs a fetcher")
	}
	if deps.Enricher == nil {
		return nil, fmt.Errorf("pipeline: research graph needs an enricher")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	spec := graph.NewSpec[ResearchState](ResearchWorkflow).
		AddNode(nodeLoadMetadata, deps.loadMetadata).
		AddNode(nodeFetchFeeds, deps.fetchFeeds).
		AddNode(nodeMerge, deps.merge).
		AddNode(nodeEnrich, deps.enrich).
		AddNode(nodeScore, deps.score).
		AddNode(nodeSelect, deps.selectTop).
		AddEdge(nodeLoadMetadata, nodeFetchFeeds).
		AddEdge(nodeFetchFeeds, nodeMerge).
		AddEdge(nodeMerge, nodeEnrich).
		AddEdge(nodeEnrich, nodeScore).
		AddEdge(nodeScore, nodeSelect).
		AddEdge(nodeSelect, graph.End).
		SetEntry(nodeLoadMetadata)

	return spec.Compile()
}

// loadMetadata resolves sources and trend boosts. Provider failures fall
// back to the built-in source list; trends are best effort.
func (d ResearchDeps) loadMetadata(ctx context.Context, state ResearchState) (ResearchState, error) {
	sources := d.DefaultSources
	if d.Sources != nil {
		got, err := d.Sources.Sources(ctx)
		switch {
		case err != nil:
			d.Logger.Warn("source provider failed, using defaults", "error", err)
			state.Diagnostics.Record("error", "source provider failed", "error", err.Error())
		case len(got) == 0:
			state.Diagnostics.Record("warning", "source provider returned no sources")
		default:
			sources = got
		}
	}
	state.Sources = sources

	state.Boosts = map[string]float64{}
	if d.Trends != nil {
		boosts, err := d.Trends.TrendingBoosts(ctx)
		if err != nil {
			d.Logger.Warn("trend provider failed", "error", err)
			state.Diagnostics.Record("warning", "trend provider failed", "error", err.Error())
		} else {
			state.Boosts = boosts
		}
	}

	state.Diagnostics.Record("info", "metadata loaded",
		"sources", fmt.Sprint(len(state.Sources)),
		"boosts", fmt.Sprint(len(state.Boosts)))
	return state, nil
}

// fetchFeeds pulls all enabled sources concurrently. Per-source failures
// become diagnostics; only a total inability to proceed is an error, and
// even an empty batch continues so the run terminates with an empty
// selection rather than aborting.
func (d ResearchDeps) fetchFeeds(ctx context.Context, state ResearchState) (ResearchState, error) {
	stories, failures := d.Fetcher.Fetch(ctx, state.Sources)
	for _, failure := range failures {
		state.Diagnostics.Record("warning", "source fetch failed",
			"source", failure.Source, "error", failure.Err.Error())
	}

	if state.HoursFilter > 0 {
		cutoff := d.now().Add(-time.Duration(state.HoursFilter) * time.Hour)
		kept := stories[:0]
		for _, story := range stories {
			// Stories without a timestamp cannot be aged and stay in.
			if story.PublishedAt.IsZero() || !story.PublishedAt.Before(cutoff) {
				kept = append(kept, story)
			}
		}
		stories = kept
	}

	state.Raw = stories
	if len(stories) == 0 {
		state.Diagnostics.Record("error", "no stories fetched from any source")
	}
	d.Logger.Info("feeds fetched", "stories", len(stories), "failed_sources", len(failures))
	return state, nil
}

// merge dedupes the raw batch by content fingerprint, first occurrence
// wins. Score-aware dedup happens again at selection; this pass just
// keeps the enrichment payload small.
func (d ResearchDeps) merge(ctx context.Context, state ResearchState) (ResearchState, error) {
	seen := map[string]bool{}
	merged := make([]domain.Story, 0, len(state.Raw))
	for i := range state.Raw {
		fp := state.Raw[i].Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		merged = append(merged, state.Raw[i])
	}
	state.Merged = merged
	if dropped := len(state.Raw) - len(merged); dropped > 0 {
		state.Diagnostics.Record("info", "duplicates merged", "dropped", fmt.Sprint(dropped))
	}
	return state, nil
}

// enrich attaches analysis signals. A failing enricher degrades to
// zero-signal stories so recency-only scoring still produces a usable
// selection.
func (d ResearchDeps) enrich(ctx context.Context, state ResearchState) (ResearchState, error) {
	enriched, err := d.Enricher.Enrich(ctx, state.Merged)
	if err != nil {
		d.Logger.Error("enrichment failed, continuing without signals", "error", err)
		state.Diagnostics.Record("error", "enrichment failed", "error", err.Error())
		enriched = make([]domain.EnrichedStory, 0, len(state.Merged))
		for _, story := range state.Merged {
			enriched = append(enriched, domain.EnrichedStory{Story: story})
		}
	}
	state.Enriched = enriched
	return state, nil
}

// score computes composite scores and applies trend boosts, keeping the
// full scored list in the snapshot so selection stays explainable.
func (d ResearchDeps) score(ctx context.Context, state ResearchState) (ResearchState, error) {
	opts := rank.Options{WeightOverrides: state.Weights, Now: d.now()}
	scored := make([]domain.ScoredStory, 0, len(state.Enriched))
	for _, story := range state.Enriched {
		scored = append(scored, rank.Score(story, opts))
	}
	rank.ApplyBoosts(scored, state.Boosts)
	state.Scored = scored
	return state, nil
}

// selectTop reduces the scored list to the final ranked selection.
func (d ResearchDeps) selectTop(ctx context.Context, state ResearchState) (ResearchState, error) {
	limit := state.SelectionLimit
	if limit <= 0 {
		limit = defaultSelectionLimit
	}
	state.Selected = rank.Finalize(state.Scored, limit)
	if len(state.Selected) == 0 {
		state.Diagnostics.Record("warning", "empty selection")
	}
	d.Logger.Info("selection complete", "selected", len(state.Selected), "candidates", len(state.Scored))
	return state, nil
}
