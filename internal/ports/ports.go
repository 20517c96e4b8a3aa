package ports

import (
	"context"
	"time"

	"BriefCast/internal/domain"
)

// SourceProvider returns the configured feed list. Implementations may be
// backed by static config or a remote sheet; empty results are tolerated
// and replaced with built-in defaults by the pipeline.
type SourceProvider interface {
	Sources(ctx context.Context) ([]domain.Source, error)
}

// TrendProvider supplies keyword -> additive boost values merged into
// story scores.
type TrendProvider interface {
	TrendingBoosts(ctx context.Context) (map[string]float64, error)
}

// Enricher attaches analysis (scores, keywords, companies) to raw stories.
// The pipeline only relies on the scores sub-map contract.
type Enricher interface {
	Enrich(ctx context.Context, stories []domain.Story) ([]domain.EnrichedStory, error)
}

// Generator produces a draft plus its validation report from the selected
// stories. The pipeline never inspects the draft beyond the report.
type Generator interface {
	Generate(ctx context.Context, stories []domain.ScoredStory) (domain.Draft, error)
}

// TextExtractor retrieves cleaned article text for enrichment backfill.
type TextExtractor interface {
	FullText(ctx context.Context, url string) (string, error)
}

// Notifier delivers manual-review alerts to a human channel.
type Notifier interface {
	NotifyManualReview(ctx context.Context, runID string, report domain.ValidationReport) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
