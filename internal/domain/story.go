package domain

import (
	"math"
	"time"

	"BriefCast/internal/normalize"
)

// FingerprintKey is the Extras entry caching the content fingerprint.
const FingerprintKey = "fingerprint"

// Source describes a single configured feed. Immutable during a run.
type Source struct {
	Name     string            `json:"name" yaml:"name"`
	URL      string            `json:"url" yaml:"url"`
	Category string            `json:"category,omitempty" yaml:"category"`
	Priority int               `json:"priority,omitempty" yaml:"priority"`
	Weight   float64           `json:"weight,omitempty" yaml:"weight"`
	Enabled  bool              `json:"enabled" yaml:"enabled"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata"`
}

// Story is a raw item as fetched from a source, before enrichment.
type Story struct {
	Source       Source            `json:"source"`
	Title        string            `json:"title"`
	URL          string            `json:"url"`
	Summary      string            `json:"summary,omitempty"`
	FullText     string            `json:"full_text,omitempty"`
	PublishedAt  time.Time         `json:"published_at,omitempty"`
	SourceDomain string            `json:"source_domain,omitempty"`
	Extras       map[string]string `json:"extras,omitempty"`
}

// Fingerprint returns the cached content fingerprint, computing and
// backfilling it into Extras on first use.
func (s *Story) Fingerprint() string {
	if s.Extras == nil {
		s.Extras = map[string]string{}
	}
	if fp, ok := s.Extras[FingerprintKey]; ok && fp != "" {
		return fp
	}
	fp := normalize.Fingerprint(s.URL, s.Title)
	s.Extras[FingerprintKey] = fp
	return fp
}

// EnrichedStory is a story plus the opaque analysis map produced by an
// external enrichment step. The core only relies on the "scores" sub-map.
type EnrichedStory struct {
	Story
	Analysis Analysis `json:"analysis,omitempty"`
}

// Analysis carries enrichment output. Scores holds named numeric signals;
// everything else is opaque to the pipeline core.
type Analysis struct {
	Scores    map[string]float64 `json:"scores,omitempty"`
	Keywords  []string           `json:"keywords,omitempty"`
	Companies []string           `json:"companies,omitempty"`
}

// ScoredStory is an enriched story with ranking metadata.
type ScoredStory struct {
	EnrichedStory
	Score     float64            `json:"score"`
	Rank      int                `json:"rank,omitempty"`
	Boosts    map[string]float64 `json:"boosts,omitempty"`
	Companies []string           `json:"companies_mentioned,omitempty"`
}

// ScorePrecision is the number of decimals scores are rounded to so that
// ranking stays deterministic across runs.
const ScorePrecision = 6

// RoundScore rounds a composite score to ScorePrecision decimals.
func RoundScore(score float64) float64 {
	factor := math.Pow(10, ScorePrecision)
	return math.Round(score*factor) / factor
}
