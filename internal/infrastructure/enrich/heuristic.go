package enrich

import (
	"context"
	"log/slog"
	"strings"

	"BriefCast/internal/domain"
	"BriefCast/internal/normalize"
	"BriefCast/internal/ports"
)

// signalKeywords drive the offline heuristic: a signal's score grows with
// the number of matching cue words in the story text.
var signalKeywords = map[string][]string{
	"shock":     {"breaking", "shock", "unprecedented", "first ever", "record", "banned", "leaked"},
	"future":    {"roadmap", "will", "plans", "upcoming", "next-gen", "strategy", "2026", "2027"},
	"technical": {"architecture", "benchmark", "parameters", "algorithm", "inference", "training", "open source"},
	"authority": {"announced", "official", "research", "paper", "launch"},
}

var knownCompanies = []string{
	"openai", "google", "deepmind", "anthropic", "meta", "microsoft",
	"nvidia", "amazon", "apple", "mistral", "xai",
}

// Heuristic is a deterministic, network-free Enricher used when no
// analysis service is configured. An optional TextExtractor backfills
// full text for stories that arrived without a summary.
type Heuristic struct {
	extractor ports.TextExtractor
	logger    *slog.Logger
}

var _ ports.Enricher = (*Heuristic)(nil)

// NewHeuristic builds the offline enricher; extractor may be nil.
func NewHeuristic(extractor ports.TextExtractor, logger *slog.Logger) *Heuristic {
	return &Heuristic{extractor: extractor, logger: logger}
}

// Enrich scores each story from keyword cues. It never fails: extraction
// errors are logged and the story proceeds with whatever text it has.
func (h *Heuristic) Enrich(ctx context.Context, stories []domain.Story) ([]domain.EnrichedStory, error) {
	enriched := make([]domain.EnrichedStory, 0, len(stories))
	for _, story := range stories {
		if story.Summary == "" && story.FullText == "" && h.extractor != nil {
			text, err := h.extractor.FullText(ctx, story.URL)
			if err != nil {
				if h.logger != nil {
					h.logger.Debug("full text extraction failed", "url", story.URL, "error", err)
				}
			} else {
				story.FullText = text
			}
		}
		enriched = append(enriched, domain.EnrichedStory{
			Story:    story,
			Analysis: analyze(story),
		})
	}
	return enriched, nil
}

func analyze(story domain.Story) domain.Analysis {
	text := strings.ToLower(story.Title + " " + story.Summary + " " + story.FullText)

	scores := make(map[string]float64, len(signalKeywords))
	var keywords []string
	for signal, cues := range signalKeywords {
		matches := 0
		for _, cue := range cues {
			if strings.Contains(text, cue) {
				matches++
				keywords = append(keywords, cue)
			}
		}
		// Three cue hits saturate a signal.
		score := float64(matches) / 3.0
		if score > 1.0 {
			score = 1.0
		}
		scores[signal] = score
	}

	var companies []string
	for _, company := range knownCompanies {
		if strings.Contains(text, company) {
			companies = append(companies, company)
		}
	}

	return domain.Analysis{
		Scores:    scores,
		Keywords:  normalize.MergeKeywords(keywords),
		Companies: companies,
	}
}
