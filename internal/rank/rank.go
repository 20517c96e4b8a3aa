// Package rank turns enriched stories into a deterministic, deduplicated,
// ranked selection. Given identical inputs, weights, and reference time,
// the output order is identical.
package rank

import (
	"sort"
	"strings"
	"time"

	"BriefCast/internal/domain"
)

// DefaultWeights is the built-in signal weighting, overridable per run.
var DefaultWeights = map[string]float64{
	"shock":     0.35,
	"future":    0.25,
	"technical": 0.15,
	"recency":   0.15,
	"authority": 0.10,
}

const (
	recencySignal = "recency"

	// recencyWindow is the lookback over which the recency signal decays
	// linearly from 1.0 down to recencyFloor.
	recencyWindow = 7 * 24 * time.Hour
	recencyFloor  = 0.2
)

// Options configure a scoring pass.
type Options struct {
	// WeightOverrides are merged over DefaultWeights.
	WeightOverrides map[string]float64
	// Now anchors the recency computation; the zero value means time.Now.
	Now time.Time
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now
}

func (o Options) weights() map[string]float64 {
	merged := make(map[string]float64, len(DefaultWeights))
	for k, v := range DefaultWeights {
		merged[k] = v
	}
	for k, v := range o.WeightOverrides {
		merged[k] = v
	}
	return merged
}

// Recency maps story age to [recencyFloor, 1.0]: 1.0 for brand-new items,
// linear decay across the lookback window, saturating at the floor.
// Stories without a timestamp get the floor.
func Recency(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return recencyFloor
	}
	age := now.Sub(publishedAt)
	if age <= 0 {
		return 1.0
	}
	if age >= recencyWindow {
		return recencyFloor
	}
	fraction := float64(age) / float64(recencyWindow)
	return 1.0 - fraction*(1.0-recencyFloor)
}

// Score computes the weighted composite for one story. The recency signal
// is derived from the story's own timestamp against Options.Now; all other
// signals come from the enrichment analysis.
func Score(story domain.EnrichedStory, opts Options) domain.ScoredStory {
	weights := opts.weights()
	signals := story.Analysis.Scores

	total := 0.0
	for name, weight := range weights {
		var value float64
		if name == recencySignal {
			value = Recency(story.PublishedAt, opts.now())
		} else if signals != nil {
			value = signals[name]
		}
		total += weight * value
	}

	scored := domain.ScoredStory{
		EnrichedStory: story,
		Score:         domain.RoundScore(total),
		Boosts:        map[string]float64{},
		Companies:     story.Analysis.Companies,
	}
	scored.Fingerprint()
	return scored
}

// ApplyBoosts adds keyword boosts in place. Matching is a case-insensitive
// substring check against title+summary; each matched keyword is recorded
// individually under "trend:<keyword>" so the final score stays explainable.
func ApplyBoosts(stories []domain.ScoredStory, boosts map[string]float64) {
	if len(boosts) == 0 {
		return
	}
	for i := range stories {
		text := strings.ToLower(stories[i].Title + " " + stories[i].Summary)
		for keyword, bonus := range boosts {
			if keyword == "" {
				continue
			}
			if strings.Contains(text, strings.ToLower(keyword)) {
				key := "trend:" + keyword
				if _, applied := stories[i].Boosts[key]; applied {
					continue
				}
				stories[i].Boosts[key] = bonus
				stories[i].Score = domain.RoundScore(stories[i].Score + bonus)
			}
		}
	}
}

// SelectTop scores all stories, applies boosts, dedupes by fingerprint
// keeping the higher-scoring duplicate, stable-sorts descending, truncates
// to k, and assigns contiguous 1-based ranks.
func SelectTop(stories []domain.EnrichedStory, k int, boosts map[string]float64, opts Options) []domain.ScoredStory {
	if k <= 0 || len(stories) == 0 {
		return nil
	}

	scored := make([]domain.ScoredStory, 0, len(stories))
	for _, story := range stories {
		scored = append(scored, Score(story, opts))
	}
	ApplyBoosts(scored, boosts)
	return Finalize(scored, k)
}

// Finalize dedupes scored stories by fingerprint keeping the
// higher-scoring duplicate, stable-sorts descending, truncates to k, and
// assigns contiguous 1-based ranks. Rank assignment happens here only,
// once the full candidate set is known.
func Finalize(scored []domain.ScoredStory, k int) []domain.ScoredStory {
	if k <= 0 || len(scored) == 0 {
		return nil
	}

	// First-seen position wins on ties so the input order stays stable.
	position := map[string]int{}
	unique := make([]domain.ScoredStory, 0, len(scored))
	for _, story := range scored {
		fp := story.Extras[domain.FingerprintKey]
		if idx, seen := position[fp]; seen {
			if story.Score > unique[idx].Score {
				unique[idx] = story
			}
			continue
		}
		position[fp] = len(unique)
		unique = append(unique, story)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	if len(unique) > k {
		unique = unique[:k]
	}
	for i := range unique {
		unique[i].Rank = i + 1
	}
	return unique
}
