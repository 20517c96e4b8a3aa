package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"BriefCast/internal/domain"
	"BriefCast/internal/ports"
)

// TemplateGenerator assembles a draft from the stories themselves, with no
// external service. Output is deterministic for a fixed input and clock.
type TemplateGenerator struct {
	Now func() time.Time
}

var _ ports.Generator = (*TemplateGenerator)(nil)

// Generate renders one segment per story and a stitched final text.
func (g *TemplateGenerator) Generate(ctx context.Context, stories []domain.ScoredStory) (domain.Draft, error) {
	if err := ctx.Err(); err != nil {
		return domain.Draft{}, err
	}

	now := time.Now().UTC()
	if g.Now != nil {
		now = g.Now()
	}

	draft := domain.Draft{
		CreatedAt: now,
		Metadata:  map[string]string{"generator": "template"},
	}

	if len(stories) > 0 {
		draft.Title = fmt.Sprintf("Daily Brief: %s", stories[0].Title)
	}

	var parts []string
	for _, story := range stories {
		body := story.Summary
		if body == "" {
			body = story.Title
		}
		body = fmt.Sprintf("%s. Why it matters: %s ranks #%d today with a composite score of %.2f.",
			body, story.Title, story.Rank, story.Score)

		draft.Segments = append(draft.Segments, domain.Segment{
			Headline:  story.Title,
			Body:      body,
			Keywords:  story.Analysis.Keywords,
			WordCount: len(strings.Fields(body)),
		})
		parts = append(parts, body)
	}
	draft.FinalText = strings.Join(parts, "\n\n")
	draft.Validation = Validate(draft, len(stories))
	return draft, nil
}
