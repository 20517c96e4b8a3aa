package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"BriefCast/internal/config"
	"BriefCast/internal/domain"
)

func longBody(words int) string {
	return strings.TrimSpace(strings.Repeat("word ", words))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	goodDraft := domain.Draft{
		Title: "Daily Brief",
		Segments: []domain.Segment{
			{Headline: "a", Body: longBody(70), WordCount: 70},
			{Headline: "b", Body: longBody(60), WordCount: 60},
		},
	}

	cases := []struct {
		name     string
		draft    domain.Draft
		expected int
		passed   bool
		missing  []string
	}{
		{name: "complete draft passes", draft: goodDraft, expected: 2, passed: true},
		{
			name: "missing title",
			draft: domain.Draft{Segments: []domain.Segment{
				{Headline: "a", Body: longBody(130), WordCount: 130},
			}},
			expected: 1,
			missing:  []string{RuleTitle},
		},
		{
			name:     "too few segments",
			draft:    goodDraft,
			expected: 3,
			missing:  []string{RuleSegmentCount},
		},
		{
			name: "empty segment body",
			draft: domain.Draft{Title: "t", Segments: []domain.Segment{
				{Headline: "a", Body: longBody(130), WordCount: 130},
				{Headline: "b"},
			}},
			expected: 2,
			missing:  []string{RuleSegmentBody + ":1"},
		},
		{
			name: "too short overall",
			draft: domain.Draft{Title: "t", Segments: []domain.Segment{
				{Headline: "a", Body: longBody(30), WordCount: 30},
			}},
			expected: 1,
			missing:  []string{RuleMinWords},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			report := Validate(tc.draft, tc.expected)
			if report.Passed != tc.passed {
				t.Errorf("passed = %v, want %v (missing: %v)", report.Passed, tc.passed, report.Missing)
			}
			for _, rule := range tc.missing {
				found := false
				for _, m := range report.Missing {
					if m == rule {
						found = true
					}
				}
				if !found {
					t.Errorf("missing list %v lacks %q", report.Missing, rule)
				}
			}
			if report.Score < 0 || report.Score > 1 {
				t.Errorf("score = %v, want within [0,1]", report.Score)
			}
			if tc.passed && report.Severity != "info" {
				t.Errorf("severity = %q, want info for a passing draft", report.Severity)
			}
		})
	}
}

func scoredStories(n int) []domain.ScoredStory {
	out := make([]domain.ScoredStory, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.ScoredStory{
			EnrichedStory: domain.EnrichedStory{Story: domain.Story{
				Title:   "story",
				URL:     "https://a.example/s",
				Summary: "summary",
			}},
			Rank:  i + 1,
			Score: 0.5,
		})
	}
	return out
}

func TestChatGeneratorParsesDraft(t *testing.T) {
	t.Parallel()

	content, _ := json.Marshal(domain.Draft{
		Title: "Daily Brief",
		Segments: []domain.Segment{
			{Headline: "one", Body: longBody(80)},
			{Headline: "two", Body: longBody(60)},
		},
		FinalText: "stitched",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("authorization = %q", got)
		}
		var req struct {
			Model          string              `json:"model"`
			Messages       []map[string]string `json:"messages"`
			ResponseFormat map[string]string   `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("request = %+v", req)
		}
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("response_format = %v", req.ResponseFormat)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": string(content)}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	gen := NewChatGenerator(config.GenerationConfig{
		Endpoint: srv.URL,
		Model:    "test-model",
		APIKey:   "key",
	})
	gen.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }

	draft, err := gen.Generate(context.Background(), scoredStories(2))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if draft.Title != "Daily Brief" {
		t.Errorf("title = %q", draft.Title)
	}
	if draft.Segments[0].WordCount != 80 {
		t.Errorf("word count = %d, want backfilled 80", draft.Segments[0].WordCount)
	}
	if !draft.Validation.Passed {
		t.Errorf("validation failed: %v", draft.Validation.Missing)
	}
	if !draft.CreatedAt.Equal(time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("created at = %v", draft.CreatedAt)
	}
}

func TestChatGeneratorAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gen := NewChatGenerator(config.GenerationConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
	if _, err := gen.Generate(context.Background(), scoredStories(1)); err == nil {
		t.Fatal("generate succeeded on a 429 response")
	}
}

func TestChatGeneratorMalformedContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "not json at all"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	gen := NewChatGenerator(config.GenerationConfig{Endpoint: srv.URL, Model: "m", APIKey: "k"})
	if _, err := gen.Generate(context.Background(), scoredStories(1)); err == nil {
		t.Fatal("generate succeeded on unparseable content")
	}
}

func TestTemplateGeneratorDeterministic(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	gen := &TemplateGenerator{Now: now}

	stories := []domain.ScoredStory{
		{
			EnrichedStory: domain.EnrichedStory{Story: domain.Story{
				Title:   "Top story",
				URL:     "https://a.example/top",
				Summary: longBody(70),
			}},
			Rank:  1,
			Score: 0.81,
		},
		{
			EnrichedStory: domain.EnrichedStory{Story: domain.Story{
				Title:   "Second story",
				URL:     "https://a.example/second",
				Summary: longBody(70),
			}},
			Rank:  2,
			Score: 0.64,
		},
	}

	first, err := gen.Generate(context.Background(), stories)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := gen.Generate(context.Background(), stories)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if first.FinalText != second.FinalText {
		t.Error("template output differs between identical calls")
	}
	if len(first.Segments) != 2 {
		t.Fatalf("segments = %d, want one per story", len(first.Segments))
	}
	if !first.Validation.Passed {
		t.Errorf("validation failed: %v", first.Validation.Missing)
	}
	if !strings.Contains(first.Segments[0].Body, "ranks #1") {
		t.Errorf("segment body missing rank annotation: %q", first.Segments[0].Body)
	}
}
