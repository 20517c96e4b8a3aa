// Package llm generates script drafts: a remote OpenAI-compatible client
// and a deterministic template generator for offline runs and tests.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"BriefCast/internal/config"
	"BriefCast/internal/domain"
	"BriefCast/internal/ports"
)

// ChatGenerator produces drafts through an OpenAI-compatible chat API.
type ChatGenerator struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	now          func() time.Time
}

var _ ports.Generator = (*ChatGenerator)(nil)

// NewChatGenerator builds a client from configuration.
func NewChatGenerator(cfg config.GenerationConfig) *ChatGenerator {
	return &ChatGenerator{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Generate sends the selected stories as a user message and parses the
// returned JSON draft. The draft is validated before being returned; a
// failed validation is data for the routing layer, not an error.
func (g *ChatGenerator) Generate(ctx context.Context, stories []domain.ScoredStory) (domain.Draft, error) {
	if g.apiKey == "" || g.endpoint == "" || g.model == "" {
		return domain.Draft{}, fmt.Errorf("chat generator misconfigured")
	}

	payload, err := storiesPayload(stories)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("build stories payload: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model": g.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(g.systemPrompt)},
			{"role": "user", "content": payload},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Draft{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("send generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Draft{}, fmt.Errorf("chat api error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return domain.Draft{}, fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return domain.Draft{}, fmt.Errorf("chat api returned no choices")
	}

	var draft domain.Draft
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &draft); err != nil {
		return domain.Draft{}, fmt.Errorf("parse generated draft: %w", err)
	}
	draft.CreatedAt = g.now()
	for i := range draft.Segments {
		if draft.Segments[i].WordCount == 0 {
			draft.Segments[i].WordCount = len(strings.Fields(draft.Segments[i].Body))
		}
	}
	draft.Validation = Validate(draft, len(stories))
	return draft, nil
}

func storiesPayload(stories []domain.ScoredStory) (string, error) {
	type item struct {
		Rank    int     `json:"rank"`
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Summary string  `json:"summary"`
		Score   float64 `json:"score"`
	}
	payload := make([]item, 0, len(stories))
	for _, story := range stories {
		payload = append(payload, item{
			Rank:    story.Rank,
			Title:   story.Title,
			URL:     story.URL,
			Summary: story.Summary,
			Score:   story.Score,
		})
	}
	raw, err := json.Marshal(payload)
	return string(raw), err
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You write tight daily news scripts. Respond with a JSON draft: title, segments[{headline,body,keywords}], final_text."
	}
	return prompt
}
