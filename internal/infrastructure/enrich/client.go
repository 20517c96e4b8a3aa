// Package enrich provides Enricher implementations: a remote analysis
// service client and a local heuristic fallback.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"BriefCast/internal/domain"
	"BriefCast/internal/ports"
)

// Client talks to an external analysis service that scores stories.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Enricher = (*Client)(nil)

// NewClient creates a reusable HTTP enrichment client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Enrich posts story batches for analysis and attaches the returned score
// maps. The response is positional: one analysis per submitted story.
func (c *Client) Enrich(ctx context.Context, stories []domain.Story) ([]domain.EnrichedStory, error) {
	if len(stories) == 0 {
		return nil, nil
	}

	type item struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		URL     string `json:"url"`
	}
	payload := make([]item, 0, len(stories))
	for _, story := range stories {
		payload = append(payload, item{Title: story.Title, Summary: story.Summary, URL: story.URL})
	}

	var resp struct {
		Results []domain.Analysis `json:"results"`
	}
	if err := c.post(ctx, "/analyze", map[string]any{"stories": payload}, &resp); err != nil {
		return nil, domain.NewStageError("enrich", err, map[string]string{
			"endpoint": c.endpoint,
			"stories":  fmt.Sprint(len(stories)),
		})
	}

	if len(resp.Results) != len(stories) {
		return nil, fmt.Errorf("analysis service returned %d results for %d stories", len(resp.Results), len(stories))
	}

	enriched := make([]domain.EnrichedStory, 0, len(stories))
	for i, story := range stories {
		enriched = append(enriched, domain.EnrichedStory{Story: story, Analysis: resp.Results[i]})
	}
	return enriched, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
