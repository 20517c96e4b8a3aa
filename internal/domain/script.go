package domain

import "time"

// ValidationReport is the outcome of validating one generated draft.
// Validation failure is data, not an error: it drives routing decisions.
type ValidationReport struct {
	Passed   bool               `json:"passed"`
	Score    float64            `json:"score"`
	Missing  []string           `json:"missing,omitempty"`
	Severity string             `json:"severity,omitempty"`
	Metrics  map[string]float64 `json:"metrics,omitempty"`
}

// Segment is one narrative unit of a draft.
type Segment struct {
	Headline  string   `json:"headline"`
	Body      string   `json:"body"`
	Keywords  []string `json:"keywords,omitempty"`
	WordCount int      `json:"word_count,omitempty"`
}

// Draft is the artifact emitted by the generation node. The pipeline core
// never inspects it beyond Validation.
type Draft struct {
	Title      string            `json:"title,omitempty"`
	Segments   []Segment         `json:"segments,omitempty"`
	FinalText  string            `json:"final_text,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Validation ValidationReport  `json:"validation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// TotalWords sums the word counts of all segments.
func (d Draft) TotalWords() int {
	total := 0
	for _, seg := range d.Segments {
		total += seg.WordCount
	}
	return total
}
