package llm

import (
	"fmt"

	"BriefCast/internal/domain"
)

// Validation rule identifiers reported in ValidationReport.Missing.
const (
	RuleTitle        = "title_present"
	RuleSegmentCount = "segment_count"
	RuleSegmentBody  = "segment_body"
	RuleMinWords     = "min_total_words"
)

const minTotalWords = 120

// Validate checks a draft against the structural rules and scores it in
// [0,1]. Failures are reported as rule identifiers, never raised.
func Validate(draft domain.Draft, expectedSegments int) domain.ValidationReport {
	var missing []string

	if draft.Title == "" {
		missing = append(missing, RuleTitle)
	}
	if expectedSegments > 0 && len(draft.Segments) < expectedSegments {
		missing = append(missing, RuleSegmentCount)
	}
	for i, segment := range draft.Segments {
		if segment.Body == "" {
			missing = append(missing, fmt.Sprintf("%s:%d", RuleSegmentBody, i))
		}
	}
	if draft.TotalWords() < minTotalWords {
		missing = append(missing, RuleMinWords)
	}

	totalRules := 3 + len(draft.Segments)
	score := 1.0 - float64(len(missing))/float64(totalRules)
	if score < 0 {
		score = 0
	}

	severity := "info"
	if len(missing) > 0 {
		severity = "warning"
	}

	return domain.ValidationReport{
		Passed:   len(missing) == 0,
		Score:    score,
		Missing:  missing,
		Severity: severity,
		Metrics: map[string]float64{
			"segments":    float64(len(draft.Segments)),
			"total_words": float64(draft.TotalWords()),
		},
	}
}
