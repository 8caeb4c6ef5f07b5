package orchestrator

import (
	"unicode/utf8"

	"github.com/phrazzld/aiorch/internal/domain"
)

// Input length thresholds for the complexity score.
const (
	longInputChars     = 1000
	veryLongInputChars = 5000
)

// ClassifyComplexity scores a task: +2 for input longer than 1000 characters,
// +3 more past 5000, +2 for attachments and +3 for analysis, prediction or
// planning. Up to 3 is low, up to 6 medium, anything above is high.
func ClassifyComplexity(t domain.Task) domain.Complexity {
	score := 0
	n := utf8.RuneCountInString(t.Input)
	if n > longInputChars {
		score += 2
	}
	if n > veryLongInputChars {
		score += 3
	}
	if len(t.Attachments) > 0 {
		score += 2
	}
	switch t.Type {
	case domain.TaskAnalysis, domain.TaskPrediction, domain.TaskPlanning:
		score += 3
	}

	switch {
	case score <= 3:
		return domain.ComplexityLow
	case score <= 6:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityHigh
	}
}

// DeriveCriteria turns a defaulted task into model selection criteria.
func DeriveCriteria(t domain.Task) domain.SelectionCriteria {
	return domain.SelectionCriteria{
		TaskType:             t.Type,
		Complexity:           ClassifyComplexity(t),
		LatencyRequirementMs: float64(t.MaxLatencyMs),
		QualityRequirement:   t.MinQuality,
		CostConstraint:       t.CostConstraint,
	}
}
