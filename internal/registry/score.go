package registry

import (
	"math"

	"github.com/phrazzld/aiorch/internal/domain"
)

// Composite score weights.
const (
	weightQuality        = 0.4
	weightLatency        = 0.3
	weightCost           = 0.2
	weightSpecialization = 0.1
)

// costThresholds are the per-token prices at which the cost component reaches zero.
var costThresholds = map[domain.CostConstraint]float64{
	domain.CostLow:    0.0002,
	domain.CostMedium: 0.0005,
	domain.CostHigh:   0.001,
}

// CostThreshold returns the cost ceiling for a constraint; unknown values use medium.
func CostThreshold(c domain.CostConstraint) float64 {
	if t, ok := costThresholds[c]; ok {
		return t
	}
	return costThresholds[domain.CostMedium]
}

// meetsHardConstraints reports whether m may be considered at all for c.
func meetsHardConstraints(m Model, c domain.SelectionCriteria) bool {
	return m.IsAvailable() &&
		m.AvgLatencyMs <= c.LatencyRequirementMs &&
		m.QualityScore >= c.QualityRequirement
}

// Score computes the weighted composite used to rank candidates that already
// passed the hard constraints. capability is the one mapped from the task type.
func Score(m Model, c domain.SelectionCriteria, capability string) float64 {
	quality := 1.0
	if c.QualityRequirement > 0 {
		quality = math.Min(m.QualityScore/c.QualityRequirement, 1)
	}

	latency := 0.0
	if c.LatencyRequirementMs > 0 {
		latency = math.Max(0, 1-m.AvgLatencyMs/c.LatencyRequirementMs)
	}

	cost := math.Max(0, 1-m.CostPerToken/CostThreshold(c.CostConstraint))

	specialization := 0.5
	if m.HasCapability(capability) {
		specialization = 0.7
		if m.Type != TypeGeneral {
			specialization = 1.0
		}
	}

	return weightQuality*quality +
		weightLatency*latency +
		weightCost*cost +
		weightSpecialization*specialization
}
