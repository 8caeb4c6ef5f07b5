package registry

import (
	"slices"

	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/generation"
)

// TypeGeneral is the category of catch-all models used when no model advertises
// the capability a task needs.
const TypeGeneral = "general"

// CapabilityText is the capability used for task types missing from the table.
const CapabilityText = "text"

// capabilityByTaskType maps each task type to the capability a model must advertise.
var capabilityByTaskType = map[domain.TaskType]string{
	domain.TaskAnalysis:       "analysis",
	domain.TaskGeneration:     "text-generation",
	domain.TaskSummarization:  "summarization",
	domain.TaskTranslation:    "translation",
	domain.TaskClassification: "classification",
	domain.TaskPrediction:     "prediction",
	domain.TaskPlanning:       "planning",
	domain.TaskOptimization:   "optimization",
	domain.TaskAutomation:     "automation",
	domain.TaskReporting:      "reporting",
	domain.TaskSupport:        "conversation",
	domain.TaskSearch:         "search",
}

// CapabilityFor returns the capability required to serve the given task type.
func CapabilityFor(taskType domain.TaskType) string {
	if c, ok := capabilityByTaskType[taskType]; ok {
		return c
	}
	return CapabilityText
}

// Model describes a registered processing implementation.
type Model struct {
	Name         string
	Type         string
	Capabilities []string
	MaxTokens    int
	CostPerToken float64
	AvgLatencyMs float64
	QualityScore float64

	// Available is nil when the provider never reported availability;
	// that is treated the same as true.
	Available *bool

	Processor generation.Processor
}

// IsAvailable reports whether the model may be selected.
func (m Model) IsAvailable() bool {
	return m.Available == nil || *m.Available
}

// HasCapability reports whether the model advertises capability c.
func (m Model) HasCapability(c string) bool {
	return slices.Contains(m.Capabilities, c)
}

// clone returns a copy whose slices and pointers are not shared with m.
func (m Model) clone() Model {
	c := m
	c.Capabilities = slices.Clone(m.Capabilities)
	if m.Available != nil {
		v := *m.Available
		c.Available = &v
	}
	return c
}
