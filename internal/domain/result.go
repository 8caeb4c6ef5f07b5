package domain

import (
	"fmt"
	"slices"
	"time"
)

// Label is a scored class assigned by a classification model.
type Label struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Result is the typed output of a task. Kind always equals the task type that
// produced it and determines which of the remaining fields must be populated.
type Result struct {
	Kind       TaskType       `json:"kind"`
	Text       string         `json:"text,omitempty"`
	Labels     []Label        `json:"labels,omitempty"`
	Items      []string       `json:"items,omitempty"`
	Structured map[string]any `json:"structured,omitempty"`
}

// Validate checks the per-kind schema. The returned error wraps ErrInvalidResult.
func (r Result) Validate() error {
	switch r.Kind {
	case TaskGeneration, TaskSummarization, TaskTranslation, TaskSupport, TaskReporting:
		if r.Text == "" {
			return fmt.Errorf("%w: %s result requires text", ErrInvalidResult, r.Kind)
		}
	case TaskClassification:
		if len(r.Labels) == 0 {
			return fmt.Errorf("%w: classification result requires at least one label", ErrInvalidResult)
		}
		for i, l := range r.Labels {
			if l.Name == "" {
				return fmt.Errorf("%w: label %d has no name", ErrInvalidResult, i)
			}
		}
	case TaskSearch:
		if len(r.Items) == 0 && r.Text == "" {
			return fmt.Errorf("%w: search result requires items or text", ErrInvalidResult)
		}
	case TaskAnalysis, TaskPrediction, TaskPlanning, TaskOptimization, TaskAutomation:
		if len(r.Structured) == 0 && r.Text == "" {
			return fmt.Errorf("%w: %s result requires structured data or text", ErrInvalidResult, r.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown result kind %q", ErrInvalidResult, r.Kind)
	}
	return nil
}

// Clone returns a deep copy of r, so the copy can be handed out while r stays untouched.
func (r Result) Clone() Result {
	c := r
	c.Labels = slices.Clone(r.Labels)
	c.Items = slices.Clone(r.Items)
	if r.Structured != nil {
		c.Structured = cloneMap(r.Structured)
	}
	return c
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the container types produced by JSON decoding; other values
// are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// EnvelopeMetadata describes how a result was produced.
type EnvelopeMetadata struct {
	FromCache        bool      `json:"fromCache"`
	Timestamp        time.Time `json:"timestamp"`
	Confidence       float64   `json:"confidence"`
	ProcessingTimeMs float64   `json:"processingTimeMs"`
	ModelUsed        string    `json:"modelUsed"`
}

// ResultEnvelope is the only object returned to callers of the orchestrator.
type ResultEnvelope struct {
	Data     Result           `json:"data"`
	Metadata EnvelopeMetadata `json:"metadata"`
}
