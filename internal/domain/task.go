package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
)

// TaskType identifies the kind of AI work requested.
type TaskType string

// Supported task types.
const (
	TaskAnalysis       TaskType = "analysis"
	TaskGeneration     TaskType = "generation"
	TaskSummarization  TaskType = "summarization"
	TaskTranslation    TaskType = "translation"
	TaskClassification TaskType = "classification"
	TaskPrediction     TaskType = "prediction"
	TaskPlanning       TaskType = "planning"
	TaskOptimization   TaskType = "optimization"
	TaskAutomation     TaskType = "automation"
	TaskReporting      TaskType = "reporting"
	TaskSupport        TaskType = "support"
	TaskSearch         TaskType = "search"
)

// TaskTypes lists every supported task type in declaration order.
var TaskTypes = []TaskType{
	TaskAnalysis, TaskGeneration, TaskSummarization, TaskTranslation,
	TaskClassification, TaskPrediction, TaskPlanning, TaskOptimization,
	TaskAutomation, TaskReporting, TaskSupport, TaskSearch,
}

// Priority is the queue tier a task is scheduled in.
type Priority string

// Priority tiers, highest first: urgent > high > normal > low.
const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank orders priorities; a larger rank is served first. Unknown values rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 0
	default:
		return 1
	}
}

// CostConstraint bounds how expensive the selected model may be.
type CostConstraint string

// Cost constraint levels.
const (
	CostLow    CostConstraint = "low"
	CostMedium CostConstraint = "medium"
	CostHigh   CostConstraint = "high"
)

// Complexity is the coarse difficulty class derived from a task.
type Complexity string

// Complexity classes.
const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Defaults applied to optional task fields.
const (
	DefaultMaxLatencyMs   = 5000
	DefaultMinQuality     = 0.8
	DefaultPriority       = PriorityNormal
	DefaultCostConstraint = CostMedium
)

// Attachment references supplementary material for a task.
type Attachment struct {
	Type     string         `json:"type" validate:"required"`
	URL      string         `json:"url" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskContext is the resolved context attached to an enriched task.
type TaskContext struct {
	Timestamp   time.Time      `json:"timestamp"`
	SessionID   string         `json:"sessionId,omitempty"`
	UserID      string         `json:"userId,omitempty"`
	RecentTasks []TaskType     `json:"recentTasks,omitempty"`
	Business    map[string]any `json:"business,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// Task is a unit of requested AI work. Tasks are treated as immutable once
// submitted; enrichment produces a copy through WithContext.
type Task struct {
	Type           TaskType       `json:"type" validate:"required,tasktype"`
	Input          string         `json:"input" validate:"required"`
	Attachments    []Attachment   `json:"attachments,omitempty" validate:"dive"`
	Priority       Priority       `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	MaxLatencyMs   int            `json:"maxLatencyMs,omitempty" validate:"gte=0"`
	MinQuality     float64        `json:"minQuality,omitempty" validate:"gte=0,lte=1"`
	CostConstraint CostConstraint `json:"costConstraint,omitempty" validate:"omitempty,oneof=low medium high"`
	SessionID      string         `json:"sessionId,omitempty"`
	Context        *TaskContext   `json:"context,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("tasktype", func(fl validator.FieldLevel) bool {
		return slices.Contains(TaskTypes, TaskType(fl.Field().String()))
	})
	return v
}

// WithDefaults returns a copy of the task with zero-valued optional fields
// replaced by their documented defaults.
func (t Task) WithDefaults() Task {
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	if t.MaxLatencyMs == 0 {
		t.MaxLatencyMs = DefaultMaxLatencyMs
	}
	if t.MinQuality == 0 {
		t.MinQuality = DefaultMinQuality
	}
	if t.CostConstraint == "" {
		t.CostConstraint = DefaultCostConstraint
	}
	return t
}

// Validate checks the task against the submission contract.
// The returned error wraps ErrValidation.
func (t Task) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// WithContext returns an enriched copy of the task. Slices and maps are copied so the
// caller's original task is never mutated through the copy.
func (t Task) WithContext(c TaskContext) Task {
	enriched := t.Clone()
	c.RecentTasks = slices.Clone(c.RecentTasks)
	c.Business = maps.Clone(c.Business)
	c.Preferences = maps.Clone(c.Preferences)
	enriched.Context = &c
	return enriched
}

// Clone returns a copy of the task that shares no mutable state with t.
func (t Task) Clone() Task {
	c := t
	if t.Attachments != nil {
		c.Attachments = make([]Attachment, len(t.Attachments))
		for i, a := range t.Attachments {
			a.Metadata = maps.Clone(a.Metadata)
			c.Attachments[i] = a
		}
	}
	c.Metadata = maps.Clone(t.Metadata)
	if t.Context != nil {
		ctx := *t.Context
		ctx.RecentTasks = slices.Clone(ctx.RecentTasks)
		ctx.Business = maps.Clone(ctx.Business)
		ctx.Preferences = maps.Clone(ctx.Preferences)
		c.Context = &ctx
	}
	return c
}

// SelectionCriteria are the constraints derived from a task that drive model selection.
type SelectionCriteria struct {
	TaskType             TaskType       `json:"taskType"`
	Complexity           Complexity     `json:"complexity"`
	LatencyRequirementMs float64        `json:"latencyRequirementMs"`
	QualityRequirement   float64        `json:"qualityRequirement"`
	CostConstraint       CostConstraint `json:"costConstraint"`
}
