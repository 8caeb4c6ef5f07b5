// Package echo provides a local generation.Processor that answers every task
// type from the task input alone. It needs no credentials, so a server can run
// end to end without an external model, and its output is deterministic.
package echo

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/generation"
)

// Processor echoes task input back in the shape each task type requires.
type Processor struct {
	delay      time.Duration
	confidence *float64
}

var _ generation.Processor = (*Processor)(nil)

// Option configures a Processor.
type Option func(*Processor)

// WithDelay makes every call take at least d, honouring cancellation.
func WithDelay(d time.Duration) Option {
	return func(p *Processor) { p.delay = d }
}

// WithConfidence sets the confidence reported with every output.
func WithConfidence(c float64) Option {
	return func(p *Processor) { p.confidence = generation.Confidence(c) }
}

// New returns an echo processor.
func New(opts ...Option) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process implements generation.Processor.
func (p *Processor) Process(ctx context.Context, task domain.Task) (generation.Output, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return generation.Output{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return generation.Output{}, err
	}

	words := strings.Fields(task.Input)
	result := domain.Result{Kind: task.Type}

	switch task.Type {
	case domain.TaskClassification:
		label := "unlabelled"
		if len(words) > 0 {
			label = strings.ToLower(words[0])
		}
		result.Labels = []domain.Label{{Name: label, Score: 1}}
	case domain.TaskSearch:
		result.Items = words
		if len(words) == 0 {
			result.Text = task.Input
		}
	case domain.TaskAnalysis, domain.TaskPrediction, domain.TaskPlanning,
		domain.TaskOptimization, domain.TaskAutomation:
		result.Structured = map[string]any{
			"characters": utf8.RuneCountInString(task.Input),
			"words":      len(words),
		}
		result.Text = task.Input
	case domain.TaskSummarization:
		result.Text = strings.Join(words[:min(len(words), 12)], " ")
	default:
		result.Text = task.Input
	}

	return generation.Output{Result: result, Confidence: p.confidence}, nil
}
