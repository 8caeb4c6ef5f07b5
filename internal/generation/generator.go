package generation

import (
	"context"

	"github.com/phrazzld/aiorch/internal/domain"
)

// Output is what a processor hands back for a single task.
// Result.Kind may be left empty; the orchestrator fills it with the task type
// before validating the per-kind schema.
type Output struct {
	Result domain.Result

	// Confidence is the processor's own estimate in [0,1], if it has one.
	Confidence *float64
}

// Processor defines the interface every model implementation satisfies.
// This interface serves as a boundary between the orchestration core and
// external AI/LLM services, following the hexagonal architecture pattern.
type Processor interface {
	// Process runs the task and returns its output. The context carries the
	// task deadline derived from MaxLatencyMs; implementations must honour it.
	Process(ctx context.Context, task domain.Task) (Output, error)
}

// ProcessorFunc adapts an ordinary function to the Processor interface.
type ProcessorFunc func(ctx context.Context, task domain.Task) (Output, error)

// Process calls f(ctx, task).
func (f ProcessorFunc) Process(ctx context.Context, task domain.Task) (Output, error) {
	return f(ctx, task)
}

// Confidence is a convenience for building Output values.
func Confidence(v float64) *float64 {
	return &v
}
