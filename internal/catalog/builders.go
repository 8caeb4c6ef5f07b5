package catalog

import (
	"context"
	"log/slog"

	"github.com/phrazzld/aiorch/internal/generation"
	"github.com/phrazzld/aiorch/internal/platform/echo"
	"github.com/phrazzld/aiorch/internal/platform/gemini"
)

// EchoBuilder builds the local echo processor.
func EchoBuilder(_ context.Context, spec ModelSpec) (generation.Processor, error) {
	opts := []echo.Option{echo.WithDelay(spec.EchoDelay)}
	if spec.Confidence != nil {
		opts = append(opts, echo.WithConfidence(*spec.Confidence))
	}
	return echo.New(opts...), nil
}

// GeminiBuilder returns a Builder that shares one Gemini client across models.
// Entries without gemini_model use defaultModel.
func GeminiBuilder(logger *slog.Logger, models gemini.ContentGenerator, defaultModel string) Builder {
	return func(_ context.Context, spec ModelSpec) (generation.Processor, error) {
		name := spec.GeminiModel
		if name == "" {
			name = defaultModel
		}
		return gemini.NewProcessorWithClient(logger, models, name)
	}
}
