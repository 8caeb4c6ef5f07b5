package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/generation"
	"github.com/phrazzld/aiorch/internal/redact"
	"google.golang.org/genai"
)

// DefaultModelName is used when the configuration leaves the model name empty.
const DefaultModelName = "gemini-2.0-flash"

// ContentGenerator is the subset of the genai client used by Processor.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Processor implements generation.Processor on top of the Gemini API.
type Processor struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models issues the GenerateContent calls
	models ContentGenerator

	// model is the name of the Gemini model to use
	model string
}

var _ generation.Processor = (*Processor)(nil)

// NewProcessor creates a Gemini client from cfg and wraps it in a Processor.
// The API key is required; an empty model name falls back to DefaultModelName.
func NewProcessor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Processor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	models, err := NewModels(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	return NewProcessorWithClient(logger, models, cfg.ModelName)
}

// NewModels creates a Gemini API client and returns its models service, which
// can be shared by several processors.
func NewModels(ctx context.Context, apiKey string) (*genai.Models, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, redact.Error(err))
	}
	return client.Models, nil
}

// NewProcessorWithClient builds a Processor over an existing content generator.
func NewProcessorWithClient(logger *slog.Logger, models ContentGenerator, model string) (*Processor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", generation.ErrInvalidConfig)
	}
	if model == "" {
		model = DefaultModelName
	}

	return &Processor{
		logger: logger.With("component", "gemini", "model", model),
		models: models,
		model:  model,
	}, nil
}

// Model returns the Gemini model name requests are sent to.
func (p *Processor) Model() string {
	return p.model
}

// Process renders the task prompt, makes a single GenerateContent call and
// converts the JSON answer into a result of the task's kind.
func (p *Processor) Process(ctx context.Context, task domain.Task) (generation.Output, error) {
	prompt, err := createPrompt(task)
	if err != nil {
		return generation.Output{}, fmt.Errorf("%w: %w", generation.ErrInvalidConfig, err)
	}

	p.logger.DebugContext(ctx, "Making Gemini API call",
		"task_type", task.Type,
		"prompt", redact.Prompt(prompt, 200))

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return generation.Output{}, ctxErr
		}
		p.logger.WarnContext(ctx, "Gemini API call failed",
			"task_type", task.Type,
			"error", redact.Error(err))
		return generation.Output{}, fmt.Errorf("%w: %v", generation.ErrTransientFailure, redact.Error(err))
	}

	text, err := responseText(resp)
	if err != nil {
		p.logger.WarnContext(ctx, "Unusable Gemini response",
			"task_type", task.Type,
			"error", err)
		return generation.Output{}, err
	}

	out, err := parseResponse(task.Type, text)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to parse Gemini response",
			"task_type", task.Type,
			"response", redact.Prompt(text, 200),
			"error", err)
		return generation.Output{}, err
	}

	p.logger.DebugContext(ctx, "Gemini API call successful", "task_type", task.Type)
	return out, nil
}

// responseText checks the response for blocks and missing content and returns its text.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: content blocked by safety filters", generation.ErrContentBlocked)
	}
	if resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: response has no text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// parseResponse converts the JSON answer into an Output of the given kind.
// Models sometimes wrap JSON in a markdown fence even when asked not to.
func parseResponse(kind domain.TaskType, text string) (generation.Output, error) {
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var parsed ResponseSchema
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &parsed); err != nil {
		return generation.Output{}, fmt.Errorf("%w: failed to parse JSON response: %v", generation.ErrInvalidResponse, err)
	}

	result := domain.Result{
		Kind:       kind,
		Text:       parsed.Text,
		Items:      parsed.Items,
		Structured: parsed.Structured,
	}
	for _, l := range parsed.Labels {
		result.Labels = append(result.Labels, domain.Label{Name: l.Name, Score: l.Score})
	}
	if err := result.Validate(); err != nil {
		return generation.Output{}, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}

	out := generation.Output{Result: result}
	if c := parsed.Confidence; c != nil && *c >= 0 && *c <= 1 {
		out.Confidence = generation.Confidence(*c)
	}
	return out, nil
}

func marshalCompact(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
