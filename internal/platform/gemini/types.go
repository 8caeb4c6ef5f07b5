package gemini

import "github.com/phrazzld/aiorch/internal/domain"

// promptData represents the data passed to the prompt templates
type promptData struct {
	Type        domain.TaskType
	Input       string
	Attachments []domain.Attachment
	Context     *domain.TaskContext
}

// ResponseSchema represents the JSON object the model is asked to return.
// Which fields are populated depends on the task type.
type ResponseSchema struct {
	// Text is the prose answer for generation-style tasks
	Text string `json:"text,omitempty"`

	// Labels are scored classes for classification tasks
	Labels []LabelSchema `json:"labels,omitempty"`

	// Items are ranked results for search tasks
	Items []string `json:"items,omitempty"`

	// Structured carries free-form findings for analysis-style tasks
	Structured map[string]any `json:"structured,omitempty"`

	// Confidence is the model's self-reported confidence in [0,1]
	Confidence *float64 `json:"confidence,omitempty"`
}

// LabelSchema is a single scored class in a classification response
type LabelSchema struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}
