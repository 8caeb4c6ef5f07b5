package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrEmptyInput is returned when a task reaches the processor without input text.
	ErrEmptyInput = errors.New("task input cannot be empty")
)
