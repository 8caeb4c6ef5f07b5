// Package gemini provides an implementation of the generation.Processor interface
// that uses Google's Gemini API to run orchestration tasks.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the orchestration core to Google's external Gemini AI service.
// It translates between domain tasks and Gemini requests without exposing the
// details of the external service to the rest of the application.
//
// Key components:
//
// 1. Processor:
//   - Implements the generation.Processor interface
//   - Makes exactly one GenerateContent call per attempt; retries belong to the task queue
//   - Asks for a JSON response and converts it into a domain.Result
//
// 2. Prompt Management:
//   - One text/template per task type, sharing a common preamble
//   - Enriched context (recent tasks, business context, preferences) is rendered into the prompt
//
// 3. Error Handling:
//   - Safety blocks map to generation.ErrContentBlocked
//   - Unparseable output maps to generation.ErrInvalidResponse
//   - API and transport failures map to generation.ErrTransientFailure
package gemini
