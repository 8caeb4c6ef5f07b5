package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the orchestration components.
// Callers check for these with errors.Is; the API layer maps them to status codes.
var (
	// ErrValidation is returned when a task is malformed. It is surfaced immediately,
	// without queueing or model selection.
	ErrValidation = errors.New("validation failed")

	// ErrNoCandidate is returned when no registered model meets the hard
	// latency/quality/availability constraints. It is never retried.
	ErrNoCandidate = errors.New("no candidate model satisfies the constraints")

	// ErrProcessing wraps a failure returned by a model's Process call.
	ErrProcessing = errors.New("model processing failed")

	// ErrQueueExhausted is returned once an item has used up all of its retries.
	ErrQueueExhausted = errors.New("retries exhausted")

	// ErrCache marks failures inside fingerprinting or similarity scoring.
	// It is logged and counted but never propagated to callers.
	ErrCache = errors.New("cache failure")

	// ErrInvalidResult is returned when a model's output does not match the
	// schema of the task type it was asked to process.
	ErrInvalidResult = errors.New("invalid model result")

	// ErrDeadlineExceeded is returned when MaxLatencyMs elapses before a result is available.
	ErrDeadlineExceeded = errors.New("task deadline exceeded")

	// ErrEnrichment marks a context lookup that failed, timed out or panicked.
	// Like ErrCache it is counted but never propagated.
	ErrEnrichment = errors.New("context enrichment failed")
)

// Failure kinds reported by ProcessingFailure.
const (
	KindValidation     = "ValidationError"
	KindNoCandidate    = "NoCandidateError"
	KindProcessing     = "ProcessingError"
	KindQueueExhausted = "QueueExhaustedError"
	KindInvalidResult  = "InvalidResultError"
	KindDeadline       = "DeadlineExceededError"
	KindCache          = "CacheError"
	KindEnrichment     = "EnrichmentError"
)

// ProcessingFailure is the error returned by the orchestrator when a task cannot be
// completed. It carries the taxonomy kind and a human-readable message and wraps the
// underlying cause so errors.Is keeps working against the sentinels above.
type ProcessingFailure struct {
	Kind    string
	Message string
	Err     error
}

// Error implements the error interface.
func (f *ProcessingFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
}

// Unwrap returns the underlying cause.
func (f *ProcessingFailure) Unwrap() error {
	return f.Err
}

// KindOf classifies err into one of the failure kinds. Unknown errors are reported
// as processing failures.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNoCandidate):
		return KindNoCandidate
	case errors.Is(err, ErrInvalidResult):
		return KindInvalidResult
	case errors.Is(err, ErrDeadlineExceeded):
		return KindDeadline
	case errors.Is(err, ErrQueueExhausted):
		return KindQueueExhausted
	case errors.Is(err, ErrCache):
		return KindCache
	case errors.Is(err, ErrEnrichment):
		return KindEnrichment
	default:
		return KindProcessing
	}
}

// NewProcessingFailure wraps err into a ProcessingFailure with its classified kind.
func NewProcessingFailure(message string, err error) *ProcessingFailure {
	return &ProcessingFailure{
		Kind:    KindOf(err),
		Message: message,
		Err:     err,
	}
}
