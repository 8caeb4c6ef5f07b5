package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/service/auth"
	"github.com/phrazzld/aiorch/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	// Malformed tasks
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	// Nothing can serve the task, or what served it produced the wrong shape
	case errors.Is(err, domain.ErrNoCandidate),
		errors.Is(err, domain.ErrInvalidResult):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout

	// Checked before processing errors: a closed queue also reports as a processing failure
	case errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	case errors.Is(err, domain.ErrQueueExhausted),
		errors.Is(err, domain.ErrProcessing):
		return http.StatusBadGateway

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, auth.ErrMissingToken):
		return "Invalid token"

	case errors.Is(err, domain.ErrValidation):
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return SanitizeValidationError(verrs)
		}
		return "Validation error"

	case errors.Is(err, domain.ErrNoCandidate):
		return "No model satisfies the task constraints"

	case errors.Is(err, domain.ErrInvalidResult):
		return "The model returned an invalid result"

	case errors.Is(err, domain.ErrDeadlineExceeded):
		return "Task deadline exceeded"

	case errors.Is(err, task.ErrQueueClosed):
		return "Service is shutting down"

	case errors.Is(err, domain.ErrQueueExhausted):
		return "Task failed after all retries"

	case errors.Is(err, domain.ErrProcessing):
		return "Model processing failed"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(fe.Tag()))
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "tasktype":
		return "unsupported task type"
	case "gte", "lte":
		return "out of range"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
