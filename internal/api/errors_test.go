package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/service/auth"
	"github.com/phrazzld/aiorch/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error { return domain.NewProcessingFailure("task failed", err) }

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", wrap(domain.ErrValidation), http.StatusBadRequest, "Validation error"},
		{"no candidate", wrap(domain.ErrNoCandidate), http.StatusUnprocessableEntity, "No model satisfies the task constraints"},
		{"invalid result", wrap(domain.ErrInvalidResult), http.StatusUnprocessableEntity, "The model returned an invalid result"},
		{"deadline", wrap(domain.ErrDeadlineExceeded), http.StatusGatewayTimeout, "Task deadline exceeded"},
		{"exhausted", wrap(fmt.Errorf("%w: %w", domain.ErrQueueExhausted, domain.ErrProcessing)), http.StatusBadGateway, "Task failed after all retries"},
		{"processing", wrap(domain.ErrProcessing), http.StatusBadGateway, "Model processing failed"},
		{"queue closed", wrap(fmt.Errorf("%w: %w", domain.ErrProcessing, task.ErrQueueClosed)), http.StatusServiceUnavailable, "Service is shutting down"},
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Invalid token"},
		{"unknown", errors.New("database password=hunter22 leaked"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestGetSafeErrorMessageNamesInvalidField(t *testing.T) {
	t.Parallel()

	err := domain.Task{Type: "poetry", Input: "x"}.Validate()
	assert.Equal(t, "Invalid Type: unsupported task type", GetSafeErrorMessage(err))

	err = domain.Task{Type: domain.TaskSearch, Input: "x", MinQuality: 2}.Validate()
	assert.Equal(t, "Invalid MinQuality: out of range", GetSafeErrorMessage(err))

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}
