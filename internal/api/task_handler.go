package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/phrazzld/aiorch/internal/api/shared"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/platform/logger"
)

// TaskProcessor runs a submitted task to completion.
// *orchestrator.Orchestrator satisfies it.
type TaskProcessor interface {
	Process(ctx context.Context, t domain.Task, userID string) (*domain.ResultEnvelope, error)
}

// TaskHandler handles task submission requests
type TaskHandler struct {
	processor TaskProcessor
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(processor TaskProcessor) *TaskHandler {
	return &TaskHandler{processor: processor}
}

// SubmitTask handles POST /api/tasks requests. The task runs synchronously and
// the result envelope is returned with 200.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var t domain.Task
	if err := shared.DecodeJSON(w, r, &t); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err,
			shared.WithKind(domain.KindValidation))
		return
	}

	// Context is resolved by the server, never accepted from clients.
	t.Context = nil

	userID := shared.GetUserID(r.Context())
	envelope, err := h.processor.Process(r.Context(), t, userID)
	if err != nil {
		kind := domain.KindOf(err)
		var failure *domain.ProcessingFailure
		if errors.As(err, &failure) {
			kind = failure.Kind
		}
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err,
			shared.WithKind(kind))
		return
	}

	logger.FromContext(r.Context()).Debug("task processed",
		"task_type", t.Type,
		"model", envelope.Metadata.ModelUsed,
		"from_cache", envelope.Metadata.FromCache)

	shared.RespondWithJSON(w, r, http.StatusOK, envelope)
}
