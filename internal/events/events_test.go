package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskEvent(t *testing.T) {
	outcome := TaskOutcome{
		TaskType:   domain.TaskSummarization,
		SessionID:  "s-1",
		Model:      "summarizer",
		DurationMs: 42,
	}

	event, err := NewTaskEvent(TypeTaskCompleted, outcome)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeTaskCompleted, event.Type)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	var decoded TaskOutcome
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, outcome, decoded)
}

func TestNewTaskEvent_UnencodablePayload(t *testing.T) {
	_, err := NewTaskEvent(TypeTaskFailed, map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *TaskEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestEventHandlerFunc(t *testing.T) {
	var got *TaskEvent
	h := EventHandlerFunc(func(ctx context.Context, event *TaskEvent) error {
		got = event
		return nil
	})

	event, err := NewTaskEvent(TypeTaskCompleted, TaskOutcome{})
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(context.Background(), event))
	assert.Same(t, event, got)
}
