package enrich

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/events"
)

// History remembers the most recent task types completed per session.
type History struct {
	mu       sync.Mutex
	size     int
	sessions map[string][]domain.TaskType
}

// NewHistory keeps at most size task types per session.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 1
	}
	return &History{
		size:     size,
		sessions: make(map[string][]domain.TaskType),
	}
}

// Append records taskType as the newest entry for sessionID.
func (h *History) Append(sessionID string, taskType domain.TaskType) {
	if sessionID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	recent := append(h.sessions[sessionID], taskType)
	if len(recent) > h.size {
		recent = slices.Clone(recent[len(recent)-h.size:])
	}
	h.sessions[sessionID] = recent
}

// Recent returns the task types of sessionID, oldest first.
func (h *History) Recent(sessionID string) []domain.TaskType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sessions[sessionID])
}

// HandleEvent appends completed tasks to their session. Other events are ignored.
func (h *History) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	if event.Type != events.TypeTaskCompleted {
		return nil
	}
	var outcome events.TaskOutcome
	if err := event.UnmarshalPayload(&outcome); err != nil {
		return fmt.Errorf("decode task outcome: %w", err)
	}
	h.Append(outcome.SessionID, outcome.TaskType)
	return nil
}

var _ events.EventHandler = (*History)(nil)
