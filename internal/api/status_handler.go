package api

import (
	"net/http"

	"github.com/phrazzld/aiorch/internal/api/shared"
	"github.com/phrazzld/aiorch/internal/cache"
	"github.com/phrazzld/aiorch/internal/monitor"
	"github.com/phrazzld/aiorch/internal/registry"
	"github.com/phrazzld/aiorch/internal/task"
)

// StatusSource exposes the read-only views served by StatusHandler.
// *orchestrator.Orchestrator satisfies it.
type StatusSource interface {
	Registry() *registry.Registry
	Monitor() *monitor.Monitor
	CacheStats() cache.Stats
	QueueStats() task.Stats
}

// StatusHandler serves registry, metrics and queue introspection endpoints.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// ListModels handles GET /api/models.
func (h *StatusHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	all := h.source.Registry().All()
	resp := ModelsResponse{Models: make([]ModelResponse, 0, len(all))}
	for _, m := range all {
		resp.Models = append(resp.Models, modelToResponse(m))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ModelHealth handles GET /api/models/health.
func (h *StatusHandler) ModelHealth(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.source.Registry().Health())
}

// MetricsReport handles GET /api/metrics/report.
func (h *StatusHandler) MetricsReport(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.source.Monitor().Report())
}

// QueueStats handles GET /api/queue/stats.
func (h *StatusHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, QueueStatsResponse{
		Queue: h.source.QueueStats(),
		Cache: h.source.CacheStats(),
	})
}

// Health handles GET /health. It reports "degraded" when no model is available.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.source.Registry().Health()
	resp := HealthResponse{Status: "ok", Models: health.AvailableModels}
	status := http.StatusOK
	if health.AvailableModels == 0 {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, status, resp)
}
