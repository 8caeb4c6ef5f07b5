package api

import (
	"github.com/phrazzld/aiorch/internal/cache"
	"github.com/phrazzld/aiorch/internal/registry"
	"github.com/phrazzld/aiorch/internal/task"
)

// ModelResponse describes a registered model without its processor.
type ModelResponse struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
	MaxTokens    int      `json:"maxTokens"`
	CostPerToken float64  `json:"costPerToken"`
	AvgLatencyMs float64  `json:"avgLatencyMs"`
	QualityScore float64  `json:"qualityScore"`
	Available    bool     `json:"available"`
}

// ModelsResponse is returned by GET /api/models.
type ModelsResponse struct {
	Models []ModelResponse `json:"models"`
}

// QueueStatsResponse is returned by GET /api/queue/stats.
type QueueStatsResponse struct {
	Queue task.Stats  `json:"queue"`
	Cache cache.Stats `json:"cache"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Models int    `json:"models"`
}

func modelToResponse(m registry.Model) ModelResponse {
	return ModelResponse{
		Name:         m.Name,
		Type:         m.Type,
		Capabilities: m.Capabilities,
		MaxTokens:    m.MaxTokens,
		CostPerToken: m.CostPerToken,
		AvgLatencyMs: m.AvgLatencyMs,
		QualityScore: m.QualityScore,
		Available:    m.IsAvailable(),
	}
}
