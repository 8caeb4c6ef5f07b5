package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var nopProcessor = generation.ProcessorFunc(func(ctx context.Context, task domain.Task) (generation.Output, error) {
	return generation.Output{Result: domain.Result{Text: task.Input}}, nil
})

func newModel(name, typ string, quality, latency, cost float64, caps ...string) Model {
	return Model{
		Name:         name,
		Type:         typ,
		Capabilities: caps,
		MaxTokens:    4096,
		CostPerToken: cost,
		AvgLatencyMs: latency,
		QualityScore: quality,
		Processor:    nopProcessor,
	}
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	r := New(testLogger())

	err := r.Register(Model{Capabilities: []string{"analysis"}, Processor: nopProcessor})
	assert.ErrorIs(t, err, ErrInvalidModel, "name is required")

	err = r.Register(Model{Name: "empty", Processor: nopProcessor})
	assert.ErrorIs(t, err, ErrInvalidModel, "capabilities are required")

	err = r.Register(Model{Name: "noproc", Capabilities: []string{"analysis"}})
	assert.ErrorIs(t, err, ErrInvalidModel, "processor is required")

	assert.Empty(t, r.All())
}

func TestRegister_DuplicatePolicy(t *testing.T) {
	t.Parallel()

	t.Run("overwrite keeps order and re-indexes", func(t *testing.T) {
		t.Parallel()

		r := New(testLogger())
		require.NoError(t, r.Register(newModel("a", "analysis", 0.9, 100, 0.0001, "analysis")))
		require.NoError(t, r.Register(newModel("b", "general", 0.9, 100, 0.0001, "text")))
		require.NoError(t, r.Register(newModel("a", "general", 0.7, 300, 0.0001, "summarization")))

		all := r.All()
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].Name)
		assert.InDelta(t, 0.7, all[0].QualityScore, 1e-9)

		h := r.Health()
		assert.Equal(t, 2, h.ModelsByType["general"])
		assert.NotContains(t, h.ModelsByType, "analysis")
		assert.NotContains(t, h.ModelsByCapability, "analysis")
		assert.Equal(t, 1, h.ModelsByCapability["summarization"])
	})

	t.Run("reject", func(t *testing.T) {
		t.Parallel()

		r := New(testLogger(), WithDuplicatePolicy(DuplicateReject))
		require.NoError(t, r.Register(newModel("a", "analysis", 0.9, 100, 0.0001, "analysis")))
		err := r.Register(newModel("a", "general", 0.5, 100, 0.0001, "text"))

		assert.ErrorIs(t, err, ErrDuplicateModel)
		m, ok := r.Get("a")
		require.True(t, ok)
		assert.Equal(t, "analysis", m.Type)
	})
}

func TestGetUnregisterAvailable(t *testing.T) {
	t.Parallel()

	r := New(testLogger())
	require.NoError(t, r.Register(newModel("a", "analysis", 0.9, 100, 0.0001, "analysis")))
	require.NoError(t, r.Register(newModel("b", "general", 0.8, 200, 0.0001, "text")))

	m, ok := r.Get("a")
	require.True(t, ok)
	m.Capabilities[0] = "mutated"
	again, _ := r.Get("a")
	assert.Equal(t, "analysis", again.Capabilities[0], "Get must return a copy")

	require.NoError(t, r.SetAvailability("b", false))
	available := r.Available()
	require.Len(t, available, 1)
	assert.Equal(t, "a", available[0].Name)

	assert.ErrorIs(t, r.SetAvailability("missing", true), ErrModelNotFound)

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	_, ok = r.Get("a")
	assert.False(t, ok)
	assert.NotContains(t, r.Health().ModelsByCapability, "analysis")
}

// The three-model scenario: fast fails the quality floor and must never win.
func TestSelectBest_Scenario(t *testing.T) {
	t.Parallel()

	r := New(testLogger())
	require.NoError(t, r.Register(newModel("fast", "fast", 0.8, 500, 0.0001, "analysis")))
	require.NoError(t, r.Register(newModel("general", TypeGeneral, 0.9, 2000, 0.00025, "analysis")))
	require.NoError(t, r.Register(newModel("specialized", "analysis", 0.95, 1500, 0.0005, "analysis")))

	criteria := domain.SelectionCriteria{
		TaskType:             domain.TaskAnalysis,
		Complexity:           domain.ComplexityMedium,
		LatencyRequirementMs: 2000,
		QualityRequirement:   0.85,
		CostConstraint:       domain.CostMedium,
	}

	m, err := r.SelectBest(criteria)

	require.NoError(t, err)
	assert.NotEqual(t, "fast", m.Name)
	assert.Contains(t, []string{"general", "specialized"}, m.Name)

	// 0.4 + 0.075 + 0 + 0.1 beats 0.4 + 0 + 0.1 + 0.07
	assert.Equal(t, "specialized", m.Name)
	general, _ := r.Get("general")
	assert.InDelta(t, 0.57, Score(general, criteria, "analysis"), 1e-9)
	assert.InDelta(t, 0.575, Score(m, criteria, "analysis"), 1e-9)
}

func TestSelectBest_HardConstraintMonotonicity(t *testing.T) {
	t.Parallel()

	r := New(testLogger())
	for i := 0; i < 40; i++ {
		quality := 0.5 + float64(i%10)*0.05
		latency := float64(200 + (i*137)%4000)
		cost := 0.0001 * float64(1+i%9)
		require.NoError(t, r.Register(newModel(fmt.Sprintf("m%d", i), "analysis", quality, latency, cost, "analysis")))
	}

	for _, latReq := range []float64{300, 1000, 2500, 5000} {
		for _, qReq := range []float64{0.5, 0.7, 0.85, 0.95} {
			c := domain.SelectionCriteria{
				TaskType:             domain.TaskAnalysis,
				LatencyRequirementMs: latReq,
				QualityRequirement:   qReq,
				CostConstraint:       domain.CostLow,
			}
			m, err := r.SelectBest(c)
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrNoCandidate)
				continue
			}
			assert.LessOrEqual(t, m.AvgLatencyMs, latReq)
			assert.GreaterOrEqual(t, m.QualityScore, qReq)
		}
	}
}

func TestSelectBest_Fallbacks(t *testing.T) {
	t.Parallel()

	r := New(testLogger())
	require.NoError(t, r.Register(newModel("translator", "translation", 0.9, 100, 0.0001, "translation")))
	require.NoError(t, r.Register(newModel("generalist", TypeGeneral, 0.9, 100, 0.0001, "text")))

	base := domain.SelectionCriteria{LatencyRequirementMs: 1000, QualityRequirement: 0.8, CostConstraint: domain.CostMedium}

	t.Run("capability match", func(t *testing.T) {
		c := base
		c.TaskType = domain.TaskTranslation
		m, err := r.SelectBest(c)
		require.NoError(t, err)
		assert.Equal(t, "translator", m.Name)
	})

	t.Run("no capability falls back to general", func(t *testing.T) {
		c := base
		c.TaskType = domain.TaskPlanning
		m, err := r.SelectBest(c)
		require.NoError(t, err)
		assert.Equal(t, "generalist", m.Name)
	})

	t.Run("unmapped type uses text capability", func(t *testing.T) {
		c := base
		c.TaskType = domain.TaskType("custom")
		assert.Equal(t, CapabilityText, CapabilityFor(c.TaskType))
		m, err := r.SelectBest(c)
		require.NoError(t, err)
		assert.Equal(t, "generalist", m.Name)
	})

	t.Run("unavailable model is skipped", func(t *testing.T) {
		r2 := New(testLogger())
		off := false
		m := newModel("down", "translation", 0.99, 10, 0.0001, "translation")
		m.Available = &off
		require.NoError(t, r2.Register(m))

		c := base
		c.TaskType = domain.TaskTranslation
		_, err := r2.SelectBest(c)
		assert.True(t, errors.Is(err, domain.ErrNoCandidate))
	})
}

func TestSelectBest_TieKeepsRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := New(testLogger())
	require.NoError(t, r.Register(newModel("first", "search", 0.9, 100, 0.0001, "search")))
	require.NoError(t, r.Register(newModel("second", "search", 0.9, 100, 0.0001, "search")))

	m, err := r.SelectBest(domain.SelectionCriteria{
		TaskType:             domain.TaskSearch,
		LatencyRequirementMs: 1000,
		QualityRequirement:   0.5,
		CostConstraint:       domain.CostHigh,
	})

	require.NoError(t, err)
	assert.Equal(t, "first", m.Name)
}

func TestScore_Components(t *testing.T) {
	t.Parallel()

	c := domain.SelectionCriteria{
		LatencyRequirementMs: 1000,
		QualityRequirement:   0.5,
		CostConstraint:       domain.CostLow,
	}

	// quality capped at 1, latency 0.5, cost 0.5, capability absent
	m := newModel("x", "analysis", 0.9, 500, 0.0001, "search")
	assert.InDelta(t, 0.4+0.15+0.1+0.05, Score(m, c, "analysis"), 1e-9)

	// zero latency requirement contributes nothing, over-budget cost is clamped
	c.LatencyRequirementMs = 0
	m = newModel("y", TypeGeneral, 0.25, 0, 0.01, "analysis")
	assert.InDelta(t, 0.4*0.5+0+0+0.07, Score(m, c, "analysis"), 1e-9)

	assert.InDelta(t, 0.0005, CostThreshold("unknown"), 1e-12)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	r := New(testLogger())
	assert.Equal(t, Health{ModelsByType: map[string]int{}, ModelsByCapability: map[string]int{}}, r.Health())

	require.NoError(t, r.Register(newModel("a", "analysis", 0.8, 100, 0.0001, "analysis", "reporting")))
	require.NoError(t, r.Register(newModel("b", TypeGeneral, 0.6, 300, 0.0001, "text")))
	require.NoError(t, r.SetAvailability("b", false))

	h := r.Health()
	assert.Equal(t, 2, h.TotalModels)
	assert.Equal(t, 1, h.AvailableModels)
	assert.Equal(t, 1, h.ModelsByType["analysis"])
	assert.Equal(t, 1, h.ModelsByCapability["reporting"])
	assert.InDelta(t, 0.7, h.AverageQuality, 1e-9)
	assert.InDelta(t, 200, h.AverageLatencyMs, 1e-9)
}
