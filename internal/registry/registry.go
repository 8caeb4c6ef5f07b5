package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/phrazzld/aiorch/internal/domain"
)

// Registration errors.
var (
	ErrInvalidModel   = errors.New("invalid model")
	ErrDuplicateModel = errors.New("model already registered")
	ErrModelNotFound  = errors.New("model not found")
)

// DuplicatePolicy decides what Register does with a name that is already taken.
type DuplicatePolicy int

const (
	// DuplicateOverwrite replaces the existing model and logs a warning.
	DuplicateOverwrite DuplicatePolicy = iota
	// DuplicateReject refuses the registration with ErrDuplicateModel.
	DuplicateReject
)

// Option configures a Registry.
type Option func(*Registry)

// WithDuplicatePolicy sets how duplicate names are handled.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(r *Registry) {
		r.policy = p
	}
}

// Registry is the in-memory model catalog. It is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	models       map[string]Model
	order        []string
	byType       map[string]map[string]struct{}
	byCapability map[string]map[string]struct{}
	policy       DuplicatePolicy
	logger       *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		models:       make(map[string]Model),
		byType:       make(map[string]map[string]struct{}),
		byCapability: make(map[string]map[string]struct{}),
		logger:       logger.With("component", "model_registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a model and indexes it by type and by each capability.
// Re-registering a name keeps its original position in the selection order.
func (r *Registry) Register(m Model) error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidModel)
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("%w: model %s must declare at least one capability", ErrInvalidModel, m.Name)
	}
	if m.Processor == nil {
		return fmt.Errorf("%w: model %s has no processor", ErrInvalidModel, m.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.models[m.Name]; exists {
		if r.policy == DuplicateReject {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, m.Name)
		}
		r.logger.Warn("overwriting registered model",
			"model", m.Name,
			"old_type", old.Type,
			"new_type", m.Type)
		r.unindex(old)
	} else {
		r.order = append(r.order, m.Name)
	}

	m = m.clone()
	r.models[m.Name] = m
	r.index(m)

	r.logger.Info("model registered",
		"model", m.Name,
		"type", m.Type,
		"capabilities", m.Capabilities,
		"quality", m.QualityScore,
		"avg_latency_ms", m.AvgLatencyMs)

	return nil
}

// Unregister removes a model. It reports whether the model existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.models[name]
	if !ok {
		return false
	}

	r.unindex(m)
	delete(r.models, name)
	r.order = slices.DeleteFunc(r.order, func(n string) bool { return n == name })

	r.logger.Info("model unregistered", "model", name)
	return true
}

// Get returns the model registered under name.
func (r *Registry) Get(name string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[name]
	if !ok {
		return Model{}, false
	}
	return m.clone(), true
}

// All returns every registered model in registration order.
func (r *Registry) All() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Model, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.models[name].clone())
	}
	return out
}

// Available returns the models that may currently be selected, in registration order.
func (r *Registry) Available() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Model, 0, len(r.order))
	for _, name := range r.order {
		if m := r.models[name]; m.IsAvailable() {
			out = append(out, m.clone())
		}
	}
	return out
}

// SetAvailability marks a model as available or unavailable for selection.
func (r *Registry) SetAvailability(name string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.models[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	m.Available = &available
	r.models[name] = m

	r.logger.Info("model availability changed", "model", name, "available", available)
	return nil
}

// SelectBest returns the highest scoring model that satisfies the hard constraints
// of c. Candidates come from the capability index for the task type, falling back to
// all general models. Ties keep registration order.
func (r *Registry) SelectBest(c domain.SelectionCriteria) (Model, error) {
	capability := CapabilityFor(c.TaskType)

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.lookup(r.byCapability, capability)
	if len(candidates) == 0 {
		candidates = r.lookup(r.byType, TypeGeneral)
	}

	var (
		best      Model
		bestScore float64
		found     bool
	)
	for _, m := range candidates {
		if !meetsHardConstraints(m, c) {
			continue
		}
		score := Score(m, c, capability)
		r.logger.Debug("scored candidate",
			"model", m.Name,
			"score", score,
			"task_type", c.TaskType)
		if !found || score > bestScore {
			best, bestScore, found = m, score, true
		}
	}

	if !found {
		return Model{}, fmt.Errorf(
			"%w: task type %s needs latency <= %.0fms and quality >= %.2f (%d candidates considered)",
			domain.ErrNoCandidate, c.TaskType, c.LatencyRequirementMs, c.QualityRequirement, len(candidates))
	}

	r.logger.Debug("selected model",
		"model", best.Name,
		"score", bestScore,
		"capability", capability,
		"complexity", c.Complexity)

	return best.clone(), nil
}

// Health summarises the registry contents.
type Health struct {
	TotalModels        int            `json:"totalModels"`
	AvailableModels    int            `json:"availableModels"`
	ModelsByType       map[string]int `json:"modelsByType"`
	ModelsByCapability map[string]int `json:"modelsByCapability"`
	AverageQuality     float64        `json:"averageQuality"`
	AverageLatencyMs   float64        `json:"averageLatencyMs"`
}

// Health reports counts and averages across all registered models.
func (r *Registry) Health() Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := Health{
		TotalModels:        len(r.models),
		ModelsByType:       make(map[string]int, len(r.byType)),
		ModelsByCapability: make(map[string]int, len(r.byCapability)),
	}
	for t, names := range r.byType {
		h.ModelsByType[t] = len(names)
	}
	for c, names := range r.byCapability {
		h.ModelsByCapability[c] = len(names)
	}

	if len(r.models) == 0 {
		return h
	}

	var quality, latency float64
	for _, m := range r.models {
		if m.IsAvailable() {
			h.AvailableModels++
		}
		quality += m.QualityScore
		latency += m.AvgLatencyMs
	}
	h.AverageQuality = quality / float64(len(r.models))
	h.AverageLatencyMs = latency / float64(len(r.models))

	return h
}

// lookup returns the models named in index[key], in registration order.
// Callers must hold r.mu.
func (r *Registry) lookup(index map[string]map[string]struct{}, key string) []Model {
	names, ok := index[key]
	if !ok || len(names) == 0 {
		return nil
	}
	out := make([]Model, 0, len(names))
	for _, name := range r.order {
		if _, in := names[name]; in {
			out = append(out, r.models[name])
		}
	}
	return out
}

// index adds m to the type and capability indexes. Callers must hold r.mu.
func (r *Registry) index(m Model) {
	addTo(r.byType, m.Type, m.Name)
	for _, c := range m.Capabilities {
		addTo(r.byCapability, c, m.Name)
	}
}

// unindex removes m from the type and capability indexes. Callers must hold r.mu.
func (r *Registry) unindex(m Model) {
	removeFrom(r.byType, m.Type, m.Name)
	for _, c := range m.Capabilities {
		removeFrom(r.byCapability, c, m.Name)
	}
}

func addTo(index map[string]map[string]struct{}, key, name string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[name] = struct{}{}
}

func removeFrom(index map[string]map[string]struct{}, key, name string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, name)
	if len(set) == 0 {
		delete(index, key)
	}
}
