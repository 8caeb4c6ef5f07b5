package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/aiorch/internal/cache"
	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/enrich"
	"github.com/phrazzld/aiorch/internal/events"
	"github.com/phrazzld/aiorch/internal/generation"
	"github.com/phrazzld/aiorch/internal/monitor"
	"github.com/phrazzld/aiorch/internal/redact"
	"github.com/phrazzld/aiorch/internal/registry"
	"github.com/phrazzld/aiorch/internal/task"
)

// logged task input is cut to this many characters
const promptLogLimit = 120

// Components are the collaborators an Orchestrator coordinates.
// Enricher and Events are optional.
type Components struct {
	Registry *registry.Registry
	Cache    *cache.Cache
	Queue    *task.Queue
	Monitor  *monitor.Monitor
	Enricher *enrich.Enricher
	Events   events.EventEmitter
}

// Config holds the facade-level tuning.
type Config struct {
	// ConsumeThreshold is the similarity a cache match must exceed to be returned as is.
	ConsumeThreshold float64

	// DisableDeadline stops MaxLatencyMs from being applied as a context deadline.
	DisableDeadline bool
}

// ConfigFrom extracts the orchestrator settings from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		ConsumeThreshold: cfg.Cache.ConsumeThreshold,
		DisableDeadline:  cfg.Orchestrator.DisableDeadline,
	}
}

// Orchestrator processes tasks end to end.
type Orchestrator struct {
	registry *registry.Registry
	cache    *cache.Cache
	queue    *task.Queue
	monitor  *monitor.Monitor
	enricher *enrich.Enricher
	events   events.EventEmitter

	cfg    Config
	now    func() time.Time
	logger *slog.Logger
}

// New validates the components and builds an Orchestrator. When no event emitter
// is supplied, an in-memory one feeding the enricher's session history is used.
// The cache and enricher report their absorbed failures to the monitor.
func New(c Components, cfg Config, logger *slog.Logger) (*Orchestrator, error) {
	if c.Registry == nil || c.Cache == nil || c.Queue == nil || c.Monitor == nil {
		return nil, errors.New("orchestrator requires a registry, cache, queue and monitor")
	}

	emitter := c.Events
	if emitter == nil {
		mem := events.NewInMemoryEventEmitter(logger)
		if c.Enricher != nil && c.Enricher.History() != nil {
			mem.RegisterHandler(c.Enricher.History())
		}
		emitter = mem
	}

	// Failures the cache and enricher absorb still count as errors.
	c.Cache.SetErrorHook(c.Monitor.RecordError)
	if c.Enricher != nil {
		c.Enricher.SetErrorHook(c.Monitor.RecordError)
	}

	return &Orchestrator{
		registry: c.Registry,
		cache:    c.Cache,
		queue:    c.Queue,
		monitor:  c.Monitor,
		enricher: c.Enricher,
		events:   emitter,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With("component", "orchestrator"),
	}, nil
}

// Process runs a task through enrichment, the cache, model selection and the
// queue. Failures are returned as *domain.ProcessingFailure and recorded with the
// monitor; cache problems never fail a task.
func (o *Orchestrator) Process(ctx context.Context, t domain.Task, userID string) (*domain.ResultEnvelope, error) {
	start := o.now()
	t = t.WithDefaults()

	log := o.logger.With(
		"task_type", t.Type,
		"priority", t.Priority,
		"session_id", t.SessionID)

	if err := t.Validate(); err != nil {
		return nil, o.fail(ctx, log, t, userID, start, "task rejected", err)
	}

	log.DebugContext(ctx, "processing task", "input", redact.Prompt(t.Input, promptLogLimit))

	if !o.cfg.DisableDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(t.MaxLatencyMs)*time.Millisecond)
		defer cancel()
	}

	enriched := o.enrich(ctx, t, userID)

	if match, ok := o.cache.Search(ctx, t); ok {
		if match.Similarity > o.cfg.ConsumeThreshold {
			return o.fromCache(ctx, log, t, userID, start, match), nil
		}
		log.DebugContext(ctx, "cache match below consume threshold",
			"similarity", match.Similarity,
			"threshold", o.cfg.ConsumeThreshold)
	}

	criteria := DeriveCriteria(t)
	model, err := o.registry.SelectBest(criteria)
	if err != nil {
		return nil, o.fail(ctx, log, t, userID, start, "no model can serve the task", err)
	}
	log = log.With("model", model.Name, "complexity", criteria.Complexity)

	raw, err := o.queue.Process(ctx, execute(model, enriched), t.Priority)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %dms: %w", domain.ErrDeadlineExceeded, t.MaxLatencyMs, err)
		}
		return nil, o.fail(ctx, log, t, userID, start, "model execution failed", err)
	}

	out, ok := raw.(generation.Output)
	if !ok {
		err := fmt.Errorf("%w: processor returned %T", domain.ErrInvalidResult, raw)
		return nil, o.fail(ctx, log, t, userID, start, "model returned an unusable result", err)
	}

	result, err := normalize(t.Type, out.Result)
	if err != nil {
		return nil, o.fail(ctx, log, t, userID, start, "model returned an unusable result", err)
	}

	confidence := model.QualityScore
	if out.Confidence != nil {
		confidence = *out.Confidence
	}
	elapsed := millisSince(o.now(), start)

	o.cache.Store(ctx, t, cache.Value{
		Result:     result,
		ModelUsed:  model.Name,
		Confidence: confidence,
	})
	o.monitor.RecordProcessing(ctx, t.Type, elapsed, model.Name)
	o.monitor.RecordModelUsage(ctx, model.Name)
	o.emit(ctx, events.TypeTaskCompleted, events.TaskOutcome{
		TaskType:   t.Type,
		SessionID:  t.SessionID,
		UserID:     userID,
		Model:      model.Name,
		DurationMs: elapsed,
	})

	log.InfoContext(ctx, "task processed",
		"duration_ms", elapsed,
		"confidence", confidence)

	return &domain.ResultEnvelope{
		Data: result,
		Metadata: domain.EnvelopeMetadata{
			FromCache:        false,
			Timestamp:        o.now(),
			Confidence:       confidence,
			ProcessingTimeMs: elapsed,
			ModelUsed:        model.Name,
		},
	}, nil
}

// Registry exposes the model registry for inspection.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Monitor exposes the performance monitor for reporting.
func (o *Orchestrator) Monitor() *monitor.Monitor {
	return o.monitor
}

// CacheStats returns the semantic cache counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// QueueStats returns the task queue counters.
func (o *Orchestrator) QueueStats() task.Stats {
	return o.queue.Stats()
}

// Close stops the queue and the monitor sweep and releases enrichment resources.
func (o *Orchestrator) Close() {
	o.queue.Stop()
	o.monitor.Stop()
	if o.enricher != nil {
		o.enricher.Close()
	}
}

func (o *Orchestrator) enrich(ctx context.Context, t domain.Task, userID string) domain.Task {
	if o.enricher == nil {
		return t.WithContext(domain.TaskContext{
			Timestamp: o.now(),
			SessionID: t.SessionID,
			UserID:    userID,
		})
	}
	return o.enricher.Enrich(ctx, t, userID)
}

func (o *Orchestrator) fromCache(
	ctx context.Context,
	log *slog.Logger,
	t domain.Task,
	userID string,
	start time.Time,
	match cache.Match,
) *domain.ResultEnvelope {
	elapsed := millisSince(o.now(), start)
	v := match.Entry.Value

	o.monitor.RecordCacheHit(ctx, t.Type)
	o.emit(ctx, events.TypeTaskCompleted, events.TaskOutcome{
		TaskType:   t.Type,
		SessionID:  t.SessionID,
		UserID:     userID,
		Model:      v.ModelUsed,
		FromCache:  true,
		DurationMs: elapsed,
	})

	log.InfoContext(ctx, "task answered from cache",
		"similarity", match.Similarity,
		"model", v.ModelUsed)

	return &domain.ResultEnvelope{
		Data: v.Result,
		Metadata: domain.EnvelopeMetadata{
			FromCache:        true,
			Timestamp:        o.now(),
			Confidence:       v.Confidence,
			ProcessingTimeMs: elapsed,
			ModelUsed:        v.ModelUsed,
		},
	}
}

// fail records err and turns it into the ProcessingFailure returned to callers.
func (o *Orchestrator) fail(
	ctx context.Context,
	log *slog.Logger,
	t domain.Task,
	userID string,
	start time.Time,
	message string,
	err error,
) error {
	failure := domain.NewProcessingFailure(message, err)

	o.monitor.RecordError(ctx, t.Type, err)
	o.emit(ctx, events.TypeTaskFailed, events.TaskOutcome{
		TaskType:   t.Type,
		SessionID:  t.SessionID,
		UserID:     userID,
		DurationMs: millisSince(o.now(), start),
		ErrorKind:  failure.Kind,
	})

	level := slog.LevelError
	if failure.Kind == domain.KindValidation || failure.Kind == domain.KindNoCandidate {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, message,
		"kind", failure.Kind,
		"error", redact.Error(err))

	return failure
}

// emit publishes an outcome event. Handler failures are logged by the emitter.
func (o *Orchestrator) emit(ctx context.Context, eventType string, outcome events.TaskOutcome) {
	event, err := events.NewTaskEvent(eventType, outcome)
	if err != nil {
		o.logger.WarnContext(ctx, "failed to build task event", "error", err)
		return
	}
	_ = o.events.EmitEvent(ctx, event)
}

// execute adapts a model's processor to a queue executor. Errors the processor
// reports as permanent are not retried.
func execute(model registry.Model, t domain.Task) task.Executor {
	return func(ctx context.Context) (any, error) {
		out, err := model.Processor.Process(ctx, t)
		if err != nil {
			if generation.IsPermanent(err) {
				return nil, task.Permanent(err)
			}
			return nil, err
		}
		return out, nil
	}
}

// normalize stamps the task type on a processor result and checks its schema.
func normalize(taskType domain.TaskType, r domain.Result) (domain.Result, error) {
	if r.Kind == "" {
		r.Kind = taskType
	}
	if r.Kind != taskType {
		return domain.Result{}, fmt.Errorf("%w: result kind %s does not match task type %s",
			domain.ErrInvalidResult, r.Kind, taskType)
	}
	if err := r.Validate(); err != nil {
		return domain.Result{}, err
	}
	return r, nil
}

func millisSince(now, start time.Time) float64 {
	return float64(now.Sub(start).Microseconds()) / 1000
}
