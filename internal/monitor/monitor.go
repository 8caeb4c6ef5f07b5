package monitor

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the time source used for timestamps, windows and pruning.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// WithMeterProvider exports metrics through provider instead of the global one.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(m *Monitor) {
		m.provider = provider
	}
}

// Stats are the rolling figures over the configured window. ModelUsage is cumulative.
type Stats struct {
	TotalRequests         int            `json:"totalRequests"`
	AverageResponseTimeMs float64        `json:"averageResponseTimeMs"`
	ErrorRate             float64        `json:"errorRate"`
	CacheHitRate          float64        `json:"cacheHitRate"`
	Errors                int            `json:"errors"`
	ModelUsage            map[string]int `json:"modelUsage"`
	Window                string         `json:"window"`
}

// Monitor records processing metrics. Recording is best-effort and never fails.
type Monitor struct {
	mu         sync.RWMutex
	log        *ring
	modelUsage map[string]int

	cfg         config.MonitorConfig
	now         func() time.Time
	provider    metric.MeterProvider
	instruments *instruments
	logger      *slog.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a monitor. The sweep is not running until Start is called.
func New(cfg config.MonitorConfig, logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		log:        newRing(cfg.MaxMetrics),
		modelUsage: make(map[string]int),
		cfg:        cfg,
		now:        time.Now,
		logger:     logger.With("component", "performance_monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.provider == nil {
		m.provider = otel.GetMeterProvider()
	}

	inst, err := newInstruments(m.provider)
	if err != nil {
		m.logger.Warn("metric export disabled", "error", err)
	} else {
		m.instruments = inst
	}
	return m
}

// RecordProcessing logs how long a model took to process a task.
func (m *Monitor) RecordProcessing(ctx context.Context, taskType domain.TaskType, durationMs float64, model string) {
	m.record(ctx, Metric{Kind: KindProcessingTime, Value: durationMs, TaskType: taskType, Model: model})
}

// RecordCacheHit logs a task answered from the cache.
func (m *Monitor) RecordCacheHit(ctx context.Context, taskType domain.TaskType) {
	m.record(ctx, Metric{Kind: KindCacheHit, Value: 1, TaskType: taskType})
}

// RecordError logs a failed task.
func (m *Monitor) RecordError(ctx context.Context, taskType domain.TaskType, err error) {
	m.record(ctx, Metric{Kind: KindError, Value: 1, TaskType: taskType, ErrorKind: domain.KindOf(err)})
}

// RecordModelUsage counts one task served by model.
func (m *Monitor) RecordModelUsage(ctx context.Context, model string) {
	m.record(ctx, Metric{Kind: KindModelUsage, Value: 1, Model: model})
}

func (m *Monitor) record(ctx context.Context, entry Metric) {
	entry.Timestamp = m.now()

	m.mu.Lock()
	m.log.push(entry)
	if entry.Kind == KindModelUsage {
		m.modelUsage[entry.Model]++
	}
	m.mu.Unlock()

	m.instruments.record(ctx, entry)
}

// Stats computes the rolling statistics over the last window.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-m.cfg.Window)

	var processing, hits, errs int
	var totalTime float64
	m.log.each(func(entry Metric) {
		if entry.Timestamp.Before(cutoff) {
			return
		}
		switch entry.Kind {
		case KindProcessingTime:
			processing++
			totalTime += entry.Value
		case KindCacheHit:
			hits++
		case KindError:
			errs++
		}
	})

	s := Stats{
		TotalRequests: processing + hits,
		Errors:        errs,
		ModelUsage:    maps.Clone(m.modelUsage),
		Window:        m.cfg.Window.String(),
	}
	if processing > 0 {
		s.AverageResponseTimeMs = totalTime / float64(processing)
	}
	if s.TotalRequests > 0 {
		s.ErrorRate = float64(errs) / float64(s.TotalRequests)
		s.CacheHitRate = float64(hits) / float64(s.TotalRequests)
	}
	return s
}

// Len returns the number of metrics currently held.
func (m *Monitor) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.log.len()
}

// Prune drops metrics older than the retention period and returns how many were removed.
func (m *Monitor) Prune() int {
	m.mu.Lock()
	dropped := m.log.dropOlderThan(m.now().Add(-m.cfg.Retention))
	m.mu.Unlock()

	if dropped > 0 {
		m.logger.Debug("pruned expired metrics", "count", dropped)
	}
	return dropped
}

// Start runs Prune every sweep interval until Stop is called or ctx ends.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancelFunc != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	m.mu.Unlock()

	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Prune()
			}
		}
	}()
}

// Stop halts the background sweep and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancelFunc
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
