package monitor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/phrazzld/aiorch/internal/monitor"

// instruments holds the exported counterparts of the metric log.
type instruments struct {
	processed  metric.Int64Counter
	cacheHits  metric.Int64Counter
	errors     metric.Int64Counter
	modelUsage metric.Int64Counter
	duration   metric.Float64Histogram
}

func newInstruments(provider metric.MeterProvider) (*instruments, error) {
	meter := provider.Meter(meterName)
	m := &instruments{}
	var err error

	m.processed, err = meter.Int64Counter("aiorch.tasks.processed",
		metric.WithDescription("Number of tasks processed by a model"))
	if err != nil {
		return nil, err
	}

	m.cacheHits, err = meter.Int64Counter("aiorch.cache.hits",
		metric.WithDescription("Number of tasks answered from the semantic cache"))
	if err != nil {
		return nil, err
	}

	m.errors, err = meter.Int64Counter("aiorch.tasks.errors",
		metric.WithDescription("Number of tasks that failed"))
	if err != nil {
		return nil, err
	}

	m.modelUsage, err = meter.Int64Counter("aiorch.model.usage",
		metric.WithDescription("Number of tasks served per model"))
	if err != nil {
		return nil, err
	}

	m.duration, err = meter.Float64Histogram("aiorch.task.duration_ms",
		metric.WithDescription("Task processing time in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (i *instruments) record(ctx context.Context, m Metric) {
	if i == nil {
		return
	}
	switch m.Kind {
	case KindProcessingTime:
		attrs := metric.WithAttributes(
			attribute.String("task_type", string(m.TaskType)),
			attribute.String("model", m.Model))
		i.processed.Add(ctx, 1, attrs)
		i.duration.Record(ctx, m.Value, attrs)
	case KindCacheHit:
		i.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("task_type", string(m.TaskType))))
	case KindError:
		i.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("task_type", string(m.TaskType)),
			attribute.String("kind", m.ErrorKind)))
	case KindModelUsage:
		i.modelUsage.Add(ctx, 1, metric.WithAttributes(attribute.String("model", m.Model)))
	}
}
