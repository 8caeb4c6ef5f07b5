// Package telemetry builds the OpenTelemetry meter provider used by the server.
// Collected metrics are periodically written to the structured log, so every
// deployment gets them without running a collector.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// LogExporter is an sdkmetric.Exporter that writes one log record per data point.
type LogExporter struct {
	logger *slog.Logger
}

var _ sdkmetric.Exporter = (*LogExporter)(nil)

// NewLogExporter returns an exporter writing to logger at info level.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger.With("component", "telemetry")}
}

// NewMeterProvider returns a meter provider exporting through a LogExporter every interval.
func NewMeterProvider(logger *slog.Logger, interval time.Duration) *sdkmetric.MeterProvider {
	reader := sdkmetric.NewPeriodicReader(NewLogExporter(logger), sdkmetric.WithInterval(interval))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

// Temporality implements sdkmetric.Exporter.
func (e *LogExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

// Aggregation implements sdkmetric.Exporter.
func (e *LogExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

// Export implements sdkmetric.Exporter.
func (e *LogExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					e.logger.InfoContext(ctx, "metric",
						"name", m.Name,
						"attributes", encode(dp.Attributes),
						"value", dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					e.logger.InfoContext(ctx, "metric",
						"name", m.Name,
						"attributes", encode(dp.Attributes),
						"value", dp.Value)
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					e.logger.InfoContext(ctx, "metric",
						"name", m.Name,
						"attributes", encode(dp.Attributes),
						"count", dp.Count,
						"sum", dp.Sum)
				}
			default:
				e.logger.DebugContext(ctx, "unsupported metric aggregation", "name", m.Name)
			}
		}
	}
	return nil
}

// ForceFlush implements sdkmetric.Exporter; nothing is buffered.
func (e *LogExporter) ForceFlush(context.Context) error { return nil }

// Shutdown implements sdkmetric.Exporter.
func (e *LogExporter) Shutdown(context.Context) error { return nil }

func encode(set attribute.Set) string {
	return set.Encoded(attribute.DefaultEncoder())
}
