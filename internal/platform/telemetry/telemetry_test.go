package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/aiorch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestLogExporterWritesDataPoints(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	exp := NewLogExporter(log)

	rm := &metricdata.ResourceMetrics{
		ScopeMetrics: []metricdata.ScopeMetrics{{
			Metrics: []metricdata.Metrics{
				{
					Name: "aiorch.tasks.errors",
					Data: metricdata.Sum[int64]{DataPoints: []metricdata.DataPoint[int64]{{
						Attributes: attribute.NewSet(attribute.String("task_type", "search")),
						Value:      3,
					}}},
				},
				{
					Name: "aiorch.tasks.duration",
					Data: metricdata.Histogram[float64]{DataPoints: []metricdata.HistogramDataPoint[float64]{{
						Count: 2,
						Sum:   250,
					}}},
				},
			},
		}},
	}
	require.NoError(t, exp.Export(context.Background(), rm))

	entries, err := buf.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "aiorch.tasks.errors", entries[0]["name"])
	assert.Equal(t, "task_type=search", entries[0]["attributes"])
	assert.Equal(t, float64(3), entries[0]["value"])
	assert.Equal(t, float64(2), entries[1]["count"])
	assert.Equal(t, float64(250), entries[1]["sum"])
}

func TestMeterProviderExportsOnShutdown(t *testing.T) {
	t.Parallel()

	log, buf := logger.NewTestLogger(t)
	mp := NewMeterProvider(log, time.Hour)

	counter, err := mp.Meter("test").Int64Counter("test.requests")
	require.NoError(t, err)
	counter.Add(context.Background(), 2, metric.WithAttributes(attribute.String("route", "tasks")))

	require.NoError(t, mp.Shutdown(context.Background()))

	entries, err := buf.Entries()
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e["name"] == "test.requests" {
			found = true
			assert.Equal(t, float64(2), e["value"])
			assert.Equal(t, "route=tasks", e["attributes"])
		}
	}
	assert.True(t, found, "shutdown flushes a final collection")
}
