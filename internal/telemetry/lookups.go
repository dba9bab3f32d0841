package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/weatherlens/weatherlens/internal/app"
)

const meterName = "github.com/weatherlens/weatherlens/internal/telemetry"

// LookupMetrics counts committed lookups. It is an app.Listener.
type LookupMetrics struct {
	completed    metric.Int64Counter
	forecastDays metric.Int64Histogram
}

var _ app.Listener = (*LookupMetrics)(nil)

// NewLookupMetrics creates the instruments on the global meter provider.
func NewLookupMetrics() (*LookupMetrics, error) {
	meter := otel.Meter(meterName)

	completed, err := meter.Int64Counter(
		"weatherlens.lookup.completed",
		metric.WithDescription("Lookups whose result was shown"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	forecastDays, err := meter.Int64Histogram(
		"weatherlens.lookup.forecast_days",
		metric.WithDescription("Forecast cards shown per lookup"),
		metric.WithUnit("{day}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5),
	)
	if err != nil {
		return nil, err
	}

	return &LookupMetrics{completed: completed, forecastDays: forecastDays}, nil
}

// LookupCompleted implements app.Listener.
func (m *LookupMetrics) LookupCompleted(ctx context.Context, c app.Completion) {
	attrs := metric.WithAttributes(attribute.String("lookup.source", string(c.Source)))
	m.completed.Add(ctx, 1, attrs)
	m.forecastDays.Record(ctx, int64(len(c.Result.Daily)), attrs)
}
