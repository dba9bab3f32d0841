package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/weatherlens/weatherlens/internal/app"
	"github.com/weatherlens/weatherlens/internal/telemetry"
	"github.com/weatherlens/weatherlens/internal/weather"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "weatherlens-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	assert.NoError(t, (&telemetry.Provider{}).Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := telemetry.Sampler(tt.ratio).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, tt.want)
	}
}

func TestSampler_FollowsSampledParent(t *testing.T) {
	sampler := telemetry.Sampler(0.0001)
	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})

	res := sampler.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: trace.ContextWithRemoteSpanContext(context.Background(), parent),
		TraceID:       parent.TraceID(),
		Name:          "GET /v1/weather",
	})
	assert.Equal(t, sdktrace.RecordAndSample, res.Decision)
}

func TestLookupMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() {
		otel.SetMeterProvider(prev)
		_ = mp.Shutdown(context.Background())
	})

	m, err := telemetry.NewLookupMetrics()
	require.NoError(t, err)

	res := &weather.Result{Daily: make([]weather.DailyForecast, 4)}
	m.LookupCompleted(context.Background(), app.Completion{Result: res, Source: app.SourceCity, At: time.Now()})
	m.LookupCompleted(context.Background(), app.Completion{Result: res, Source: app.SourceCity, At: time.Now()})
	m.LookupCompleted(context.Background(), app.Completion{Result: res, Source: app.SourceLocation, At: time.Now()})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "weatherlens.lookup.completed" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				source, _ := dp.Attributes.Value(attribute.Key("lookup.source"))
				counts[source.AsString()] = dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"city": 2, "location": 1}, counts)
}
