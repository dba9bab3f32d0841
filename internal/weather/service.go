package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/weatherlens/weatherlens/internal/weather"

// ErrEmptyQuery is returned when a zero Query is passed to the service.
var ErrEmptyQuery = errors.New("empty weather query")

// Provider defines the interface for weather data providers.
type Provider interface {
	// Current fetches current conditions for the queried location.
	Current(ctx context.Context, q Query) (*CurrentConditions, error)

	// Forecast fetches the 3-hour forecast series for the queried location,
	// in ascending time order.
	Forecast(ctx context.Context, q Query) ([]ForecastSample, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Tracer for query spans (optional, defaults to the global tracer).
	Tracer trace.Tracer

	// Now returns the current time (optional, defaults to time.Now).
	Now func() time.Time
}

// Service combines current conditions and the daily forecast for a query.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		tracer:   tracer,
		now:      now,
	}
}

// Query fetches current conditions, then the forecast, and reduces the
// forecast to daily entries. The first failing call aborts the lookup and
// its error is returned unchanged in kind.
func (s *Service) Query(ctx context.Context, q Query) (*Result, error) {
	if q.IsZero() {
		return nil, ErrEmptyQuery
	}

	ctx, span := s.tracer.Start(ctx, "weather.Query",
		trace.WithAttributes(
			attribute.String("weather.provider", s.provider.Name()),
			attribute.String("weather.query.type", q.Type()),
		),
	)
	defer span.End()

	s.logger.Debug().
		Str("query_type", q.Type()).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	current, err := s.provider.Current(ctx, q)
	if err != nil {
		return nil, s.fail(span, q, "current", err)
	}

	samples, err := s.provider.Forecast(ctx, q)
	if err != nil {
		return nil, s.fail(span, q, "forecast", err)
	}

	result := &Result{
		Current:   *current,
		Daily:     ReduceDaily(samples),
		FetchedAt: s.now(),
	}

	span.SetAttributes(
		attribute.Int("weather.samples", len(samples)),
		attribute.Int("weather.days", len(result.Daily)),
	)

	return result, nil
}

func (s *Service) fail(span trace.Span, q Query, endpoint string, err error) error {
	kind := KindOf(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))

	s.logger.Error().Err(err).
		Str("query_type", q.Type()).
		Str("endpoint", endpoint).
		Str("kind", string(kind)).
		Msg("failed to fetch weather")

	return fmt.Errorf("fetching %s weather: %w", endpoint, err)
}
