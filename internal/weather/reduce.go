package weather

const (
	// SamplesPerDay is the number of 3-hour samples in 24 hours.
	SamplesPerDay = 8

	// MaxForecastDays is the number of daily entries kept.
	MaxForecastDays = 5
)

// ReduceDaily picks one sample per day from a 3-hour forecast series.
// It takes every eighth sample starting at index 0, so all picks share the
// time of day of the first sample, then drops the first pick (today, which
// current conditions already cover) and keeps at most MaxForecastDays.
// Fewer than nine samples yield an empty result.
func ReduceDaily(samples []ForecastSample) []DailyForecast {
	daily := make([]DailyForecast, 0, MaxForecastDays)
	for i := SamplesPerDay; i < len(samples) && len(daily) < MaxForecastDays; i += SamplesPerDay {
		daily = append(daily, DailyForecast{ForecastSample: samples[i]})
	}
	return daily
}
