package render

import (
	"math"
	"strconv"
	"time"

	"github.com/weatherlens/weatherlens/internal/weather"
)

// Hook runs after the core mapping of every render, in registration order.
// A hook derives its change from the result only.
type Hook func(d *Display, res *weather.Result)

// Config holds configuration for the renderer.
type Config struct {
	// Location is used for forecast card dates (default: time.Local).
	Location *time.Location

	// IconBaseURL hosts icon images (default: DefaultIconBaseURL).
	IconBaseURL string

	// Hooks run after each render.
	Hooks []Hook
}

// Renderer fills a Display from a lookup result.
type Renderer struct {
	loc      *time.Location
	iconBase string
	hooks    []Hook
}

// NewRenderer creates a renderer.
func NewRenderer(cfg Config) *Renderer {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	iconBase := cfg.IconBaseURL
	if iconBase == "" {
		iconBase = DefaultIconBaseURL
	}

	return &Renderer{
		loc:      loc,
		iconBase: iconBase,
		hooks:    append([]Hook(nil), cfg.Hooks...),
	}
}

// Render replaces the display content with res. Previously rendered cards
// are always removed first.
func (r *Renderer) Render(d *Display, res *weather.Result) {
	c := res.Current
	d.Fields = Fields{
		Location:    "Weather in " + c.Place + ", " + c.Country,
		Temperature: Degrees(c.Temperature),
		FeelsLike:   Degrees(c.FeelsLike),
		Humidity:    strconv.Itoa(c.Humidity),
		WindSpeed:   strconv.FormatInt(roundHalfUp(c.WindSpeedKmh()), 10),
		Visibility:  strconv.FormatFloat(c.VisibilityKm(), 'f', 1, 64),
		Description: c.Description,
		Icon:        c.Icon,
		IconURL:     IconURL(r.iconBase, c.Icon, true),
	}

	d.Forecast.Clear()
	for _, day := range res.Daily {
		d.Forecast.Append(Card{
			Weekday:     day.Weekday(r.loc),
			MonthDay:    day.MonthDay(r.loc),
			Icon:        day.Icon,
			IconURL:     IconURL(r.iconBase, day.Icon, false),
			Temperature: Degrees(day.Temperature),
			Description: day.Description,
		})
	}

	for _, hook := range r.hooks {
		hook(d, res)
	}
}

// Degrees formats a temperature as a whole number.
func Degrees(celsius float64) string {
	return strconv.FormatInt(roundHalfUp(celsius), 10)
}

// roundHalfUp rounds to the nearest integer with halves going up, so -2.5
// becomes -2 and 2.5 becomes 3.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}
